package hover

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/dbtls/pkg/position"
	"github.com/walteh/dbtls/pkg/project"
)

// Location is a range in a project file.
type Location struct {
	Path  string
	Range position.Range
}

// Definition finds where the model of a ref(...) argument or the macro of a
// call under offset is defined.
func Definition(ctx context.Context, prj *project.Project, f *project.File, offset int) (Location, bool) {
	if prj == nil || f == nil {
		return Location{}, false
	}
	target, ok := Locate(f.Tree, offset)
	if !ok {
		return Location{}, false
	}

	switch target.Kind {
	case TargetRef:
		p, ok := prj.ModelPath(target.Name)
		if !ok {
			return Location{}, false
		}
		return Location{Path: p}, true
	case TargetMacro:
		m, ok := prj.LookupMacro(target.Name)
		if !ok {
			return Location{}, false
		}
		def, ok := lookupFile(prj, m)
		if !ok {
			zerolog.Ctx(ctx).Warn().Str("macro", m.Identifier()).Str("path", m.Path).Msg("macro file is no longer loaded")
			return Location{Path: m.Path}, true
		}
		return Location{Path: m.Path, Range: def.Index.Range(m.NameRange)}, true
	}
	return Location{}, false
}

func lookupFile(prj *project.Project, m project.Macro) (*project.File, bool) {
	if f, ok := prj.File(m.Path); ok {
		return f, true
	}
	for _, pkg := range prj.Packages {
		if f, ok := pkg.File(m.Path); ok {
			return f, true
		}
	}
	return nil, false
}
