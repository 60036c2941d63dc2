package project

import (
	"context"
	"path"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/finder"
	"github.com/walteh/dbtls/pkg/parser"
	"github.com/walteh/dbtls/pkg/position"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// File is a parsed template with what was extracted from it.
type File struct {
	Path             string
	Tree             *cst.Tree
	Errors           []parser.ParseError
	Index            *position.Index
	Macros           []Macro
	Materializations []Materialization
}

// ParseFile parses text; macros are attributed to path.
func ParseFile(ctx context.Context, path, text string) (*File, error) {
	res, err := parser.Parse(ctx, text)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", path, err)
	}
	macros, mats := Extract(res.Tree)
	for i := range macros {
		macros[i].Path = path
	}
	return &File{
		Path:             path,
		Tree:             res.Tree,
		Errors:           res.Errors,
		Index:            position.NewIndex(text),
		Macros:           macros,
		Materializations: mats,
	}, nil
}

// Role is what a path is to the project.
type Role int

const (
	RoleOther Role = iota
	RoleModel
	RoleMacro
)

// Project is a loaded dbt project. It is safe for concurrent use.
type Project struct {
	Root string
	Spec *Spec
	// Packages are the projects installed under the packages install path.
	Packages []*Project

	fs     afero.Fs
	finder finder.TemplateFinder
	mu     sync.RWMutex
	models map[string]*File
	macros map[string]*File
}

// Load reads the project rooted at root. Files that cannot be read or
// parsed are skipped; Load then returns the project together with a
// *multierror.Error listing them.
func Load(ctx context.Context, fs afero.Fs, root string) (*Project, error) {
	p, errs, err := loadPackage(ctx, fs, root)
	if err != nil {
		return nil, err
	}

	pkgDir := path.Join(root, p.Spec.PackagesInstallPath)
	entries, err := afero.ReadDir(fs, pkgDir)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Str("dir", pkgDir).Err(err).Msg("no installed packages")
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := path.Join(pkgDir, entry.Name())
		if ok, _ := afero.Exists(fs, path.Join(dir, SpecFile)); !ok {
			zerolog.Ctx(ctx).Warn().Str("dir", dir).Msg("installed package has no " + SpecFile)
			continue
		}
		pkg, pkgErrs, err := loadPackage(ctx, fs, dir)
		if err != nil {
			errs = multierror.Append(errs, errors.Errorf("loading package %s: %w", entry.Name(), err))
			continue
		}
		errs = multierror.Append(errs, pkgErrs.WrappedErrors()...)
		p.Packages = append(p.Packages, pkg)
	}

	zerolog.Ctx(ctx).Debug().
		Str("root", root).
		Str("name", p.Spec.Name).
		Int("models", len(p.models)).
		Int("macro_files", len(p.macros)).
		Int("packages", len(p.Packages)).
		Msg("loaded project")

	if errs.Len() > 0 {
		return p, errs
	}
	return p, nil
}

func loadPackage(ctx context.Context, fs afero.Fs, root string) (*Project, *multierror.Error, error) {
	data, err := afero.ReadFile(fs, path.Join(root, SpecFile))
	if err != nil {
		return nil, nil, errors.Errorf("reading %s: %w", SpecFile, err)
	}
	spec, err := ParseSpec(data)
	if err != nil {
		return nil, nil, err
	}

	p := &Project{
		Root:   root,
		Spec:   spec,
		fs:     fs,
		finder: finder.NewDefaultFinder(fs),
		models: map[string]*File{},
		macros: map[string]*File{},
	}

	errs := &multierror.Error{}
	models, err := p.parseAll(ctx, spec.ModelPaths, errs)
	if err != nil {
		return nil, nil, err
	}
	macros, err := p.parseAll(ctx, spec.MacroPaths, errs)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range models {
		p.models[f.Path] = f
	}
	for _, f := range macros {
		p.macros[f.Path] = f
	}
	return p, errs, nil
}

// sqlFiles lists the .sql files below each of dirs, relative to the root.
func (me *Project) sqlFiles(ctx context.Context, dirs []string) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		abs := path.Join(me.Root, dir)
		if ok, _ := afero.DirExists(me.fs, abs); !ok {
			continue
		}
		matches, err := me.finder.FindTemplates(ctx, abs, finder.DefaultExtensions)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// parseAll parses every .sql file below dirs in parallel. Per-file failures
// go to errs; only cancellation is returned.
func (me *Project) parseAll(ctx context.Context, dirs []string, errs *multierror.Error) ([]*File, error) {
	paths, err := me.sqlFiles(ctx, dirs)
	if err != nil {
		return nil, err
	}

	files := make([]*File, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		g.Go(func() error {
			data, err := afero.ReadFile(me.fs, p)
			if err == nil {
				files[i], err = ParseFile(ctx, p, string(data))
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				multierror.Append(errs, errors.Errorf("loading %s: %w", p, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("loading project files: %w", err)
	}

	return slices.DeleteFunc(files, func(f *File) bool { return f == nil }), nil
}

func under(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// Role classifies path against the model and macro paths.
func (me *Project) Role(p string) Role {
	p = path.Clean(p)
	for _, dir := range me.Spec.ModelPaths {
		if under(p, path.Join(me.Root, dir)) {
			return RoleModel
		}
	}
	for _, dir := range me.Spec.MacroPaths {
		if under(p, path.Join(me.Root, dir)) {
			return RoleMacro
		}
	}
	return RoleOther
}

// Update reparses the file at path with new text. Models and macro files
// are recorded in the project; any other file is parsed but not kept.
func (me *Project) Update(ctx context.Context, p, text string) (*File, error) {
	f, err := ParseFile(ctx, p, text)
	if err != nil {
		return nil, err
	}
	me.Store(f)
	return f, nil
}

// Store records an already parsed file when it is a model or macro file.
func (me *Project) Store(f *File) {
	me.mu.Lock()
	defer me.mu.Unlock()
	switch me.Role(f.Path) {
	case RoleModel:
		me.models[f.Path] = f
	case RoleMacro:
		me.macros[f.Path] = f
	}
}

// Reload rereads path from disk, forgetting it if it no longer exists.
func (me *Project) Reload(ctx context.Context, p string) error {
	data, err := afero.ReadFile(me.fs, p)
	if err != nil {
		if ok, _ := afero.Exists(me.fs, p); !ok {
			me.Remove(p)
			return nil
		}
		return errors.Errorf("reloading %s: %w", p, err)
	}
	_, err = me.Update(ctx, p, string(data))
	return err
}

func (me *Project) Remove(p string) {
	me.mu.Lock()
	defer me.mu.Unlock()
	delete(me.models, p)
	delete(me.macros, p)
}

// File returns the recorded parse of path.
func (me *Project) File(p string) (*File, bool) {
	me.mu.RLock()
	defer me.mu.RUnlock()
	if f, ok := me.models[p]; ok {
		return f, true
	}
	f, ok := me.macros[p]
	return f, ok
}

// Files returns the recorded model and macro files ordered by path.
func (me *Project) Files() []*File {
	me.mu.RLock()
	defer me.mu.RUnlock()
	out := make([]*File, 0, len(me.models)+len(me.macros))
	for _, f := range me.models {
		out = append(out, f)
	}
	for _, f := range me.macros {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *File) int { return strings.Compare(a.Path, b.Path) })
	return out
}

func modelName(p string) string {
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}

// ModelNames returns the sorted model names, the file stems of the models.
func (me *Project) ModelNames() []string {
	me.mu.RLock()
	defer me.mu.RUnlock()
	names := make([]string, 0, len(me.models))
	for p := range me.models {
		names = append(names, modelName(p))
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// ModelPath returns the file defining the model called name.
func (me *Project) ModelPath(name string) (string, bool) {
	me.mu.RLock()
	defer me.mu.RUnlock()
	var found []string
	for p := range me.models {
		if modelName(p) == name {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return "", false
	}
	slices.Sort(found)
	return found[0], true
}

// Macros returns the macros of the project and its packages, ordered by
// identifier.
func (me *Project) Macros() []Macro {
	out := me.ownMacros("")
	for _, pkg := range me.Packages {
		out = append(out, pkg.ownMacros(pkg.Spec.Name)...)
	}
	slices.SortStableFunc(out, func(a, b Macro) int {
		return strings.Compare(a.Identifier(), b.Identifier())
	})
	return out
}

func (me *Project) ownMacros(pkg string) []Macro {
	me.mu.RLock()
	defer me.mu.RUnlock()
	var out []Macro
	for _, f := range me.macros {
		for _, m := range f.Macros {
			m.Package = pkg
			out = append(out, m)
		}
	}
	return out
}

// Materializations returns the materializations of the project and its
// packages.
func (me *Project) Materializations() []Materialization {
	var out []Materialization
	for _, prj := range append([]*Project{me}, me.Packages...) {
		prj.mu.RLock()
		for _, f := range prj.macros {
			out = append(out, f.Materializations...)
		}
		prj.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b Materialization) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Adapter, b.Adapter)
	})
	return out
}

// LookupMacro finds a macro by the identifier it is called with.
func (me *Project) LookupMacro(identifier string) (Macro, bool) {
	for _, m := range me.Macros() {
		if m.Identifier() == identifier {
			return m, true
		}
	}
	return Macro{}, false
}
