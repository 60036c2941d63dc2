// Package project discovers a dbt project on disk and indexes the models and
// macros it defines.
package project

import (
	"path"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// SpecFile is the name of the project configuration file.
const SpecFile = "dbt_project.yml"

var ErrNoProject = errors.Base("no " + SpecFile + " found")

// Spec is the part of dbt_project.yml the tooling needs.
type Spec struct {
	Name                string   `yaml:"name"`
	ModelPaths          []string `yaml:"model-paths"`
	MacroPaths          []string `yaml:"macro-paths"`
	PackagesInstallPath string   `yaml:"packages-install-path"`
}

// ParseSpec decodes dbt_project.yml and fills in dbt's defaults.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Errorf("decoding %s: %w", SpecFile, err)
	}
	if spec.Name == "" {
		return nil, errors.Errorf("%s: missing required field \"name\"", SpecFile)
	}
	if len(spec.ModelPaths) == 0 {
		spec.ModelPaths = []string{"models"}
	}
	if len(spec.MacroPaths) == 0 {
		spec.MacroPaths = []string{"macros"}
	}
	if spec.PackagesInstallPath == "" {
		spec.PackagesInstallPath = "dbt_packages"
	}
	return &spec, nil
}

// FindRoot walks up from start to the nearest directory holding
// dbt_project.yml. Paths are slash separated, as afero uses them.
func FindRoot(fs afero.Fs, start string) (string, error) {
	dir := path.Clean(start)
	if info, err := fs.Stat(dir); err == nil && !info.IsDir() {
		dir = path.Dir(dir)
	}
	for {
		ok, err := afero.Exists(fs, path.Join(dir, SpecFile))
		if err != nil {
			return "", errors.Errorf("checking %s: %w", dir, err)
		}
		if ok {
			return dir, nil
		}
		parent := path.Dir(dir)
		if parent == dir {
			return "", errors.Errorf("searching from %s: %w", start, ErrNoProject)
		}
		dir = parent
	}
}
