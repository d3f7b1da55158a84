// Package manifest handles hoist.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/hoist/lift"
)

// Manifest represents a hoist.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Source  Source       `toml:"source"`
	Target  TargetConfig `toml:"target"`
	Engine  Engine       `toml:"engine"`
	Output  Output       `toml:"output"`

	// Dir is the directory containing the hoist.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata. Namespace is the root under which
// every lifted definition is named; it defaults to the PascalCase form
// of the project name.
type Project struct {
	Name      string `toml:"name"`
	Namespace string `toml:"namespace"`
	Version   string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs      []string `toml:"dirs"`
	Extension string   `toml:"extension"`
}

// TargetConfig describes the C target the closure layouts are computed
// for. An empty config means the default LP64 target.
type TargetConfig struct {
	PointerSize int            `toml:"pointer-size"`
	MaxAlign    int            `toml:"max-align"`
	Sizes       map[string]int `toml:"sizes"`
}

// Engine configures the transform machine.
type Engine struct {
	MaxSteps int `toml:"max-steps"`
}

// Output configures where transformed sources and artifacts land.
type Output struct {
	Dir       string `toml:"dir"`
	Artifacts bool   `toml:"artifacts"`
	GoPackage string `toml:"go-package"`
}

// Load parses a hoist.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "hoist.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Source.Extension == "" {
		m.Source.Extension = ".hc"
	}
	if m.Project.Namespace == "" {
		m.Project.Namespace = ToPascalCase(m.Project.Name)
	}
	if m.Output.Dir == "" {
		m.Output.Dir = "out"
	}

	if m.Project.Namespace == "" {
		return nil, fmt.Errorf("%s: project needs a name or namespace", path)
	}
	if IsReservedRoot(m.Project.Namespace) {
		return nil, fmt.Errorf("%s: namespace %q is a reserved word in the target language",
			path, m.Project.Namespace)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a hoist.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "hoist.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// OutputDirPath returns the absolute path of the output directory.
func (m *Manifest) OutputDirPath() string {
	return filepath.Join(m.Dir, m.Output.Dir)
}

// LiftTarget converts the manifest target section to a layout target.
// Unset fields take their values from the default target; [target.sizes]
// entries override individual builtin sizes.
func (m *Manifest) LiftTarget() lift.Target {
	t := lift.DefaultTarget()
	if m.Target.PointerSize > 0 {
		t.PointerSize = m.Target.PointerSize
	}
	if m.Target.MaxAlign > 0 {
		t.MaxAlign = m.Target.MaxAlign
	}
	for name, size := range m.Target.Sizes {
		t.Sizes[name] = size
	}
	return t
}

// MaxSteps returns the configured step ceiling, or the engine default.
func (m *Manifest) MaxSteps() int {
	if m.Engine.MaxSteps > 0 {
		return m.Engine.MaxSteps
	}
	return lift.DefaultMaxSteps
}
