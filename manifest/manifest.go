// Package manifest handles janitor.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "janitor.toml"

// Manifest represents a janitor.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Runtime Runtime `toml:"runtime"`
	Store   Store   `toml:"store"`
	Server  Server  `toml:"server"`
	GoWrap  GoWrap  `toml:"go-wrap"`

	// Dir is the directory containing the janitor.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Scripts string `toml:"scripts"`
}

// Runtime configures logging and terminal output.
type Runtime struct {
	LogLevel int    `toml:"log-level"`
	Color    string `toml:"color"`
}

// Store selects the object store backend.
type Store struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Server configures the script service.
type Server struct {
	Address string `toml:"address"`
}

// GoWrap lists Go packages to generate wrapper tables for.
type GoWrap struct {
	Output   string        `toml:"output"`
	Packages []WrapPackage `toml:"packages"`
}

// WrapPackage selects types of one Go package. An empty Include wraps every
// exported type.
type WrapPackage struct {
	Import  string   `toml:"import"`
	Include []string `toml:"include"`
}

// Default returns the configuration used when no janitor.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Project.Scripts == "" {
		m.Project.Scripts = "scripts"
	}
	if m.Runtime.Color == "" {
		m.Runtime.Color = "auto"
	}
	if m.Store.Driver == "" {
		m.Store.Driver = "sqlite"
	}
	if m.Store.DSN == "" && m.Store.Driver == "sqlite" {
		m.Store.DSN = "janitor.db"
	}
	if m.Server.Address == "" {
		m.Server.Address = "127.0.0.1:7420"
	}
	if m.GoWrap.Output == "" {
		m.GoWrap.Output = "wrappers"
	}
}

// Load parses and validates a janitor.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates janitor.toml content and fills in defaults.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	for _, pkg := range m.GoWrap.Packages {
		for _, name := range pkg.Include {
			if IsReservedName(name) {
				return nil, fmt.Errorf("go-wrap: type %s of %s would shadow a builtin", name, pkg.Import)
			}
		}
	}
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a janitor.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// ScriptsDir returns the absolute path of the scripts directory.
func (m *Manifest) ScriptsDir() string {
	return m.resolve(m.Project.Scripts)
}

// WrapperDir returns the absolute path generated wrappers are written to.
func (m *Manifest) WrapperDir() string {
	return m.resolve(m.GoWrap.Output)
}

// StoreDSN returns the store DSN, resolving relative sqlite paths against
// the project directory.
func (m *Manifest) StoreDSN() string {
	if m.Store.Driver == "sqlite" && m.Store.DSN != ":memory:" {
		return m.resolve(m.Store.DSN)
	}
	return m.Store.DSN
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// reservedNames are bound in every builtin scope. Wrapped types are bound
// by name in global scopes and must not hide them.
var reservedNames = map[string]bool{
	"print":       true,
	"assert":      true,
	"help":        true,
	"dir":         true,
	"list":        true,
	"set":         true,
	"map":         true,
	"now":         true,
	"today":       true,
	"__builtin__": true,
}

// IsReservedName reports whether name is a builtin function name.
func IsReservedName(name string) bool {
	return reservedNames[name]
}
