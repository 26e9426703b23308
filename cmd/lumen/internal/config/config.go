package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up in the project root
const FileName = "lumen.yaml"

// Config represents the lumen.yaml configuration
type Config struct {
	// Compiler configuration
	Compiler *CompilerConfig `yaml:"compiler,omitempty"`

	// Generated code configuration
	Output *OutputConfig `yaml:"output,omitempty"`

	// Build cache configuration
	Cache *CacheConfig `yaml:"cache,omitempty"`

	// Development server configuration
	Dev *DevConfig `yaml:"dev,omitempty"`
}

// CompilerConfig contains template compiler options
type CompilerConfig struct {
	// Keep whitespace-only text between elements
	PreserveWhitespaces bool `yaml:"preserveWhitespaces"`

	// Directory scanned by `lumen gen` when no files are given
	TemplatesDir string `yaml:"templatesDir,omitempty"`

	// Suffix identifying template files
	Extension string `yaml:"extension,omitempty"`
}

// OutputConfig controls generated Go files
type OutputConfig struct {
	// Package clause of generated files; empty means the package already
	// declared in the output directory, or the directory name
	Package string `yaml:"package,omitempty"`

	// Import paths of the runtime and expression packages
	RuntimeImport string `yaml:"runtimeImport,omitempty"`
	ExprImport    string `yaml:"exprImport,omitempty"`
}

// CacheConfig contains build cache configuration
type CacheConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Dir      string `yaml:"dir,omitempty"`
}

// DevConfig contains development server configuration
type DevConfig struct {
	Port int    `yaml:"port,omitempty"`
	Host string `yaml:"host,omitempty"`
}

// Load loads configuration from lumen.yaml in projectPath. A missing file
// yields the default configuration.
func Load(projectPath string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(projectPath, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &config, nil
}

// Save writes configuration to lumen.yaml in projectPath
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, FileName), data, 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Compiler: &CompilerConfig{
			PreserveWhitespaces: false,
			TemplatesDir:        ".",
			Extension:           ".lumen.html",
		},
		Output: &OutputConfig{},
		Cache:  &CacheConfig{},
		Dev: &DevConfig{
			Port: 7070,
			Host: "localhost",
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Compiler == nil {
		config.Compiler = defaults.Compiler
	} else {
		if config.Compiler.TemplatesDir == "" {
			config.Compiler.TemplatesDir = defaults.Compiler.TemplatesDir
		}
		if config.Compiler.Extension == "" {
			config.Compiler.Extension = defaults.Compiler.Extension
		}
	}

	if config.Output == nil {
		config.Output = defaults.Output
	}
	if config.Cache == nil {
		config.Cache = defaults.Cache
	}

	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Output != nil {
		if p := c.Output.Package; p != "" && !token.IsIdentifier(p) {
			return fmt.Errorf("output.package %q is not a Go identifier", p)
		}
		for field, path := range map[string]string{
			"output.runtimeImport": c.Output.RuntimeImport,
			"output.exprImport":    c.Output.ExprImport,
		} {
			if path == "" {
				continue
			}
			if err := module.CheckImportPath(path); err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
		}
	}
	if c.Dev != nil && (c.Dev.Port < 0 || c.Dev.Port > 65535) {
		return fmt.Errorf("dev.port %d out of range", c.Dev.Port)
	}
	return nil
}

// FindProjectRoot walks up from dir to the nearest directory holding
// lumen.yaml or go.mod
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range []string{FileName, "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s or go.mod found", FileName)
		}
		dir = parent
	}
}

// ModulePath returns the module path declared by go.mod in dir
func ModulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}
