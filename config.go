package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
)

// ConfigFileName is looked up next to the source file
const ConfigFileName = "minnow.toml"

// Output formats of the build command
const (
	FormatWASM = "wasm"
	FormatText = "wat"
	FormatLLVM = "llvm"
)

var formatExtensions = map[string]string{
	FormatWASM: ".wasm",
	FormatText: ".wat",
	FormatLLVM: ".ll",
}

// Config is the decoded minnow.toml
type Config struct {
	Host  HostConfig  `toml:"host"`
	Build BuildConfig `toml:"build"`
}

type HostConfig struct {
	Module string `toml:"module"`
	Entry  string `toml:"entry"`
}

type BuildConfig struct {
	Format string `toml:"format"`
	Output string `toml:"output"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:  HostConfig{Module: DefaultHostModule, Entry: DefaultExport},
		Build: BuildConfig{Format: FormatWASM},
	}
}

// LoadConfig reads the config at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	buff, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file at `%s`: %w", path, err)
	}
	return ParseConfig(buff)
}

// ParseConfig decodes config text over the defaults and validates it
func ParseConfig(buff []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(buff, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPathFor returns the config file that applies to a source file
func ConfigPathFor(sourcePath string) string {
	return filepath.Join(filepath.Dir(sourcePath), ConfigFileName)
}

func (cfg *Config) fillDefaults() {
	defaults := DefaultConfig()
	if cfg.Host.Module == "" {
		cfg.Host.Module = defaults.Host.Module
	}
	if cfg.Host.Entry == "" {
		cfg.Host.Entry = defaults.Host.Entry
	}
	if cfg.Build.Format == "" {
		cfg.Build.Format = defaults.Build.Format
	}
}

func (cfg *Config) validate() error {
	if _, ok := formatExtensions[cfg.Build.Format]; !ok {
		return fmt.Errorf("unknown build format '%s' (want wasm, wat or llvm)", cfg.Build.Format)
	}
	if !identPattern.MatchString(cfg.Host.Entry) {
		return fmt.Errorf("entry name '%s' must be a valid identifier", cfg.Host.Entry)
	}
	for _, imp := range HostImports {
		if imp.Name == cfg.Host.Entry {
			return fmt.Errorf("entry name '%s' is taken by a host routine", cfg.Host.Entry)
		}
	}
	return nil
}

// OutputPath is the build output for sourcePath: the configured path, or the
// source path with the format's extension.
func (cfg *Config) OutputPath(sourcePath string) string {
	if cfg.Build.Output != "" {
		return cfg.Build.Output
	}
	return strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + formatExtensions[cfg.Build.Format]
}

// Apply sets the host module and entry names of a generated module
func (cfg *Config) Apply(m *Module) {
	m.HostModule = cfg.Host.Module
	m.Export = cfg.Host.Entry
}

// HostOptions returns the runtime options matching the config
func (cfg *Config) HostOptions() HostOptions {
	return HostOptions{Module: cfg.Host.Module, Entry: cfg.Host.Entry}
}
