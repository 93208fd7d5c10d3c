package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig([]byte(""))
	be.Err(t, err, nil)
	be.Equal(t, *cfg, *DefaultConfig())
}

func TestParseConfig(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig([]byte(`
[host]
module = "env"

[build]
format = "wat"
output = "out/prog.wat"
`))
	be.Err(t, err, nil)
	be.Equal(t, cfg.Host, HostConfig{Module: "env", Entry: DefaultExport})
	be.Equal(t, cfg.Build, BuildConfig{Format: FormatText, Output: "out/prog.wat"})
	be.Equal(t, cfg.HostOptions(), HostOptions{Module: "env", Entry: DefaultExport})
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text    string
		message string
	}{
		{"[build]\nformat = \"elf\"", "unknown build format 'elf' (want wasm, wat or llvm)"},
		{"[host]\nentry = \"not valid\"", "entry name 'not valid' must be a valid identifier"},
		{"[host]\nentry = \"abs\"", "entry name 'abs' is taken by a host routine"},
		{"[host\n", "error parsing config: "},
	}

	for _, test := range tests {
		_, err := ParseConfig([]byte(test.text))
		be.Err(t, err, test.message)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, ConfigFileName))
	be.Err(t, err, nil)
	be.Equal(t, *cfg, *DefaultConfig())

	path := filepath.Join(dir, ConfigFileName)
	be.Err(t, os.WriteFile(path, []byte("[build]\nformat = \"llvm\"\n"), 0644), nil)
	cfg, err = LoadConfig(path)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Build.Format, FormatLLVM)
}

func TestConfigPaths(t *testing.T) {
	t.Parallel()
	be.Equal(t, ConfigPathFor(filepath.Join("src", "main.mn")), filepath.Join("src", ConfigFileName))

	cfg := DefaultConfig()
	be.Equal(t, cfg.OutputPath(filepath.Join("src", "main.mn")), filepath.Join("src", "main.wasm"))
	cfg.Build.Format = FormatLLVM
	be.Equal(t, cfg.OutputPath("prog"), "prog.ll")
	cfg.Build.Output = "a.out"
	be.Equal(t, cfg.OutputPath("prog"), "a.out")
}

func TestConfigApply(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Host = HostConfig{Module: "env", Entry: "main"}
	m := &Module{HostModule: DefaultHostModule, Export: DefaultExport}
	cfg.Apply(m)
	be.Equal(t, m.HostModule, "env")
	be.Equal(t, m.Export, "main")
}
