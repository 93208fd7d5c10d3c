package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ComedicChimera/olive"
)

const Version = "0.1.0"

// Compilation holds the outputs of the compiler pipeline
type Compilation struct {
	// Type-annotated program.
	Program *Program
	Module  *Module
}

// Compile reads, checks and lowers a source text
func Compile(src string, cfg *Config) (*Compilation, error) {
	prog, err := ReadProgram(src)
	if err != nil {
		return nil, err
	}
	Tracef("read %d globals, %d functions, %d statements", len(prog.Globals), len(prog.Funcs), len(prog.Stmts))
	return CompileProgram(prog, cfg)
}

// CompileProgram checks and lowers an untyped program
func CompileProgram(prog *Program, cfg *Config) (*Compilation, error) {
	typed, err := CheckProgram(prog)
	if err != nil {
		return nil, err
	}
	Tracef("type check passed")

	m := GenProgram(typed)
	cfg.Apply(m)
	if err := ValidateModule(m); err != nil {
		return nil, fmt.Errorf("invalid module: %w", err)
	}
	Tracef("generated %d functions for host module '%s'", len(m.Funcs)+1, m.HostModule)
	return &Compilation{Program: typed, Module: m}, nil
}

// Encode serializes a module in the given build format
func Encode(m *Module, format string) ([]byte, error) {
	switch format {
	case FormatWASM:
		return EncodeWASM(m), nil
	case FormatText:
		return []byte(FormatWAT(m)), nil
	case FormatLLVM:
		return []byte(EmitLLVM(m).String()), nil
	default:
		return nil, fmt.Errorf("unknown build format '%s'", format)
	}
}

// loadSource reads a source file and the config that applies to it
func loadSource(result *olive.ArgParseResult) (string, string, *Config, error) {
	path, _ := result.PrimaryArg()

	configPath := ConfigPathFor(path)
	if value, ok := result.Arguments["config"]; ok {
		configPath = value.(string)
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return "", "", nil, err
	}
	Tracef("using config %s", configPath)

	src, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	return path, string(src), cfg, nil
}

func execBuildCommand(result *olive.ArgParseResult) error {
	path, src, cfg, err := loadSource(result)
	if err != nil {
		return err
	}
	if value, ok := result.Arguments["format"]; ok {
		cfg.Build.Format = value.(string)
	}
	if value, ok := result.Arguments["output"]; ok {
		cfg.Build.Output = value.(string)
	}

	comp, err := Compile(src, cfg)
	if err != nil {
		return err
	}
	out, err := Encode(comp.Module, cfg.Build.Format)
	if err != nil {
		return err
	}

	outputPath := cfg.OutputPath(path)
	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", outputPath, err)
	}
	PrintSuccessMessage("Built", fmt.Sprintf("%s (%d bytes)", outputPath, len(out)))
	return nil
}

func execRunCommand(result *olive.ArgParseResult) error {
	path, src, cfg, err := loadSource(result)
	if err != nil {
		return err
	}
	comp, err := Compile(src, cfg)
	if err != nil {
		return err
	}
	if len(comp.Program.Stmts) == 0 {
		PrintWarningMessage("Warning", path+" has no top-level statements")
	}

	return runCompilation(context.Background(), comp, cfg, os.Stdout)
}

// runCompilation executes a compiled unit, writing its print output and then
// its result value to out
func runCompilation(ctx context.Context, comp *Compilation, cfg *Config, out io.Writer) error {
	opts := cfg.HostOptions()
	opts.Out = out
	res, err := RunWASM(ctx, EncodeWASM(comp.Module), opts)
	if err != nil {
		return err
	}
	if res.HasResult {
		Tracef("result word %d", res.Value)
	}
	if shown, ok := ResultText(comp.Program, res); ok {
		fmt.Fprintln(out, shown)
	}
	return nil
}

func execCheckCommand(result *olive.ArgParseResult, verbose bool) error {
	path, src, _, err := loadSource(result)
	if err != nil {
		return err
	}
	prog, err := ReadProgram(src)
	if err != nil {
		return err
	}
	typed, err := CheckProgram(prog)
	if err != nil {
		return err
	}

	PrintSuccessMessage("Checked", path+": no errors found")
	if verbose {
		fmt.Println(ProgramToSExpr(typed))
	}
	return nil
}

func execute(args []string) int {
	cli := olive.NewCLI("minnow", "minnow compiles a small typed language to WebAssembly", true)
	cli.AddFlag("verbose", "v", "trace each compiler stage")

	const configDesc = "the config file (default: minnow.toml next to the source)"

	buildCmd := cli.AddSubcommand("build", "compile a source file", true)
	buildCmd.AddPrimaryArg("file", "the source file", true)
	buildCmd.AddStringArg("config", "c", configDesc, false)
	buildCmd.AddStringArg("output", "o", "the output path", false)
	buildCmd.AddSelectorArg("format", "f", "the output format", false, []string{FormatWASM, FormatText, FormatLLVM})

	runCmd := cli.AddSubcommand("run", "compile and execute a source file", true)
	runCmd.AddPrimaryArg("file", "the source file", true)
	runCmd.AddStringArg("config", "c", configDesc, false)

	checkCmd := cli.AddSubcommand("check", "read and type check a source file", true)
	checkCmd.AddPrimaryArg("file", "the source file", true)
	checkCmd.AddStringArg("config", "c", configDesc, false)

	cli.AddSubcommand("repl", "start an interactive session", false)
	cli.AddSubcommand("version", "print the minnow version", false)

	result, err := olive.ParseArgs(cli, args)
	if err != nil {
		PrintErrorMessage("CLI Usage Error", err)
		return 2
	}

	verbose := result.HasFlag("verbose")
	if verbose {
		EnableVerbose()
	}

	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		err = execBuildCommand(subResult)
	case "run":
		err = execRunCommand(subResult)
	case "check":
		err = execCheckCommand(subResult, verbose)
	case "repl":
		return runREPL(DefaultConfig())
	case "version":
		PrintInfoMessage("Minnow Version", Version)
	}

	if err != nil {
		PrintErrorMessage(errorTag(err), err)
		var typeErr *TypeError
		var syntaxErr *SyntaxError
		if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
			return 1
		}
		return 3
	}
	return 0
}

func main() {
	os.Exit(execute(os.Args))
}
