package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostOptions configures how an encoded module is run
type HostOptions struct {
	// Namespace the module imports from. Defaults to DefaultHostModule.
	Module string
	// Exported entry function. Defaults to DefaultExport.
	Entry string
	// Destination of print output. Defaults to os.Stdout.
	Out io.Writer
	// Number of leading print calls to swallow.
	SkipPrints int
}

// Result is what the entry function returned
type Result struct {
	Value     int32
	HasResult bool
	// Print calls made, skipped ones included.
	Prints int
}

// printer writes print output, dropping the first skip calls
type printer struct {
	out   io.Writer
	skip  int
	calls int
}

func (p *printer) print(text string) int32 {
	p.calls++
	if p.skip > 0 {
		p.skip--
		return 0
	}
	fmt.Fprintln(p.out, text)
	return 0
}

// FormatValue renders a word the way print shows a value of type typ
func FormatValue(value int32, typ Type) string {
	switch typ {
	case TypeBool:
		if value != 0 {
			return "True"
		}
		return "False"
	case TypeNone:
		return "None"
	default:
		return strconv.FormatInt(int64(value), 10)
	}
}

// ResultText is the display form of a unit's result, the value of its last
// expression statement. None values and units without a result show nothing.
func ResultText(prog *Program, res Result) (string, bool) {
	if !res.HasResult || len(prog.Stmts) == 0 {
		return "", false
	}
	last := prog.Stmts[len(prog.Stmts)-1]
	if last.Kind != StmtExpr || last.Expr.Type == TypeNone {
		return "", false
	}
	return FormatValue(res.Value, last.Expr.Type), true
}

// ipow raises base to exp with 32-bit wrapping. Negative exponents give 0.
func ipow(base, exp int32) int32 {
	if exp < 0 {
		return 0
	}
	result := int32(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func iabs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// RunWASM instantiates bin with the host routines and calls its entry point
func RunWASM(ctx context.Context, bin []byte, opts HostOptions) (Result, error) {
	if opts.Module == "" {
		opts.Module = DefaultHostModule
	}
	if opts.Entry == "" {
		opts.Entry = DefaultExport
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	p := &printer{out: opts.Out, skip: opts.SkipPrints}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	_, err := r.NewHostModuleBuilder(opts.Module).
		NewFunctionBuilder().
		WithFunc(func(v int32) int32 { return p.print(FormatValue(v, TypeInt)) }).
		Export("print_num").
		NewFunctionBuilder().
		WithFunc(func(v int32) int32 { return p.print(FormatValue(v, TypeBool)) }).
		Export("print_bool").
		NewFunctionBuilder().
		WithFunc(func(v int32) int32 { return p.print(FormatValue(v, TypeNone)) }).
		Export("print_none").
		NewFunctionBuilder().
		WithFunc(iabs).
		Export("abs").
		NewFunctionBuilder().
		WithFunc(func(a, b int32) int32 { return max(a, b) }).
		Export("max").
		NewFunctionBuilder().
		WithFunc(func(a, b int32) int32 { return min(a, b) }).
		Export("min").
		NewFunctionBuilder().
		WithFunc(ipow).
		Export("pow").
		Instantiate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("instantiating host module: %w", err)
	}

	compiled, err := r.CompileModule(ctx, bin)
	if err != nil {
		return Result{}, fmt.Errorf("compiling module: %w", err)
	}
	// the entry point is called explicitly below
	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithStartFunctions())
	if err != nil {
		return Result{}, fmt.Errorf("instantiating module: %w", err)
	}

	entry := mod.ExportedFunction(opts.Entry)
	if entry == nil {
		return Result{}, fmt.Errorf("module does not export '%s'", opts.Entry)
	}
	results, err := entry.Call(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("running '%s': %w", opts.Entry, err)
	}
	if len(results) == 0 {
		return Result{Prints: p.calls}, nil
	}
	return Result{Value: api.DecodeI32(results[0]), HasResult: true, Prints: p.calls}, nil
}
