package main

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func runSource(t *testing.T, src string, cfg *Config, opts HostOptions) (Result, string, error) {
	t.Helper()
	comp, err := Compile(src, cfg)
	be.Err(t, err, nil)
	var out bytes.Buffer
	opts.Out = &out
	res, err := RunWASM(context.Background(), EncodeWASM(comp.Module), opts)
	return res, out.String(), err
}

func TestRunPrintsAndResult(t *testing.T) {
	t.Parallel()
	res, out, err := runSource(t, "(print 7)\n(print True)\n(print None)\n(+ 40 2)", DefaultConfig(), HostOptions{})
	be.Err(t, err, nil)
	be.Equal(t, out, "7\nTrue\nNone\n")
	be.Equal(t, res, Result{Value: 42, HasResult: true, Prints: 3})
}

func TestRunSkipsLeadingPrints(t *testing.T) {
	t.Parallel()
	res, out, err := runSource(t, "(print 1)\n(print 2)\n(print 3)", DefaultConfig(), HostOptions{SkipPrints: 2})
	be.Err(t, err, nil)
	be.Equal(t, out, "3\n")
	be.Equal(t, res.Prints, 3)
}

func TestRunWithoutResult(t *testing.T) {
	t.Parallel()
	res, out, err := runSource(t, "(var x int 1)\n(assign x 2)", DefaultConfig(), HostOptions{})
	be.Err(t, err, nil)
	be.Equal(t, out, "")
	be.True(t, !res.HasResult)
}

func TestRunBuiltins(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src      string
		expected int32
	}{
		{"(abs -5)", 5},
		{"(max 3 9)", 9},
		{"(min 3 9)", 3},
		{"(pow 2 10)", 1024},
		{"(pow 2 -1)", 0},
		{"(// -7 2)", -3},
		{"(% -7 2)", -1},
		{"(- 4)", -4},
		{"(not True)", 0},
		{"(and True False)", 0},
		{"(or True False)", 1},
		{"(is None None)", 1},
		{"(<= 2 2)", 1},
	}

	for _, test := range tests {
		res, _, err := runSource(t, test.src, DefaultConfig(), HostOptions{})
		be.Err(t, err, nil)
		be.Equal(t, res.Value, test.expected)
	}
}

func TestRunGlobalsUpdatedByFunctions(t *testing.T) {
	t.Parallel()
	src := `(var total int 0)
(def add ((n int)) None (assign total (+ total n)))
(add 2)
(add 3)
total`
	res, _, err := runSource(t, src, DefaultConfig(), HostOptions{})
	be.Err(t, err, nil)
	be.Equal(t, res.Value, int32(5))
}

func TestRunTopLevelReturnStops(t *testing.T) {
	t.Parallel()
	_, out, err := runSource(t, "(print 1)\n(return None)\n(print 2)", DefaultConfig(), HostOptions{})
	be.Err(t, err, nil)
	be.Equal(t, out, "1\n")
}

func TestRunTrap(t *testing.T) {
	t.Parallel()
	_, _, err := runSource(t, "(// 1 0)", DefaultConfig(), HostOptions{})
	be.True(t, err != nil)
	be.True(t, strings.HasPrefix(err.Error(), "running '_start': "))
}

func TestRunConfiguredNames(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Host = HostConfig{Module: "env", Entry: "main"}

	res, out, err := runSource(t, "(print 5)\n6", cfg, cfg.HostOptions())
	be.Err(t, err, nil)
	be.Equal(t, out, "5\n")
	be.Equal(t, res.Value, int32(6))

	// the host routines are only offered under the default namespace
	_, _, err = runSource(t, "(print 5)", cfg, HostOptions{Entry: "main"})
	be.True(t, err != nil)
	be.True(t, strings.HasPrefix(err.Error(), "instantiating module: "))

	_, _, err = runSource(t, "(print 5)", DefaultConfig(), HostOptions{Entry: "main"})
	be.Err(t, err, "module does not export 'main'")
}

func TestResultText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src   string
		shown string
		ok    bool
	}{
		{"(+ 2 3)", "5", true},
		{"(< 2 3)", "True", true},
		{"(print 1)", "", false},
		{"(var x int 1)\n(assign x 2)", "", false},
	}

	for _, test := range tests {
		comp := mustCompile(t, test.src)
		res, _, err := runSource(t, test.src, DefaultConfig(), HostOptions{})
		be.Err(t, err, nil)
		shown, ok := ResultText(comp.Program, res)
		be.Equal(t, shown, test.shown)
		be.Equal(t, ok, test.ok)
	}
}

func TestIPow(t *testing.T) {
	t.Parallel()
	be.Equal(t, ipow(2, 10), int32(1024))
	be.Equal(t, ipow(3, 0), int32(1))
	be.Equal(t, ipow(-2, 3), int32(-8))
	be.Equal(t, ipow(5, -2), int32(0))
	be.Equal(t, ipow(2, 31), int32(math.MinInt32))
	be.Equal(t, ipow(2, 32), int32(0))
}

func TestFormatValue(t *testing.T) {
	t.Parallel()
	be.Equal(t, FormatValue(-3, TypeInt), "-3")
	be.Equal(t, FormatValue(1, TypeBool), "True")
	be.Equal(t, FormatValue(0, TypeBool), "False")
	be.Equal(t, FormatValue(0, TypeNone), "None")
}
