package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minnowlang/minnow/sexy"
	"github.com/nalgeon/be"
)

func TestSexyAllTests(t *testing.T) {
	testFiles, err := filepath.Glob("test/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	for _, testFile := range testFiles {
		fileName := filepath.Base(testFile)
		testName := strings.TrimSuffix(fileName, ".md")

		t.Run(testName, func(t *testing.T) {
			content, err := os.ReadFile(testFile)
			be.Err(t, err, nil)

			testCases, err := sexy.ExtractTestCases(string(content))
			be.Err(t, err, nil)

			for _, tc := range testCases {
				t.Run(tc.Name, func(t *testing.T) {
					runSexyTestCase(t, tc)
				})
			}
		})
	}
}

// sexyRun is everything a test case can assert on. Later stages are only
// filled in when the earlier ones succeeded.
type sexyRun struct {
	prog     *Program
	expr     *Expr
	comp     *Compilation
	err      error
	out      string
	result   Result
	runError error
}

func runSexyTestCase(t *testing.T, tc sexy.TestCase) {
	run := compileSexyInput(t, tc)

	for i, assertion := range tc.Assertions {
		t.Run("assertion_"+string(rune('a'+i)), func(t *testing.T) {
			switch assertion.Type {
			case sexy.AssertionTypeCompileError:
				be.True(t, run.err != nil)
				if run.err != nil {
					be.Equal(t, run.err.Error(), assertion.Content)
				}
			case sexy.AssertionTypeAST:
				assertReadForms(t, run, assertion)
			case sexy.AssertionTypeTypes:
				assertStatementTypes(t, run, assertion)
			case sexy.AssertionTypeInstructions:
				assertInstructions(t, run, assertion)
			case sexy.AssertionTypeExecute:
				be.Err(t, run.err, nil)
				be.Err(t, run.runError, nil)
				be.Equal(t, strings.TrimRight(run.out, "\n"), assertion.Content)
			case sexy.AssertionTypeResult:
				if run.err != nil || run.runError != nil {
					t.Fatalf("input did not run: %v %v", run.err, run.runError)
				}
				be.Equal(t, formatSexyResult(run), assertion.Content)
			default:
				t.Fatalf("unknown assertion type: %s", assertion.Type)
			}
		})
	}
}

func compileSexyInput(t *testing.T, tc sexy.TestCase) *sexyRun {
	t.Helper()
	run := &sexyRun{}

	switch tc.InputType {
	case sexy.InputTypeExpr:
		run.expr, run.err = ReadExprSource(tc.Input)
		if run.err == nil {
			run.prog = &Program{Stmts: []*Stmt{{Kind: StmtExpr, Expr: run.expr}}}
		}
	case sexy.InputTypeProgram:
		run.prog, run.err = ReadProgram(tc.Input)
	default:
		t.Fatalf("unknown input type: %s", tc.InputType)
	}
	if run.err != nil {
		return run
	}

	run.comp, run.err = CompileProgram(run.prog, DefaultConfig())
	if run.err != nil {
		return run
	}

	var out bytes.Buffer
	opts := DefaultConfig().HostOptions()
	opts.Out = &out
	run.result, run.runError = RunWASM(context.Background(), EncodeWASM(run.comp.Module), opts)
	run.out = out.String()
	return run
}

// assertReadForms compares the read tree, printed back, with the expected
// forms. Both sides go through the s-expression printer so layout does not
// matter.
func assertReadForms(t *testing.T, run *sexyRun, assertion sexy.Assertion) {
	var expected []string
	for _, node := range assertion.Parsed {
		expected = append(expected, node.String())
	}

	if run.prog == nil {
		t.Fatalf("input did not read: %v", run.err)
	}
	if run.expr != nil {
		be.Equal(t, ToSExpr(run.expr), strings.Join(expected, "\n"))
		return
	}
	be.Equal(t, ProgramToSExpr(run.prog), strings.Join(expected, "\n"))
}

// assertStatementTypes expects one list holding the type of each top-level
// statement's expression, with - for a statement that has none
func assertStatementTypes(t *testing.T, run *sexyRun, assertion sexy.Assertion) {
	if run.err != nil {
		t.Fatalf("input did not compile: %v", run.err)
	}
	if len(assertion.Parsed) != 1 {
		t.Fatalf("types assertion wants one list, got %d forms", len(assertion.Parsed))
	}

	var expected []string
	for _, item := range assertion.Parsed[0].Items {
		expected = append(expected, item.String())
	}

	var actual []string
	for _, stmt := range run.comp.Program.Stmts {
		if stmt.Expr == nil {
			actual = append(actual, "-")
			continue
		}
		actual = append(actual, stmt.Expr.Type.String())
	}
	be.Equal(t, actual, expected)
}

func assertInstructions(t *testing.T, run *sexyRun, assertion sexy.Assertion) {
	if run.err != nil {
		t.Fatalf("input did not compile: %v", run.err)
	}

	var expected []string
	for _, node := range assertion.Parsed {
		expected = append(expected, node.String())
	}
	var actual []string
	for _, in := range run.comp.Module.Start.Body {
		actual = append(actual, in.String())
	}
	be.Equal(t, actual, expected)
}

func formatSexyResult(run *sexyRun) string {
	if !run.result.HasResult {
		return "none"
	}
	stmts := run.comp.Program.Stmts
	return FormatValue(run.result.Value, stmts[len(stmts)-1].Expr.Type)
}
