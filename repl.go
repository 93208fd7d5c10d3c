package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/minnowlang/minnow/sexy"
	"github.com/peterh/liner"
)

const (
	historyFile = ".minnow_history"
	promptMain  = "minnow> "
	promptCont  = "......> "
)

// Session is the state of an interactive session. Definitions accumulate;
// the top-level statements entered so far are replayed on every evaluation
// with their output suppressed, so globals keep their values.
type Session struct {
	cfg     *Config
	out     io.Writer
	globals []VarDef
	funcs   []*FunctionDef
	stmts   []*Stmt
	// print calls made by the replayed statements
	prints int
}

func NewSession(cfg *Config, out io.Writer) *Session {
	return &Session{cfg: cfg, out: out}
}

// Eval compiles and runs one input on top of the session. It returns the
// display form of the last expression's value, or "" when there is nothing
// to show. A failed input leaves the session unchanged.
func (s *Session) Eval(ctx context.Context, src string) (string, error) {
	nodes, err := parseSource(src)
	if err != nil {
		return "", err
	}

	globals := slices.Clone(s.globals)
	funcs := slices.Clone(s.funcs)
	var fresh []*Stmt
	for _, node := range nodes {
		switch node.Head() {
		case "var":
			def, err := ReadVarDef(node)
			if err != nil {
				return "", err
			}
			globals = append(globals, def)
		case "def":
			f, err := ReadFunctionDef(node)
			if err != nil {
				return "", err
			}
			funcs = append(funcs, f)
		default:
			stmt, err := ReadStmt(node)
			if err != nil {
				return "", err
			}
			if stmt.Kind == StmtReturn {
				return "", syntaxErrorAt(node, "return is only allowed inside a function here")
			}
			fresh = append(fresh, stmt)
		}
	}

	stmts := append(slices.Clone(s.stmts), fresh...)
	comp, err := CompileProgram(&Program{Globals: globals, Funcs: funcs, Stmts: stmts}, s.cfg)
	if err != nil {
		return "", err
	}
	bin, err := Encode(comp.Module, FormatWASM)
	if err != nil {
		return "", err
	}

	opts := s.cfg.HostOptions()
	opts.Out = s.out
	opts.SkipPrints = s.prints
	res, err := RunWASM(ctx, bin, opts)
	if err != nil {
		return "", err
	}

	s.globals, s.funcs, s.stmts, s.prints = globals, funcs, stmts, res.Prints

	if len(fresh) == 0 {
		return "", nil
	}
	shown, _ := ResultText(comp.Program, res)
	return shown, nil
}

func runREPL(cfg *Config) int {
	PrintInfoMessage("minnow "+Version, "type :quit to exit")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	ctx := context.Background()
	session := NewSession(cfg, os.Stdout)
	for {
		code, ok := readDatum(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if strings.HasPrefix(code, ":") {
			if code == ":quit" {
				return 0
			}
			fmt.Println("unknown command. Type :quit to exit.")
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		shown, err := session.Eval(ctx, code)
		if err != nil {
			PrintErrorMessage(errorTag(err), err)
			continue
		}
		if shown != "" {
			fmt.Println(shown)
		}
	}
}

// readDatum keeps prompting until the input parses or fails for a reason
// other than running out of text
func readDatum(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, err := sexy.ParseAll(src); errors.Is(err, sexy.ErrIncomplete) {
			continue
		}
		return src, true
	}
}
