package main

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/minnowlang/minnow/sexy"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// keywords can never be identifiers
var keywords = map[string]bool{
	"True":   true,
	"False":  true,
	"None":   true,
	"def":    true,
	"var":    true,
	"expr":   true,
	"return": true,
	"pass":   true,
	"assign": true,
	"not":    true,
	"and":    true,
	"or":     true,
	"is":     true,
}

var binaryOps = map[string]Op{
	"+":   OpAdd,
	"-":   OpSub,
	"*":   OpMul,
	"//":  OpDiv,
	"%":   OpMod,
	"<":   OpLt,
	"<=":  OpLe,
	">":   OpGt,
	">=":  OpGe,
	"==":  OpEq,
	"!=":  OpNe,
	"is":  OpIs,
	"and": OpAnd,
	"or":  OpOr,
}

var typeNames = map[string]Type{
	"int":  TypeInt,
	"bool": TypeBool,
	"None": TypeNone,
}

// ReadProgram reads a whole source file. Variable and function definitions
// come first, then the top-level statements.
func ReadProgram(src string) (*Program, error) {
	nodes, err := parseSource(src)
	if err != nil {
		return nil, err
	}

	prog := &Program{}
	for _, node := range nodes {
		switch node.Head() {
		case "var":
			if len(prog.Stmts) > 0 {
				return nil, syntaxErrorAt(node, "variable definition after a statement")
			}
			def, err := ReadVarDef(node)
			if err != nil {
				return nil, err
			}
			prog.Globals = append(prog.Globals, def)
		case "def":
			if len(prog.Stmts) > 0 {
				return nil, syntaxErrorAt(node, "function definition after a statement")
			}
			f, err := ReadFunctionDef(node)
			if err != nil {
				return nil, err
			}
			prog.Funcs = append(prog.Funcs, f)
		default:
			stmt, err := ReadStmt(node)
			if err != nil {
				return nil, err
			}
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
	return prog, nil
}

// ReadExprSource reads a source text holding exactly one expression
func ReadExprSource(src string) (*Expr, error) {
	nodes, err := parseSource(src)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, &SyntaxError{Line: 1, Column: 1, Message: fmt.Sprintf("expected one expression but got %d forms", len(nodes))}
	}
	return ReadExpr(nodes[0])
}

func parseSource(src string) ([]*sexy.Node, error) {
	nodes, err := sexy.ParseAll(src)
	if err != nil {
		var sexyErr *sexy.SyntaxError
		if errors.As(err, &sexyErr) {
			return nil, &SyntaxError{Line: sexyErr.Pos.Line, Column: sexyErr.Pos.Column, Message: sexyErr.Message}
		}
		return nil, err
	}
	return nodes, nil
}

func syntaxErrorAt(node *sexy.Node, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: node.Pos.Line, Column: node.Pos.Column, Message: fmt.Sprintf(format, args...)}
}

// ReadVarDef reads (var NAME TYPE LITERAL)
func ReadVarDef(node *sexy.Node) (VarDef, error) {
	if node.Head() != "var" || len(node.Items) != 4 {
		return VarDef{}, syntaxErrorAt(node, "expected (var NAME TYPE LITERAL) but got %s", node)
	}
	name, err := readIdent(node.Items[1])
	if err != nil {
		return VarDef{}, err
	}
	typ, err := readType(node.Items[2])
	if err != nil {
		return VarDef{}, err
	}
	init, err := readLiteral(node.Items[3])
	if err != nil {
		return VarDef{}, err
	}
	return VarDef{Var: TypedVar{Name: name, Type: typ}, Init: init}, nil
}

// ReadFunctionDef reads (def NAME ((PARAM TYPE)...) RET (var ...)* STMT*)
func ReadFunctionDef(node *sexy.Node) (*FunctionDef, error) {
	if node.Head() != "def" || len(node.Items) < 4 {
		return nil, syntaxErrorAt(node, "expected (def NAME (PARAMS) TYPE BODY...) but got %s", node)
	}
	name, err := readIdent(node.Items[1])
	if err != nil {
		return nil, err
	}

	paramList := node.Items[2]
	if paramList.Type != sexy.NodeList {
		return nil, syntaxErrorAt(paramList, "expected a parameter list but got %s", paramList)
	}
	f := &FunctionDef{Name: name}
	for _, param := range paramList.Items {
		if param.Type != sexy.NodeList || len(param.Items) != 2 {
			return nil, syntaxErrorAt(param, "expected (NAME TYPE) but got %s", param)
		}
		pname, err := readIdent(param.Items[0])
		if err != nil {
			return nil, err
		}
		ptype, err := readType(param.Items[1])
		if err != nil {
			return nil, err
		}
		f.Params = append(f.Params, TypedVar{Name: pname, Type: ptype})
	}

	f.Ret, err = readType(node.Items[3])
	if err != nil {
		return nil, err
	}

	for _, item := range node.Items[4:] {
		if item.Head() == "var" {
			if len(f.Body) > 0 {
				return nil, syntaxErrorAt(item, "variable definition after a statement")
			}
			def, err := ReadVarDef(item)
			if err != nil {
				return nil, err
			}
			f.Locals = append(f.Locals, def)
			continue
		}
		if item.Head() == "def" {
			return nil, syntaxErrorAt(item, "nested function definitions are not supported")
		}
		stmt, err := ReadStmt(item)
		if err != nil {
			return nil, err
		}
		f.Body = append(f.Body, stmt)
	}
	return f, nil
}

// ReadStmt reads a statement. A bare expression is an expression statement.
func ReadStmt(node *sexy.Node) (*Stmt, error) {
	switch node.Head() {
	case "expr":
		if len(node.Items) != 2 {
			return nil, syntaxErrorAt(node, "expected (expr EXPR) but got %s", node)
		}
		expr, err := ReadExpr(node.Items[1])
		if err != nil {
			return nil, err
		}
		return &Stmt{Kind: StmtExpr, Expr: expr}, nil

	case "return":
		if len(node.Items) != 2 {
			return nil, syntaxErrorAt(node, "expected (return EXPR) but got %s", node)
		}
		expr, err := ReadExpr(node.Items[1])
		if err != nil {
			return nil, err
		}
		return &Stmt{Kind: StmtReturn, Expr: expr}, nil

	case "pass":
		if len(node.Items) != 1 {
			return nil, syntaxErrorAt(node, "expected (pass) but got %s", node)
		}
		return &Stmt{Kind: StmtPass}, nil

	case "assign":
		if len(node.Items) != 3 {
			return nil, syntaxErrorAt(node, "expected (assign NAME EXPR) but got %s", node)
		}
		name, err := readIdent(node.Items[1])
		if err != nil {
			return nil, err
		}
		expr, err := ReadExpr(node.Items[2])
		if err != nil {
			return nil, err
		}
		return &Stmt{Kind: StmtAssign, Name: name, Expr: expr}, nil

	case "var", "def":
		return nil, syntaxErrorAt(node, "'%s' is not a statement", node.Head())

	default:
		expr, err := ReadExpr(node)
		if err != nil {
			return nil, err
		}
		return &Stmt{Kind: StmtExpr, Expr: expr}, nil
	}
}

// ReadExpr reads an expression datum
func ReadExpr(node *sexy.Node) (*Expr, error) {
	switch node.Type {
	case sexy.NodeInteger, sexy.NodeSymbol:
		if node.Type == sexy.NodeSymbol && !keywords[node.Text] {
			name, err := readIdent(node)
			if err != nil {
				return nil, err
			}
			return Ident(name), nil
		}
		lit, err := readLiteral(node)
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprLiteral, Literal: lit}, nil

	case sexy.NodeString:
		return nil, syntaxErrorAt(node, "string literals are not supported")

	case sexy.NodeList:
		return readCompound(node)

	default:
		return nil, syntaxErrorAt(node, "unexpected %s", node.Type)
	}
}

func readCompound(node *sexy.Node) (*Expr, error) {
	head := node.Head()
	if head == "" {
		return nil, syntaxErrorAt(node, "expected an operator or function name at the head of %s", node)
	}

	args := make([]*Expr, 0, len(node.Items)-1)
	for _, item := range node.Items[1:] {
		arg, err := ReadExpr(item)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	switch {
	case head == "not":
		if len(args) != 1 {
			return nil, syntaxErrorAt(node, "'not' takes 1 operand but got %d", len(args))
		}
		return Unary(OpNot, args[0]), nil

	case head == "-" && len(args) == 1:
		return Unary(OpNeg, args[0]), nil
	}

	if op, ok := binaryOps[head]; ok {
		if len(args) != 2 {
			return nil, syntaxErrorAt(node, "'%s' takes 2 operands but got %d", head, len(args))
		}
		return Binary(op, args[0], args[1]), nil
	}

	if keywords[head] {
		return nil, syntaxErrorAt(node, "'%s' cannot appear in an expression", head)
	}
	if !identPattern.MatchString(head) {
		return nil, syntaxErrorAt(node.Items[0], "unknown operator '%s'", head)
	}

	switch arity, builtin := builtinArity[head]; {
	case builtin && arity == 1 && len(args) == 1:
		return &Expr{Kind: ExprBuiltin1, Name: head, Children: args}, nil
	case builtin && arity == 2 && len(args) == 2:
		return &Expr{Kind: ExprBuiltin2, Name: head, Children: args}, nil
	default:
		return Call(head, args...), nil
	}
}

func readLiteral(node *sexy.Node) (Literal, error) {
	switch {
	case node.Type == sexy.NodeInteger:
		v, err := strconv.ParseInt(node.Text, 10, 32)
		if err != nil {
			return Literal{}, syntaxErrorAt(node, "integer %s does not fit in 32 bits", node.Text)
		}
		return Literal{Kind: LiteralInt, Int: int32(v)}, nil
	case node.IsSymbol("True"):
		return Literal{Kind: LiteralBool, Bool: true}, nil
	case node.IsSymbol("False"):
		return Literal{Kind: LiteralBool, Bool: false}, nil
	case node.IsSymbol("None"):
		return Literal{Kind: LiteralNone}, nil
	default:
		return Literal{}, syntaxErrorAt(node, "expected a literal but got %s", node)
	}
}

func readIdent(node *sexy.Node) (string, error) {
	if node.Type != sexy.NodeSymbol || !identPattern.MatchString(node.Text) {
		return "", syntaxErrorAt(node, "invalid identifier %s", node)
	}
	if keywords[node.Text] {
		return "", syntaxErrorAt(node, "'%s' is a keyword", node.Text)
	}
	return node.Text, nil
}

func readType(node *sexy.Node) (Type, error) {
	if node.Type == sexy.NodeSymbol {
		if typ, ok := typeNames[node.Text]; ok {
			return typ, nil
		}
	}
	return TypeUnknown, syntaxErrorAt(node, "unknown type %s", node)
}
