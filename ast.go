package main

import (
	"strconv"
	"strings"
)

// Type is a source-level type. The zero value means the node has not been
// through the type checker yet.
type Type int

const (
	TypeUnknown Type = iota
	TypeInt
	TypeBool
	TypeNone
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeNone:
		return "None"
	default:
		return "?"
	}
}

// LiteralKind distinguishes the three literal forms
type LiteralKind string

const (
	LiteralInt  LiteralKind = "LiteralInt"
	LiteralBool LiteralKind = "LiteralBool"
	LiteralNone LiteralKind = "LiteralNone"
)

// Literal is a constant value. Integers are word sized.
type Literal struct {
	Kind LiteralKind
	Int  int32
	Bool bool
	Type Type
}

// TypedVar is a function parameter
type TypedVar struct {
	Name string
	Type Type
}

// VarDef declares a global or function-local variable with a literal
// initializer.
type VarDef struct {
	Var  TypedVar
	Init Literal
}

// ExprKind represents the different expression forms
type ExprKind string

const (
	ExprLiteral  ExprKind = "ExprLiteral"
	ExprIdent    ExprKind = "ExprIdent"
	ExprUnary    ExprKind = "ExprUnary"
	ExprBinary   ExprKind = "ExprBinary"
	ExprBuiltin1 ExprKind = "ExprBuiltin1"
	ExprBuiltin2 ExprKind = "ExprBuiltin2"
	ExprCall     ExprKind = "ExprCall"
)

// Op is a unary or binary operator
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "//"
	OpMod Op = "%"
	OpLt  Op = "<"
	OpLe  Op = "<="
	OpGt  Op = ">"
	OpGe  Op = ">="
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpIs  Op = "is"
	OpAnd Op = "and"
	OpOr  Op = "or"

	// unary
	OpNot Op = "not"
	OpNeg Op = "-"
)

// Expr represents an expression node
type Expr struct {
	Kind ExprKind
	// Inferred by the checker; TypeUnknown before checking.
	Type Type
	// ExprLiteral:
	Literal Literal
	// ExprIdent, ExprBuiltin1, ExprBuiltin2, ExprCall:
	Name string
	// ExprUnary, ExprBinary:
	Op Op
	// Operands of ExprUnary/ExprBinary, arguments of builtins and calls.
	Children []*Expr
}

// StmtKind represents the different statement forms
type StmtKind string

const (
	StmtExpr   StmtKind = "StmtExpr"
	StmtReturn StmtKind = "StmtReturn"
	StmtPass   StmtKind = "StmtPass"
	StmtAssign StmtKind = "StmtAssign"
)

// Stmt represents a statement node
type Stmt struct {
	Kind StmtKind
	// The statement's own effect type (always None once checked).
	Type Type
	// StmtAssign:
	Name string
	// StmtExpr, StmtReturn, StmtAssign:
	Expr *Expr
}

// FunctionDef is a user-defined function
type FunctionDef struct {
	Name   string
	Params []TypedVar
	Ret    Type
	Locals []VarDef
	Body   []*Stmt
}

// Program is the root of the tree
type Program struct {
	Globals []VarDef
	Funcs   []*FunctionDef
	Stmts   []*Stmt
}

const printName = "print"

// builtinArity lists the host-provided numeric helpers
var builtinArity = map[string]int{
	"abs": 1,
	"max": 2,
	"min": 2,
	"pow": 2,
}

// reservedNames may not be used as user function names. The print_* names
// are the host routines print is resolved to.
var reservedNames = map[string]bool{
	printName:    true,
	"abs":        true,
	"max":        true,
	"min":        true,
	"pow":        true,
	"print_num":  true,
	"print_bool": true,
	"print_none": true,
}

// Helper constructors
func IntLit(v int32) *Expr {
	return &Expr{Kind: ExprLiteral, Literal: Literal{Kind: LiteralInt, Int: v}}
}

func BoolLit(v bool) *Expr {
	return &Expr{Kind: ExprLiteral, Literal: Literal{Kind: LiteralBool, Bool: v}}
}

func NoneLit() *Expr {
	return &Expr{Kind: ExprLiteral, Literal: Literal{Kind: LiteralNone}}
}

func Ident(name string) *Expr {
	return &Expr{Kind: ExprIdent, Name: name}
}

func Unary(op Op, operand *Expr) *Expr {
	return &Expr{Kind: ExprUnary, Op: op, Children: []*Expr{operand}}
}

func Binary(op Op, left, right *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Op: op, Children: []*Expr{left, right}}
}

func Call(name string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Name: name, Children: args}
}

// ToSExpr converts an expression to its s-expression form
func ToSExpr(e *Expr) string {
	switch e.Kind {
	case ExprLiteral:
		return literalSExpr(e.Literal)
	case ExprIdent:
		return e.Name
	case ExprUnary, ExprBinary:
		return listSExpr(string(e.Op), e.Children)
	case ExprBuiltin1, ExprBuiltin2, ExprCall:
		return listSExpr(e.Name, e.Children)
	default:
		return ""
	}
}

func listSExpr(head string, children []*Expr) string {
	parts := []string{head}
	for _, child := range children {
		parts = append(parts, ToSExpr(child))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func literalSExpr(lit Literal) string {
	switch lit.Kind {
	case LiteralInt:
		return strconv.FormatInt(int64(lit.Int), 10)
	case LiteralBool:
		if lit.Bool {
			return "True"
		}
		return "False"
	default:
		return "None"
	}
}

// StmtToSExpr converts a statement to its s-expression form
func StmtToSExpr(s *Stmt) string {
	switch s.Kind {
	case StmtExpr:
		return "(expr " + ToSExpr(s.Expr) + ")"
	case StmtReturn:
		return "(return " + ToSExpr(s.Expr) + ")"
	case StmtPass:
		return "(pass)"
	case StmtAssign:
		return "(assign " + s.Name + " " + ToSExpr(s.Expr) + ")"
	default:
		return ""
	}
}

func VarDefToSExpr(def VarDef) string {
	return "(var " + def.Var.Name + " " + def.Var.Type.String() + " " + literalSExpr(def.Init) + ")"
}

func FunctionDefToSExpr(f *FunctionDef) string {
	var params []string
	for _, p := range f.Params {
		params = append(params, "("+p.Name+" "+p.Type.String()+")")
	}
	parts := []string{"def", f.Name, "(" + strings.Join(params, " ") + ")", f.Ret.String()}
	for _, def := range f.Locals {
		parts = append(parts, VarDefToSExpr(def))
	}
	for _, stmt := range f.Body {
		parts = append(parts, StmtToSExpr(stmt))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// ProgramToSExpr prints every top-level form on its own line
func ProgramToSExpr(p *Program) string {
	var lines []string
	for _, def := range p.Globals {
		lines = append(lines, VarDefToSExpr(def))
	}
	for _, f := range p.Funcs {
		lines = append(lines, FunctionDefToSExpr(f))
	}
	for _, stmt := range p.Stmts {
		lines = append(lines, StmtToSExpr(stmt))
	}
	return strings.Join(lines, "\n")
}
