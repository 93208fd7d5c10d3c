package main

import "fmt"

// CheckProgram type checks an untyped program and returns an annotated copy.
// The input tree is not modified. The first violation aborts checking.
func CheckProgram(prog *Program) (*Program, error) {
	env := NewTypeEnv()
	typed := &Program{}

	for _, def := range prog.Globals {
		if _, exists := env.LookupVar(def.Var.Name); exists {
			return nil, duplicate(VarDefToSExpr(def), def.Var.Name)
		}
		checked, err := CheckVarDef(def)
		if err != nil {
			return nil, err
		}
		typed.Globals = append(typed.Globals, checked)
		env = env.ExtendVar(def.Var.Name, def.Var.Type)
	}

	for _, f := range prog.Funcs {
		if _, exists := env.LookupFunc(f.Name); exists {
			return nil, duplicate(FunctionDefToSExpr(f), f.Name)
		}
		checked, err := CheckFunctionDef(f, env)
		if err != nil {
			return nil, err
		}
		typed.Funcs = append(typed.Funcs, checked)
		env = env.ExtendFunc(f.Name, signatureOf(f))
	}

	stmts, err := CheckStatements(prog.Stmts, env.WithRetType(TypeNone))
	if err != nil {
		return nil, err
	}
	typed.Stmts = stmts
	return typed, nil
}

func signatureOf(f *FunctionDef) FuncSig {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return FuncSig{Params: params, Ret: f.Ret}
}

func duplicate(construct, name string) *TypeError {
	return &TypeError{
		Kind:      ErrDuplicate,
		Construct: construct,
		Message:   fmt.Sprintf("duplicate declaration of '%s'", name),
	}
}

// CheckLiteral annotates a literal with its type
func CheckLiteral(lit Literal) Literal {
	switch lit.Kind {
	case LiteralInt:
		lit.Type = TypeInt
	case LiteralBool:
		lit.Type = TypeBool
	default:
		lit.Type = TypeNone
	}
	return lit
}

// CheckVarDef verifies that the initializer has the declared type
func CheckVarDef(def VarDef) (VarDef, error) {
	init := CheckLiteral(def.Init)
	if init.Type != def.Var.Type {
		return VarDef{}, mismatch(VarDefToSExpr(def), def.Var.Type, init.Type)
	}
	return VarDef{Var: def.Var, Init: init}, nil
}

// CheckFunctionDef checks a function body against env extended with the
// parameters, then the locals, then the function's own signature.
func CheckFunctionDef(f *FunctionDef, env *TypeEnv) (*FunctionDef, error) {
	construct := FunctionDefToSExpr(f)
	if reservedNames[f.Name] {
		return nil, &TypeError{
			Kind:      ErrReserved,
			Construct: construct,
			Message:   fmt.Sprintf("'%s' is reserved and cannot name a function", f.Name),
		}
	}

	declared := make(map[string]bool)
	local := env
	for _, p := range f.Params {
		if declared[p.Name] {
			return nil, duplicate(construct, p.Name)
		}
		declared[p.Name] = true
		local = local.ExtendVar(p.Name, p.Type)
	}

	var locals []VarDef
	for _, def := range f.Locals {
		if declared[def.Var.Name] {
			return nil, duplicate(construct, def.Var.Name)
		}
		declared[def.Var.Name] = true
		checked, err := CheckVarDef(def)
		if err != nil {
			return nil, err
		}
		locals = append(locals, checked)
		local = local.ExtendVar(def.Var.Name, def.Var.Type)
	}

	// registered before the body so recursive calls resolve
	local = local.ExtendFunc(f.Name, signatureOf(f)).WithRetType(f.Ret)

	body, err := CheckStatements(f.Body, local)
	if err != nil {
		return nil, err
	}

	if f.Ret != TypeNone && !hasReturn(f.Body) {
		return nil, &TypeError{
			Kind:      ErrMissingReturn,
			Construct: construct,
			Expected:  f.Ret,
			Message:   fmt.Sprintf("function '%s' must return a value of type %s", f.Name, f.Ret),
		}
	}

	params := append([]TypedVar(nil), f.Params...)
	return &FunctionDef{
		Name:   f.Name,
		Params: params,
		Ret:    f.Ret,
		Locals: locals,
		Body:   body,
	}, nil
}

// Bodies are straight-line, so one return statement covers every path.
func hasReturn(body []*Stmt) bool {
	for _, stmt := range body {
		if stmt.Kind == StmtReturn {
			return true
		}
	}
	return false
}

// CheckStatements checks each statement in order against env
func CheckStatements(stmts []*Stmt, env *TypeEnv) ([]*Stmt, error) {
	typed := make([]*Stmt, 0, len(stmts))
	for _, stmt := range stmts {
		checked, err := CheckStatement(stmt, env)
		if err != nil {
			return nil, err
		}
		typed = append(typed, checked)
	}
	return typed, nil
}

func CheckStatement(stmt *Stmt, env *TypeEnv) (*Stmt, error) {
	switch stmt.Kind {
	case StmtExpr:
		expr, err := CheckExpression(stmt.Expr, env)
		if err != nil {
			return nil, err
		}
		return &Stmt{Kind: StmtExpr, Type: TypeNone, Expr: expr}, nil

	case StmtPass:
		return &Stmt{Kind: StmtPass, Type: TypeNone}, nil

	case StmtAssign:
		target, ok := env.LookupVar(stmt.Name)
		if !ok {
			return nil, unbound(StmtToSExpr(stmt), stmt.Name)
		}
		expr, err := CheckExpression(stmt.Expr, env)
		if err != nil {
			return nil, err
		}
		if expr.Type != target {
			return nil, mismatch(StmtToSExpr(stmt), target, expr.Type)
		}
		return &Stmt{Kind: StmtAssign, Type: TypeNone, Name: stmt.Name, Expr: expr}, nil

	case StmtReturn:
		expr, err := CheckExpression(stmt.Expr, env)
		if err != nil {
			return nil, err
		}
		if expr.Type != env.RetType {
			return nil, mismatch(StmtToSExpr(stmt), env.RetType, expr.Type)
		}
		return &Stmt{Kind: StmtReturn, Type: TypeNone, Expr: expr}, nil

	default:
		panic("unknown statement kind: " + string(stmt.Kind))
	}
}

// CheckExpression infers the type of expr bottom-up and returns an annotated
// copy.
func CheckExpression(expr *Expr, env *TypeEnv) (*Expr, error) {
	switch expr.Kind {
	case ExprLiteral:
		lit := CheckLiteral(expr.Literal)
		return &Expr{Kind: ExprLiteral, Type: lit.Type, Literal: lit}, nil

	case ExprIdent:
		typ, ok := env.LookupVar(expr.Name)
		if !ok {
			return nil, unbound(ToSExpr(expr), expr.Name)
		}
		return &Expr{Kind: ExprIdent, Type: typ, Name: expr.Name}, nil

	case ExprUnary:
		return checkUnary(expr, env)

	case ExprBinary:
		return checkBinary(expr, env)

	case ExprBuiltin1, ExprBuiltin2:
		args, err := checkArgs(expr.Children, env)
		if err != nil {
			return nil, err
		}
		for _, arg := range args {
			if arg.Type != TypeInt {
				return nil, mismatch(ToSExpr(expr), TypeInt, arg.Type)
			}
		}
		return &Expr{Kind: expr.Kind, Type: TypeInt, Name: expr.Name, Children: args}, nil

	case ExprCall:
		return checkCall(expr, env)

	default:
		panic("unknown expression kind: " + string(expr.Kind))
	}
}

func checkArgs(children []*Expr, env *TypeEnv) ([]*Expr, error) {
	args := make([]*Expr, len(children))
	for i, child := range children {
		arg, err := CheckExpression(child, env)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return args, nil
}

func checkUnary(expr *Expr, env *TypeEnv) (*Expr, error) {
	operand, err := CheckExpression(expr.Children[0], env)
	if err != nil {
		return nil, err
	}

	var want Type
	switch expr.Op {
	case OpNot:
		want = TypeBool
	case OpNeg:
		want = TypeInt
	default:
		panic("unknown unary operator: " + string(expr.Op))
	}
	if operand.Type != want {
		return nil, mismatch(ToSExpr(expr), want, operand.Type)
	}
	return &Expr{Kind: ExprUnary, Type: want, Op: expr.Op, Children: []*Expr{operand}}, nil
}

func checkBinary(expr *Expr, env *TypeEnv) (*Expr, error) {
	left, err := CheckExpression(expr.Children[0], env)
	if err != nil {
		return nil, err
	}
	right, err := CheckExpression(expr.Children[1], env)
	if err != nil {
		return nil, err
	}

	construct := ToSExpr(expr)
	var result Type
	switch expr.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		if err := requireOperands(construct, TypeInt, left, right); err != nil {
			return nil, err
		}
		result = TypeInt

	case OpLt, OpLe, OpGt, OpGe:
		if err := requireOperands(construct, TypeInt, left, right); err != nil {
			return nil, err
		}
		result = TypeBool

	case OpEq, OpNe:
		if left.Type != right.Type || (left.Type != TypeInt && left.Type != TypeBool) {
			return nil, &TypeError{
				Kind:      ErrMismatch,
				Construct: construct,
				Expected:  left.Type,
				Actual:    right.Type,
				Message:   fmt.Sprintf("cannot compare %s with %s", left.Type, right.Type),
			}
		}
		result = TypeBool

	case OpIs:
		if err := requireOperands(construct, TypeNone, left, right); err != nil {
			return nil, err
		}
		result = TypeBool

	case OpAnd, OpOr:
		if err := requireOperands(construct, TypeBool, left, right); err != nil {
			return nil, err
		}
		result = TypeBool

	default:
		panic("unknown binary operator: " + string(expr.Op))
	}

	return &Expr{Kind: ExprBinary, Type: result, Op: expr.Op, Children: []*Expr{left, right}}, nil
}

func requireOperands(construct string, want Type, operands ...*Expr) error {
	for _, operand := range operands {
		if operand.Type != want {
			return mismatch(construct, want, operand.Type)
		}
	}
	return nil
}

func checkCall(expr *Expr, env *TypeEnv) (*Expr, error) {
	construct := ToSExpr(expr)

	if expr.Name == printName {
		if len(expr.Children) != 1 {
			return nil, argCount(construct, printName, 1, len(expr.Children))
		}
		// the argument keeps its own type so codegen can pick a print routine
		args, err := checkArgs(expr.Children, env)
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprCall, Type: TypeNone, Name: printName, Children: args}, nil
	}

	if arity, ok := builtinArity[expr.Name]; ok {
		// the reader only produces calls to builtins for the wrong arity
		return nil, argCount(construct, expr.Name, arity, len(expr.Children))
	}

	sig, ok := env.LookupFunc(expr.Name)
	if !ok {
		return nil, &TypeError{
			Kind:      ErrUnknownFunction,
			Construct: construct,
			Message:   fmt.Sprintf("unknown function '%s'", expr.Name),
		}
	}
	if len(sig.Params) != len(expr.Children) {
		return nil, argCount(construct, expr.Name, len(sig.Params), len(expr.Children))
	}

	args := make([]*Expr, len(expr.Children))
	for i, child := range expr.Children {
		arg, err := CheckExpression(child, env)
		if err != nil {
			return nil, err
		}
		if arg.Type != sig.Params[i] {
			return nil, &TypeError{
				Kind:      ErrMismatch,
				Construct: construct,
				Expected:  sig.Params[i],
				Actual:    arg.Type,
				Message:   fmt.Sprintf("argument %d of '%s': expected %s but got %s", i+1, expr.Name, sig.Params[i], arg.Type),
			}
		}
		args[i] = arg
	}
	return &Expr{Kind: ExprCall, Type: sig.Ret, Name: expr.Name, Children: args}, nil
}
