package main

import "strconv"

// Opcode is a stack machine instruction. Values are the WASM i32 opcodes.
type Opcode byte

const (
	RETURN     Opcode = 0x0F
	CALL       Opcode = 0x10
	LOCAL_GET  Opcode = 0x20
	LOCAL_SET  Opcode = 0x21
	GLOBAL_GET Opcode = 0x23
	GLOBAL_SET Opcode = 0x24
	I32_CONST  Opcode = 0x41
	I32_EQZ    Opcode = 0x45
	I32_EQ     Opcode = 0x46
	I32_NE     Opcode = 0x47
	I32_LT_S   Opcode = 0x48
	I32_GT_S   Opcode = 0x4A
	I32_LE_S   Opcode = 0x4C
	I32_GE_S   Opcode = 0x4E
	I32_ADD    Opcode = 0x6A
	I32_SUB    Opcode = 0x6B
	I32_MUL    Opcode = 0x6C
	I32_DIV_S  Opcode = 0x6D
	I32_REM_S  Opcode = 0x6F
	I32_AND    Opcode = 0x71
	I32_OR     Opcode = 0x72
)

var opcodeNames = map[Opcode]string{
	RETURN:     "return",
	CALL:       "call",
	LOCAL_GET:  "local.get",
	LOCAL_SET:  "local.set",
	GLOBAL_GET: "global.get",
	GLOBAL_SET: "global.set",
	I32_CONST:  "i32.const",
	I32_EQZ:    "i32.eqz",
	I32_EQ:     "i32.eq",
	I32_NE:     "i32.ne",
	I32_LT_S:   "i32.lt_s",
	I32_GT_S:   "i32.gt_s",
	I32_LE_S:   "i32.le_s",
	I32_GE_S:   "i32.ge_s",
	I32_ADD:    "i32.add",
	I32_SUB:    "i32.sub",
	I32_MUL:    "i32.mul",
	I32_DIV_S:  "i32.div_s",
	I32_REM_S:  "i32.rem_s",
	I32_AND:    "i32.and",
	I32_OR:     "i32.or",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "op_" + strconv.Itoa(int(op))
}

// Instruction is one stack machine instruction
type Instruction struct {
	Op Opcode
	// I32_CONST:
	Value int32
	// LOCAL_*, GLOBAL_*, CALL: the slot or function name.
	Name string
}

// String renders the instruction in WAT folded form, e.g. (i32.const 1)
func (in Instruction) String() string {
	switch in.Op {
	case I32_CONST:
		return "(" + in.Op.String() + " " + strconv.FormatInt(int64(in.Value), 10) + ")"
	case LOCAL_GET, LOCAL_SET, GLOBAL_GET, GLOBAL_SET, CALL:
		return "(" + in.Op.String() + " $" + in.Name + ")"
	default:
		return "(" + in.Op.String() + ")"
	}
}

// Import is a host routine. It takes Params words and returns one word.
type Import struct {
	Name   string
	Params int
}

// Func is one generated function
type Func struct {
	Name   string
	Params []string
	// Declared locals, the scratch slot included.
	Locals    []string
	Body      []Instruction
	HasResult bool
}

// Module is the code generator's output
type Module struct {
	// Namespace the imports are requested from.
	HostModule string
	// Name the start unit is exported under.
	Export  string
	Imports []Import
	Globals []string
	Funcs   []*Func
	Start   *Func
}

// ScratchSlot holds the value of the last expression statement of a unit.
// The dot keeps it apart from every source identifier.
const ScratchSlot = ".scratch"

// StartLabel names the top-level unit inside the module; it is exported as
// Module.Export.
const StartLabel = ".start"

const (
	DefaultHostModule = "imports"
	DefaultExport     = "_start"
)

// print is resolved statically to one of these from its argument's type
var printRoutines = map[Type]string{
	TypeInt:  "print_num",
	TypeBool: "print_bool",
	TypeNone: "print_none",
}

// HostImports is the fixed set of host routines every module declares
var HostImports = []Import{
	{Name: "print_num", Params: 1},
	{Name: "print_bool", Params: 1},
	{Name: "print_none", Params: 1},
	{Name: "abs", Params: 1},
	{Name: "max", Params: 2},
	{Name: "min", Params: 2},
	{Name: "pow", Params: 2},
}

var binaryOpcodes = map[Op]Opcode{
	OpAdd: I32_ADD,
	OpSub: I32_SUB,
	OpMul: I32_MUL,
	OpDiv: I32_DIV_S,
	OpMod: I32_REM_S,
	OpGt:  I32_GT_S,
	OpLt:  I32_LT_S,
	OpGe:  I32_GE_S,
	OpLe:  I32_LE_S,
	OpEq:  I32_EQ,
	OpNe:  I32_NE,
	OpIs:  I32_EQ,
	OpAnd: I32_AND,
	OpOr:  I32_OR,
}

// GenProgram lowers a type-checked program. Calling it on a tree that did not
// pass CheckProgram is a programming error and panics.
func GenProgram(prog *Program) *Module {
	m := &Module{
		HostModule: DefaultHostModule,
		Export:     DefaultExport,
		Imports:    append([]Import(nil), HostImports...),
	}

	for _, def := range prog.Globals {
		m.Globals = append(m.Globals, def.Var.Name)
	}

	top := TopLevelEnv()
	for _, f := range prog.Funcs {
		m.Funcs = append(m.Funcs, GenFunction(f, top))
	}

	start := &Func{Name: StartLabel, Locals: []string{ScratchSlot}}
	var body []Instruction
	for _, def := range prog.Globals {
		body = append(body, literalInstruction(def.Init))
		body = append(body, Instruction{Op: GLOBAL_SET, Name: def.Var.Name})
	}
	for _, stmt := range prog.Stmts {
		body = append(body, EmitStatement(stmt, top)...)
	}
	if n := len(prog.Stmts); n > 0 && prog.Stmts[n-1].Kind == StmtExpr {
		start.HasResult = true
		body = append(body, Instruction{Op: LOCAL_GET, Name: ScratchSlot})
	}
	start.Body = body
	m.Start = start
	return m
}

// GenFunction lowers one function definition
func GenFunction(f *FunctionDef, enclosing LocalEnv) *Func {
	env := FunctionEnv(enclosing, f)
	fn := &Func{Name: f.Name, HasResult: true}
	for _, p := range f.Params {
		fn.Params = append(fn.Params, p.Name)
	}
	for _, def := range f.Locals {
		fn.Locals = append(fn.Locals, def.Var.Name)
	}
	fn.Locals = append(fn.Locals, ScratchSlot)

	var body []Instruction
	for _, def := range f.Locals {
		body = append(body, literalInstruction(def.Init))
		body = append(body, Instruction{Op: LOCAL_SET, Name: def.Var.Name})
	}
	for _, stmt := range f.Body {
		body = append(body, EmitStatement(stmt, env)...)
	}
	// falling off the end returns None
	body = append(body, Instruction{Op: I32_CONST, Value: 0})
	fn.Body = body
	return fn
}

// EmitStatement lowers a statement
func EmitStatement(stmt *Stmt, env LocalEnv) []Instruction {
	switch stmt.Kind {
	case StmtPass:
		return nil

	case StmtAssign:
		code := EmitExpression(stmt.Expr, env)
		return append(code, storeInstruction(stmt.Name, env))

	case StmtExpr:
		code := EmitExpression(stmt.Expr, env)
		return append(code, Instruction{Op: LOCAL_SET, Name: ScratchSlot})

	case StmtReturn:
		code := EmitExpression(stmt.Expr, env)
		return append(code, Instruction{Op: RETURN})

	default:
		panic("unknown statement kind: " + string(stmt.Kind))
	}
}

// EmitExpression lowers an expression; operands are pushed left to right.
func EmitExpression(expr *Expr, env LocalEnv) []Instruction {
	if expr.Type == TypeUnknown {
		panic("expression was not type checked: " + ToSExpr(expr))
	}

	switch expr.Kind {
	case ExprLiteral:
		return []Instruction{literalInstruction(expr.Literal)}

	case ExprIdent:
		if env.IsLocal(expr.Name) {
			return []Instruction{{Op: LOCAL_GET, Name: expr.Name}}
		}
		return []Instruction{{Op: GLOBAL_GET, Name: expr.Name}}

	case ExprUnary:
		operand := EmitExpression(expr.Children[0], env)
		switch expr.Op {
		case OpNot:
			return append(operand, Instruction{Op: I32_EQZ})
		case OpNeg:
			code := []Instruction{{Op: I32_CONST, Value: 0}}
			code = append(code, operand...)
			return append(code, Instruction{Op: I32_SUB})
		default:
			panic("unknown unary operator: " + string(expr.Op))
		}

	case ExprBinary:
		opcode, ok := binaryOpcodes[expr.Op]
		if !ok {
			panic("unknown binary operator: " + string(expr.Op))
		}
		code := EmitExpression(expr.Children[0], env)
		code = append(code, EmitExpression(expr.Children[1], env)...)
		return append(code, Instruction{Op: opcode})

	case ExprBuiltin1, ExprBuiltin2:
		code := emitArgs(expr.Children, env)
		return append(code, Instruction{Op: CALL, Name: expr.Name})

	case ExprCall:
		code := emitArgs(expr.Children, env)
		callee := expr.Name
		if callee == printName {
			arg := expr.Children[0]
			routine, ok := printRoutines[arg.Type]
			if !ok {
				panic("print argument was not type checked: " + ToSExpr(arg))
			}
			callee = routine
		}
		return append(code, Instruction{Op: CALL, Name: callee})

	default:
		panic("unknown expression kind: " + string(expr.Kind))
	}
}

func emitArgs(args []*Expr, env LocalEnv) []Instruction {
	var code []Instruction
	for _, arg := range args {
		code = append(code, EmitExpression(arg, env)...)
	}
	return code
}

func storeInstruction(name string, env LocalEnv) Instruction {
	if env.IsLocal(name) {
		return Instruction{Op: LOCAL_SET, Name: name}
	}
	return Instruction{Op: GLOBAL_SET, Name: name}
}

// literalInstruction pushes the word encoding of a literal
func literalInstruction(lit Literal) Instruction {
	switch lit.Kind {
	case LiteralInt:
		return Instruction{Op: I32_CONST, Value: lit.Int}
	case LiteralBool:
		if lit.Bool {
			return Instruction{Op: I32_CONST, Value: 1}
		}
		return Instruction{Op: I32_CONST, Value: 0}
	default:
		return Instruction{Op: I32_CONST, Value: 0}
	}
}
