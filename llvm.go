package main

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

var llvmPredicates = map[Opcode]enum.IPred{
	I32_EQ:   enum.IPredEQ,
	I32_NE:   enum.IPredNE,
	I32_LT_S: enum.IPredSLT,
	I32_GT_S: enum.IPredSGT,
	I32_LE_S: enum.IPredSLE,
	I32_GE_S: enum.IPredSGE,
}

// llvmGen lowers one stack machine module to LLVM IR
type llvmGen struct {
	mod     *ir.Module
	funcs   map[string]*ir.Func
	globals map[string]*ir.Global
}

// EmitLLVM lowers a validated module to LLVM IR. Every word is an i32; the
// operand stack is resolved at compile time into SSA values.
func EmitLLVM(m *Module) *ir.Module {
	g := &llvmGen{
		mod:     ir.NewModule(),
		funcs:   make(map[string]*ir.Func),
		globals: make(map[string]*ir.Global),
	}

	for _, imp := range m.Imports {
		params := make([]*ir.Param, imp.Params)
		for i := range params {
			params[i] = ir.NewParam(fmt.Sprintf("a%d", i), types.I32)
		}
		// no body, so it prints as a declaration
		g.funcs[imp.Name] = g.mod.NewFunc(imp.Name, types.I32, params...)
	}

	// globals live in their own namespace so they never clash with functions
	for _, name := range m.Globals {
		g.globals[name] = g.mod.NewGlobalDef("global."+name, constant.NewInt(types.I32, 0))
	}

	// declare before lowering bodies so calls can reference any function
	defined := append(append([]*Func(nil), m.Funcs...), m.Start)
	llvmFuncs := make([]*ir.Func, len(defined))
	for i, fn := range defined {
		name := fn.Name
		if fn == m.Start {
			name = m.Export
		}
		retType := types.Type(types.Void)
		if fn.HasResult {
			retType = types.I32
		}
		params := make([]*ir.Param, len(fn.Params))
		for j, p := range fn.Params {
			params[j] = ir.NewParam(p, types.I32)
		}
		llvmFuncs[i] = g.mod.NewFunc(name, retType, params...)
		g.funcs[fn.Name] = llvmFuncs[i]
	}

	for i, fn := range defined {
		g.genFunc(fn, llvmFuncs[i])
	}
	return g.mod
}

func (g *llvmGen) genFunc(fn *Func, llvmFunc *ir.Func) {
	// labels share the local namespace; the dot keeps them apart from
	// source identifiers
	block := llvmFunc.NewBlock(".entry")

	slots := make(map[string]value.Value)
	for i, p := range fn.Params {
		addr := block.NewAlloca(types.I32)
		addr.SetName(p + ".addr")
		block.NewStore(llvmFunc.Params[i], addr)
		slots[p] = addr
	}
	for _, name := range fn.Locals {
		addr := block.NewAlloca(types.I32)
		addr.SetName(name)
		block.NewStore(constant.NewInt(types.I32, 0), addr)
		slots[name] = addr
	}

	var stack []value.Value
	push := func(v value.Value) {
		stack = append(stack, v)
	}
	pop := func() value.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, in := range fn.Body {
		switch in.Op {
		case I32_CONST:
			push(constant.NewInt(types.I32, int64(in.Value)))
		case LOCAL_GET:
			push(block.NewLoad(types.I32, slots[in.Name]))
		case LOCAL_SET:
			block.NewStore(pop(), slots[in.Name])
		case GLOBAL_GET:
			push(block.NewLoad(types.I32, g.globals[in.Name]))
		case GLOBAL_SET:
			block.NewStore(pop(), g.globals[in.Name])
		case CALL:
			callee := g.funcs[in.Name]
			args := make([]value.Value, len(callee.Params))
			for i := len(args) - 1; i >= 0; i-- {
				args[i] = pop()
			}
			push(block.NewCall(callee, args...))
		case I32_EQZ:
			cmp := block.NewICmp(enum.IPredEQ, pop(), constant.NewInt(types.I32, 0))
			push(block.NewZExt(cmp, types.I32))
		case RETURN:
			if fn.HasResult {
				block.NewRet(pop())
			} else {
				block.NewRet(nil)
			}
			// whatever follows a return is unreachable
			stack = stack[:0]
			block = llvmFunc.NewBlock(fmt.Sprintf(".bb%d", len(llvmFunc.Blocks)))
		default:
			y := pop()
			x := pop()
			push(g.genBinary(block, in.Op, x, y))
		}
	}

	if fn.HasResult {
		block.NewRet(pop())
	} else {
		block.NewRet(nil)
	}
}

func (g *llvmGen) genBinary(block *ir.Block, op Opcode, x, y value.Value) value.Value {
	if pred, ok := llvmPredicates[op]; ok {
		return block.NewZExt(block.NewICmp(pred, x, y), types.I32)
	}
	switch op {
	case I32_ADD:
		return block.NewAdd(x, y)
	case I32_SUB:
		return block.NewSub(x, y)
	case I32_MUL:
		return block.NewMul(x, y)
	case I32_DIV_S:
		return block.NewSDiv(x, y)
	case I32_REM_S:
		return block.NewSRem(x, y)
	case I32_AND:
		return block.NewAnd(x, y)
	case I32_OR:
		return block.NewOr(x, y)
	default:
		panic("no LLVM lowering for " + op.String())
	}
}
