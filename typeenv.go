package main

import "maps"

// FuncSig is a function's parameter types and return type
type FuncSig struct {
	Params []Type
	Ret    Type
}

// TypeEnv maps names to types for one scope. Extending an environment
// returns a copy; the receiver is never modified, so sibling scopes never
// observe each other's bindings.
type TypeEnv struct {
	vars  map[string]Type
	funcs map[string]FuncSig
	// Declared return type of the function being checked (None at top level).
	RetType Type
}

func NewTypeEnv() *TypeEnv {
	return &TypeEnv{
		vars:    make(map[string]Type),
		funcs:   make(map[string]FuncSig),
		RetType: TypeNone,
	}
}

func (env *TypeEnv) clone() *TypeEnv {
	return &TypeEnv{
		vars:    maps.Clone(env.vars),
		funcs:   maps.Clone(env.funcs),
		RetType: env.RetType,
	}
}

// ExtendVar returns a new environment with name bound to typ
func (env *TypeEnv) ExtendVar(name string, typ Type) *TypeEnv {
	next := env.clone()
	next.vars[name] = typ
	return next
}

// ExtendFunc returns a new environment with the function signature bound
func (env *TypeEnv) ExtendFunc(name string, sig FuncSig) *TypeEnv {
	next := env.clone()
	next.funcs[name] = sig
	return next
}

// WithRetType returns a new environment whose return slot is typ
func (env *TypeEnv) WithRetType(typ Type) *TypeEnv {
	next := env.clone()
	next.RetType = typ
	return next
}

func (env *TypeEnv) LookupVar(name string) (Type, bool) {
	typ, ok := env.vars[name]
	return typ, ok
}

func (env *TypeEnv) LookupFunc(name string) (FuncSig, bool) {
	sig, ok := env.funcs[name]
	return sig, ok
}
