package main

// LocalEnv records which names are local slots of the unit being generated.
// Every value is one word, so no type information is kept; a name missing
// from the environment is a global.
type LocalEnv map[string]bool

// TopLevelEnv is the environment of the top-level unit: every name is global.
func TopLevelEnv() LocalEnv {
	return LocalEnv{}
}

// FunctionEnv builds the environment of a function body from the enclosing
// environment plus the function's parameters and local definitions.
func FunctionEnv(enclosing LocalEnv, f *FunctionDef) LocalEnv {
	env := make(LocalEnv, len(enclosing)+len(f.Params)+len(f.Locals))
	for name, local := range enclosing {
		env[name] = local
	}
	for _, p := range f.Params {
		env[p.Name] = true
	}
	for _, def := range f.Locals {
		env[def.Var.Name] = true
	}
	return env
}

func (env LocalEnv) IsLocal(name string) bool {
	return env[name]
}
