package main

import "fmt"

// ValidateModule checks that every instruction sequence is stack balanced and
// that every slot, function and import it references is declared.
func ValidateModule(m *Module) error {
	globals := make(map[string]bool)
	for _, name := range m.Globals {
		if globals[name] {
			return fmt.Errorf("global '%s' declared twice", name)
		}
		globals[name] = true
	}

	// callee name -> parameter count
	callees := make(map[string]int)
	for _, imp := range m.Imports {
		if imp.Name == m.Export {
			return fmt.Errorf("import '%s' collides with the export name", imp.Name)
		}
		callees[imp.Name] = imp.Params
	}
	for _, fn := range m.Funcs {
		if _, exists := callees[fn.Name]; exists {
			return fmt.Errorf("function '%s' declared twice", fn.Name)
		}
		if fn.Name == m.Export {
			return fmt.Errorf("function '%s' collides with the export name", fn.Name)
		}
		callees[fn.Name] = len(fn.Params)
	}

	for _, fn := range append(append([]*Func(nil), m.Funcs...), m.Start) {
		if err := validateFunc(fn, globals, callees); err != nil {
			return fmt.Errorf("function '%s': %w", fn.Name, err)
		}
	}
	return nil
}

func validateFunc(fn *Func, globals map[string]bool, callees map[string]int) error {
	locals := make(map[string]bool)
	for _, name := range append(append([]string(nil), fn.Params...), fn.Locals...) {
		if locals[name] {
			return fmt.Errorf("local '%s' declared twice", name)
		}
		locals[name] = true
	}

	results := 0
	if fn.HasResult {
		results = 1
	}

	depth := 0
	pop := func(n int, at int, in Instruction) error {
		if depth < n {
			return fmt.Errorf("instruction %d %s pops %d from a stack of %d", at, in, n, depth)
		}
		depth -= n
		return nil
	}

	for i, in := range fn.Body {
		switch in.Op {
		case I32_CONST:
			depth++
		case LOCAL_GET, LOCAL_SET:
			if !locals[in.Name] {
				return fmt.Errorf("instruction %d %s: undeclared local", i, in)
			}
			if in.Op == LOCAL_GET {
				depth++
			} else if err := pop(1, i, in); err != nil {
				return err
			}
		case GLOBAL_GET, GLOBAL_SET:
			if !globals[in.Name] {
				return fmt.Errorf("instruction %d %s: undeclared global", i, in)
			}
			if in.Op == GLOBAL_GET {
				depth++
			} else if err := pop(1, i, in); err != nil {
				return err
			}
		case CALL:
			params, ok := callees[in.Name]
			if !ok {
				return fmt.Errorf("instruction %d %s: undeclared function", i, in)
			}
			if err := pop(params, i, in); err != nil {
				return err
			}
			depth++
		case I32_EQZ:
			if err := pop(1, i, in); err != nil {
				return err
			}
			depth++
		case RETURN:
			if err := pop(results, i, in); err != nil {
				return err
			}
			// the rest of the sequence starts from an empty stack
			depth = 0
		default:
			if _, ok := opcodeNames[in.Op]; !ok {
				return fmt.Errorf("instruction %d: unknown opcode %s", i, in.Op)
			}
			if err := pop(2, i, in); err != nil {
				return err
			}
			depth++
		}
	}

	if depth != results {
		return fmt.Errorf("ends with %d values on the stack, want %d", depth, results)
	}
	return nil
}
