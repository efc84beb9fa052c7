// Package natives implements the built-in function catalog the
// dispatcher registry exposes to CallNative (spec.md §4.5, §6.4).
// Grounded on this codebase's builtins/*.go one-file-per-concern layout
// (registry.RegisterCryptoBuiltins, builtins/gc.go, etc.), trimmed from
// this codebase's MOO-object-model-specific entries (player/verb/property
// builtins) down to the representative categories SPEC_FULL.md's Domain
// Stack section calls for: core, strings, collections, math, crypto,
// system/time, JSON, sandboxed files, and the async/scheduler/JIT
// control surface (see asyncx.go).
package natives

import (
	"fmt"

	"lumen/dispatcher"
	"lumen/value"
)

// RegisterAll wires every native category into r. Called once by
// cmd/lumen at startup.
func RegisterAll(r *dispatcher.Registry) {
	registerCore(r)
	registerStrings(r)
	registerCollections(r)
	registerMath(r)
	registerCrypto(r)
	registerSystem(r)
	registerJSON(r)
	registerFiles(r)
}

func registerCore(r *dispatcher.Registry) {
	r.Register("type", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("type() takes exactly 1 argument, got %d", len(args))
		}
		return value.NewStr(args[0].Type().String()), nil
	})
	r.Register("str", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("str() takes exactly 1 argument, got %d", len(args))
		}
		return value.NewStr(args[0].String()), nil
	})
	r.Register("len", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len() takes exactly 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *value.Array:
			return value.Int(v.Len()), nil
		case *value.Dict:
			return value.Int(v.Len()), nil
		case *value.Str:
			return value.Int(v.Len()), nil
		case *value.Bytes:
			return value.Int(v.Len()), nil
		}
		return nil, fmt.Errorf("len() unsupported for type %s", args[0].Type())
	})
	r.Register("equal", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("equal() takes exactly 2 arguments, got %d", len(args))
		}
		return value.Bool(value.StructuralEqual(args[0], args[1])), nil
	})
}
