package natives

import (
	"encoding/json"
	"fmt"

	"lumen/dispatcher"
	"lumen/value"
)

// registerJSON wires json_encode/json_decode onto stdlib encoding/json.
// No example repo in this codebase's pack imports a third-party JSON
// library (encoding/json covers every use site they have), so, like the
// core, strings, collections and mathx natives, this category is built
// directly on the standard library rather than an ecosystem package —
// see DESIGN.md.
func registerJSON(r *dispatcher.Registry) {
	r.Register("json_encode", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("json_encode() takes exactly 1 argument, got %d", len(args))
		}
		native, err := toJSONNative(args[0])
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(native)
		if err != nil {
			return nil, fmt.Errorf("json_encode(): %w", err)
		}
		return value.NewStr(string(out)), nil
	})

	r.Register("json_decode", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("json_decode() takes exactly 1 argument, got %d", len(args))
		}
		s, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("json_decode() requires a string, got %s", args[0].Type())
		}
		var native any
		if err := json.Unmarshal([]byte(s.String()), &native); err != nil {
			return nil, fmt.Errorf("json_decode(): %w", err)
		}
		return fromJSONNative(native), nil
	})
}

// toJSONNative converts a runtime Value into the plain Go data
// json.Marshal understands, matching this design's structural value
// model (arrays -> []any, dicts -> map[string]any, scalars -> Go
// scalars). Functions, promises, resources, and other non-data values
// have no JSON representation and are a shape error.
func toJSONNative(v value.Value) (any, error) {
	switch x := v.(type) {
	case value.Null:
		return nil, nil
	case value.Bool:
		return bool(x), nil
	case value.Int:
		return int64(x), nil
	case value.Float:
		return float64(x), nil
	case *value.Str:
		return x.String(), nil
	case *value.Array:
		elts := x.Elements()
		out := make([]any, len(elts))
		for i, e := range elts {
			native, err := toJSONNative(e)
			if err != nil {
				return nil, err
			}
			out[i] = native
		}
		return out, nil
	case *value.Dict:
		out := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			ev, _ := x.Get(k)
			native, err := toJSONNative(ev)
			if err != nil {
				return nil, err
			}
			out[k] = native
		}
		return out, nil
	default:
		return nil, fmt.Errorf("json_encode(): value of type %s has no JSON representation", v.Type())
	}
}

// fromJSONNative converts json.Unmarshal's untyped output (nil, bool,
// float64, string, []any, map[string]any) back into runtime Values.
// JSON numbers always decode through float64; this codebase has no
// distinct "this was an integer literal" signal to recover, so
// json_decode always produces value.Float for numbers (documented in
// DESIGN.md as the one lossy corner of the round trip).
func fromJSONNative(native any) value.Value {
	switch x := native.(type) {
	case nil:
		return value.Null{}
	case bool:
		return value.Bool(x)
	case float64:
		return value.Float(x)
	case string:
		return value.NewStr(x)
	case []any:
		elts := make([]value.Value, len(x))
		for i, e := range x {
			elts[i] = fromJSONNative(e)
		}
		return value.NewArray(elts)
	case map[string]any:
		d := value.NewEmptyDict()
		for k, v := range x {
			d = d.Set(k, fromJSONNative(v))
		}
		return d
	default:
		return value.Null{}
	}
}
