package value

// Dict is a refcounted, insertion-ordered String→Value mapping
// (spec.md §3.1). Insertion order is tracked via a parallel key slice so
// iteration (for-in, keys/values natives) is deterministic.
type Dict struct {
	h      *handle
	keys   []string
	values map[string]Value
}

func NewEmptyDict() *Dict {
	return &Dict{h: newHandle(), values: make(map[string]Value)}
}

func (d *Dict) Type() TypeCode { return TypeDict }
func (d *Dict) String() string {
	s := "{"
	for i, k := range d.keys {
		if i > 0 {
			s += ", "
		}
		s += k + ": " + d.values[k].String()
	}
	return s + "}"
}
func (d *Dict) Truthy() bool { return len(d.keys) > 0 }
func (d *Dict) Equal(o Value) bool {
	od, ok := o.(*Dict)
	if !ok || len(od.keys) != len(d.keys) {
		return false
	}
	for _, k := range d.keys {
		ov, ok := od.values[k]
		if !ok || !StructuralEqual(d.values[k], ov) {
			return false
		}
	}
	return true
}

func (d *Dict) Unique() bool { return d.h.Unique() }
func (d *Dict) Len() int     { return len(d.keys) }
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d *Dict) Share() *Dict {
	d.h.Retain()
	return &Dict{h: d.h, keys: d.keys, values: d.values}
}

func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

func (d *Dict) clone() *Dict {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	values := make(map[string]Value, len(d.values))
	for k, v := range d.values {
		values[k] = v
	}
	return &Dict{h: newHandle(), keys: keys, values: values}
}

// Set returns a Dict with key bound to v, preserving insertion order for
// existing keys and appending new ones. Mutates in place when uniquely
// owned (the IndexSetInPlace fast path).
func (d *Dict) Set(key string, v Value) *Dict {
	target := d
	if !d.h.Unique() {
		target = d.clone()
	}
	if _, exists := target.values[key]; !exists {
		target.keys = append(target.keys, key)
	}
	target.values[key] = v
	return target
}

// Delete returns a Dict with key removed.
func (d *Dict) Delete(key string) *Dict {
	if _, ok := d.values[key]; !ok {
		return d
	}
	target := d
	if !d.h.Unique() {
		target = d.clone()
	}
	delete(target.values, key)
	for i, k := range target.keys {
		if k == key {
			target.keys = append(target.keys[:i], target.keys[i+1:]...)
			break
		}
	}
	return target
}
