package value

import "strings"

// Str is a refcounted, immutable-through-the-API text value with
// copy-on-write append (spec.md §3.1). Two Str values may share the same
// backing []byte via the embedded handle until one of them is mutated
// in place by the VM's in-place opcodes.
type Str struct {
	h   *handle
	buf []byte
}

// NewStr creates a fresh Str owning its own backing buffer.
func NewStr(s string) *Str {
	return &Str{h: newHandle(), buf: []byte(s)}
}

func (s *Str) Type() TypeCode { return TypeStr }
func (s *Str) String() string { return string(s.buf) }
func (s *Str) Truthy() bool   { return len(s.buf) > 0 }
func (s *Str) Equal(o Value) bool {
	os, ok := o.(*Str)
	return ok && string(os.buf) == string(s.buf)
}

// Unique reports whether the VM may append/mutate this Str's buffer in
// place rather than copying first.
func (s *Str) Unique() bool { return s.h.Unique() }

// Len returns the byte length of the string.
func (s *Str) Len() int { return len(s.buf) }

// Append returns a Str holding s+other. When s is uniquely owned and its
// backing array has spare capacity, the append happens in place and the
// same handle/backing array is reused (the copy-on-write fast path);
// otherwise a fresh buffer is allocated.
func (s *Str) Append(other string) *Str {
	if s.h.Unique() && cap(s.buf) > len(s.buf) {
		s.buf = append(s.buf, other...)
		return s
	}
	buf := make([]byte, 0, len(s.buf)+len(other))
	buf = append(buf, s.buf...)
	buf = append(buf, other...)
	return &Str{h: newHandle(), buf: buf}
}

// Share returns a new Str header sharing this one's backing buffer and
// handle, incrementing the refcount. Used when a Str local is copied by
// reference (assignment, function argument passing).
func (s *Str) Share() *Str {
	s.h.Retain()
	return &Str{h: s.h, buf: s.buf}
}

// Concat is the MOO/scripting-language `+` operator for strings: always
// returns a fresh Str (concatenation produces a new value regardless of
// uniqueness, since both operands must remain valid).
func (s *Str) Concat(other *Str) *Str {
	var b strings.Builder
	b.Grow(len(s.buf) + len(other.buf))
	b.Write(s.buf)
	b.Write(other.buf)
	return NewStr(b.String())
}
