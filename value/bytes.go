package value

import "bytes"

// Bytes is a refcounted byte buffer value, distinct from Str (which is
// text). Native resources (file reads, crypto digests, network payloads)
// flow through this variant.
type Bytes struct {
	h   *handle
	buf []byte
}

func NewBytes(b []byte) *Bytes {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Bytes{h: newHandle(), buf: cp}
}

func (b *Bytes) Type() TypeCode { return TypeBytes }
func (b *Bytes) String() string { return string(b.buf) }
func (b *Bytes) Truthy() bool   { return len(b.buf) > 0 }
func (b *Bytes) Equal(o Value) bool {
	ob, ok := o.(*Bytes)
	return ok && bytes.Equal(ob.buf, b.buf)
}

func (b *Bytes) Unique() bool  { return b.h.Unique() }
func (b *Bytes) Len() int      { return len(b.buf) }
func (b *Bytes) Bytes() []byte { return b.buf }

func (b *Bytes) Share() *Bytes {
	b.h.Retain()
	return &Bytes{h: b.h, buf: b.buf}
}
