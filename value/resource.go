package value

import "sync"

// Resource is the catch-all external-resource Value variant (file
// handle, DB conn/pool, HTTP server, image buffer, archive writer, ...
// spec.md §3.1). Each carries a shared mutex-guarded native handle whose
// lifecycle is RAII on last-reference drop: Close is idempotent and is
// invoked by the owning native package when the refcount reaches zero.
type Resource struct {
	h       *handle
	mu      *sync.Mutex
	Kind    string // e.g. "file", "sqlite_conn", "http_server"
	Handle  any    // concrete native handle (an *os.File, a db connection, ...)
	closeFn func(any) error
	closed  bool
}

func NewResource(kind string, native any, closeFn func(any) error) *Resource {
	return &Resource{h: newHandle(), mu: &sync.Mutex{}, Kind: kind, Handle: native, closeFn: closeFn}
}

func (r *Resource) Type() TypeCode { return TypeResource }
func (r *Resource) String() string { return "<" + r.Kind + " resource>" }
func (r *Resource) Truthy() bool   { return true }
func (r *Resource) Equal(o Value) bool {
	or, ok := o.(*Resource)
	return ok && or == r
}

// Share increments the refcount and returns a header sharing the same
// underlying handle/native resource.
func (r *Resource) Share() *Resource {
	r.h.Retain()
	return &Resource{h: r.h, mu: r.mu, Kind: r.Kind, Handle: r.Handle, closeFn: r.closeFn}
}

// Release drops a reference; when it was the last one, the native handle
// is closed under the resource's mutex.
func (r *Resource) Release() error {
	if !r.h.Release() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.closeFn == nil {
		return nil
	}
	r.closed = true
	return r.closeFn(r.Handle)
}

// WithLock runs fn while holding the resource's guard mutex, for natives
// that need exclusive access to the native handle (e.g. a seek+read pair).
func (r *Resource) WithLock(fn func(native any) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errResourceClosed
	}
	return fn(r.Handle)
}

var errResourceClosed = &ErrorObject{Message: "resource is closed"}
