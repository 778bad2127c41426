package vm

import (
	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/value"
)

// NativeFunc is a host-implemented function (spec §3.3, §6.2 "Register
// native function by id"). It receives the calling thread and its arguments
// as a slice, and returns its results.
type NativeFunc func(t *Thread, args []value.Value) ([]value.Value, error)

// Closure is a callable value: either a bytecode closure pairing a Proto
// with its captured upvalues, or a native closure identified by a host
// function id (spec §3.3). Grounded on the teacher's backend.Closure
// (backend/functions.go), extended with the native variant Plaid has no
// equivalent for.
type Closure struct {
	Proto    *bytecode.Proto // nil for a native closure
	Upvalues []*Upvalue      // len == Proto.NumUpvals for a bytecode closure
	Native   NativeFunc      // non-nil for a native closure
	NativeID int
	Name     string // debug only
}

// Finalizer satisfies gc.Object. Closures have no __gc of their own (a
// closure value itself is never the object a __gc metamethod attaches to in
// this spec; tables are).
func (c *Closure) Finalizer() func() { return nil }

// Value wraps c as a tagged Value, the form every register, global and table
// entry holds a callable under.
func (c *Closure) Value() value.Value { return value.Obj(value.KindClosure, c) }

// IsNative reports whether this closure wraps a host function.
func (c *Closure) IsNative() bool { return c.Native != nil }

// newBytecodeClosure builds a Closure over proto, resolving every upvalue
// descriptor against the enclosing frame the way spec §4.2's CLOSURE opcode
// and §4.4 describe: InStack descriptors open (or reuse) a shared Upvalue
// for the enclosing frame's local slot; otherwise the descriptor copies the
// enclosing closure's own upvalue handle (shared, not duplicated).
//
// Grounded on the teacher's NewClosure (backend/functions.go), which performs
// the same walk but always captures eagerly from `enclosingStackFrame`
// without going through a shared open-upvalue list.
func (t *Thread) newBytecodeClosure(proto *bytecode.Proto, enclosing *CallInfo) *Closure {
	t.heap.Inhibit()
	defer t.heap.Allow()

	cl := &Closure{Proto: proto}
	if len(proto.Upvalues) > 0 {
		cl.Upvalues = make([]*Upvalue, len(proto.Upvalues))
		for i, desc := range proto.Upvalues {
			if desc.InStack {
				cl.Upvalues[i] = t.findOrOpenUpvalue(enclosing.base + int(desc.Index))
			} else {
				cl.Upvalues[i] = enclosing.closure.Upvalues[desc.Index]
			}
		}
	}
	t.heap.Allocate(cl)
	return cl
}
