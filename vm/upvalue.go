package vm

import "github.com/keix/lunacore/value"

// Upvalue is a one-way open-to-closed handle over a captured variable (spec
// §3.4). While open it aliases a live slot in some thread's value stack;
// CLOSE (or a frame returning with it still open) copies the current stack
// value into owned storage and flips it closed for good. Grounded on the
// teacher's backend.Upvalue (backend/functions.go: "Cell *Register; Value
// interface{}") generalized into the spec's explicit open/closed state
// machine with a shared, sorted, per-thread list (the teacher captures
// eagerly at closure-creation time and never closes at all).
type Upvalue struct {
	thread *Thread
	slot   int // absolute stack index while open
	closed bool
	value  value.Value
	next   *Upvalue // next node in the thread's open-upvalue list (descending slot)
}

// Finalizer satisfies gc.Object; upvalues have no __gc/__close themselves
// (the value they hold might, but that's handled where the value is closed).
func (u *Upvalue) Finalizer() func() { return nil }

// Get reads the upvalue's current value: the live stack slot while open, the
// owned copy once closed.
func (u *Upvalue) Get() value.Value {
	if u.closed {
		return u.value
	}
	return u.thread.stack[u.slot]
}

// Set writes through to the live stack slot while open, or to owned storage
// once closed.
func (u *Upvalue) Set(v value.Value) {
	if u.closed {
		u.value = v
		return
	}
	u.thread.stack[u.slot] = v
}

// findOrOpenUpvalue implements spec §4.4's find_or_open: walk the thread's
// open list (sorted by descending slot) for a node at `slot`; otherwise
// splice in a new open Upvalue at the right position.
func (t *Thread) findOrOpenUpvalue(slot int) *Upvalue {
	var prev *Upvalue
	cur := t.openUpvalues
	for cur != nil && cur.slot > slot {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.slot == slot {
		return cur
	}
	fresh := &Upvalue{thread: t, slot: slot}
	fresh.next = cur
	if prev == nil {
		t.openUpvalues = fresh
	} else {
		prev.next = fresh
	}
	t.heap.Allocate(fresh)
	return fresh
}

// closeUpvaluesAbove implements spec §4.4's close_above: while the head's
// slot is >= threshold, detach it, copy the live stack value into owned
// storage, mark it closed, and advance.
func (t *Thread) closeUpvaluesAbove(threshold int) {
	for t.openUpvalues != nil && t.openUpvalues.slot >= threshold {
		uv := t.openUpvalues
		t.openUpvalues = uv.next
		uv.value = t.stack[uv.slot]
		uv.closed = true
		uv.next = nil
	}
}
