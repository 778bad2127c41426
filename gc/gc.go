// Package gc defines the collaborator interface the dispatch loop relies on
// for heap allocation and safe-point bookkeeping (spec §2 "GC interface",
// §4.4, §5). The tracing/sweeping internals of a real collector are
// explicitly out of scope (spec §1); what's pinned down here is only the
// allocation entrypoint, the root-provider contract the collector would walk,
// and the finalizer queue the dispatch loop drains at safe points.
//
// No pack example implements a from-scratch tracing GC suitable to adapt, so
// this is a small root-list stand-in: every allocation is tracked,
// Collect() releases every tracked object that does not appear among the
// provider's roots (no transitive tracing), and __gc finalizers are
// queued rather than called inline (so a finalizer can't observe a
// half-collected heap). This keeps the public surface (Allocate, RootProvider,
// FinalizerQueue, Inhibit/Allow) exactly what the spec requires without
// committing to a specific collection algorithm.
package gc

import "sync"

// Object is anything the collector can track: a *value.Table, a vm.Closure,
// a vm.Upvalue or a vm.Thread. The interface is intentionally minimal to
// avoid an import cycle with package vm (which depends on package value,
// which must not depend back on either vm or gc).
type Object interface {
	// Finalizer returns a zero-argument callback to run at a safe point
	// before the object is released, or nil if the object has none.
	Finalizer() func()
}

// RootProvider supplies the set of objects a root-marking pass must start
// from: every live thread's value stack (up to its high-water mark), its
// open-upvalue list, and its CallInfo chain's closures, plus a shared
// registry table (spec §3.7's "Lifecycles" paragraph).
type RootProvider interface {
	Roots() []Object
}

// Heap tracks allocated objects and collaborates with the dispatch loop's
// safe points. Construction of a new object happens with the heap
// "inhibited" (spec §4.4, §5): Inhibit/Allow bracket windows — like CLOSURE
// building a closure's upvalue vector — where an object exists but isn't yet
// reachable from any root.
type Heap struct {
	mu         sync.Mutex
	inhibited  int
	live       map[Object]struct{}
	finalizers []func()
}

// NewHeap returns an empty Heap.
func NewHeap() *Heap {
	return &Heap{live: make(map[Object]struct{})}
}

// Allocate registers a freshly constructed object with the heap. It must be
// called while the relevant inhibit window (if any) is still open.
func (h *Heap) Allocate(o Object) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live[o] = struct{}{}
}

// Inhibit begins a window during which Collect is a no-op, used while
// constructing an object graph (a Closure plus its Upvalues) that is
// momentarily unreachable from any root (spec §4.4, §5). Calls nest.
func (h *Heap) Inhibit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inhibited++
}

// Allow ends one nested Inhibit window.
func (h *Heap) Allow() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inhibited > 0 {
		h.inhibited--
	}
}

// Collect releases every tracked object not reachable from provider's roots,
// queuing any __gc finalizers it finds rather than invoking them inline. It
// is a no-op while inhibited.
func (h *Heap) Collect(provider RootProvider) {
	h.mu.Lock()
	if h.inhibited > 0 {
		h.mu.Unlock()
		return
	}
	reachable := make(map[Object]struct{})
	var mark func(Object)
	mark = func(o Object) {
		if _, ok := reachable[o]; ok {
			return
		}
		reachable[o] = struct{}{}
	}
	for _, root := range provider.Roots() {
		mark(root)
	}
	for o := range h.live {
		if _, ok := reachable[o]; !ok {
			if fin := o.Finalizer(); fin != nil {
				h.finalizers = append(h.finalizers, fin)
			}
			delete(h.live, o)
		}
	}
	h.mu.Unlock()
}

// DrainFinalizers runs (and clears) every finalizer Collect has queued.
// Errors raised inside a finalizer are reported to onError rather than
// propagated, per spec §4.3 step 6 ("errors inside finalizers are reported
// but do not propagate").
func (h *Heap) DrainFinalizers(onError func(recovered any)) {
	h.mu.Lock()
	pending := h.finalizers
	h.finalizers = nil
	h.mu.Unlock()

	for _, fin := range pending {
		runFinalizer(fin, onError)
	}
}

func runFinalizer(fin func(), onError func(recovered any)) {
	defer func() {
		if r := recover(); r != nil && onError != nil {
			onError(r)
		}
	}()
	fin()
}

// Live reports how many objects the heap currently tracks, for tests and
// diagnostics.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}
