package vm

import (
	"github.com/keix/lunacore/gc"
	"github.com/keix/lunacore/value"
)

// CoroutineStatus is one of the four states spec §3.7 assigns a thread.
type CoroutineStatus uint8

const (
	StatusSuspended CoroutineStatus = iota
	StatusRunning
	StatusNormal
	StatusDead
)

func (s CoroutineStatus) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusNormal:
		return "normal"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// yieldMsg is what a suspending coroutine hands back to its resumer (spec
// §4.8): either a batch of yielded/returned values, or the error that ended
// it, plus whether the thread is now dead rather than merely suspended.
type yieldMsg struct {
	values []value.Value
	err    error
	done   bool
}

// Thread is a single execution context: the main thread or a coroutine
// (spec §3.7). Grounded on the teacher's Interpreter
// (backend/interpreter.go: "ip BytecodeAddress; fp *StackFrame; callStack
// []*StackFrame"), generalized from Plaid's one-thread-only design (which has
// no coroutine concept at all) into a value shared by a runtime's several
// threads, each with its own stack/ci-chain/open-upvalue-list.
type Thread struct {
	rt    *Runtime
	heap  *gc.Heap

	stack []value.Value
	top   int // high-water mark for GC scanning and variadic calls

	ci    *CallInfo // current frame; nil stack is empty
	depth int       // number of frames on the ci chain

	openUpvalues *Upvalue

	status  CoroutineStatus
	resumer *Thread

	// entry/started/resumeCh/yieldCh implement resume/yield as a goroutine
	// parked on a channel rather than a saved/restored program counter (spec
	// §4.8): the coroutine's own Go call stack (inside runLoop's recursion)
	// already holds exactly the suspended state a resume needs to pick back
	// up, so there is nothing separate to snapshot. Grounded on the teacher's
	// single-threaded Interpreter (backend/interpreter.go), which has no
	// coroutine concept to adapt from; this pattern is the idiomatic Go answer
	// to "cooperative one-at-a-time execution contexts" the other pack
	// entries don't otherwise demonstrate.
	entry    *Closure
	started  bool
	resumeCh chan []value.Value
	yieldCh  chan yieldMsg

	// err is not read or written by the dispatch loop: errors travel as Go
	// return values out of runLoop and call instead of being stored here.
	err *Error

	// instrCount is incremented once per dispatched instruction while a hook
	// is installed and hookEvery > 0; it paces the optional host-installed
	// hook (spec §5 "Cancellation and timeouts").
	instrCount   int64
	hookEvery    int64
	hook         func(t *Thread) error

	// opCount drives the automatic collection safe point in runLoop (spec
	// §4.3 step 6), independent of the optional host hook above.
	opCount int64
}

// Finalizer satisfies gc.Object. A thread's __gc would be a host concern;
// not modeled at the thread level itself.
func (t *Thread) Finalizer() func() { return nil }

// Status reports the thread's coroutine state.
func (t *Thread) Status() CoroutineStatus { return t.status }

// SetHook installs a host callback invoked every HookEveryN dispatched
// instructions (spec §5 "Cancellation and timeouts"); returning a non-nil
// error aborts the running call with that error. A nil fn disables the hook.
func (t *Thread) SetHook(fn func(t *Thread) error) { t.hook = fn }

// Value wraps t as a tagged Value, the form a coroutine handle is stored in
// a register, global or table under.
func (t *Thread) Value() value.Value { return value.Obj(value.KindThread, t) }

// newThread allocates a Thread with a pre-sized value stack, per spec §9
// ("the source uses a fixed 256-slot array + bounded call stack" — sized
// here from Config instead of hardcoded, but the same fixed-buffer idea).
func (rt *Runtime) newThread() *Thread {
	t := &Thread{
		rt:        rt,
		heap:      rt.heap,
		stack:     make([]value.Value, rt.config.MaxStackSize),
		status:    StatusSuspended,
		hookEvery: rt.config.HookEveryN,
	}
	rt.heap.Allocate(t)
	return t
}

// ensureStack grows the value stack if a frame needs registers beyond the
// current capacity, raising StackOverflow once the configured ceiling would
// be exceeded (spec §7 StackOverflow).
func (t *Thread) ensureStack(need int) error {
	if need <= len(t.stack) {
		return nil
	}
	if need > t.rt.config.MaxStackSize {
		return newError(ErrStackOverflow, "value stack would exceed configured size %d", t.rt.config.MaxStackSize)
	}
	grown := make([]value.Value, need)
	copy(grown, t.stack)
	t.stack = grown
	return nil
}

// pushFrame links a new CallInfo above the current one, enforcing the
// configured call-stack depth (spec §7 CallStackOverflow).
func (t *Thread) pushFrame(ci *CallInfo) error {
	if t.depth >= t.rt.config.MaxCallDepth {
		return newError(ErrCallStackOverflow, "exceeded maximum call nesting depth %d", t.rt.config.MaxCallDepth)
	}
	ci.previous = t.ci
	t.ci = ci
	t.depth++
	return nil
}

func (t *Thread) popFrame() {
	if t.ci != nil {
		t.ci = t.ci.previous
		t.depth--
	}
}

// reg/setReg read and write register i of the current frame.
func (t *Thread) reg(i int) value.Value     { return t.stack[t.ci.base+i] }
func (t *Thread) setReg(i int, v value.Value) { t.stack[t.ci.base+i] = v }
