package vm

import (
	"bytes"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/gc"
	"github.com/keix/lunacore/value"
)

// Config bundles the host-tunable limits spec §5/§7/§9 call for: call-stack
// depth, value-stack size, and the instruction-count hook interval. Mirrors
// the teacher's flag-bound globals in plaid.go (errorNoColor, debugShowAST,
// ...) collected into one struct instead of package-level variables, since a
// Runtime is a reusable value rather than a process-global CLI session.
type Config struct {
	MaxCallDepth  int
	MaxStackSize  int
	HookEveryN    int64
}

// DefaultConfig returns sane limits for an embedding host that hasn't
// customized them.
func DefaultConfig() Config {
	return Config{
		MaxCallDepth: 200,
		MaxStackSize: 1 << 16,
	}
}

// Runtime is the host-visible entry point to the core (spec §6.2): it owns
// the heap, the global table (_ENV), the native-function registry and the
// main thread, and exposes compile/load/execute operations. Grounded on the
// teacher's Interpreter (backend/interpreter.go), split into a
// process/session-level Runtime plus the per-thread Thread type now that
// coroutines mean more than one execution context shares state.
type Runtime struct {
	config  Config
	heap    *gc.Heap
	globals *value.Table
	natives []*Closure
	main    *Thread
	strings *value.Interner

	// tableWrappers resolves a live *value.Table back to the gcTable adapter
	// heap.Allocate actually tracks (vm/table.go), since a Value only ever
	// carries the bare *value.Table pointer. Without this index, a table
	// reachable only through a register or upvalue could never be reported
	// as a GC root: gc_roots.go needs the wrapper, not the table, to mark it
	// live.
	tableWrappers map[*value.Table]*gcTable
}

// New creates a Runtime with its main thread ready to run.
func New(cfg Config) *Runtime {
	rt := &Runtime{
		config:        cfg,
		heap:          gc.NewHeap(),
		strings:       value.NewInterner(),
		tableWrappers: make(map[*value.Table]*gcTable),
	}
	rt.globals = rt.NewTable(0, 0)
	rt.main = rt.newThread()
	rt.main.status = StatusRunning
	rt.installCoroutineLib()
	return rt
}

// Close releases the runtime's heap-tracked state. Present for symmetry with
// the host lifecycle the spec names (§6.2 "create, close, invoke GC"); a
// fresh gc.Heap replaces the old one and nothing else is released.
func (rt *Runtime) Close() {
	rt.heap = gc.NewHeap()
}

// CollectGarbage runs one collection pass rooted at the main thread (see
// threadRoots in gc_roots.go; a suspended coroutine's own stack is not
// walked), then drains any resulting finalizers (§6.2 "invoke GC").
func (rt *Runtime) CollectGarbage() {
	rt.heap.Collect(rootsOf(rt.main))
	rt.heap.DrainFinalizers(func(any) {})
}

// Globals returns the runtime's global table (the `_ENV` shorthand target,
// spec §6.2).
func (rt *Runtime) Globals() *value.Table { return rt.globals }

// MainThread returns the runtime's main thread, the one a host installs an
// instruction-count hook on or inspects for its coroutine status.
func (rt *Runtime) MainThread() *Thread { return rt.main }

// Strings returns the runtime's string interner, for hosts constructing
// string constants outside of a loaded Proto.
func (rt *Runtime) Strings() *value.Interner { return rt.strings }

// SetGlobal and Global are the "read/write named globals" shorthand the host
// API calls for (spec §6.2).
func (rt *Runtime) SetGlobal(name string, v value.Value) {
	rt.globals.RawSet(value.Str(rt.strings.Intern(name)), v)
}

func (rt *Runtime) Global(name string) value.Value {
	return rt.globals.RawGet(value.Str(rt.strings.Intern(name)))
}

// RegisterNative installs a host function under a small integer id (spec
// §6.2 "Register native function by id"), returning a callable Closure value
// the host can also store directly in a table or global.
func (rt *Runtime) RegisterNative(name string, fn NativeFunc) *Closure {
	cl := &Closure{Native: fn, NativeID: len(rt.natives), Name: name}
	rt.natives = append(rt.natives, cl)
	rt.heap.Allocate(cl)
	return cl
}

// LoadBytecode parses a binary chunk per spec §6.1/§6.2, rejecting an
// invalid signature/version.
func (rt *Runtime) LoadBytecode(data []byte) (*Closure, error) {
	p, err := bytecode.Load(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return rt.newTopLevelClosure(p), nil
}

// newTopLevelClosure wraps a freshly loaded main Proto in a Closure with its
// _ENV upvalue pre-bound to the runtime's global table — the same role real
// Lua's main chunk's sole upvalue plays, letting GETTABUP/SETTABUP resolve
// globals without any special-casing in the dispatch loop.
func (rt *Runtime) newTopLevelClosure(p *bytecode.Proto) *Closure {
	cl := &Closure{Proto: p}
	if p.NumUpvals > 0 {
		cl.Upvalues = make([]*Upvalue, p.NumUpvals)
		cl.Upvalues[0] = &Upvalue{closed: true, value: value.Tbl(rt.globals)}
		for i := 1; i < int(p.NumUpvals); i++ {
			cl.Upvalues[i] = &Upvalue{closed: true, value: value.Nil}
		}
	}
	rt.heap.Allocate(cl)
	return cl
}

// Execute runs closure with the given arguments on the runtime's main
// thread, unprotected: an error aborts execution and is returned to the
// embedder directly (spec §6.2 "Execute").
func (rt *Runtime) Execute(cl *Closure, args []value.Value) ([]value.Value, error) {
	return rt.main.call(cl, args, -1, false)
}

// ProtectedExecute is the protected-mode variant (spec §6.2): the returned
// error, if any, is a *vm.Error the embedder can inspect by Kind rather than
// an abort of the whole process.
func (rt *Runtime) ProtectedExecute(cl *Closure, args []value.Value) (results []value.Value, rerr error) {
	return rt.main.call(cl, args, -1, true)
}
