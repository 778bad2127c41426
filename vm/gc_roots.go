package vm

import (
	"github.com/keix/lunacore/gc"
	"github.com/keix/lunacore/value"
)

// threadRoots implements gc.RootProvider by walking one thread's live stack
// (up to top), its open-upvalue list (plus each open/closed upvalue's own
// payload), and its CallInfo chain's closures (spec §3.7 "Lifecycles"), plus
// the runtime's permanent global table. A multi-thread runtime would union
// every live thread's roots; this project's single-runtime-single-main-
// thread-plus-coroutines model only ever roots from the thread that is
// currently running or suspended off of it, reached here via the resumer
// chain.
type threadRoots struct {
	t *Thread
}

func rootsOf(t *Thread) gc.RootProvider { return threadRoots{t: t} }

func (r threadRoots) Roots() []gc.Object {
	var out []gc.Object
	rt := r.t.rt

	if w, ok := rt.tableWrappers[rt.globals]; ok {
		out = append(out, w)
	}

	t := r.t
	for t != nil {
		for uv := t.openUpvalues; uv != nil; uv = uv.next {
			out = append(out, uv)
			out = appendValueRoot(out, rt, uv.Get())
		}
		for ci := t.ci; ci != nil; ci = ci.previous {
			if ci.closure != nil {
				out = append(out, ci.closure)
				for _, uv := range ci.closure.Upvalues {
					out = appendValueRoot(out, rt, uv.Get())
				}
			}
		}
		for i := 0; i < t.top; i++ {
			out = appendValueRoot(out, rt, t.stack[i])
		}
		out = append(out, t)
		t = t.resumer
	}
	return out
}

// appendValueRoot resolves v to the gc.Object heap.Collect actually tracks
// (a *Closure or *Thread directly, a table's gcTable wrapper indirectly) and
// appends it if found. A table's own array/hash contents are not traced
// transitively (spec §1 leaves tracing/sweeping internals out of scope); a
// reachable table keeps itself and its own metatable's __gc alive, but a
// table nested only inside another table's contents is rooted no deeper than
// one level unless it is also independently reachable from a register,
// upvalue or the global table.
func appendValueRoot(out []gc.Object, rt *Runtime, v value.Value) []gc.Object {
	switch v.Kind() {
	case value.KindTable:
		if w, ok := rt.tableWrappers[v.AsTable()]; ok {
			out = append(out, w)
		}
	case value.KindClosure, value.KindThread:
		if o, ok := v.AsObj().(gc.Object); ok {
			out = append(out, o)
		}
	}
	return out
}
