package vm

import "github.com/keix/lunacore/value"

// gcTable pairs a *value.Table with the Finalizer hook gc.Object requires.
// value.Table itself can't satisfy gc.Object directly without importing
// either package vm (for how to call a closure) or package gc (which would
// make package value depend on the GC, backwards from the layering spec §2
// implies) — so the Runtime wraps every table it allocates in this small
// adapter instead.
type gcTable struct {
	rt *Runtime
	t  *value.Table
}

func (g *gcTable) Finalizer() func() {
	mt := g.t.Metatable()
	if mt == nil {
		return nil
	}
	gcFn := mt.RawGet(value.Str(g.rt.strings.Intern(tagGC)))
	if gcFn.IsNil() {
		return nil
	}
	return func() {
		g.rt.main.callMetamethodValue(gcFn, []value.Value{value.Tbl(g.t)})
	}
}

// NewTable allocates a table tracked by the runtime's heap, the way every
// other heap object (closures, upvalues, threads) is tracked via
// heap.Allocate in this package.
func (rt *Runtime) NewTable(arrayHint, hashHint int) *value.Table {
	t := value.NewTable(arrayHint, hashHint)
	wrapper := &gcTable{rt: rt, t: t}
	rt.heap.Allocate(wrapper)
	rt.tableWrappers[t] = wrapper
	return t
}
