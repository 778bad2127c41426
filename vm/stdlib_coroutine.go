package vm

import "github.com/keix/lunacore/value"

// installCoroutineLib exposes the coroutine shell (spec §3.7, §4.8) as a
// `coroutine` global table of native functions, the same shape the teacher's
// CLI exposes flag-bound globals through (plaid.go) adapted to a table of
// callables instead of package-level variables, since this is runtime state
// a loaded chunk interacts with rather than a CLI session setting.
func (rt *Runtime) installCoroutineLib() {
	lib := rt.NewTable(0, 4)

	lib.RawSet(value.Str(rt.strings.Intern("create")), rt.RegisterNative("coroutine.create", coroutineCreate).Value())
	lib.RawSet(value.Str(rt.strings.Intern("resume")), rt.RegisterNative("coroutine.resume", coroutineResume).Value())
	lib.RawSet(value.Str(rt.strings.Intern("yield")), rt.RegisterNative("coroutine.yield", coroutineYield).Value())
	lib.RawSet(value.Str(rt.strings.Intern("status")), rt.RegisterNative("coroutine.status", coroutineStatus).Value())

	rt.SetGlobal("coroutine", value.Tbl(lib))
}

func coroutineCreate(t *Thread, args []value.Value) ([]value.Value, error) {
	if len(args) == 0 || args[0].Kind() != value.KindClosure {
		return nil, newError(ErrNotAFunction, "coroutine.create expects a function")
	}
	co := t.rt.NewCoroutine(args[0].AsObj().(*Closure))
	return []value.Value{co.Value()}, nil
}

func coroutineResume(t *Thread, args []value.Value) ([]value.Value, error) {
	if len(args) == 0 || args[0].Kind() != value.KindThread {
		return nil, newError(ErrNotAFunction, "coroutine.resume expects a thread")
	}
	co := args[0].AsObj().(*Thread)
	results, err := co.Resume(t, args[1:])
	if err != nil {
		return []value.Value{value.Bool(false), t.errorValue(err)}, nil
	}
	return append([]value.Value{value.Bool(true)}, results...), nil
}

func coroutineYield(t *Thread, args []value.Value) ([]value.Value, error) {
	return t.Yield(args), nil
}

func coroutineStatus(t *Thread, args []value.Value) ([]value.Value, error) {
	if len(args) == 0 || args[0].Kind() != value.KindThread {
		return nil, newError(ErrNotAFunction, "coroutine.status expects a thread")
	}
	co := args[0].AsObj().(*Thread)
	return []value.Value{value.Str(t.rt.strings.Intern(co.Status().String()))}, nil
}
