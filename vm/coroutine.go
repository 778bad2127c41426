package vm

import "github.com/keix/lunacore/value"

// NewCoroutine creates a suspended thread that will run entry when first
// resumed (spec §3.7, §4.8 "create"). The underlying goroutine isn't started
// until the first Resume call.
func (rt *Runtime) NewCoroutine(entry *Closure) *Thread {
	t := rt.newThread()
	t.entry = entry
	t.resumeCh = make(chan []value.Value)
	t.yieldCh = make(chan yieldMsg)
	return t
}

// Resume transfers control from the calling thread to t (spec §4.8
// "resume"), blocking the caller until t yields, returns, or errors. caller
// is marked "normal" for the duration, matching the four-state model spec
// §3.7 describes.
func (t *Thread) Resume(caller *Thread, args []value.Value) (results []value.Value, err error) {
	switch t.status {
	case StatusDead:
		return nil, newError(ErrNotAFunction, "cannot resume dead coroutine")
	case StatusRunning, StatusNormal:
		return nil, newError(ErrNotAFunction, "cannot resume non-suspended coroutine")
	}

	t.resumer = caller
	caller.status = StatusNormal
	t.status = StatusRunning

	if !t.started {
		t.started = true
		go t.runBody(args)
	} else {
		t.resumeCh <- args
	}

	msg := <-t.yieldCh
	caller.status = StatusRunning
	if msg.done {
		t.status = StatusDead
	} else {
		t.status = StatusSuspended
	}
	return msg.values, msg.err
}

// runBody is the coroutine's goroutine entry point: it runs entry to
// completion (or to an uncaught error) and reports the final outcome on
// yieldCh the same way an intermediate Yield does, distinguished by done.
func (t *Thread) runBody(args []value.Value) {
	results, err := t.call(t.entry, args, -1, true)
	t.yieldCh <- yieldMsg{values: results, err: err, done: true}
}

// Yield suspends t (which must be the thread calling this from within its
// own goroutine — i.e. a native `coroutine.yield` invocation receives t as
// its first argument) and hands values back to whatever Resume call is
// currently blocked waiting on it, returning once a later Resume supplies
// the next batch of arguments (spec §4.8 "yield").
func (t *Thread) Yield(values []value.Value) []value.Value {
	t.yieldCh <- yieldMsg{values: values}
	return <-t.resumeCh
}
