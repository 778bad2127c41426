package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/value"
)

// TestCoroutineResumeYieldRoundTrip builds the equivalent of
//
//	local co = coroutine.create(function()
//	    return coroutine.yield(1)
//	end)
//	coroutine.resume(co)       -- yields 1
//	coroutine.resume(co, 99)   -- resumes, yield(1) "returns" 99
//
// by calling the coroutine.yield native directly (embedded as a constant, in
// place of a GETTABUP global lookup a front end would emit) and driving
// Resume from the test as the host would.
func TestCoroutineResumeYieldRoundTrip(t *testing.T) {
	rt := newTestRuntime()
	yieldFn := rt.Global("coroutine").AsTable().RawGet(value.Str(rt.Strings().Intern("yield")))
	require.Equal(t, value.KindClosure, yieldFn.Kind())

	entry := testProto([]bytecode.Instruction{
		bytecode.ABx(bytecode.OpLoadK, 0, 0),
		bytecode.AsBx(bytecode.OpLoadI, 1, 1),
		bytecode.ABC(bytecode.OpCall, 0, false, 2, 2),
		bytecode.ABC(bytecode.OpReturn1, 0, false, 0, 0),
	}, []value.Value{yieldFn}, 0, 2)

	coClosure := closureOf(rt, entry)
	co := rt.NewCoroutine(coClosure)
	assert.Equal(t, StatusSuspended, co.Status())

	res1, err := co.Resume(rt.MainThread(), nil)
	require.NoError(t, err)
	require.Len(t, res1, 1)
	assert.Equal(t, int64(1), res1[0].AsInt())
	assert.Equal(t, StatusSuspended, co.Status())

	res2, err := co.Resume(rt.MainThread(), []value.Value{value.Int(99)})
	require.NoError(t, err)
	require.Len(t, res2, 1)
	assert.Equal(t, int64(99), res2[0].AsInt(), "the second resume's argument is yield's return value")
	assert.Equal(t, StatusDead, co.Status())
}

// TestResumeDeadCoroutineErrors checks resuming a finished coroutine a second
// time is reported as an error rather than panicking.
func TestResumeDeadCoroutineErrors(t *testing.T) {
	rt := newTestRuntime()
	entry := testProto([]bytecode.Instruction{
		bytecode.ABC(bytecode.OpReturn0, 0, false, 0, 0),
	}, nil, 0, 1)

	coClosure := closureOf(rt, entry)
	co := rt.NewCoroutine(coClosure)

	_, err := co.Resume(rt.MainThread(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, co.Status())

	_, err = co.Resume(rt.MainThread(), nil)
	require.Error(t, err)
}
