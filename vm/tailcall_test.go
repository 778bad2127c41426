package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keix/lunacore/bytecode"
)

// TestTailCallReusesFrameWithoutGrowingCallDepth builds the equivalent of
//
//	local function f(n)
//	    if n <= 0 then return n end
//	    return f(n - 1)
//	end
//	return f(2000)
//
// where f captures itself as an upvalue the way a local recursive function
// declaration does. 2000 comfortably exceeds DefaultConfig's MaxCallDepth
// (200); if TAILCALL recursed through an ordinary call instead of reusing
// the current frame, this would fail with ErrCallStackOverflow well before
// n reaches 0.
func TestTailCallReusesFrameWithoutGrowingCallDepth(t *testing.T) {
	inner := testProto([]bytecode.Instruction{
		bytecode.ABC(bytecode.OpLEI, 0, false, bytecode.EncodeSignedC(0), 0),
		bytecode.SJ(bytecode.OpJmp, 1),
		bytecode.ABC(bytecode.OpReturn1, 0, false, 0, 0),
		bytecode.ABC(bytecode.OpGetUpval, 2, false, 0, 0),
		bytecode.ABC(bytecode.OpAddI, 3, false, 0, bytecode.EncodeSignedC(-1)),
		bytecode.ABC(bytecode.OpTailCall, 2, false, 2, 0),
	}, nil, 1, 4)
	inner.Upvalues = []bytecode.UpvalueDesc{{InStack: true, Index: 0, Name: "f"}}
	inner.NumUpvals = 1

	main := testProto([]bytecode.Instruction{
		bytecode.ABx(bytecode.OpClosure, 0, 0),
		bytecode.AsBx(bytecode.OpLoadI, 1, 2000),
		bytecode.ABC(bytecode.OpCall, 0, false, 2, 2),
		bytecode.ABC(bytecode.OpReturn1, 0, false, 0, 0),
	}, nil, 0, 2)
	main.Protos = []*bytecode.Proto{inner}

	rt := newTestRuntime()
	cl := closureOf(rt, main)
	v, err := rt.Execute(cl, nil)
	require.NoError(t, err, "a self-recursive tail call must not exhaust Config.MaxCallDepth")
	require.Len(t, v, 1)
	assert.Equal(t, int64(0), v[0].AsInt())
}
