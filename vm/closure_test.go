package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/value"
)

// TestClosureCapturesAndMutatesSharedUpvalue builds the equivalent of
//
//	local function outer()
//	    local x = 10
//	    return function() x = x + 1; return x end
//	end
//
// by hand and checks that two successive calls to the returned closure see
// the same mutated upvalue rather than a fresh copy each time.
func TestClosureCapturesAndMutatesSharedUpvalue(t *testing.T) {
	child := testProto([]bytecode.Instruction{
		bytecode.ABC(bytecode.OpGetUpval, 0, false, 0, 0),
		bytecode.ABC(bytecode.OpAddI, 0, false, 0, bytecode.EncodeSignedC(1)),
		bytecode.ABC(bytecode.OpSetUpval, 0, false, 0, 0),
		bytecode.ABC(bytecode.OpReturn1, 0, false, 0, 0),
	}, nil, 0, 1)
	child.Upvalues = []bytecode.UpvalueDesc{{InStack: true, Index: 0, Name: "x"}}
	child.NumUpvals = 1

	outer := testProto([]bytecode.Instruction{
		bytecode.AsBx(bytecode.OpLoadI, 0, 10),
		bytecode.ABx(bytecode.OpClosure, 1, 0),
		bytecode.ABC(bytecode.OpReturn1, 1, false, 0, 0),
	}, nil, 0, 2)
	outer.Protos = []*bytecode.Proto{child}

	rt := newTestRuntime()
	inner := runReturn1(t, rt, outer)
	require.Equal(t, value.KindClosure, inner.Kind())
	cl := inner.AsObj().(*Closure)

	res1, err := rt.Execute(cl, nil)
	require.NoError(t, err)
	require.Len(t, res1, 1)
	assert.Equal(t, int64(11), res1[0].AsInt())

	res2, err := rt.Execute(cl, nil)
	require.NoError(t, err)
	require.Len(t, res2, 1)
	assert.Equal(t, int64(12), res2[0].AsInt(), "second call sees the mutation from the first")
}
