package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/value"
)

// closableTable returns a table whose __close metamethod appends label to
// order when invoked, for asserting close ordering without a compiler to
// emit real upvalue-capturing Lua closures.
func closableTable(rt *Runtime, order *[]string, label string) *value.Table {
	tbl := rt.NewTable(0, 0)
	mt := rt.NewTable(0, 1)
	closer := &Closure{Native: func(t *Thread, args []value.Value) ([]value.Value, error) {
		*order = append(*order, label)
		return nil, nil
	}}
	mt.RawSet(value.Str(rt.Strings().Intern(tagClose)), closer.Value())
	tbl.SetMetatable(mt)
	return tbl
}

// TestCloseScopeClosesTBCVariablesLIFO builds the equivalent of
//
//	local a <close> = setmetatable({}, {__close = ...})
//	local b <close> = setmetatable({}, {__close = ...})
//
// and checks that scope exit (an ordinary RETURN, via call's own defer)
// closes b before a: TBC variables close in reverse declaration order.
func TestCloseScopeClosesTBCVariablesLIFO(t *testing.T) {
	rt := newTestRuntime()
	var order []string
	a := closableTable(rt, &order, "a")
	b := closableTable(rt, &order, "b")

	p := testProto([]bytecode.Instruction{
		bytecode.ABx(bytecode.OpLoadK, 0, 0),
		bytecode.ABC(bytecode.OpTBC, 0, false, 0, 0),
		bytecode.ABx(bytecode.OpLoadK, 1, 1),
		bytecode.ABC(bytecode.OpTBC, 1, false, 0, 0),
		bytecode.ABC(bytecode.OpReturn0, 0, false, 0, 0),
	}, []value.Value{value.Tbl(a), value.Tbl(b)}, 0, 2)

	cl := closureOf(rt, p)
	_, err := rt.Execute(cl, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, order, "to-be-closed variables close LIFO, most recently declared first")
}

// TestCloseScopeRunsOnErrorUnwindThroughPCall checks that a to-be-closed
// variable still in scope when its frame errors out gets __close invoked as
// part of PCALL's unwind, even though the frame never reaches its RETURN.
func TestCloseScopeRunsOnErrorUnwindThroughPCall(t *testing.T) {
	rt := newTestRuntime()
	var order []string
	guard := closableTable(rt, &order, "guard")

	risky := testProto([]bytecode.Instruction{
		bytecode.ABx(bytecode.OpLoadK, 0, 0),
		bytecode.ABC(bytecode.OpTBC, 0, false, 0, 0),
		bytecode.AsBx(bytecode.OpLoadI, 1, 1),
		bytecode.AsBx(bytecode.OpLoadI, 2, 0),
		bytecode.ABC(bytecode.OpIDiv, 3, false, 1, 2),
		bytecode.ABC(bytecode.OpReturn1, 3, false, 0, 0),
	}, []value.Value{value.Tbl(guard)}, 0, 4)

	main := testProto([]bytecode.Instruction{
		bytecode.ABx(bytecode.OpClosure, 0, 0),
		bytecode.ABC(bytecode.OpPCall, 0, false, 1, 2),
		bytecode.ABC(bytecode.OpReturn, 0, false, 3, 0),
	}, nil, 0, 2)
	main.Protos = []*bytecode.Proto{risky}

	cl := closureOf(rt, main)
	res, err := rt.Execute(cl, nil)
	require.NoError(t, err, "PCALL must not let the callee's error escape")
	require.Len(t, res, 2)
	assert.False(t, res[0].AsBool())
	assert.Equal(t, []string{"guard"}, order, "__close still runs for a TBC variable in scope when the frame errors out")
}

// TestMarkingNonClosableValueAsTBCErrors checks TBC on a truthy value with no
// __close metamethod is rejected rather than silently ignored.
func TestMarkingNonClosableValueAsTBCErrors(t *testing.T) {
	p := testProto([]bytecode.Instruction{
		bytecode.AsBx(bytecode.OpLoadI, 0, 5),
		bytecode.ABC(bytecode.OpTBC, 0, false, 0, 0),
		bytecode.ABC(bytecode.OpReturn0, 0, false, 0, 0),
	}, nil, 0, 1)

	rt := newTestRuntime()
	cl := closureOf(rt, p)
	_, err := rt.Execute(cl, nil)
	require.Error(t, err)
	verr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrNoCloseMetamethod, verr.Kind)
}
