package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/value"
)

// TestIndexFallsBackToMetamethod builds the equivalent of
//
//	local mt = { __index = function(t, k) return 42 end }
//	local t = setmetatable({}, mt)
//	return t.missing
//
// exercising GETFIELD's miss-then-__index dispatch (spec §4.5).
func TestIndexFallsBackToMetamethod(t *testing.T) {
	rt := newTestRuntime()

	handler := testProto([]bytecode.Instruction{
		bytecode.AsBx(bytecode.OpLoadI, 2, 42),
		bytecode.ABC(bytecode.OpReturn1, 2, false, 0, 0),
	}, nil, 2, 3)
	handlerCl := closureOf(rt, handler)

	mt := rt.NewTable(0, 1)
	mt.RawSet(value.Str(rt.Strings().Intern("__index")), handlerCl.Value())

	obj := rt.NewTable(0, 0)
	obj.SetMetatable(mt)

	missingKey := value.Str(rt.Strings().Intern("missing"))
	main := testProto([]bytecode.Instruction{
		bytecode.ABx(bytecode.OpLoadK, 0, 1),
		bytecode.ABC(bytecode.OpGetField, 1, false, 0, 0),
		bytecode.ABC(bytecode.OpReturn1, 1, false, 0, 0),
	}, []value.Value{missingKey, value.Tbl(obj)}, 0, 2)

	v := runReturn1(t, rt, main)
	assert.Equal(t, int64(42), v.AsInt())
}

// TestAddMetamethodOnNonNumericOperands builds the equivalent of
//
//	local mt = { __add = function(a, b) return 7 end }
//	local t = setmetatable({}, mt)
//	return t + 1
//
// exercising ADD's fallback when the primary operand isn't a number.
func TestAddMetamethodOnNonNumericOperands(t *testing.T) {
	rt := newTestRuntime()

	handler := testProto([]bytecode.Instruction{
		bytecode.AsBx(bytecode.OpLoadI, 2, 7),
		bytecode.ABC(bytecode.OpReturn1, 2, false, 0, 0),
	}, nil, 2, 3)
	handlerCl := closureOf(rt, handler)

	mt := rt.NewTable(0, 1)
	mt.RawSet(value.Str(rt.Strings().Intern("__add")), handlerCl.Value())

	obj := rt.NewTable(0, 0)
	obj.SetMetatable(mt)

	main := testProto([]bytecode.Instruction{
		bytecode.ABx(bytecode.OpLoadK, 0, 0),
		bytecode.AsBx(bytecode.OpLoadI, 1, 1),
		bytecode.ABC(bytecode.OpAdd, 2, false, 0, 1),
		bytecode.ABC(bytecode.OpReturn1, 2, false, 0, 0),
	}, []value.Value{value.Tbl(obj)}, 0, 3)

	v := runReturn1(t, rt, main)
	assert.Equal(t, int64(7), v.AsInt())
}

// TestEqMetamethodOverridesRawIdentity checks __eq is consulted when both
// operands are tables that compare unequal by raw identity.
func TestEqMetamethodOverridesRawIdentity(t *testing.T) {
	rt := newTestRuntime()

	alwaysEqual := testProto([]bytecode.Instruction{
		bytecode.ABC(bytecode.OpLoadTrue, 2, false, 0, 0),
		bytecode.ABC(bytecode.OpReturn1, 2, false, 0, 0),
	}, nil, 2, 3)
	handlerCl := closureOf(rt, alwaysEqual)

	mt := rt.NewTable(0, 1)
	mt.RawSet(value.Str(rt.Strings().Intern("__eq")), handlerCl.Value())

	a := rt.NewTable(0, 0)
	a.SetMetatable(mt)
	b := rt.NewTable(0, 0)
	b.SetMetatable(mt)
	require.NotSame(t, a, b)

	main := testProto([]bytecode.Instruction{
		bytecode.ABx(bytecode.OpLoadK, 0, 0),
		bytecode.ABx(bytecode.OpLoadK, 1, 1),
		bytecode.ABC(bytecode.OpEq, 0, false, 1, 0),
		bytecode.SJ(bytecode.OpJmp, 1),
		bytecode.AsBx(bytecode.OpLoadI, 2, 1),
		bytecode.ABC(bytecode.OpReturn1, 2, false, 0, 0),
		bytecode.AsBx(bytecode.OpLoadI, 2, 0),
		bytecode.ABC(bytecode.OpReturn1, 2, false, 0, 0),
	}, []value.Value{value.Tbl(a), value.Tbl(b)}, 0, 3)

	v := runReturn1(t, rt, main)
	assert.Equal(t, int64(1), v.AsInt(), "__eq reports the two distinct tables as equal")
}
