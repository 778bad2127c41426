package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	assert.False(t, Nil.Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.True(t, Bool(true).Truthy())
	assert.True(t, Int(0).Truthy(), "zero is truthy")
	in := NewInterner()
	assert.True(t, Str(in.Intern("")).Truthy(), "the empty string is truthy")
}

func TestRawEqualIntFloatBridge(t *testing.T) {
	assert.True(t, RawEqual(Int(3), Float(3.0)))
	assert.True(t, RawEqual(Float(3.0), Int(3)))
	assert.False(t, RawEqual(Int(3), Float(3.5)))
	assert.False(t, RawEqual(Float(1e19), Int(1)), "out-of-int64-range float never bridges")
}

func TestRawEqualNaN(t *testing.T) {
	nan := Float(math.NaN())
	assert.False(t, RawEqual(nan, nan), "NaN is never equal to itself")
}

func TestRawEqualStringsByContent(t *testing.T) {
	in := NewInterner()
	a := Str(in.Intern("hello"))
	b := Str(NewString("hello")) // uninterned, same content
	assert.True(t, RawEqual(a, b))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "nil", ToString(Nil))
	assert.Equal(t, "true", ToString(Bool(true)))
	assert.Equal(t, "42", ToString(Int(42)))
	assert.Equal(t, "3.5", ToString(Float(3.5)))
	assert.Equal(t, "1.0", ToString(Float(1.0)), "integer-valued floats keep a trailing .0")
	assert.Equal(t, "nan", ToString(Float(math.NaN())))
	assert.Equal(t, "inf", ToString(Float(math.Inf(1))))
	assert.Equal(t, "-inf", ToString(Float(math.Inf(-1))))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "integer", KindInt.String())
	assert.Equal(t, "number", KindFloat.String())
	assert.Equal(t, "function", KindClosure.String())
}
