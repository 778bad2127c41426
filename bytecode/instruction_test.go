package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestABCRoundTrip(t *testing.T) {
	i := ABC(OpAdd, 1, true, 2, 3)
	assert.Equal(t, OpAdd, i.OpCode())
	assert.Equal(t, uint8(1), i.A())
	assert.True(t, i.K())
	assert.Equal(t, uint8(2), i.B())
	assert.Equal(t, uint8(3), i.C())
}

func TestABxRoundTrip(t *testing.T) {
	i := ABx(OpLoadK, 5, 12345)
	assert.Equal(t, OpLoadK, i.OpCode())
	assert.Equal(t, uint8(5), i.A())
	assert.Equal(t, uint32(12345), i.Bx())
}

func TestAsBxRoundTripNegative(t *testing.T) {
	i := AsBx(OpLoadI, 0, -1000)
	assert.Equal(t, int32(-1000), i.SBx())
}

func TestSJRoundTrip(t *testing.T) {
	i := SJ(OpJmp, -50)
	assert.Equal(t, OpJmp, i.OpCode())
	assert.Equal(t, int32(-50), i.SJ())

	i2 := SJ(OpJmp, 50)
	assert.Equal(t, int32(50), i2.SJ())
}

func TestAxRoundTrip(t *testing.T) {
	i := Ax(OpExtraArg, 98765)
	assert.Equal(t, uint32(98765), i.AxField())
}

func TestSignedCRoundTrip(t *testing.T) {
	assert.Equal(t, int32(-1), SignedC(EncodeSignedC(-1)))
	assert.Equal(t, int32(127), SignedC(EncodeSignedC(127)))
	assert.Equal(t, int32(-128), SignedC(EncodeSignedC(-128)))
}

func TestOpCodeMode(t *testing.T) {
	assert.Equal(t, ModeABx, OpLoadK.Mode())
	assert.Equal(t, ModeAsBx, OpForPrep.Mode())
	assert.Equal(t, ModeAx, OpExtraArg.Mode())
	assert.Equal(t, ModeJ, OpJmp.Mode())
	assert.Equal(t, ModeABC, OpAdd.Mode())
}
