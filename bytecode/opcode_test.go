package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpCodeStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "ADD", OpAdd.String())
	assert.Equal(t, "PCALL", OpPCall.String())
	assert.Equal(t, "UNKNOWN", OpCode(250).String())
}

func TestPCallOpcodeValue(t *testing.T) {
	assert.Equal(t, OpCode(100), OpPCall)
}
