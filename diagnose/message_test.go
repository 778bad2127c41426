package diagnose

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/vm"
)

func TestCompileMessageIncludesLineAndText(t *testing.T) {
	m := CompileMessage{Source: "chunk.luac", Err: &bytecode.CompileError{Line: 12, Message: "bad opcode"}}
	out := m.Make(false)
	assert.Contains(t, out, "chunk.luac")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "bad opcode")
}

func TestRuntimeMessageRendersKindAndText(t *testing.T) {
	err := &vm.Error{Kind: vm.ErrArithmetic, Message: "attempt to perform arithmetic on a table value", Line: 7, Source: "chunk"}
	m := RuntimeMessage{Err: err}
	out := m.Make(false)
	assert.Contains(t, out, "ArithmeticError")
	assert.Contains(t, out, "chunk:7")
	assert.Contains(t, out, "arithmetic on a table value")
}

func TestRenderDispatchesByType(t *testing.T) {
	ce := &bytecode.CompileError{Line: 1, Message: "oops"}
	out := Render(ce, "f.luac", false)
	assert.Contains(t, out, "oops")

	re := &vm.Error{Kind: vm.ErrStackOverflow, Message: "too deep"}
	out2 := Render(re, "f.luac", false)
	assert.Contains(t, out2, "StackOverflow")
}
