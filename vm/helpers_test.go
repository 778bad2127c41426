package vm

import (
	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/value"
)

// testProto builds a minimal Proto for hand-assembled test bytecode. No
// compiler lives in this repository (lexing/parsing/codegen is an external
// collaborator, spec §1), so tests construct instruction streams directly
// the way a front end's emitted Proto would have arrived.
func testProto(code []bytecode.Instruction, consts []value.Value, numParams, maxStack uint8) *bytecode.Proto {
	return &bytecode.Proto{
		Code:      code,
		Constants: consts,
		NumParams: numParams,
		MaxStack:  maxStack,
		Source:    "test",
	}
}

// newTestRuntime returns a Runtime with generous default limits for tests
// that don't care about exercising the stack/call-depth ceilings themselves.
func newTestRuntime() *Runtime {
	return New(DefaultConfig())
}

// closureOf wraps p as a callable Closure the way rt.LoadBytecode would,
// without the binary encode/decode round trip test code doesn't need.
func closureOf(rt *Runtime, p *bytecode.Proto) *Closure {
	return rt.newTopLevelClosure(p)
}
