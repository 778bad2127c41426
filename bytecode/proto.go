package bytecode

import "github.com/keix/lunacore/value"

// UpvalueDesc describes how a child closure should capture one of its
// upvalues, per spec §3.2: either a local slot of the immediately enclosing
// function ("instack") or a copy of one of the enclosing closure's own
// upvalues. Grounded on the teacher's frontend.UpvalueRecord
// (_examples/isaacev-Plaid_v1/frontend/scope.go), renamed to this package's
// terms and moved next to Proto since the front end that produces it is out
// of scope here.
type UpvalueDesc struct {
	InStack bool
	Index   uint8
	Name    string // optional, debug only
}

// Proto is the immutable bytecode prototype a front end hands to the core
// (spec §3.2). Grounded on the teacher's backend.FuncPrototype
// (backend/functions.go), extended with per-instruction line info and a
// nested Protos list (the teacher keeps only a single flat top-level list of
// child functions; the spec calls for genuine nesting so CLOSURE's Bx can
// index straight into the owning Proto's own child list).
type Proto struct {
	Code       []Instruction
	Constants  []value.Value
	Protos     []*Proto
	Upvalues   []UpvalueDesc
	NumParams  uint8
	IsVararg   bool
	MaxStack   uint8
	NumUpvals  uint8
	Source     string
	LineInfo   []int32 // LineInfo[pc] is the source line for Code[pc]; may be nil
}

// Line returns the source line associated with instruction pc, or 0 if no
// line info was retained (spec §4.6 "where available").
func (p *Proto) Line(pc int) int32 {
	if p.LineInfo == nil || pc < 0 || pc >= len(p.LineInfo) {
		return 0
	}
	return p.LineInfo[pc]
}
