package vm

import "github.com/keix/lunacore/bytecode"

// CallInfo is one active invocation's frame record (spec §3.6). Grounded on
// the teacher's backend.StackFrame (backend/stackFrame.go: "Closure,
// ReturnToAddress, Registers []*Register"), generalized from Plaid's
// per-frame Go-slice of boxed registers to the spec's base-relative window
// into one shared thread-wide value stack (spec §9's "pre-sized ring of
// CallInfo structs" guidance), plus the fields Plaid has no use for:
// vararg range, protection flag, and the to-be-closed register set.
type CallInfo struct {
	proto    *bytecode.Proto // nil for a native call
	closure  *Closure
	pc       int
	base     int // R[i] == thread.stack[base+i]
	retBase  int // where this frame's results must land
	varargBase  int
	varargCount int
	nresults    int // -1 means "all results"
	isProtected bool
	tbc         []uint8 // register offsets (relative to base) marked TBC, in mark order
	previous    *CallInfo
}

// markTBC records that register reg (relative to base) must have __close
// invoked on scope exit (spec §4.2 TBC). Marks happen in increasing-register
// order as a function declares more to-be-closed locals.
func (ci *CallInfo) markTBC(reg uint8) {
	ci.tbc = append(ci.tbc, reg)
}

// tbcAboveLIFO returns the subset of marked TBC registers at or above
// threshold (relative to base), in LIFO order (most-recently-marked, i.e.
// highest register index, first) — spec §4.2/§4.6's close ordering.
func (ci *CallInfo) tbcAboveLIFO(threshold uint8) []uint8 {
	var out []uint8
	for i := len(ci.tbc) - 1; i >= 0; i-- {
		if ci.tbc[i] >= threshold {
			out = append(out, ci.tbc[i])
		}
	}
	return out
}

// clearTBCAbove drops marked-TBC bookkeeping for registers >= threshold,
// once their __close calls have run.
func (ci *CallInfo) clearTBCAbove(threshold uint8) {
	kept := ci.tbc[:0]
	for _, r := range ci.tbc {
		if r < threshold {
			kept = append(kept, r)
		}
	}
	ci.tbc = kept
}
