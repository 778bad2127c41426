package vm

import (
	"math"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/value"
)

// gcStepInterval is how often (in dispatched instructions) runLoop triggers
// an automatic collection pass, so __gc finalizers fire as a side effect of
// ordinary execution rather than only when a host explicitly calls
// CollectGarbage (spec §4.3 step 6, §5 "GC is conceptually interleaved").
const gcStepInterval = 4096

// mmTags maps MMBIN/MMBINI/MMBINK's C operand (a small tag-method index) to
// the event name consulted on the operand's metatable. Grounded on the
// teacher's switch-on-opcode dispatch (backend/interpreter.go), adapted here
// to the data-driven event lookup the metamethod chain in metatables.go uses.
var mmTags = []string{
	tagAdd, tagSub, tagMul, tagMod, tagPow, tagDiv, tagIDiv,
	tagBAnd, tagBOr, tagBXor, tagShl, tagShr,
}

func mmTagFromIndex(i uint8) string {
	if int(i) < len(mmTags) {
		return mmTags[i]
	}
	return tagAdd
}

// call invokes cl with args on t, running the bytecode dispatch loop for a
// bytecode closure or the host function directly for a native one. protected
// only tags the frame's bookkeeping (CallInfo.isProtected); the actual "don't
// let this error escape" behavior lives at the call site (PCALL's handler,
// ProtectedExecute), which inspects the returned error instead of letting it
// propagate further. There is no separate unwind pass: as an error returns
// through each frame, that frame's deferred closeScope runs its __close
// handlers and closes its upvalues.
//
// An error that carries no line yet is stamped with the source line of the
// instruction that was executing when it left runLoop, when the frame's Proto
// has line info for it.
//
// Grounded on the teacher's Interpreter.Execute dispatch loop
// (backend/interpreter.go), generalized from Plaid's byte-stream fetch to
// decoding packed Instructions, and from its one-shot program-level loop into
// a per-call recursive routine so that nested Lua calls reuse Go's own call
// stack (bounded by Config.MaxCallDepth via pushFrame) instead of an
// interpreter-managed call stack slice.
func (t *Thread) call(cl *Closure, args []value.Value, nresults int, protected bool) (results []value.Value, rerr error) {
	if cl.IsNative() {
		return t.callNative(cl, args)
	}

	proto := cl.Proto
	base := t.top
	varargBase, varargCount, err := t.bindArgs(base, proto, args)
	if err != nil {
		return nil, err
	}

	ci := &CallInfo{
		proto:       proto,
		closure:     cl,
		base:        base,
		retBase:     base,
		varargBase:  varargBase,
		varargCount: varargCount,
		nresults:    nresults,
		isProtected: protected,
	}
	if err := t.pushFrame(ci); err != nil {
		return nil, err
	}
	t.top = varargBase + varargCount

	defer func() {
		if cerr := t.closeScope(ci, 0); cerr != nil {
			rerr = cerr
			results = nil
		}
		t.popFrame()
		t.top = base
	}()

	results, rerr = t.runLoop(ci)
	if e, ok := rerr.(*Error); ok && e.Line == 0 {
		if line := ci.proto.Line(ci.pc - 1); line > 0 {
			e.Line, e.Source = line, ci.proto.Source
		}
	}
	return results, rerr
}

// bindArgs lays args out in the register window starting at base per proto's
// fixed-parameter/vararg split, growing the stack if needed. Shared by call
// (a fresh frame) and reuseFrameForTailCall (an existing frame adopting a new
// proto in place).
func (t *Thread) bindArgs(base int, proto *bytecode.Proto, args []value.Value) (varargBase, varargCount int, err error) {
	np := int(proto.NumParams)
	varargBase = base + int(proto.MaxStack)
	if proto.IsVararg && len(args) > np {
		varargCount = len(args) - np
	}
	if err = t.ensureStack(varargBase + varargCount + 1); err != nil {
		return 0, 0, err
	}
	for i := 0; i < np; i++ {
		if i < len(args) {
			t.stack[base+i] = args[i]
		} else {
			t.stack[base+i] = value.Nil
		}
	}
	for i := 0; i < varargCount; i++ {
		t.stack[varargBase+i] = args[np+i]
	}
	return varargBase, varargCount, nil
}

// reuseFrameForTailCall implements TAILCALL's frame-reuse rule (spec §4.2,
// §8 scenario 7): rather than recursing through call (which would push a new
// CallInfo and charge the callee against Config.MaxCallDepth), it adopts cl's
// proto into the current, already-open-scope-closed CallInfo in place, so a
// self-recursive tail-call loop runs in O(1) Go call-stack depth no matter
// how many Lua-level iterations it performs.
func (t *Thread) reuseFrameForTailCall(ci *CallInfo, cl *Closure, args []value.Value) error {
	varargBase, varargCount, err := t.bindArgs(ci.base, cl.Proto, args)
	if err != nil {
		return err
	}
	ci.proto = cl.Proto
	ci.closure = cl
	ci.pc = 0
	ci.varargBase = varargBase
	ci.varargCount = varargCount
	t.top = varargBase + varargCount
	return nil
}

func (t *Thread) callNative(cl *Closure, args []value.Value) ([]value.Value, error) {
	return cl.Native(t, args)
}

// callValue calls an arbitrary callable Value: a closure directly, or
// anything else via its __call metamethod (spec §4.5's call-event fallback).
func (t *Thread) callValue(fn value.Value, args []value.Value, nresults int) ([]value.Value, error) {
	if fn.Kind() == value.KindClosure {
		return t.call(fn.AsObj().(*Closure), args, nresults, false)
	}
	if h := t.rt.metamethod(fn, tagCall); !h.IsNil() {
		return t.callValue(h, append([]value.Value{fn}, args...), nresults)
	}
	return nil, newError(ErrNotAFunction, "attempt to call a %s value", fn.Kind())
}

// errorValue unwraps the Go error returned by a protected call into the Lua
// value a PCALL/pcall-style caller should see: the original error object for
// a LuaException, or the formatted message as a string for everything else.
func (t *Thread) errorValue(err error) value.Value {
	if e, ok := err.(*Error); ok && e.Kind == ErrLuaException {
		return e.Value
	}
	return value.Str(t.rt.strings.Intern(err.Error()))
}

// closeScope runs __close on every to-be-closed register at or above
// threshold (relative to base), LIFO, then closes upvalues over the same
// range (spec §4.2 TBC, §4.4 close_above, §4.6 "closing on the way out").
// A __close error replaces rather than chains with whatever error was
// already in flight — see DESIGN.md's Open Question decision on this.
func (t *Thread) closeScope(ci *CallInfo, threshold uint8) error {
	var errp error
	for _, reg := range ci.tbcAboveLIFO(threshold) {
		v := t.stack[ci.base+int(reg)]
		if !v.Truthy() {
			continue
		}
		h := t.rt.metamethod(v, tagClose)
		if h.IsNil() {
			continue
		}
		errArg := value.Nil
		if errp != nil {
			errArg = t.errorValue(errp)
		}
		if _, cerr := t.callBinaryMM(h, v, errArg); cerr != nil {
			errp = cerr
		}
	}
	ci.clearTBCAbove(threshold)
	t.closeUpvaluesAbove(ci.base + int(threshold))
	return errp
}

// runLoop is the fetch/decode/dispatch core (spec §4.3): it executes ci's
// proto starting at ci.pc until a RETURN variant (or a tail call, which
// returns its callee's results directly) or an error ends the frame.
func (t *Thread) runLoop(ci *CallInfo) (results []value.Value, rerr error) {
	for {
		// Re-read each iteration: a TAILCALL that reused this frame (below)
		// adopts a new proto in place, so code/consts must track ci.proto
		// rather than being fixed for the frame's whole lifetime.
		code := ci.proto.Code
		consts := ci.proto.Constants

		// Safe point (spec §4.3 step 6): drain whatever __gc finalizers a
		// prior collection queued, and every gcStepInterval instructions
		// trigger a fresh collection so finalizers get queued at all during
		// ordinary execution, not only when a host calls CollectGarbage.
		t.opCount++
		if t.opCount%gcStepInterval == 0 {
			t.heap.Collect(rootsOf(t))
		}
		t.heap.DrainFinalizers(func(any) {})

		if t.hook != nil && t.hookEvery > 0 {
			t.instrCount++
			if t.instrCount%t.hookEvery == 0 {
				if err := t.hook(t); err != nil {
					return nil, err
				}
			}
		}
		if ci.pc < 0 || ci.pc >= len(code) {
			return nil, newError(ErrPcOutOfRange, "program counter %d out of range for %d instructions", ci.pc, len(code))
		}
		instr := code[ci.pc]
		ci.pc++

		switch instr.OpCode() {
		case bytecode.OpMove:
			t.setReg(int(instr.A()), t.reg(int(instr.B())))

		case bytecode.OpLoadI:
			t.setReg(int(instr.A()), value.Int(int64(instr.SBx())))
		case bytecode.OpLoadF:
			t.setReg(int(instr.A()), value.Float(float64(instr.SBx())))
		case bytecode.OpLoadK:
			t.setReg(int(instr.A()), consts[instr.Bx()])
		case bytecode.OpLoadKX:
			extra := code[ci.pc]
			ci.pc++
			t.setReg(int(instr.A()), consts[extra.AxField()])
		case bytecode.OpLoadFalse:
			t.setReg(int(instr.A()), value.Bool(false))
		case bytecode.OpLFalseSkip:
			t.setReg(int(instr.A()), value.Bool(false))
			ci.pc++
		case bytecode.OpLoadTrue:
			t.setReg(int(instr.A()), value.Bool(true))
		case bytecode.OpLoadNil:
			a, b := int(instr.A()), int(instr.B())
			for i := 0; i <= b; i++ {
				t.setReg(a+i, value.Nil)
			}

		case bytecode.OpGetUpval:
			t.setReg(int(instr.A()), ci.closure.Upvalues[instr.B()].Get())
		case bytecode.OpSetUpval:
			ci.closure.Upvalues[instr.B()].Set(t.reg(int(instr.A())))
		case bytecode.OpGetTabUp:
			uv := ci.closure.Upvalues[instr.B()].Get()
			v, err := t.index(uv, consts[instr.C()])
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpSetTabUp:
			uv := ci.closure.Upvalues[instr.A()].Get()
			val := t.rkC(ci, instr)
			if err := t.newindex(uv, consts[instr.B()], val); err != nil {
				return nil, err
			}

		case bytecode.OpGetTable:
			v, err := t.index(t.reg(int(instr.B())), t.reg(int(instr.C())))
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpGetI:
			v, err := t.index(t.reg(int(instr.B())), value.Int(int64(instr.C())))
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpGetField:
			v, err := t.index(t.reg(int(instr.B())), consts[instr.C()])
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpSetTable:
			val := t.rkC(ci, instr)
			if err := t.newindex(t.reg(int(instr.A())), t.reg(int(instr.B())), val); err != nil {
				return nil, err
			}
		case bytecode.OpSetI:
			val := t.rkC(ci, instr)
			if err := t.newindex(t.reg(int(instr.A())), value.Int(int64(instr.B())), val); err != nil {
				return nil, err
			}
		case bytecode.OpSetField:
			val := t.rkC(ci, instr)
			if err := t.newindex(t.reg(int(instr.A())), consts[instr.B()], val); err != nil {
				return nil, err
			}
		case bytecode.OpNewTable:
			tbl := t.rt.NewTable(int(instr.B()), int(instr.C()))
			t.setReg(int(instr.A()), value.Tbl(tbl))
			if instr.K() {
				ci.pc++ // EXTRAARG carrying a larger hash-size hint; unused here
			}
		case bytecode.OpSelf:
			obj := t.reg(int(instr.B()))
			key := t.rkC(ci, instr)
			v, err := t.index(obj, key)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A())+1, obj)
			t.setReg(int(instr.A()), v)

		case bytecode.OpAdd:
			v, err := t.arithBinary(tagAdd, t.reg(int(instr.B())), t.reg(int(instr.C())), addOp, fadd, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpSub:
			v, err := t.arithBinary(tagSub, t.reg(int(instr.B())), t.reg(int(instr.C())), subOp, fsub, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpMul:
			v, err := t.arithBinary(tagMul, t.reg(int(instr.B())), t.reg(int(instr.C())), mulOp, fmul, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpMod:
			v, err := t.arithBinary(tagMod, t.reg(int(instr.B())), t.reg(int(instr.C())), modIntOp, floorModFloat, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpPow:
			v, err := t.arithBinary(tagPow, t.reg(int(instr.B())), t.reg(int(instr.C())), nil, fpow, true)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpDiv:
			v, err := t.arithBinary(tagDiv, t.reg(int(instr.B())), t.reg(int(instr.C())), nil, fdiv, true)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpIDiv:
			v, err := t.arithBinary(tagIDiv, t.reg(int(instr.B())), t.reg(int(instr.C())), idivIntOp, floorDivFloat, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpBAnd:
			v, err := t.bitwiseBinary(tagBAnd, t.reg(int(instr.B())), t.reg(int(instr.C())), func(x, y int64) int64 { return x & y })
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpBOr:
			v, err := t.bitwiseBinary(tagBOr, t.reg(int(instr.B())), t.reg(int(instr.C())), func(x, y int64) int64 { return x | y })
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpBXor:
			v, err := t.bitwiseBinary(tagBXor, t.reg(int(instr.B())), t.reg(int(instr.C())), func(x, y int64) int64 { return x ^ y })
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpShl:
			v, err := t.bitwiseBinary(tagShl, t.reg(int(instr.B())), t.reg(int(instr.C())), shiftLeft)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpShr:
			v, err := t.bitwiseBinary(tagShr, t.reg(int(instr.B())), t.reg(int(instr.C())), shiftRight)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)

		case bytecode.OpAddK:
			v, err := t.arithBinary(tagAdd, t.reg(int(instr.B())), consts[instr.C()], addOp, fadd, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpSubK:
			v, err := t.arithBinary(tagSub, t.reg(int(instr.B())), consts[instr.C()], subOp, fsub, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpMulK:
			v, err := t.arithBinary(tagMul, t.reg(int(instr.B())), consts[instr.C()], mulOp, fmul, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpModK:
			v, err := t.arithBinary(tagMod, t.reg(int(instr.B())), consts[instr.C()], modIntOp, floorModFloat, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpPowK:
			v, err := t.arithBinary(tagPow, t.reg(int(instr.B())), consts[instr.C()], nil, fpow, true)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpDivK:
			v, err := t.arithBinary(tagDiv, t.reg(int(instr.B())), consts[instr.C()], nil, fdiv, true)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpIDivK:
			v, err := t.arithBinary(tagIDiv, t.reg(int(instr.B())), consts[instr.C()], idivIntOp, floorDivFloat, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpBAndK:
			v, err := t.bitwiseBinary(tagBAnd, t.reg(int(instr.B())), consts[instr.C()], func(x, y int64) int64 { return x & y })
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpBOrK:
			v, err := t.bitwiseBinary(tagBOr, t.reg(int(instr.B())), consts[instr.C()], func(x, y int64) int64 { return x | y })
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpBXorK:
			v, err := t.bitwiseBinary(tagBXor, t.reg(int(instr.B())), consts[instr.C()], func(x, y int64) int64 { return x ^ y })
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)

		case bytecode.OpAddI:
			v, err := t.arithBinary(tagAdd, t.reg(int(instr.B())), value.Int(int64(bytecode.SignedC(instr.C()))), addOp, fadd, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpShlI:
			v, err := t.bitwiseBinary(tagShl, t.reg(int(instr.B())), value.Int(int64(bytecode.SignedC(instr.C()))), shiftLeft)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpShrI:
			v, err := t.bitwiseBinary(tagShr, t.reg(int(instr.B())), value.Int(int64(bytecode.SignedC(instr.C()))), shiftRight)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)

		case bytecode.OpUnm:
			v, err := t.unaryArith(tagUnm, t.reg(int(instr.B())), negInt, negFloat, false)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpBNot:
			v, err := t.unaryArith(tagBNot, t.reg(int(instr.B())), notInt, nil, true)
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpNot:
			t.setReg(int(instr.A()), value.Bool(!t.reg(int(instr.B())).Truthy()))
		case bytecode.OpLen:
			v, err := t.length(t.reg(int(instr.B())))
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)

		case bytecode.OpConcat:
			a, b := int(instr.A()), int(instr.B())
			acc := t.reg(a + b - 1)
			for i := b - 2; i >= 0; i-- {
				var err error
				acc, err = t.concat(t.reg(a+i), acc)
				if err != nil {
					return nil, err
				}
			}
			t.setReg(a, acc)

		case bytecode.OpMMBin:
			v, err := t.binMetamethod(mmTagFromIndex(instr.C()), t.reg(int(instr.A())), t.reg(int(instr.B())))
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpMMBinK:
			v, err := t.binMetamethod(mmTagFromIndex(instr.C()), t.reg(int(instr.A())), consts[instr.B()])
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)
		case bytecode.OpMMBinI:
			v, err := t.binMetamethod(mmTagFromIndex(instr.C()), t.reg(int(instr.A())), value.Int(int64(bytecode.SignedC(instr.B()))))
			if err != nil {
				return nil, err
			}
			t.setReg(int(instr.A()), v)

		case bytecode.OpJmp:
			ci.pc += int(instr.SJ())
		case bytecode.OpTest:
			if t.reg(int(instr.A())).Truthy() != instr.K() {
				ci.pc++
			}
		case bytecode.OpTestSet:
			v := t.reg(int(instr.B()))
			if v.Truthy() == instr.K() {
				t.setReg(int(instr.A()), v)
			} else {
				ci.pc++
			}

		case bytecode.OpEq:
			eq, err := t.equalValues(t.reg(int(instr.A())), t.reg(int(instr.B())))
			if err != nil {
				return nil, err
			}
			if eq != instr.K() {
				ci.pc++
			}
		case bytecode.OpLT:
			lt, err := t.compareLess(t.reg(int(instr.A())), t.reg(int(instr.B())))
			if err != nil {
				return nil, err
			}
			if lt != instr.K() {
				ci.pc++
			}
		case bytecode.OpLE:
			le, err := t.compareLessEqual(t.reg(int(instr.A())), t.reg(int(instr.B())))
			if err != nil {
				return nil, err
			}
			if le != instr.K() {
				ci.pc++
			}
		case bytecode.OpEqK:
			if value.RawEqual(t.reg(int(instr.A())), consts[instr.B()]) != instr.K() {
				ci.pc++
			}
		case bytecode.OpEqI:
			if value.RawEqual(t.reg(int(instr.A())), value.Int(int64(bytecode.SignedC(instr.B())))) != instr.K() {
				ci.pc++
			}
		case bytecode.OpLTI:
			lt, err := t.compareLess(t.reg(int(instr.A())), value.Int(int64(bytecode.SignedC(instr.B()))))
			if err != nil {
				return nil, err
			}
			if lt != instr.K() {
				ci.pc++
			}
		case bytecode.OpLEI:
			le, err := t.compareLessEqual(t.reg(int(instr.A())), value.Int(int64(bytecode.SignedC(instr.B()))))
			if err != nil {
				return nil, err
			}
			if le != instr.K() {
				ci.pc++
			}
		case bytecode.OpGTI:
			gt, err := t.compareLess(value.Int(int64(bytecode.SignedC(instr.B()))), t.reg(int(instr.A())))
			if err != nil {
				return nil, err
			}
			if gt != instr.K() {
				ci.pc++
			}
		case bytecode.OpGEI:
			ge, err := t.compareLessEqual(value.Int(int64(bytecode.SignedC(instr.B()))), t.reg(int(instr.A())))
			if err != nil {
				return nil, err
			}
			if ge != instr.K() {
				ci.pc++
			}

		case bytecode.OpCall:
			a, b, c := int(instr.A()), int(instr.B()), int(instr.C())
			callArgs := t.gatherArgs(ci, a, b)
			res, err := t.callValue(t.reg(a), callArgs, c-1)
			if err != nil {
				return nil, err
			}
			t.placeResults(ci, a, c, res)
		case bytecode.OpTailCall:
			a, b := int(instr.A()), int(instr.B())
			callArgs := t.gatherArgs(ci, a, b)
			fn := t.reg(a)
			if fn.Kind() == value.KindClosure {
				if cl := fn.AsObj().(*Closure); !cl.IsNative() {
					if err := t.closeScope(ci, 0); err != nil {
						return nil, err
					}
					if err := t.reuseFrameForTailCall(ci, cl, callArgs); err != nil {
						return nil, err
					}
					continue
				}
			}
			// Native closures and __call-metamethod targets have no Proto to
			// reuse this frame for; fall back to an ordinary nested call.
			return t.callValue(fn, callArgs, -1)
		case bytecode.OpPCall:
			a, b, c := int(instr.A()), int(instr.B()), int(instr.C())
			callArgs := t.gatherArgs(ci, a, b)
			res, err := t.callValue(t.reg(a), callArgs, c-1)
			if err != nil {
				t.setReg(a, value.Bool(false))
				t.setReg(a+1, t.errorValue(err))
			} else {
				t.setReg(a, value.Bool(true))
				for i, r := range res {
					t.setReg(a+1+i, r)
				}
			}

		case bytecode.OpReturn:
			a, b := int(instr.A()), int(instr.B())
			if b == 0 {
				return append([]value.Value(nil), t.stack[ci.base+a:t.top]...), nil
			}
			out := make([]value.Value, b-1)
			for i := 0; i < b-1; i++ {
				out[i] = t.reg(a + i)
			}
			return out, nil
		case bytecode.OpReturn0:
			return nil, nil
		case bytecode.OpReturn1:
			return []value.Value{t.reg(int(instr.A()))}, nil

		case bytecode.OpForPrep:
			a := int(instr.A())
			skip, err := t.forPrep(a, t.reg(a), t.reg(a+1), t.reg(a+2))
			if err != nil {
				return nil, err
			}
			if skip {
				ci.pc += int(instr.SBx()) + 1
			}
		case bytecode.OpForLoop:
			a := int(instr.A())
			if t.forLoop(a) {
				ci.pc -= int(instr.SBx())
			}

		case bytecode.OpTForPrep:
			ci.pc += int(instr.SBx())
		case bytecode.OpTForCall:
			a, c := int(instr.A()), int(instr.C())
			res, err := t.callValue(t.reg(a), []value.Value{t.reg(a + 1), t.reg(a + 2)}, c)
			if err != nil {
				return nil, err
			}
			for i := 0; i < c; i++ {
				if i < len(res) {
					t.setReg(a+4+i, res[i])
				} else {
					t.setReg(a+4+i, value.Nil)
				}
			}
		case bytecode.OpTForLoop:
			a := int(instr.A())
			if !t.reg(a + 4).IsNil() {
				t.setReg(a+2, t.reg(a+4))
				ci.pc -= int(instr.SBx())
			}

		case bytecode.OpClosure:
			proto := ci.proto.Protos[instr.Bx()]
			cl := t.newBytecodeClosure(proto, ci)
			t.setReg(int(instr.A()), cl.Value())

		case bytecode.OpClose:
			if err := t.closeScope(ci, instr.A()); err != nil {
				return nil, err
			}
		case bytecode.OpTBC:
			a := instr.A()
			v := t.reg(int(a))
			if v.Truthy() && t.rt.metamethod(v, tagClose).IsNil() {
				return nil, newError(ErrNoCloseMetamethod, "variable has a non-closable value")
			}
			ci.markTBC(a)

		case bytecode.OpVarargPrep:
			// varargs are already staged at varargBase by call's setup.
		case bytecode.OpVararg:
			a, b := int(instr.A()), int(instr.B())
			avail := t.stack[ci.varargBase : ci.varargBase+ci.varargCount]
			if b == 0 {
				for i, v := range avail {
					t.setReg(a+i, v)
				}
				t.top = ci.base + a + len(avail)
			} else {
				want := b - 1
				for i := 0; i < want; i++ {
					if i < len(avail) {
						t.setReg(a+i, avail[i])
					} else {
						t.setReg(a+i, value.Nil)
					}
				}
			}

		case bytecode.OpSetList:
			a, b, c := int(instr.A()), int(instr.B()), int64(instr.C())
			if instr.K() {
				extra := code[ci.pc]
				ci.pc++
				c = int64(extra.AxField())
			}
			tbl := t.reg(a).AsTable()
			count := b
			if count == 0 {
				count = t.top - (ci.base + a + 1)
			}
			for i := 0; i < count; i++ {
				tbl.RawSet(value.Int(c+int64(i)+1), t.reg(a+1+i))
			}

		case bytecode.OpExtraArg:
			return nil, newError(ErrPcOutOfRange, "stray EXTRAARG at pc %d", ci.pc-1)

		default:
			return nil, newError(ErrPcOutOfRange, "unimplemented opcode %s", instr.OpCode())
		}
	}
}

// rkC reads operand C as a constant (if the k flag is set) or a register
// (spec §4.1's k-flag-selects-constant convention, used by the SET* family).
func (t *Thread) rkC(ci *CallInfo, instr bytecode.Instruction) value.Value {
	if instr.K() {
		return ci.proto.Constants[instr.C()]
	}
	return t.reg(int(instr.C()))
}

// gatherArgs collects CALL/TAILCALL/PCALL's argument window: B-1 fixed
// registers starting at A+1, or everything up to the current open top when
// B==0 (spec §4.2 "up to top" convention for multret call results/varargs).
func (t *Thread) gatherArgs(ci *CallInfo, a, b int) []value.Value {
	if b == 0 {
		return append([]value.Value(nil), t.stack[ci.base+a+1:t.top]...)
	}
	args := make([]value.Value, b-1)
	for i := 0; i < b-1; i++ {
		args[i] = t.reg(a + 1 + i)
	}
	return args
}

// placeResults writes a CALL's results starting at register a, padding with
// nil or reopening the frame's top for a C==0 "give me everything" request.
func (t *Thread) placeResults(ci *CallInfo, a, c int, res []value.Value) {
	for i, r := range res {
		t.setReg(a+i, r)
	}
	if c == 0 {
		t.top = ci.base + a + len(res)
		return
	}
	for i := len(res); i < c-1; i++ {
		t.setReg(a+i, value.Nil)
	}
}

func fadd(x, y float64) float64  { return x + y }
func fsub(x, y float64) float64  { return x - y }
func fmul(x, y float64) float64  { return x * y }
func fdiv(x, y float64) float64  { return x / y }
func fpow(x, y float64) float64  { return math.Pow(x, y) }
func negInt(x int64) int64       { return -x }
func negFloat(x float64) float64 { return -x }
func notInt(x int64) int64       { return ^x }
