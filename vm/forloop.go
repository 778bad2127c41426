package vm

import "github.com/keix/lunacore/value"

// forPrep implements FORPREP's setup (spec §4.2): validates that init/limit/
// step are numeric and step is non-zero, normalizes all three to a common
// numeric subtype (integer loop if all three are integers, float loop
// otherwise), and reports whether the loop body should be skipped entirely
// because the first iteration would already be out of range.
func (t *Thread) forPrep(a int, init, limit, step value.Value) (skip bool, err error) {
	in, iok := toNumber(init)
	lm, lok := toNumber(limit)
	sp, sok := toNumber(step)
	if !iok || !lok || !sok {
		return false, newError(ErrInvalidForLoopStep, "'for' initial value, limit and step must be numbers")
	}

	if in.Kind() == value.KindInt && lm.Kind() == value.KindInt && sp.Kind() == value.KindInt {
		s := sp.AsInt()
		if s == 0 {
			return false, newError(ErrInvalidForLoopStep, "'for' step is zero")
		}
		i, l := in.AsInt(), lm.AsInt()
		if s > 0 {
			skip = i > l
		} else {
			skip = i < l
		}
		t.setReg(a, in)
		t.setReg(a+1, lm)
		t.setReg(a+2, sp)
		if !skip {
			t.setReg(a+3, in)
		}
		return skip, nil
	}

	fi, fl, fs := toFloat(in), toFloat(lm), toFloat(sp)
	if fs == 0 {
		return false, newError(ErrInvalidForLoopStep, "'for' step is zero")
	}
	if fs > 0 {
		skip = fi > fl
	} else {
		skip = fi < fl
	}
	t.setReg(a, value.Float(fi))
	t.setReg(a+1, value.Float(fl))
	t.setReg(a+2, value.Float(fs))
	if !skip {
		t.setReg(a+3, value.Float(fi))
	}
	return skip, nil
}

// forLoop implements FORLOOP's per-iteration test (spec §4.2): advances the
// control variable by step and reports whether it is still within [init,
// limit] (direction-aware), updating both the internal counter (A) and the
// visible loop variable (A+3) when it is.
func (t *Thread) forLoop(a int) bool {
	cur := t.reg(a)
	limit := t.reg(a + 1)
	step := t.reg(a + 2)

	if cur.Kind() == value.KindInt {
		s := step.AsInt()
		c := cur.AsInt()
		next := c + s
		// Integer-path arithmetic must not alias on overflow (spec §4.2): a
		// counter that wraps past math.MaxInt64/math.MinInt64 terminates the
		// loop instead of continuing from the wrapped value.
		overflow := (s > 0 && next < c) || (s < 0 && next > c)
		var cont bool
		if overflow {
			cont = false
		} else if s > 0 {
			cont = next <= limit.AsInt()
		} else {
			cont = next >= limit.AsInt()
		}
		if cont {
			t.setReg(a, value.Int(next))
			t.setReg(a+3, value.Int(next))
		}
		return cont
	}

	s := step.AsFloat()
	next := cur.AsFloat() + s
	var cont bool
	if s > 0 {
		cont = next <= limit.AsFloat()
	} else {
		cont = next >= limit.AsFloat()
	}
	if cont {
		t.setReg(a, value.Float(next))
		t.setReg(a+3, value.Float(next))
	}
	return cont
}
