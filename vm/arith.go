package vm

import (
	"math"

	"github.com/keix/lunacore/value"
)

// toNumber attempts to view v as a number without coercing strings (string
// coercion is a stdlib (`tonumber`) concern, out of scope per spec §1).
func toNumber(v value.Value) (value.Value, bool) {
	switch v.Kind() {
	case value.KindInt, value.KindFloat:
		return v, true
	default:
		return value.Nil, false
	}
}

// toFloat widens an Int-or-Float value to a float64.
func toFloat(v value.Value) float64 {
	if v.Kind() == value.KindInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// toInteger narrows a value to an exact int64: an Int as-is, or a Float with
// a zero fractional part in i64 range (spec §4.2's bitwise-operand rule).
func toInteger(v value.Value) (int64, bool) {
	switch v.Kind() {
	case value.KindInt:
		return v.AsInt(), true
	case value.KindFloat:
		f := v.AsFloat()
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		if f < -9223372036854775808.0 || f >= 9223372036854775808.0 {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// binMetamethod implements spec §4.5's "try left operand's metamethod
// first, then right's" rule for binary arithmetic/bitwise ops.
func (t *Thread) binMetamethod(tag string, a, b value.Value) (value.Value, error) {
	if h := t.rt.metamethod(a, tag); !h.IsNil() {
		return t.callBinaryMM(h, a, b)
	}
	if h := t.rt.metamethod(b, tag); !h.IsNil() {
		return t.callBinaryMM(h, a, b)
	}
	return value.Nil, newError(ErrArithmetic, "attempt to perform arithmetic on a %s value", badOperandKind(a, b))
}

func (t *Thread) callBinaryMM(h value.Value, a, b value.Value) (value.Value, error) {
	if h.Kind() != value.KindClosure {
		return value.Nil, newError(ErrArithmetic, "metamethod is not callable")
	}
	res, err := t.call(h.AsObj().(*Closure), []value.Value{a, b}, 1, true)
	if err != nil {
		return value.Nil, err
	}
	if len(res) == 0 {
		return value.Nil, nil
	}
	return res[0], nil
}

func badOperandKind(a, b value.Value) value.Kind {
	if _, ok := toNumber(a); !ok {
		return a.Kind()
	}
	return b.Kind()
}

// arithBinary implements ADD/SUB/MUL/MOD/POW/DIV/IDIV's promotion rules
// (spec §4.2): integer-integer stays integer for ADD/SUB/MUL with wraparound,
// DIV/POW always float, IDIV/MOD floor-divide with ArithmeticError on an
// integer zero divisor, any float operand promotes the rest to float.
func (t *Thread) arithBinary(tag string, a, b value.Value, intOp func(x, y int64) (int64, error), floatOp func(x, y float64) float64, alwaysFloat bool) (value.Value, error) {
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if !aok || !bok {
		return t.binMetamethod(tag, a, b)
	}
	if !alwaysFloat && an.Kind() == value.KindInt && bn.Kind() == value.KindInt {
		r, err := intOp(an.AsInt(), bn.AsInt())
		if err != nil {
			return value.Nil, err
		}
		return value.Int(r), nil
	}
	return value.Float(floatOp(toFloat(an), toFloat(bn))), nil
}

func addOp(x, y int64) (int64, error) { return x + y, nil }
func subOp(x, y int64) (int64, error) { return x - y, nil }
func mulOp(x, y int64) (int64, error) { return x * y, nil }

func idivIntOp(x, y int64) (int64, error) {
	if y == 0 {
		return 0, newError(ErrArithmetic, "attempt to perform 'n//0'")
	}
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q, nil
}

func modIntOp(x, y int64) (int64, error) {
	if y == 0 {
		return 0, newError(ErrArithmetic, "attempt to perform 'n%%0'")
	}
	r := x % y
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r, nil
}

func floorModFloat(x, y float64) float64 {
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r
}

func floorDivFloat(x, y float64) float64 { return math.Floor(x / y) }

// bitwiseBinary implements BAND/BOR/BXOR/SHL/SHR's operand rule (spec
// §4.2): both operands must be exact integers, else ArithmeticError (after
// the metamethod fallback misses).
func (t *Thread) bitwiseBinary(tag string, a, b value.Value, op func(x, y int64) int64) (value.Value, error) {
	ai, aok := toInteger(a)
	bi, bok := toInteger(b)
	if !aok || !bok {
		if _, isNum := toNumber(a); !isNum {
			return t.binMetamethod(tag, a, b)
		}
		if _, isNum := toNumber(b); !isNum {
			return t.binMetamethod(tag, a, b)
		}
		return value.Nil, newError(ErrArithmetic, "number has no integer representation")
	}
	return value.Int(op(ai, bi)), nil
}

func shiftLeft(x, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(x) << uint(n))
	}
	return int64(uint64(x) >> uint(-n))
}

func shiftRight(x, n int64) int64 { return shiftLeft(x, -n) }

// unaryArith implements UNM/BNOT (spec §4.2), falling back to __unm/__bnot.
func (t *Thread) unaryArith(tag string, a value.Value, intOp func(int64) int64, floatOp func(float64) float64, integerOnly bool) (value.Value, error) {
	if integerOnly {
		ai, ok := toInteger(a)
		if !ok {
			if h := t.rt.metamethod(a, tag); !h.IsNil() {
				return t.callBinaryMM(h, a, a)
			}
			return value.Nil, newError(ErrArithmetic, "attempt to perform bitwise operation on a %s value", a.Kind())
		}
		return value.Int(intOp(ai)), nil
	}
	an, ok := toNumber(a)
	if !ok {
		if h := t.rt.metamethod(a, tag); !h.IsNil() {
			return t.callBinaryMM(h, a, a)
		}
		return value.Nil, newError(ErrArithmetic, "attempt to perform arithmetic on a %s value", a.Kind())
	}
	if an.Kind() == value.KindInt {
		return value.Int(intOp(an.AsInt())), nil
	}
	return value.Float(floatOp(an.AsFloat())), nil
}

// compareLess implements LT's `<` semantics including the NaN-always-false
// rule and the __lt fallback (spec §4.2, §4.5).
func (t *Thread) compareLess(a, b value.Value) (bool, error) {
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			return numericLess(an, bn), nil
		}
	}
	if a.Kind() == value.KindString && b.Kind() == value.KindString {
		return a.AsString().Value() < b.AsString().Value(), nil
	}
	if h := t.rt.metamethod(a, tagLt); !h.IsNil() {
		return t.mmBool(h, a, b)
	}
	if h := t.rt.metamethod(b, tagLt); !h.IsNil() {
		return t.mmBool(h, a, b)
	}
	return false, newError(ErrArithmetic, "attempt to compare %s with %s", a.Kind(), b.Kind())
}

// compareLessEqual implements LE: tries __le first, falling back to
// `not (b < a)` via __lt per spec §4.5.
func (t *Thread) compareLessEqual(a, b value.Value) (bool, error) {
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			return !numericLess(bn, an), nil
		}
	}
	if a.Kind() == value.KindString && b.Kind() == value.KindString {
		return a.AsString().Value() <= b.AsString().Value(), nil
	}
	if h := t.rt.metamethod(a, tagLe); !h.IsNil() {
		return t.mmBool(h, a, b)
	}
	if h := t.rt.metamethod(b, tagLe); !h.IsNil() {
		return t.mmBool(h, a, b)
	}
	less, err := t.compareLess(b, a)
	if err != nil {
		return false, err
	}
	return !less, nil
}

func (t *Thread) mmBool(h value.Value, a, b value.Value) (bool, error) {
	v, err := t.callBinaryMM(h, a, b)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// numericLess compares two numeric Values, handling the int/float bridge
// and the NaN-always-false rule (spec §4.2 "NaN semantics").
func numericLess(a, b value.Value) bool {
	if a.Kind() == value.KindInt && b.Kind() == value.KindInt {
		return a.AsInt() < b.AsInt()
	}
	af, bf := toFloat(a), toFloat(b)
	if math.IsNaN(af) || math.IsNaN(bf) {
		return false
	}
	return af < bf
}

// length implements the `#` operator (spec §4.2/§4.5): strings report their
// byte length directly; tables consult __len first, falling back to
// Table.Len(); anything else needs a __len metamethod or is an error.
func (t *Thread) length(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindString:
		return value.Int(int64(v.AsString().Len())), nil
	case value.KindTable:
		tbl := v.AsTable()
		if mt := tbl.Metatable(); mt != nil {
			if h := mt.RawGet(value.Str(t.rt.strings.Intern(tagLen))); !h.IsNil() {
				return t.callBinaryMM(h, v, v)
			}
		}
		return value.Int(tbl.Len()), nil
	default:
		if h := t.rt.metamethod(v, tagLen); !h.IsNil() {
			return t.callBinaryMM(h, v, v)
		}
		return value.Nil, newError(ErrInvalidTableOperation, "attempt to get length of a %s value", v.Kind())
	}
}

// concat implements one step of `..` (spec §4.2/§4.5): numbers and strings
// coerce to string and concatenate directly; otherwise __concat is tried on
// either operand.
func (t *Thread) concat(a, b value.Value) (value.Value, error) {
	as, aok := concatOperand(a)
	bs, bok := concatOperand(b)
	if aok && bok {
		return value.Str(t.rt.strings.Intern(as + bs)), nil
	}
	if h := t.rt.metamethod(a, tagConcat); !h.IsNil() {
		return t.callBinaryMM(h, a, b)
	}
	if h := t.rt.metamethod(b, tagConcat); !h.IsNil() {
		return t.callBinaryMM(h, a, b)
	}
	bad := a
	if aok {
		bad = b
	}
	return value.Nil, newError(ErrInvalidTableOperation, "attempt to concatenate a %s value", bad.Kind())
}

func concatOperand(v value.Value) (string, bool) {
	switch v.Kind() {
	case value.KindString:
		return v.AsString().Value(), true
	case value.KindInt, value.KindFloat:
		return value.ToString(v), true
	default:
		return "", false
	}
}

// equalValues implements EQ's full equality, including __eq for two tables
// whose raw equality test fails (spec §4.5 "__eq: consulted only if both
// operands are the same primitive type (table) and direct equality failed").
func (t *Thread) equalValues(a, b value.Value) (bool, error) {
	if value.RawEqual(a, b) {
		return true, nil
	}
	if a.Kind() == value.KindTable && b.Kind() == value.KindTable {
		h := t.rt.metamethod(a, tagEq)
		if h.IsNil() {
			h = t.rt.metamethod(b, tagEq)
		}
		if !h.IsNil() {
			return t.mmBool(h, a, b)
		}
	}
	return false, nil
}
