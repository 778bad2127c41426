// Package value implements the tagged value union shared by every component
// of the runtime: the dispatch loop, the table engine and the host API all
// exchange values through the Value type defined here.
package value

import (
	"fmt"
	"math"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTable
	KindClosure
	KindThread
)

// String implements Stringer for Kind so error messages and the disassembler
// can print a type name without a lookup table at every call site.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindClosure:
		return "function"
	case KindThread:
		return "thread"
	default:
		return "unknown"
	}
}

// Value is a tagged union over nil, booleans, the two numeric subtypes,
// interned strings and three heap-object kinds (tables, closures, threads).
// Heap objects are stored behind `obj` as `any`; this package never looks
// inside a *Closure or *Thread, which keeps it free of an import cycle with
// package vm. Numeric and boolean payloads live in `n` to avoid boxing them
// on every arithmetic op.
type Value struct {
	kind Kind
	n    uint64
	obj  any
}

// Nil is the canonical nil value.
var Nil = Value{kind: KindNil}

// Bool wraps a boolean as a Value.
func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: KindBool, n: n}
}

// Int wraps a 64-bit integer as a Value.
func Int(i int64) Value {
	return Value{kind: KindInt, n: uint64(i)}
}

// Float wraps a float64 as a Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, n: math.Float64bits(f)}
}

// Str wraps an interned *String as a Value.
func Str(s *String) Value {
	return Value{kind: KindString, obj: s}
}

// Tbl wraps a *Table as a Value.
func Tbl(t *Table) Value {
	return Value{kind: KindTable, obj: t}
}

// Obj wraps an arbitrary heap object (a *vm.Closure or *vm.Thread) under the
// given Kind. Callers outside package vm should not call this directly.
func Obj(kind Kind, o any) Value {
	return Value{kind: kind, obj: o}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) AsBool() bool { return v.n != 0 }

func (v Value) AsInt() int64 { return int64(v.n) }

func (v Value) AsFloat() float64 { return math.Float64frombits(v.n) }

func (v Value) AsString() *String { return v.obj.(*String) }

func (v Value) AsTable() *Table { return v.obj.(*Table) }

// AsObj returns the heap object behind a KindClosure/KindThread value. The
// caller (package vm) is responsible for the type assertion.
func (v Value) AsObj() any { return v.obj }

// Truthy implements the spec's falsiness rule: everything is truthy except
// nil and boolean false. Zero and the empty string are truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.n != 0
	default:
		return true
	}
}

// RawEqual implements primitive equality (no __eq metamethod consulted):
// identical kind-and-payload, plus the integer/float numeric bridge from
// spec §3.1. NaN is never equal to itself.
func RawEqual(a, b Value) bool {
	if a.kind == KindInt && b.kind == KindFloat {
		return floatEqualsInt(b.AsFloat(), a.AsInt())
	}
	if a.kind == KindFloat && b.kind == KindInt {
		return floatEqualsInt(a.AsFloat(), b.AsInt())
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.n == b.n
	case KindInt:
		return a.n == b.n
	case KindFloat:
		af, bf := a.AsFloat(), b.AsFloat()
		if math.IsNaN(af) || math.IsNaN(bf) {
			return false
		}
		return af == bf
	case KindString:
		return a.AsString().Equal(b.AsString())
	default:
		return a.obj == b.obj
	}
}

// floatEqualsInt reports whether f is finite, exactly representable as an
// int64, and equals i — the bridge rule from spec §3.1.
func floatEqualsInt(f float64, i int64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if f != math.Trunc(f) {
		return false
	}
	if f < -9223372036854775808.0 || f >= 9223372036854775808.0 {
		return false
	}
	return int64(f) == i
}

// ToString renders a Value the way a native `tostring` host function would;
// it never consults a __tostring metamethod (that is a vm-level concern
// layered on top, since metamethod dispatch needs a running Thread).
func ToString(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KindInt:
		return fmt.Sprintf("%d", v.AsInt())
	case KindFloat:
		f := v.AsFloat()
		if math.IsInf(f, 1) {
			return "inf"
		}
		if math.IsInf(f, -1) {
			return "-inf"
		}
		if math.IsNaN(f) {
			return "nan"
		}
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return fmt.Sprintf("%.1f", f)
		}
		return fmt.Sprintf("%g", f)
	case KindString:
		return v.AsString().Value()
	case KindTable:
		return fmt.Sprintf("table: %p", v.AsTable())
	default:
		return fmt.Sprintf("%s: %p", v.kind, v.obj)
	}
}
