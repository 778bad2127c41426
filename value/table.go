package value

import "math"

// Table implements the mapping described in spec §3.5: a dense array part
// for small positive integer keys plus an open-addressed-by-Go-map hash part
// for everything else. The split is purely an optimization — RawGet/RawSet
// honor the length contract regardless of which part a key lands in.
type Table struct {
	array     []Value // array[i] holds key i+1
	hash      map[tkey]Value
	metatable *Table
}

// tkey is the normalized, comparable form of a table key: strings are keyed
// by their byte content (interned or not),
// integers and integer-valued floats collapse to one key per §3.5's "same
// key" rule, everything else keys by Kind+payload/pointer.
type tkey struct {
	kind Kind
	n    uint64
	obj  any
	str  string
}

// NewTable allocates an empty table, optionally presized per the hints a
// NEWTABLE instruction carries (spec §4.2).
func NewTable(arrayHint, hashHint int) *Table {
	t := &Table{}
	if arrayHint > 0 {
		t.array = make([]Value, 0, arrayHint)
	}
	if hashHint > 0 {
		t.hash = make(map[tkey]Value, hashHint)
	}
	return t
}

// Metatable returns the table's metatable, or nil if it has none.
func (t *Table) Metatable() *Table { return t.metatable }

// SetMetatable installs (or clears, with nil) the table's metatable.
func (t *Table) SetMetatable(mt *Table) { t.metatable = mt }

// normalizeKey converts a numeric float key with an exact integer value into
// the integer key, per spec §3.5 ("integer(i) and number(f) that equals i
// exactly are the same key").
func normalizeKey(k Value) (Value, bool) {
	switch k.Kind() {
	case KindNil:
		return k, false
	case KindFloat:
		f := k.AsFloat()
		if math.IsNaN(f) {
			return k, false
		}
		if f == math.Trunc(f) && f >= -9223372036854775808.0 && f < 9223372036854775808.0 {
			return Int(int64(f)), true
		}
		return k, true
	default:
		return k, true
	}
}

func toTkey(k Value) tkey {
	switch k.Kind() {
	case KindString:
		s := k.AsString()
		return tkey{kind: KindString, str: s.Value()}
	case KindBool, KindInt:
		return tkey{kind: k.Kind(), n: uint64From(k)}
	default:
		return tkey{kind: k.Kind(), obj: k.AsObj()}
	}
}

func uint64From(v Value) uint64 {
	switch v.Kind() {
	case KindBool:
		if v.AsBool() {
			return 1
		}
		return 0
	case KindInt:
		return uint64(v.AsInt())
	default:
		return 0
	}
}

// RawGet reads a key without consulting any metamethod. Missing keys read as
// nil. Never allocates (spec §4.7).
func (t *Table) RawGet(k Value) Value {
	nk, ok := normalizeKey(k)
	if !ok {
		return Nil
	}
	if nk.Kind() == KindInt {
		i := nk.AsInt()
		if i >= 1 && int(i) <= len(t.array) {
			return t.array[i-1]
		}
	}
	if t.hash == nil {
		return Nil
	}
	v, ok := t.hash[toTkey(nk)]
	if !ok {
		return Nil
	}
	return v
}

// RawSet assigns a key without consulting any metamethod. Per spec §3.5/§4.7,
// nil or NaN keys are rejected by the caller (the vm package raises
// InvalidTableKey before calling this); RawSet itself only enforces the
// nil-removes-the-key rule and the array/hash placement.
func (t *Table) RawSet(k, v Value) {
	nk, ok := normalizeKey(k)
	if !ok {
		return
	}
	if nk.Kind() == KindInt {
		i := nk.AsInt()
		if i >= 1 && int(i) <= len(t.array) {
			t.array[i-1] = v
			if v.IsNil() && int(i) == len(t.array) {
				t.shrinkArray()
			}
			return
		}
		if i == int64(len(t.array))+1 && !v.IsNil() {
			t.array = append(t.array, v)
			t.migrateFromHash()
			return
		}
	}
	if v.IsNil() {
		if t.hash != nil {
			delete(t.hash, toTkey(nk))
		}
		return
	}
	if t.hash == nil {
		t.hash = make(map[tkey]Value)
	}
	t.hash[toTkey(nk)] = v
}

// shrinkArray trims trailing nils off the array part so the length contract
// (§3.5) stays cheap to evaluate; it is not required for correctness (a
// trailing nil is a valid array slot) but keeps Border() from degenerating.
func (t *Table) shrinkArray() {
	n := len(t.array)
	for n > 0 && t.array[n-1].IsNil() {
		n--
	}
	t.array = t.array[:n]
}

// migrateFromHash pulls any hash-part entries that have become contiguous
// with the array part (e.g. array grew to length 4, key 5 was already in the
// hash part) into the array, matching the array-part growth behavior real
// Lua implementations perform.
func (t *Table) migrateFromHash() {
	if t.hash == nil {
		return
	}
	for {
		next := Int(int64(len(t.array)) + 1)
		key := toTkey(next)
		v, ok := t.hash[key]
		if !ok {
			return
		}
		delete(t.hash, key)
		t.array = append(t.array, v)
	}
}

// Len returns a valid border per spec §3.5: if t[1] is nil, any n>=0 with
// t[n]==nil is valid; else any n>=1 with t[n]!=nil and t[n+1]==nil is valid.
// The array part's length is always such a border when its own tail isn't
// nil-padded (shrinkArray above keeps that true), so Len is O(1) unless the
// border straddles into the hash part, in which case it's found by binary
// search the way real implementations avoid an O(n) scan.
func (t *Table) Len() int64 {
	if len(t.array) > 0 && !t.array[len(t.array)-1].IsNil() {
		if t.hash == nil {
			return int64(len(t.array))
		}
		// Binary search upward into the hash part for a border.
		i := int64(len(t.array))
		j := i + 1
		for !t.RawGet(Int(j)).IsNil() {
			i = j
			j *= 2
			if j > (1 << 30) {
				// Degenerate case: linear scan fallback.
				for !t.RawGet(Int(i + 1)).IsNil() {
					i++
				}
				return i
			}
		}
		for j-i > 1 {
			m := (i + j) / 2
			if t.RawGet(Int(m)).IsNil() {
				j = m
			} else {
				i = m
			}
		}
		return i
	}
	if len(t.array) > 0 {
		// array has a nil hole; binary search within it for a border.
		i, j := int64(0), int64(len(t.array))
		for j-i > 1 {
			m := (i + j) / 2
			if t.array[m-1].IsNil() {
				j = m
			} else {
				i = m
			}
		}
		return i
	}
	if t.RawGet(Int(1)).IsNil() {
		return 0
	}
	i := int64(1)
	for !t.RawGet(Int(i + 1)).IsNil() {
		i++
	}
	return i
}

// Next supports stateless iteration (pairs-style) over both the array and
// hash parts; it returns ok=false once iteration is exhausted. Key Nil starts
// iteration from the beginning.
func (t *Table) Next(k Value) (nk, nv Value, ok bool) {
	startArray := 0
	if !k.IsNil() {
		nk, isNum := normalizeKey(k)
		if isNum && nk.Kind() == KindInt {
			i := nk.AsInt()
			if i >= 1 && int(i) <= len(t.array) {
				startArray = int(i)
			} else {
				return t.nextHash(toTkey(nk), true)
			}
		} else {
			return t.nextHash(toTkey(k), true)
		}
	}
	for idx := startArray; idx < len(t.array); idx++ {
		if !t.array[idx].IsNil() {
			return Int(int64(idx + 1)), t.array[idx], true
		}
	}
	return t.nextHash(tkey{}, false)
}

// nextHash walks the (unordered) hash map starting after `after` if `skip`
// is true, else from the beginning. Go map iteration order is randomized per
// run but stable within a single run, which is sufficient for a stateless
// iterator protocol as long as the table isn't mutated mid-traversal.
func (t *Table) nextHash(after tkey, skip bool) (nk, nv Value, ok bool) {
	if t.hash == nil {
		return Nil, Nil, false
	}
	found := !skip
	for k, v := range t.hash {
		if !found {
			if k == after {
				found = true
			}
			continue
		}
		return keyToValue(k), v, true
	}
	return Nil, Nil, false
}

func keyToValue(k tkey) Value {
	switch k.kind {
	case KindString:
		return Str(NewString(k.str))
	case KindBool:
		return Bool(k.n != 0)
	case KindInt:
		return Int(int64(k.n))
	default:
		return Obj(k.kind, k.obj)
	}
}
