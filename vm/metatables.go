package vm

import "github.com/keix/lunacore/value"

// Event tag names consulted on a metatable (spec §4.5).
const (
	tagAdd      = "__add"
	tagSub      = "__sub"
	tagMul      = "__mul"
	tagDiv      = "__div"
	tagMod      = "__mod"
	tagPow      = "__pow"
	tagUnm      = "__unm"
	tagIDiv     = "__idiv"
	tagBAnd     = "__band"
	tagBOr      = "__bor"
	tagBXor     = "__bxor"
	tagBNot     = "__bnot"
	tagShl      = "__shl"
	tagShr      = "__shr"
	tagLen      = "__len"
	tagConcat   = "__concat"
	tagEq       = "__eq"
	tagLt       = "__lt"
	tagLe       = "__le"
	tagIndex    = "__index"
	tagNewIndex = "__newindex"
	tagCall     = "__call"
	tagToString = "__tostring"
	tagClose    = "__close"
	tagGC       = "__gc"
)

const maxIndexChainDepth = 100

// metatableOf returns v's metatable, if it has one. Only tables carry a
// metatable directly in this spec (string/number metatables are a stdlib
// concern, out of scope per §1).
func (rt *Runtime) metatableOf(v value.Value) *value.Table {
	if v.Kind() == value.KindTable {
		return v.AsTable().Metatable()
	}
	return nil
}

// metamethod looks up event tag on v's metatable, returning the zero Value
// if v has no metatable or the metatable has no such entry.
func (rt *Runtime) metamethod(v value.Value, tag string) value.Value {
	mt := rt.metatableOf(v)
	if mt == nil {
		return value.Nil
	}
	return mt.RawGet(value.Str(rt.strings.Intern(tag)))
}

// callMetamethodValue invokes a metamethod value (closure or otherwise) with
// args, on the calling thread, discarding any error (used for __gc: an error
// raised by a finalizer is dropped here and never propagates).
func (t *Thread) callMetamethodValue(fn value.Value, args []value.Value) []value.Value {
	if fn.Kind() != value.KindClosure {
		return nil
	}
	cl := fn.AsObj().(*Closure)
	results, err := t.call(cl, args, -1, true)
	if err != nil {
		return nil
	}
	return results
}

// index implements spec §4.5's __index chain: GETTABLE/GETI/GETFIELD fall
// back here when the primary table lookup misses or the operand isn't a
// table at all.
func (t *Thread) index(obj value.Value, key value.Value) (value.Value, error) {
	for depth := 0; depth < maxIndexChainDepth; depth++ {
		if obj.Kind() == value.KindTable {
			tbl := obj.AsTable()
			raw := tbl.RawGet(key)
			if !raw.IsNil() {
				return raw, nil
			}
			mt := tbl.Metatable()
			if mt == nil {
				return value.Nil, nil
			}
			h := mt.RawGet(value.Str(t.rt.strings.Intern(tagIndex)))
			if h.IsNil() {
				return value.Nil, nil
			}
			if h.Kind() == value.KindClosure {
				res, err := t.call(h.AsObj().(*Closure), []value.Value{obj, key}, 1, true)
				if err != nil {
					return value.Nil, err
				}
				if len(res) == 0 {
					return value.Nil, nil
				}
				return res[0], nil
			}
			obj = h
			continue
		}
		h := t.rt.metamethod(obj, tagIndex)
		if h.IsNil() {
			return value.Nil, newError(ErrInvalidTableOperation, "attempt to index a %s value", obj.Kind())
		}
		if h.Kind() == value.KindClosure {
			res, err := t.call(h.AsObj().(*Closure), []value.Value{obj, key}, 1, true)
			if err != nil {
				return value.Nil, err
			}
			if len(res) == 0 {
				return value.Nil, nil
			}
			return res[0], nil
		}
		obj = h
	}
	return value.Nil, newError(ErrInvalidTableOperation, "'__index' chain too long; possible loop")
}

// newindex implements spec §4.5's __newindex chain, symmetric to index.
func (t *Thread) newindex(obj value.Value, key, val value.Value) error {
	for depth := 0; depth < maxIndexChainDepth; depth++ {
		if obj.Kind() == value.KindTable {
			tbl := obj.AsTable()
			if !tbl.RawGet(key).IsNil() {
				return rawSetChecked(tbl, key, val)
			}
			mt := tbl.Metatable()
			if mt == nil {
				return rawSetChecked(tbl, key, val)
			}
			h := mt.RawGet(value.Str(t.rt.strings.Intern(tagNewIndex)))
			if h.IsNil() {
				return rawSetChecked(tbl, key, val)
			}
			if h.Kind() == value.KindClosure {
				_, err := t.call(h.AsObj().(*Closure), []value.Value{obj, key, val}, 0, true)
				return err
			}
			obj = h
			continue
		}
		h := t.rt.metamethod(obj, tagNewIndex)
		if h.IsNil() {
			return newError(ErrInvalidTableOperation, "attempt to index a %s value", obj.Kind())
		}
		if h.Kind() == value.KindClosure {
			_, err := t.call(h.AsObj().(*Closure), []value.Value{obj, key, val}, 0, true)
			return err
		}
		obj = h
	}
	return newError(ErrInvalidTableOperation, "'__newindex' chain too long; possible loop")
}

// rawSetChecked enforces spec §3.5/§4.7's InvalidTableKey rule before
// delegating to Table.RawSet.
func rawSetChecked(tbl *value.Table, key, val value.Value) error {
	if key.IsNil() {
		return newError(ErrInvalidTableKey, "table index is nil")
	}
	if key.Kind() == value.KindFloat {
		f := key.AsFloat()
		if f != f { // NaN
			return newError(ErrInvalidTableKey, "table index is NaN")
		}
	}
	tbl.RawSet(key, val)
	return nil
}
