package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableArrayPartGrowth(t *testing.T) {
	tbl := NewTable(0, 0)
	tbl.RawSet(Int(1), Int(10))
	tbl.RawSet(Int(2), Int(20))
	tbl.RawSet(Int(3), Int(30))
	assert.Equal(t, int64(3), tbl.Len())
	assert.Equal(t, Int(20), tbl.RawGet(Int(2)))
}

func TestTableIntFloatKeySameSlot(t *testing.T) {
	tbl := NewTable(0, 0)
	tbl.RawSet(Int(1), Int(99))
	assert.Equal(t, Int(99), tbl.RawGet(Float(1.0)), "integer key and equal-valued float key are the same slot")
}

func TestTableNilRemovesKey(t *testing.T) {
	tbl := NewTable(0, 0)
	tbl.RawSet(Int(1), Int(10))
	tbl.RawSet(Int(1), Nil)
	assert.True(t, tbl.RawGet(Int(1)).IsNil())
}

func TestTableHashPartForNonSequentialKeys(t *testing.T) {
	in := NewInterner()
	tbl := NewTable(0, 0)
	tbl.RawSet(Str(in.Intern("key")), Int(5))
	assert.Equal(t, Int(5), tbl.RawGet(Str(in.Intern("key"))))
}

func TestTableLenWithHoleInArrayIsAValidBorder(t *testing.T) {
	tbl := NewTable(0, 0)
	tbl.RawSet(Int(1), Int(1))
	tbl.RawSet(Int(2), Int(2))
	tbl.RawSet(Int(3), Int(3))
	tbl.RawSet(Int(2), Nil) // punch a hole
	n := tbl.Len()
	// Either border (1 or 3) is spec-valid when there's a hole; just confirm
	// t[n] isn't nil and t[n+1] (if in range) reports nil or array end.
	assert.True(t, n == 1 || n == 3)
}

func TestTableMigrateFromHashOnContiguousGrowth(t *testing.T) {
	tbl := NewTable(0, 0)
	tbl.RawSet(Int(2), Int(2)) // lands in hash part, array part empty
	tbl.RawSet(Int(1), Int(1)) // array grows to len 1, then should pull key 2 in
	assert.Equal(t, int64(2), tbl.Len())
}

func TestTableNextIteratesArrayThenHash(t *testing.T) {
	in := NewInterner()
	tbl := NewTable(0, 0)
	tbl.RawSet(Int(1), Int(10))
	tbl.RawSet(Str(in.Intern("x")), Int(20))

	k, v, ok := tbl.Next(Nil)
	assert.True(t, ok)
	assert.Equal(t, Int(1), k)
	assert.Equal(t, Int(10), v)

	k2, v2, ok2 := tbl.Next(k)
	assert.True(t, ok2)
	assert.Equal(t, Int(20), v2)
	assert.Equal(t, KindString, k2.Kind())

	_, _, ok3 := tbl.Next(k2)
	assert.False(t, ok3, "iteration exhausted")
}

func TestTableMetatable(t *testing.T) {
	tbl := NewTable(0, 0)
	assert.Nil(t, tbl.Metatable())
	mt := NewTable(0, 0)
	tbl.SetMetatable(mt)
	assert.Same(t, mt, tbl.Metatable())
}
