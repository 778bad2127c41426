package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keix/lunacore/value"
)

func TestDumpLoadRoundTrip(t *testing.T) {
	main := &Proto{
		Code: []Instruction{
			ABC(OpLoadK, 0, false, 0, 0),
			ABC(OpReturn1, 0, false, 0, 0),
		},
		Constants: []value.Value{value.Int(42), value.Str(value.NewString("hi"))},
		NumParams: 0,
		MaxStack:  2,
		Source:    "test",
		LineInfo:  []int32{1, 2},
	}

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, main))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, loaded.Code, 2)
	assert.Equal(t, OpLoadK, loaded.Code[0].OpCode())
	assert.Equal(t, "test", loaded.Source)
	require.Len(t, loaded.Constants, 2)
	assert.Equal(t, int64(42), loaded.Constants[0].AsInt())
	assert.Equal(t, "hi", loaded.Constants[1].AsString().Value())
	assert.Equal(t, int32(2), loaded.Line(1))
}

func TestLoadRejectsBadSignature(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte{0, 0, 0, 0, 1, 4, 8, 8}))
	require.Error(t, err)
	ce, ok := err.(*CompileError)
	require.True(t, ok)
	assert.Contains(t, ce.Message, "signature")
}

func TestLoadRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Signature[:])
	buf.Write([]byte{99, 4, 8, 8})
	_, err := Load(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestNestedProtosRoundTrip(t *testing.T) {
	child := &Proto{
		Code:      []Instruction{ABC(OpReturn0, 0, false, 0, 0)},
		MaxStack:  1,
		Upvalues:  []UpvalueDesc{{InStack: true, Index: 0, Name: "x"}},
		NumUpvals: 1,
	}
	main := &Proto{
		Code:     []Instruction{ABx(OpClosure, 0, 0)},
		Protos:   []*Proto{child},
		MaxStack: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, main))
	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, loaded.Protos, 1)
	assert.Equal(t, uint8(1), loaded.Protos[0].NumUpvals)
	assert.True(t, loaded.Protos[0].Upvalues[0].InStack)
}
