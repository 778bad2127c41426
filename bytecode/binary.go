package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/keix/lunacore/value"
)

// Signature identifies a lunacore bytecode file (spec §6.1). Chosen to be
// distinctive in a hex dump the way the teacher's Bytecode type sanity-checks
// nothing at all (Plaid has no binary format) — this project adds the check
// because the spec calls for "reject invalid signature/version".
var Signature = [4]byte{0x1b, 'L', 'u', 'a'}

const Version byte = 1

const (
	tagNil byte = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
)

// Dump serializes a top-level Proto to w per spec §6.1. Debug info
// (Source/LineInfo) is always written; callers that want a stripped binary
// should clear those fields on the Proto before calling Dump.
func Dump(w io.Writer, main *Proto) error {
	bw := &byteWriter{w: w}
	bw.write(Signature[:])
	bw.write([]byte{Version, 4, 8, 8})
	dumpProto(bw, main)
	return bw.err
}

func dumpProto(bw *byteWriter, p *Proto) {
	bw.write([]byte{p.NumParams, boolByte(p.IsVararg), p.MaxStack, p.NumUpvals})

	bw.writeU32(uint32(len(p.Code)))
	for _, inst := range p.Code {
		bw.writeU32(uint32(inst))
	}

	bw.writeU32(uint32(len(p.Constants)))
	for _, k := range p.Constants {
		dumpConstant(bw, k)
	}

	bw.writeU32(uint32(len(p.Upvalues)))
	for _, uv := range p.Upvalues {
		bw.write([]byte{boolByte(uv.InStack), uv.Index})
	}

	bw.writeU32(uint32(len(p.Protos)))
	for _, child := range p.Protos {
		dumpProto(bw, child)
	}

	bw.writeString(p.Source)
	bw.writeU32(uint32(len(p.LineInfo)))
	for _, line := range p.LineInfo {
		bw.writeU32(uint32(line))
	}
}

func dumpConstant(bw *byteWriter, k value.Value) {
	switch k.Kind() {
	case value.KindNil:
		bw.write([]byte{tagNil})
	case value.KindBool:
		if k.AsBool() {
			bw.write([]byte{tagTrue})
		} else {
			bw.write([]byte{tagFalse})
		}
	case value.KindInt:
		bw.write([]byte{tagInt})
		bw.writeU64(uint64(k.AsInt()))
	case value.KindFloat:
		bw.write([]byte{tagFloat})
		bw.writeU64(math.Float64bits(k.AsFloat()))
	case value.KindString:
		bw.write([]byte{tagString})
		bw.writeString(k.AsString().Value())
	default:
		bw.err = fmt.Errorf("bytecode: constant of kind %s is not dumpable", k.Kind())
	}
}

// Load parses a bytecode file per spec §6.1, rejecting an invalid signature
// or version before attempting to read a Proto.
func Load(r io.Reader) (*Proto, error) {
	br := &byteReader{r: r}
	var sig [4]byte
	br.readFull(sig[:])
	if br.err != nil {
		return nil, br.err
	}
	if sig != Signature {
		return nil, &CompileError{Message: "bad bytecode signature"}
	}
	var header [4]byte
	br.readFull(header[:])
	if br.err != nil {
		return nil, br.err
	}
	if header[0] != Version {
		return nil, &CompileError{Message: fmt.Sprintf("unsupported bytecode version %d", header[0])}
	}
	if header[1] != 4 || header[2] != 8 || header[3] != 8 {
		return nil, &CompileError{Message: "unsupported size declarations"}
	}
	p := loadProto(br)
	if br.err != nil {
		return nil, br.err
	}
	return p, nil
}

func loadProto(br *byteReader) *Proto {
	p := &Proto{}
	var head [4]byte
	br.readFull(head[:])
	p.NumParams, p.IsVararg, p.MaxStack, p.NumUpvals = head[0], head[1] != 0, head[2], head[3]

	codeCount := br.readU32()
	p.Code = make([]Instruction, codeCount)
	for i := range p.Code {
		p.Code[i] = Instruction(br.readU32())
	}

	kCount := br.readU32()
	p.Constants = make([]value.Value, kCount)
	for i := range p.Constants {
		p.Constants[i] = loadConstant(br)
	}

	uvCount := br.readU32()
	p.Upvalues = make([]UpvalueDesc, uvCount)
	for i := range p.Upvalues {
		var buf [2]byte
		br.readFull(buf[:])
		p.Upvalues[i] = UpvalueDesc{InStack: buf[0] != 0, Index: buf[1]}
	}

	protoCount := br.readU32()
	p.Protos = make([]*Proto, protoCount)
	for i := range p.Protos {
		p.Protos[i] = loadProto(br)
	}

	p.Source = br.readString()
	lineCount := br.readU32()
	if lineCount > 0 {
		p.LineInfo = make([]int32, lineCount)
		for i := range p.LineInfo {
			p.LineInfo[i] = int32(br.readU32())
		}
	}

	return p
}

func loadConstant(br *byteReader) value.Value {
	var tag [1]byte
	br.readFull(tag[:])
	switch tag[0] {
	case tagNil:
		return value.Nil
	case tagFalse:
		return value.Bool(false)
	case tagTrue:
		return value.Bool(true)
	case tagInt:
		return value.Int(int64(br.readU64()))
	case tagFloat:
		return value.Float(math.Float64frombits(br.readU64()))
	case tagString:
		return value.Str(value.NewString(br.readString()))
	default:
		br.err = fmt.Errorf("bytecode: unknown constant tag 0x%x", tag[0])
		return value.Nil
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// byteWriter/byteReader are small cursor helpers so Dump/Load read like the
// teacher's readOpcode/readUint32 cursor helpers
// (backend/interpreter.go), generalized to an io.Writer/io.Reader instead of
// an in-memory byte slice since the spec's format is a file format.

type byteWriter struct {
	w   io.Writer
	err error
}

func (bw *byteWriter) write(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

func (bw *byteWriter) writeU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	bw.write(b[:])
}

func (bw *byteWriter) writeU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	bw.write(b[:])
}

func (bw *byteWriter) writeString(s string) {
	bw.writeU32(uint32(len(s)))
	bw.write([]byte(s))
}

type byteReader struct {
	r   io.Reader
	err error
}

func (br *byteReader) readFull(b []byte) {
	if br.err != nil {
		return
	}
	_, br.err = io.ReadFull(br.r, b)
}

func (br *byteReader) readU32() uint32 {
	var b [4]byte
	br.readFull(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (br *byteReader) readU64() uint64 {
	var b [8]byte
	br.readFull(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (br *byteReader) readString() string {
	n := br.readU32()
	if n == 0 || br.err != nil {
		return ""
	}
	b := make([]byte, n)
	br.readFull(b)
	return string(b)
}
