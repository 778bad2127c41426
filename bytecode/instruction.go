package bytecode

// Instruction is a single 32-bit virtual machine instruction, laid out per
// spec §4.1:
//
//	bits 0..6   opcode (7 bits)
//	bits 7..14  A       (8 bits)
//	bit  15     k       (1 bit)
//	bits 16..23 B       (8 bits)
//	bits 24..31 C       (8 bits)
//
// The same 32 bits support five operand interpretations (iABC/iABx/iAsBx/
// iAx/isJ); no variable-length encoding exists. Grounded on the teacher's
// opcode+fixed-width-argument byte stream (backend/instructions.go), widened
// into a single packed word the way the spec's fixed instruction size calls
// for.
type Instruction uint32

const (
	sizeOp = 7
	sizeA  = 8
	sizeK  = 1
	sizeB  = 8
	sizeC  = 8

	posOp = 0
	posA  = posOp + sizeOp
	posK  = posA + sizeA
	posB  = posK + sizeK
	posC  = posB + sizeB

	sizeBx  = sizeK + sizeB + sizeC // 17
	posBx   = posK
	biasBx  = 1 << (sizeBx - 1)
	maxBx   = 1<<sizeBx - 1

	sizeAx = sizeA + sizeK + sizeB + sizeC // 25
	posAx  = posA
	biasJ  = 1 << (sizeAx - 1)
	maxAx  = 1<<sizeAx - 1
)

// ABC packs an iABC instruction.
func ABC(op OpCode, a uint8, k bool, b, c uint8) Instruction {
	var kbit Instruction
	if k {
		kbit = 1
	}
	return Instruction(op)<<posOp |
		Instruction(a)<<posA |
		kbit<<posK |
		Instruction(b)<<posB |
		Instruction(c)<<posC
}

// ABx packs an iABx instruction; bx must fit in sizeBx unsigned bits.
func ABx(op OpCode, a uint8, bx uint32) Instruction {
	if bx > maxBx {
		panic("bytecode: Bx argument out of range")
	}
	return Instruction(op)<<posOp | Instruction(a)<<posA | Instruction(bx)<<posBx
}

// AsBx packs an iAsBx instruction; sbx is biased by biasBx before storage.
func AsBx(op OpCode, a uint8, sbx int32) Instruction {
	bx := int64(sbx) + biasBx
	if bx < 0 || bx > maxBx {
		panic("bytecode: sBx argument out of range")
	}
	return Instruction(op)<<posOp | Instruction(a)<<posA | Instruction(bx)<<posBx
}

// Ax packs an iAx instruction (used only by EXTRAARG).
func Ax(op OpCode, ax uint32) Instruction {
	if ax > maxAx {
		panic("bytecode: Ax argument out of range")
	}
	return Instruction(op)<<posOp | Instruction(ax)<<posAx
}

// SJ packs an isJ instruction (used only by JMP); sj is biased by biasJ.
func SJ(op OpCode, sj int32) Instruction {
	j := int64(sj) + biasJ
	if j < 0 || j > maxAx {
		panic("bytecode: sJ argument out of range")
	}
	return Instruction(op)<<posOp | Instruction(j)<<posAx
}

// OpCode extracts the opcode field, valid under every operand mode.
func (i Instruction) OpCode() OpCode {
	return OpCode(i >> posOp & (1<<sizeOp - 1))
}

// A extracts the A field (iABC/iABx/iAsBx).
func (i Instruction) A() uint8 { return uint8(i >> posA) }

// K extracts the k flag (iABC).
func (i Instruction) K() bool { return i>>posK&1 != 0 }

// B extracts the B field (iABC).
func (i Instruction) B() uint8 { return uint8(i >> posB) }

// C extracts the C field (iABC).
func (i Instruction) C() uint8 { return uint8(i >> posC) }

// Bx extracts the unsigned Bx field (iABx).
func (i Instruction) Bx() uint32 { return uint32(i>>posBx) & maxBx }

// SBx extracts the signed sBx field (iAsBx), reversing the bias applied by
// AsBx.
func (i Instruction) SBx() int32 { return int32(i.Bx()) - biasBx }

// AxField extracts the Ax field (iAx, EXTRAARG only).
func (i Instruction) AxField() uint32 { return uint32(i>>posAx) & maxAx }

// SJ extracts the signed sJ field (isJ, JMP only), reversing the bias
// applied by SJ.
func (i Instruction) SJ() int32 { return int32(i.AxField()) - biasJ }

// SignedC interprets the C field as a signed immediate in the range
// [-128, 127] the way ADDI/SHLI/SHRI's immediate operand works (spec §4.2).
func SignedC(c uint8) int32 { return int32(int8(c)) }

// EncodeSignedC is SignedC's inverse, packing n into the C field's signed
// immediate range. Callers (a future assembler, or tests hand-building a
// Proto) must keep n within [-128, 127]; out-of-range values truncate the
// same way the iABC encoding itself does.
func EncodeSignedC(n int32) uint8 { return uint8(int8(n)) }
