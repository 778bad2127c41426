package bytecode

import (
	"fmt"
	"io"

	"github.com/keix/lunacore/value"
)

// Disassemble writes a human-readable listing of p and every Proto nested
// inside it, one instruction per line with its mnemonic and decoded
// operands. Grounded on the teacher's backend.Disassemble
// (backend/disassembly.go), generalized from that package's fixed
// variable-length byte stream to this project's single packed 32-bit word,
// and made recursive to cover nested Protos the teacher's flat function list
// didn't need to.
func Disassemble(w io.Writer, p *Proto) {
	disassemble(w, p, "main")
}

func disassemble(w io.Writer, p *Proto, label string) {
	fmt.Fprintf(w, "%s <%s> (%d instructions, %d params%s, maxstack %d)\n",
		label, p.Source, len(p.Code), p.NumParams, varargSuffix(p.IsVararg), p.MaxStack)

	for pc, instr := range p.Code {
		line := p.Line(pc)
		fmt.Fprintf(w, "\t%d\t", pc)
		if line > 0 {
			fmt.Fprintf(w, "[%d]\t", line)
		} else {
			fmt.Fprint(w, "[-]\t")
		}
		fmt.Fprintln(w, formatInstruction(p, instr))
	}

	if len(p.Constants) > 0 {
		fmt.Fprintf(w, "constants (%d):\n", len(p.Constants))
		for i, k := range p.Constants {
			fmt.Fprintf(w, "\t%d\t%s\n", i, formatConstant(k))
		}
	}

	if len(p.Upvalues) > 0 {
		fmt.Fprintf(w, "upvalues (%d):\n", len(p.Upvalues))
		for i, u := range p.Upvalues {
			fmt.Fprintf(w, "\t%d\t%s\tinstack=%t\tindex=%d\n", i, u.Name, u.InStack, u.Index)
		}
	}

	for i, child := range p.Protos {
		fmt.Fprintln(w)
		disassemble(w, child, fmt.Sprintf("function #%d", i))
	}
}

func varargSuffix(isVararg bool) string {
	if isVararg {
		return ", vararg"
	}
	return ""
}

func formatConstant(k value.Value) string {
	switch k.Kind() {
	case value.KindString:
		return fmt.Sprintf("%q", value.ToString(k))
	default:
		return value.ToString(k)
	}
}

// formatInstruction decodes instr's operands according to instr.OpCode()'s
// mode (spec §4.1) and renders them the way the teacher renders each
// operation's operands: mnemonic padded, then register/constant/jump targets.
func formatInstruction(p *Proto, instr Instruction) string {
	op := instr.OpCode()
	name := op.String()

	switch op.Mode() {
	case ModeABx:
		return fmt.Sprintf("%-10s r%d %d", name, instr.A(), instr.Bx())
	case ModeAsBx:
		return fmt.Sprintf("%-10s r%d %d", name, instr.A(), instr.SBx())
	case ModeAx:
		return fmt.Sprintf("%-10s %d", name, instr.AxField())
	case ModeJ:
		return fmt.Sprintf("%-10s %+d", name, instr.SJ())
	default:
		return formatABC(name, instr)
	}
}

func formatABC(name string, instr Instruction) string {
	a, b, c, k := instr.A(), instr.B(), instr.C(), instr.K()
	switch instr.OpCode() {
	case OpLoadFalse, OpLFalseSkip, OpLoadTrue, OpReturn0:
		return fmt.Sprintf("%-10s r%d", name, a)
	case OpLoadNil:
		return fmt.Sprintf("%-10s r%d %d", name, a, b)
	case OpUnm, OpBNot, OpNot, OpLen, OpMove:
		return fmt.Sprintf("%-10s r%d r%d", name, a, b)
	case OpReturn1, OpClose, OpTBC, OpJmp:
		return fmt.Sprintf("%-10s r%d", name, a)
	case OpGetUpval:
		return fmt.Sprintf("%-10s r%d u%d", name, a, b)
	case OpSetUpval:
		return fmt.Sprintf("%-10s u%d r%d", name, b, a)
	case OpVararg:
		return fmt.Sprintf("%-10s r%d %d", name, a, b)
	default:
		if k {
			return fmt.Sprintf("%-10s r%d r%d r%d k", name, a, b, c)
		}
		return fmt.Sprintf("%-10s r%d r%d r%d", name, a, b, c)
	}
}
