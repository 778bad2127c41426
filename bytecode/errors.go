package bytecode

import "fmt"

// CompileError is the structured error a front end (out of scope per spec
// §1) reports when source can't be turned into a Proto, and also what the
// bytecode loader (§6.1) reports for a malformed binary signature/version.
// Grounded on the shape of the teacher's feedback.Error but deliberately
// thinner: no source.Span, since no lexer/parser lives in this repository.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d: %s", e.Line, e.Message)
	}
	return e.Message
}
