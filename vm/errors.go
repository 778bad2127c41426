package vm

import (
	"fmt"

	"github.com/keix/lunacore/value"
)

// ErrorKind enumerates the structured runtime error kinds from spec §7.
// Kept as typed constants rather than string-matched errors, the way the
// teacher's feedback package distinguishes Warning/Error by a Classification
// string constant rather than by parsing a message (feedback/message.go).
type ErrorKind uint8

const (
	ErrArithmetic ErrorKind = iota
	ErrInvalidTableKey
	ErrInvalidTableOperation
	ErrNotAFunction
	ErrNoCloseMetamethod
	ErrInvalidForLoopStep
	ErrPcOutOfRange
	ErrCallStackOverflow
	ErrStackOverflow
	ErrLuaException
)

func (k ErrorKind) String() string {
	switch k {
	case ErrArithmetic:
		return "ArithmeticError"
	case ErrInvalidTableKey:
		return "InvalidTableKey"
	case ErrInvalidTableOperation:
		return "InvalidTableOperation"
	case ErrNotAFunction:
		return "NotAFunction"
	case ErrNoCloseMetamethod:
		return "NoCloseMetamethod"
	case ErrInvalidForLoopStep:
		return "InvalidForLoopStep"
	case ErrPcOutOfRange:
		return "PcOutOfRange"
	case ErrCallStackOverflow:
		return "CallStackOverflow"
	case ErrStackOverflow:
		return "StackOverflow"
	case ErrLuaException:
		return "LuaException"
	default:
		return "UnknownError"
	}
}

// Error is the structured runtime error surfaced from the core (spec §7).
// For ErrLuaException, Value carries the arbitrary error object passed to
// `error(v)` or raised by a metamethod; for the other kinds Value is usually
// Nil and Message carries the description.
type Error struct {
	Kind    ErrorKind
	Message string
	Value   value.Value
	Source  string
	Line    int32
}

func (e *Error) Error() string {
	loc := ""
	if e.Line > 0 {
		if e.Source != "" {
			loc = fmt.Sprintf("%s:%d: ", e.Source, e.Line)
		} else {
			loc = fmt.Sprintf("line %d: ", e.Line)
		}
	}
	if e.Kind == ErrLuaException && !e.Value.IsNil() {
		return fmt.Sprintf("%s%s", loc, value.ToString(e.Value))
	}
	return fmt.Sprintf("%s%s: %s", loc, e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// luaException wraps an arbitrary error value raised via `error(v)` or a
// metamethod, per spec §7 LuaException.
func luaException(v value.Value) *Error {
	return &Error{Kind: ErrLuaException, Value: v}
}
