// Package diagnose renders the structured errors the core produces (spec
// §7) into terminal-friendly text. Grounded on the teacher's feedback
// package (feedback/message.go): the same Message interface and
// color-toggled Make method, scaled down from Plaid's source-span
// underlining (the front end that would supply spans is out of scope here)
// to this project's line-number-only diagnostics.
package diagnose

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/vm"
)

// Message is the interface every renderable diagnostic implements.
type Message interface {
	Make(withColor bool) string
}

// CompileMessage renders a bytecode.CompileError (spec §6.1 "reject
// malformed bytecode with a location").
type CompileMessage struct {
	Source string
	Err    *bytecode.CompileError
}

func (m CompileMessage) Make(withColor bool) string {
	color.NoColor = !withColor
	redBold := color.New(color.FgRed, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	loc := m.Source
	if loc == "" {
		loc = "<bytecode>"
	}
	return fmt.Sprintf("%s %s\n %s %s:%d: %s",
		redBold("error:"), "malformed bytecode",
		blue("-->"), loc, m.Err.Line, m.Err.Message)
}

// Render is the one-line convenience the CLI calls instead of constructing
// a CompileMessage/RuntimeMessage directly.
func Render(err error, source string, withColor bool) string {
	switch e := err.(type) {
	case *bytecode.CompileError:
		return CompileMessage{Source: source, Err: e}.Make(withColor)
	case *vm.Error:
		return RuntimeMessage{Err: e}.Make(withColor)
	default:
		color.NoColor = !withColor
		return color.New(color.FgRed, color.Bold).Sprint("error: ") + err.Error()
	}
}

// RuntimeMessage renders a vm.Error (spec §7's structured runtime errors).
type RuntimeMessage struct {
	Err *vm.Error
}

func (m RuntimeMessage) Make(withColor bool) string {
	color.NoColor = !withColor
	redBold := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	kind := yellow(m.Err.Kind.String())
	loc := ""
	if m.Err.Line > 0 {
		src := m.Err.Source
		if src == "" {
			src = "<chunk>"
		}
		loc = fmt.Sprintf(" %s:%d:", src, m.Err.Line)
	}
	return fmt.Sprintf("%s%s %s: %s", redBold("runtime error:"), loc, kind, m.Err.Error())
}
