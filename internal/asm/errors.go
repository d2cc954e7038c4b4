package asm

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// Error reports an assembler failure with source position where available.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("asm: %s", e.Message)
	}
	return fmt.Sprintf("asm: %d:%d: %s", e.Line, e.Column, e.Message)
}

func newError(pos lexer.Position, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Line: pos.Line, Column: pos.Column}
}
