package asm

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// lineLexer tokenizes a single line of assembly: case-insensitive
// mnemonics, hex/binary/decimal integers, V0-VF registers, the [I]
// indirect token, labels, and '#' line comments. Lines are split on
// newlines by Parse, so no newline token is needed here.
var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Indirect", Pattern: `\[[iI]\]`},
	{Name: "VReg", Pattern: `[vV][0-9A-Fa-f]\b`},
	{Name: "Number", Pattern: `0[xX][0-9A-Fa-f]+|0[bB][01]+|[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
})

var lineParser = participle.MustBuild[Line](
	participle.Lexer(lineLexer),
	participle.Elide("Whitespace", "Comment"),
)

// Parse turns CHIP-8 assembly source into a Program. filename is used only
// to annotate error positions. Each source line is parsed independently
// and blank/comment-only lines are dropped; line numbers in errors refer
// to the original file.
func Parse(filename, source string) (*Program, error) {
	prog := &Program{}
	for i, raw := range strings.Split(source, "\n") {
		lineNo := i + 1
		text := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		l, err := lineParser.ParseString(filename, text)
		if err != nil {
			return nil, &Error{Message: err.Error(), Line: lineNo}
		}
		if l.Label == "" && l.Instruction == nil {
			continue
		}
		l.SourceLine = lineNo
		prog.Lines = append(prog.Lines, l)
	}
	return prog, nil
}
