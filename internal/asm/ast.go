// Package asm implements the two-pass CHIP-8 assembler: a participle
// grammar turns source text into a Program, and Assemble resolves labels
// and emits the big-endian opcode stream a Memory can load directly.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Number is an integer literal in hex (0x...), binary (0b...), or decimal.
type Number struct {
	Value uint16
}

func (n *Number) Capture(values []string) error {
	s := values[0]
	lower := strings.ToLower(s)
	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(lower, "0x"):
		v, err = strconv.ParseUint(s[2:], 16, 16)
	case strings.HasPrefix(lower, "0b"):
		v, err = strconv.ParseUint(s[2:], 2, 16)
	default:
		v, err = strconv.ParseUint(s, 10, 16)
	}
	if err != nil {
		return fmt.Errorf("asm: invalid integer literal %q: %w", s, err)
	}
	n.Value = uint16(v)
	return nil
}

// Operand is one comma-separated argument to a mnemonic: a register (V0-VF),
// the literal [I], a numeric literal, or a bare word (a special register
// name like DT/ST/K/F/B/I, or a label reference).
type Operand struct {
	VReg    string  `  @VReg`
	Indirect string `| @Indirect`
	Number  *Number `| @Number`
	Word    string  `| @Ident`
}

func (o *Operand) String() string {
	switch {
	case o.VReg != "":
		return o.VReg
	case o.Indirect != "":
		return o.Indirect
	case o.Number != nil:
		return fmt.Sprintf("0x%X", o.Number.Value)
	default:
		return o.Word
	}
}

// regIndex parses a VReg operand ("V0".."VF", case-insensitive) into 0-15.
func (o *Operand) regIndex() (uint8, error) {
	if o.VReg == "" {
		return 0, fmt.Errorf("asm: expected a register operand, got %q", o.String())
	}
	v, err := strconv.ParseUint(o.VReg[1:], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("asm: invalid register %q: %w", o.VReg, err)
	}
	return uint8(v), nil
}

// Instruction is a mnemonic with its operand list. Mnemonics and the special
// bare words (I, DT, ST, K, F, B) are matched case-insensitively; label
// references must match the label definition's case exactly.
type Instruction struct {
	Pos      lexer.Position
	Mnemonic string     `@Ident`
	Operands []*Operand `( @@ ( "," @@ )* )?`
}

// Line is one line of source: an optional label definition followed by an
// optional instruction. Either, both, or neither may be present (blank and
// comment-only lines parse as an empty Line). SourceLine records the
// 1-based line number in the original file for error reporting; it is set
// by Parse, not by the grammar.
type Line struct {
	Label       string       `( @Ident ":" )?`
	Instruction *Instruction `@@?`
	SourceLine  int
}

// Program is a full parsed source file: the ordered, non-blank lines.
type Program struct {
	Lines []*Line
}
