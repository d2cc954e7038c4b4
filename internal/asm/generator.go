package asm

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// origin is the address pass 1 starts counting from, matching ProgramStart.
const origin = 0x200

// lineSize is how many bytes a line contributes to the address counter:
// 2 for any recognized mnemonic, or len(operands) for a DB directive.
func lineSize(in *Instruction) int {
	if in == nil {
		return 0
	}
	if strings.EqualFold(in.Mnemonic, "DB") {
		return len(in.Operands)
	}
	return 2
}

// labels is pass 1: walk lines in order, assigning each label the address
// at the point of its definition. Duplicate labels are a hard error.
func labels(lines []*Line) (map[string]uint16, error) {
	addr := origin
	out := make(map[string]uint16)

	for _, l := range lines {
		if l.Label != "" {
			if _, dup := out[l.Label]; dup {
				return nil, &Error{Message: "duplicate label: " + l.Label, Line: l.SourceLine}
			}
			out[l.Label] = uint16(addr)
		}
		addr += lineSize(l.Instruction)
	}
	return out, nil
}

// Assemble runs both passes over prog and returns the resulting byte image,
// ready to load at ProgramStart.
func Assemble(prog *Program) ([]byte, error) {
	labelAddrs, err := labels(prog.Lines)
	if err != nil {
		return nil, err
	}

	var out []byte
	for _, l := range prog.Lines {
		if l.Instruction == nil {
			continue
		}
		bytes, err := emit(l.Instruction, labelAddrs)
		if err != nil {
			if asmErr, ok := err.(*Error); ok {
				asmErr.Line = l.SourceLine
			}
			return nil, err
		}
		out = append(out, bytes...)
	}
	return out, nil
}

func emit(in *Instruction, labels map[string]uint16) ([]byte, error) {
	if strings.EqualFold(in.Mnemonic, "DB") {
		return emitData(in)
	}
	code, err := encode(in, labels)
	if err != nil {
		return nil, err
	}
	return []byte{byte(code >> 8), byte(code)}, nil
}

func emitData(in *Instruction) ([]byte, error) {
	out := make([]byte, 0, len(in.Operands))
	for _, op := range in.Operands {
		if op.Number == nil {
			return nil, newError(in.Pos, "DB operand %q is not a byte literal", op.String())
		}
		out = append(out, byte(op.Number.Value))
	}
	return out, nil
}

// encode maps one (mnemonic, operands) pair to its 16-bit opcode, via the
// classic base-code-OR'd-with-operand table.
func encode(in *Instruction, labels map[string]uint16) (uint16, error) {
	mnem := strings.ToUpper(in.Mnemonic)
	ops := in.Operands
	pos := in.Pos

	switch mnem {
	case "CLS":
		return 0x00E0, nil
	case "RET":
		return 0x00EE, nil
	case "JP":
		if len(ops) == 2 {
			r, err := ops[0].regIndex()
			if err != nil || r != 0 {
				return 0, newError(pos, "JP with two operands must be 'JP V0, addr'")
			}
			a, err := resolveAddr(pos, ops[1], labels)
			if err != nil {
				return 0, err
			}
			return 0xB000 | a, nil
		}
		if err := expectOperands(pos, "JP", ops, 1); err != nil {
			return 0, err
		}
		a, err := resolveAddr(pos, ops[0], labels)
		if err != nil {
			return 0, err
		}
		return 0x1000 | a, nil

	case "CALL":
		if err := expectOperands(pos, "CALL", ops, 1); err != nil {
			return 0, err
		}
		a, err := resolveAddr(pos, ops[0], labels)
		if err != nil {
			return 0, err
		}
		return 0x2000 | a, nil

	case "SE":
		return encodeRegRegOrImm(pos, "SE", ops, 0x5000, 0x3000)
	case "SNE":
		return encodeRegRegOrImm(pos, "SNE", ops, 0x9000, 0x4000)
	case "OR":
		return encodeRegReg(pos, "OR", ops, 0x8001)
	case "AND":
		return encodeRegReg(pos, "AND", ops, 0x8002)
	case "XOR":
		return encodeRegReg(pos, "XOR", ops, 0x8003)
	case "SUB":
		return encodeRegReg(pos, "SUB", ops, 0x8005)
	case "SHR":
		return encodeRegReg(pos, "SHR", ops, 0x8006)
	case "SUBN":
		return encodeRegReg(pos, "SUBN", ops, 0x8007)
	case "SHL":
		return encodeRegReg(pos, "SHL", ops, 0x800E)
	case "RND":
		return encodeRegImm(pos, "RND", ops, 0xC000)

	case "ADD":
		return encodeAdd(pos, ops)

	case "DRW":
		if err := expectOperands(pos, "DRW", ops, 3); err != nil {
			return 0, err
		}
		r1, err := ops[0].regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		r2, err := ops[1].regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		if ops[2].Number == nil || ops[2].Number.Value > 0xF {
			return 0, newError(pos, "DRW nibble operand out of range: %q", ops[2].String())
		}
		return 0xD000 | uint16(r1)<<8 | uint16(r2)<<4 | ops[2].Number.Value, nil

	case "SKP":
		if err := expectOperands(pos, "SKP", ops, 1); err != nil {
			return 0, err
		}
		r, err := ops[0].regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xE09E | uint16(r)<<8, nil

	case "SKNP", "SKPN":
		if err := expectOperands(pos, mnem, ops, 1); err != nil {
			return 0, err
		}
		r, err := ops[0].regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xE0A1 | uint16(r)<<8, nil

	case "LD":
		return encodeLoad(pos, ops, labels)
	}

	return 0, newError(pos, "unknown mnemonic %q", in.Mnemonic)
}

func expectOperands(pos lexer.Position, mnemonic string, ops []*Operand, n int) error {
	if len(ops) != n {
		return newError(pos, "%s expects %d operand(s), got %d", mnemonic, n, len(ops))
	}
	return nil
}

// encodeRegReg handles the common "MNEM Vx, Vy" shape.
func encodeRegReg(pos lexer.Position, mnemonic string, ops []*Operand, base uint16) (uint16, error) {
	if err := expectOperands(pos, mnemonic, ops, 2); err != nil {
		return 0, err
	}
	r1, err := ops[0].regIndex()
	if err != nil {
		return 0, newError(pos, "%s", err)
	}
	r2, err := ops[1].regIndex()
	if err != nil {
		return 0, newError(pos, "%s", err)
	}
	return base | uint16(r1)<<8 | uint16(r2)<<4, nil
}

// encodeRegImm handles the common "MNEM Vx, kk" shape.
func encodeRegImm(pos lexer.Position, mnemonic string, ops []*Operand, base uint16) (uint16, error) {
	if err := expectOperands(pos, mnemonic, ops, 2); err != nil {
		return 0, err
	}
	r, err := ops[0].regIndex()
	if err != nil {
		return 0, newError(pos, "%s", err)
	}
	if ops[1].Number == nil || ops[1].Number.Value > 0xFF {
		return 0, newError(pos, "%s immediate out of byte range: %q", mnemonic, ops[1].String())
	}
	return base | uint16(r)<<8 | ops[1].Number.Value, nil
}

// encodeRegRegOrImm handles SE/SNE, which take either "Vx, Vy" or "Vx, kk".
func encodeRegRegOrImm(pos lexer.Position, mnemonic string, ops []*Operand, regRegBase, regImmBase uint16) (uint16, error) {
	if err := expectOperands(pos, mnemonic, ops, 2); err != nil {
		return 0, err
	}
	if ops[1].VReg != "" {
		return encodeRegReg(pos, mnemonic, ops, regRegBase)
	}
	return encodeRegImm(pos, mnemonic, ops, regImmBase)
}

func encodeAdd(pos lexer.Position, ops []*Operand) (uint16, error) {
	if err := expectOperands(pos, "ADD", ops, 2); err != nil {
		return 0, err
	}
	if strings.EqualFold(ops[0].Word, "I") {
		r, err := ops[1].regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF01E | uint16(r)<<8, nil
	}
	if ops[1].VReg != "" {
		return encodeRegReg(pos, "ADD", ops, 0x8004)
	}
	return encodeRegImm(pos, "ADD", ops, 0x7000)
}

func encodeLoad(pos lexer.Position, ops []*Operand, labels map[string]uint16) (uint16, error) {
	if err := expectOperands(pos, "LD", ops, 2); err != nil {
		return 0, err
	}
	dst, src := ops[0], ops[1]

	switch {
	case strings.EqualFold(dst.Word, "I"):
		a, err := resolveAddr(pos, src, labels)
		if err != nil {
			return 0, err
		}
		return 0xA000 | a, nil

	case strings.EqualFold(dst.Word, "DT"):
		r, err := src.regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF015 | uint16(r)<<8, nil

	case strings.EqualFold(dst.Word, "ST"):
		r, err := src.regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF018 | uint16(r)<<8, nil

	case dst.Indirect != "":
		r, err := src.regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF055 | uint16(r)<<8, nil

	case strings.EqualFold(src.Word, "DT"):
		r, err := dst.regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF007 | uint16(r)<<8, nil

	case strings.EqualFold(src.Word, "K"):
		r, err := dst.regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF00A | uint16(r)<<8, nil

	case strings.EqualFold(src.Word, "F"):
		r, err := dst.regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF029 | uint16(r)<<8, nil

	case strings.EqualFold(src.Word, "B"):
		r, err := dst.regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF033 | uint16(r)<<8, nil

	case src.Indirect != "":
		r, err := dst.regIndex()
		if err != nil {
			return 0, newError(pos, "%s", err)
		}
		return 0xF065 | uint16(r)<<8, nil

	case dst.VReg != "" && src.VReg != "":
		return encodeRegReg(pos, "LD", ops, 0x8000)

	case dst.VReg != "" && src.Number != nil:
		return encodeRegImm(pos, "LD", ops, 0x6000)
	}

	return 0, newError(pos, "unrecognized LD operand shapes: %s, %s", dst.String(), src.String())
}

// resolveAddr resolves an Addr operand (an immediate number or a label
// reference) to its 12-bit address, masking the result per the spec.
func resolveAddr(pos lexer.Position, op *Operand, labels map[string]uint16) (uint16, error) {
	if op.Number != nil {
		return op.Number.Value & 0xFFF, nil
	}
	if op.Word == "" {
		return 0, newError(pos, "expected an address or label, got %q", op.String())
	}
	a, ok := labels[op.Word]
	if !ok {
		return 0, newError(pos, "unknown label: %q", op.Word)
	}
	return a & 0xFFF, nil
}
