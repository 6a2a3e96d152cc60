// Package isa defines the closed instruction set, register set, and
// operand kinds shared by the assembler and the simulator, along with the
// JSON artifact schema that connects them.
package isa

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Opcode is one of the closed set of mnemonics the machine understands.
// It is a string type (rather than a byte enum) because the artifact
// format serializes opcodes as mnemonic strings.
type Opcode string

const (
	LD Opcode = "ld"
	SV Opcode = "sv"

	ADD Opcode = "add"
	SUB Opcode = "sub"
	MUL Opcode = "mul"
	DIV Opcode = "div"
	MOD Opcode = "mod"
	CMP Opcode = "cmp"

	JMP Opcode = "jmp"
	JE  Opcode = "je"
	JNE Opcode = "jne"

	IN  Opcode = "in"
	OUT Opcode = "out"

	STI  Opcode = "sti"
	CLI  Opcode = "cli"
	IRET Opcode = "iret"

	HLT Opcode = "halt"
)

// strToOpcode/opcodeToStr mirror the teacher's strToInstrMap/instrToStrMap
// split: one map for parsing mnemonics, one (derived) for printing them.
var strToOpcode = map[string]Opcode{
	string(LD): LD, string(SV): SV,
	string(ADD): ADD, string(SUB): SUB, string(MUL): MUL, string(DIV): DIV, string(MOD): MOD, string(CMP): CMP,
	string(JMP): JMP, string(JE): JE, string(JNE): JNE,
	string(IN): IN, string(OUT): OUT,
	string(STI): STI, string(CLI): CLI, string(IRET): IRET,
	string(HLT): HLT,
}

// ParseOpcode validates a mnemonic against the closed opcode set.
func ParseOpcode(s string) (Opcode, bool) {
	op, ok := strToOpcode[s]
	return op, ok
}

func (o Opcode) String() string { return string(o) }

// ArithmeticClass reports whether the opcode is ADD/SUB/MUL/DIV/MOD/CMP,
// which all share the `op out, arg1, arg2` encoding.
func (o Opcode) ArithmeticClass() bool {
	switch o {
	case ADD, SUB, MUL, DIV, MOD, CMP:
		return true
	default:
		return false
	}
}

// BranchClass reports whether the opcode is JMP/JE/JNE.
func (o Opcode) BranchClass() bool {
	switch o {
	case JMP, JE, JNE:
		return true
	default:
		return false
	}
}

// Nullary reports whether the opcode takes no operands.
func (o Opcode) Nullary() bool {
	switch o {
	case IRET, CLI, STI, HLT:
		return true
	default:
		return false
	}
}

// HasOut reports whether the instruction encoding carries an `out` register.
func (o Opcode) HasOut() bool {
	return o.ArithmeticClass() || o == LD
}

// HasArg1 reports whether the instruction encoding carries an `arg1` register.
func (o Opcode) HasArg1() bool {
	return o.ArithmeticClass() || o == JE || o == JNE || o == SV
}

// HasArg2 reports whether the instruction encoding carries an `arg2`
// (register-or-constant) operand.
func (o Opcode) HasArg2() bool {
	return o.ArithmeticClass() || o.BranchClass() || o == OUT || o == IN || o == LD || o == SV
}

// Register is one of the seven named 32-bit register-file slots.
type Register string

const (
	R0 Register = "r0"
	R1 Register = "r1"
	R2 Register = "r2"
	R3 Register = "r3"
	R4 Register = "r4"
	PC Register = "pc"
	SP Register = "sp"
)

var strToRegister = map[string]Register{
	string(R0): R0, string(R1): R1, string(R2): R2, string(R3): R3, string(R4): R4,
	string(PC): PC, string(SP): SP,
}

// ParseRegister validates a register name against the closed register set.
func ParseRegister(s string) (Register, bool) {
	r, ok := strToRegister[s]
	return r, ok
}

func (r Register) String() string { return string(r) }

// OperandKind tags whether a two-form operand (arg2) is a register name or
// a constant immediate.
type OperandKind string

const (
	KindRegister OperandKind = "reg"
	KindConstant OperandKind = "const"
)

// Operand is the `arg2`-shaped two-form operand: either a register or a
// 32-bit signed immediate.
type Operand struct {
	Kind  OperandKind
	Reg   Register
	Const int32
}

// RegisterOperand builds a register-kind operand.
func RegisterOperand(r Register) Operand {
	return Operand{Kind: KindRegister, Reg: r}
}

// ConstantOperand builds a constant-kind operand.
func ConstantOperand(c int32) Operand {
	return Operand{Kind: KindConstant, Const: c}
}

// Instruction is one post-assembly instruction record. Which of Arg1,
// Arg2, and Out are meaningful is determined entirely by Opcode's class
// (see HasArg1/HasArg2/HasOut) — mirrors the original's dict-shaped
// instruction records where only the applicable keys are present.
type Instruction struct {
	Opcode Opcode
	Arg1   Register
	Arg2   Operand
	Out    Register
}

// Artifact is the assembler's output and the simulator's input: a code
// list plus a data image whose first InterruptVectorSize cells are the
// interrupt vector.
type Artifact struct {
	Code []Instruction
	Data []int32
}

const (
	// DataMemSize is the size of user-addressable data memory, not
	// counting the two guard cells above it (see datapath's memGuardCells).
	DataMemSize = 10000
	// InterruptVectorSize is the number of interrupt-vector slots that
	// prefix data memory.
	InterruptVectorSize = 1
)

// ---- JSON encoding ----

type jsonInstruction struct {
	Opcode   string          `json:"opcode"`
	Arg1     string          `json:"arg1,omitempty"`
	Arg2     json.RawMessage `json:"arg2,omitempty"`
	Arg2Type string          `json:"arg2_type,omitempty"`
	Out      string          `json:"out,omitempty"`
}

// MarshalJSON emits only the fields applicable to the instruction's
// opcode class, matching the original's dict-with-only-applicable-keys
// artifact shape.
func (instr Instruction) MarshalJSON() ([]byte, error) {
	raw := jsonInstruction{Opcode: string(instr.Opcode)}
	if instr.Opcode.HasOut() {
		raw.Out = string(instr.Out)
	}
	if instr.Opcode.HasArg1() {
		raw.Arg1 = string(instr.Arg1)
	}
	if instr.Opcode.HasArg2() {
		raw.Arg2Type = string(instr.Arg2.Kind)
		if instr.Arg2.Kind == KindRegister {
			b, err := json.Marshal(string(instr.Arg2.Reg))
			if err != nil {
				return nil, err
			}
			raw.Arg2 = b
		} else {
			b, err := json.Marshal(instr.Arg2.Const)
			if err != nil {
				return nil, err
			}
			raw.Arg2 = b
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON validates that every enum-valued field is drawn from its
// closed set, per spec: a fatal load-time error otherwise.
func (instr *Instruction) UnmarshalJSON(data []byte) error {
	var raw jsonInstruction
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	op, ok := ParseOpcode(raw.Opcode)
	if !ok {
		return fmt.Errorf("isa: unknown opcode %q", raw.Opcode)
	}
	instr.Opcode = op

	if op.HasOut() {
		reg, ok := ParseRegister(raw.Out)
		if !ok {
			return fmt.Errorf("isa: %s: invalid out register %q", op, raw.Out)
		}
		instr.Out = reg
	}

	if op.HasArg1() {
		reg, ok := ParseRegister(raw.Arg1)
		if !ok {
			return fmt.Errorf("isa: %s: invalid arg1 register %q", op, raw.Arg1)
		}
		instr.Arg1 = reg
	}

	if op.HasArg2() {
		switch OperandKind(raw.Arg2Type) {
		case KindRegister:
			var name string
			if err := json.Unmarshal(raw.Arg2, &name); err != nil {
				return fmt.Errorf("isa: %s: invalid arg2: %w", op, err)
			}
			reg, ok := ParseRegister(name)
			if !ok {
				return fmt.Errorf("isa: %s: invalid arg2 register %q", op, name)
			}
			instr.Arg2 = RegisterOperand(reg)
		case KindConstant:
			var n int64
			if err := json.Unmarshal(raw.Arg2, &n); err != nil {
				return fmt.Errorf("isa: %s: invalid arg2 constant: %w", op, err)
			}
			instr.Arg2 = ConstantOperand(int32(n))
		default:
			return fmt.Errorf("isa: %s: invalid arg2_type %q", op, raw.Arg2Type)
		}
	}

	return nil
}

type jsonArtifact struct {
	Code []Instruction     `json:"code"`
	Data []json.RawMessage `json:"data"`
}

// MarshalJSON emits the data image as plain JSON integers.
func (a Artifact) MarshalJSON() ([]byte, error) {
	data := make([]int32, len(a.Data))
	copy(data, a.Data)
	return json.Marshal(struct {
		Code []Instruction `json:"code"`
		Data []int32       `json:"data"`
	}{a.Code, data})
}

// UnmarshalJSON accepts data cells encoded as either JSON numbers or
// numeric strings, coercing each to int32 (mirrors original_source's
// `int(cell)` coercion in isa.py's read_code), and is fatal otherwise.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var raw jsonArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Code = raw.Code
	a.Data = make([]int32, len(raw.Data))
	for i, cell := range raw.Data {
		var asNumber int64
		if err := json.Unmarshal(cell, &asNumber); err == nil {
			a.Data[i] = int32(asNumber)
			continue
		}

		var asString string
		if err := json.Unmarshal(cell, &asString); err != nil {
			return fmt.Errorf("isa: data[%d]: not a number or numeric string", i)
		}
		n, err := strconv.ParseInt(asString, 10, 32)
		if err != nil {
			return fmt.Errorf("isa: data[%d]: %q does not parse as an integer: %w", i, asString, err)
		}
		a.Data[i] = int32(n)
	}

	return nil
}

// Encode serializes the artifact to JSON.
func Encode(a Artifact) ([]byte, error) {
	return json.MarshalIndent(a, "", "    ")
}

// Decode deserializes and validates an artifact. Any schema violation
// (unknown opcode/register/operand kind, unparseable data cell) is a
// fatal load-time error.
func Decode(data []byte) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, err
	}
	return a, nil
}
