// Package datapath implements the memory, buses, and I/O buffers that
// sit between the register file and the outside world: data memory, the
// three internal buses the control unit latches values onto one
// microstep at a time, and the input/output buffers that IN/OUT read
// and write. This follows original_source/processor.py's DataPath class
// (latch_alu/execute_alu/write/read/print/input; latch_output is done by
// regfile.File.WriteOutput), kept as one small mutating method per
// microstep the way the teacher's vm.go accessors are structured.
package datapath

import (
	"errors"
	"strconv"

	"rvm/internal/alu"
	"rvm/internal/isa"
)

// Mode selects how OUT renders a value into the output buffer.
type Mode int

const (
	// ModeString renders each printed value as the character with that
	// code point (spec.md's "str" mode).
	ModeString Mode = iota
	// ModeInt renders each printed value as the literal decimal digits of
	// the value itself, concatenated with no separator.
	ModeInt
)

// ErrInputExhausted is returned by Input when the input buffer has been
// fully consumed — the simulator maps this to a clean termination rather
// than a crash.
var ErrInputExhausted = errors.New("datapath: input exhausted")

// memGuardCells extends data memory two cells past DataMemSize so that a
// stack push at the very top of memory (SP starting at DataMemSize) never
// indexes out of the backing array. There is no stack-overflow check.
const memGuardCells = 2

// Datapath holds data memory, the three buses, and the I/O buffers.
type Datapath struct {
	memory []int32

	left, right int32 // ALU inputs latched by LatchALU
	aluBus      int32
	outputBus   int32
	dataBus     int32
	zeroFlag    bool

	inputBuffer  []int32
	inputPointer int

	outputBuffer []int32
	mode         Mode
}

// New allocates data memory (pre-loaded with the assembled data image)
// and an input buffer of character code points, in the given render mode.
func New(data []int32, input []rune, mode Mode) *Datapath {
	mem := make([]int32, isa.DataMemSize+memGuardCells)
	copy(mem, data)

	in := make([]int32, len(input))
	for i, r := range input {
		in[i] = int32(r)
	}

	return &Datapath{memory: mem, inputBuffer: in, mode: mode}
}

// LatchALU drives the ALU's inputs for the next ExecuteALU: left always
// comes from the currently-selected operand_1 register; right comes from
// constVal if useConst, else from operand_2. data_bus is always set from
// operand_2's value regardless of useConst — SV relies on this to carry
// the value to store while addressing through operand_1.
func (d *Datapath) LatchALU(operand1, operand2, constVal int32, useConst bool) {
	d.left = operand1
	if useConst {
		d.right = constVal
	} else {
		d.right = operand2
	}
	d.dataBus = operand2
}

// ExecuteALU applies op to the latched inputs, storing the result on both
// the ALU bus and the output bus, and updates the zero flag.
func (d *Datapath) ExecuteALU(op alu.Operation) {
	r := alu.Execute(op, d.left, d.right)
	d.aluBus = r.Value
	d.outputBus = r.Value
	d.zeroFlag = r.Zero
}

// ALUBus returns the value currently latched on the ALU bus.
func (d *Datapath) ALUBus() int32 { return d.aluBus }

// OutputBus returns the value currently latched on the output bus.
func (d *Datapath) OutputBus() int32 { return d.outputBus }

// ZeroFlag returns the zero flag from the most recent ALU evaluation.
func (d *Datapath) ZeroFlag() bool { return d.zeroFlag }

// Write stores the data bus's value into data memory at the address on
// the ALU bus.
func (d *Datapath) Write() {
	d.memory[d.aluBus] = d.dataBus
}

// Read loads data memory at the address on the ALU bus onto the output
// bus.
func (d *Datapath) Read() {
	d.outputBus = d.memory[d.aluBus]
}

// Print appends the ALU bus's current value to the output buffer.
func (d *Datapath) Print() {
	d.outputBuffer = append(d.outputBuffer, d.aluBus)
}

// Input consumes the next value from the input buffer, latching it onto
// the output bus. Returns ErrInputExhausted once the buffer is empty.
func (d *Datapath) Input() error {
	if d.inputPointer >= len(d.inputBuffer) {
		return ErrInputExhausted
	}
	d.outputBus = d.inputBuffer[d.inputPointer]
	d.inputPointer++
	return nil
}

// AppendInterrupt appends a single value (the interrupt's payload) to the
// tail of the input buffer, so a later IN sees it the same way it would
// see ordinary program input.
func (d *Datapath) AppendInterrupt(v int32) {
	d.inputBuffer = append(d.inputBuffer, v)
}

// Output renders the accumulated output buffer to its final string form,
// per the datapath's render mode.
func (d *Datapath) Output() string {
	switch d.mode {
	case ModeInt:
		s := ""
		for _, v := range d.outputBuffer {
			s += strconv.FormatInt(int64(v), 10)
		}
		return s
	default:
		runes := make([]rune, len(d.outputBuffer))
		for i, v := range d.outputBuffer {
			runes[i] = rune(v)
		}
		return string(runes)
	}
}
