// Package regfile implements the register file: the seven named 32-bit
// registers plus the three selector latches (operand1, operand2, output)
// that the control unit sets before every ALU cycle.
package regfile

import "rvm/internal/isa"

// Fault is returned when a latch or write targets r0, the read-only
// zero register.
type Fault struct {
	Msg string
}

func (f *Fault) Error() string { return f.Msg }

// File holds the seven named registers and the current latch selection.
type File struct {
	values   map[isa.Register]int32
	operand1 isa.Register
	operand2 isa.Register
	output   isa.Register
}

// New returns a register file with SP initialized to the top of data
// memory (the stack grows downward from there) and every other register
// at zero.
func New() *File {
	return &File{
		values: map[isa.Register]int32{
			isa.R0: 0, isa.R1: 0, isa.R2: 0, isa.R3: 0, isa.R4: 0,
			isa.PC: 0,
			isa.SP: int32(isa.DataMemSize),
		},
		operand1: isa.R0,
		operand2: isa.R0,
		output:   isa.R1,
	}
}

// Latch selects which registers the next ALU cycle reads from (operand1,
// operand2) and writes to (output). Latching r0 as the output register is
// a fault — r0 is read-only from the program's perspective.
func (f *File) Latch(operand1, operand2, output isa.Register) error {
	if output == isa.R0 {
		return &Fault{Msg: "regfile: attempted write to r0"}
	}
	f.operand1 = operand1
	f.operand2 = operand2
	f.output = output
	return nil
}

// Operand1 returns the value of the currently latched first operand.
func (f *File) Operand1() int32 { return f.values[f.operand1] }

// Operand2 returns the value of the currently latched second operand.
func (f *File) Operand2() int32 { return f.values[f.operand2] }

// WriteOutput writes v to the currently latched output register. Callers
// must have latched via Latch first, which already rejects r0 as output.
func (f *File) WriteOutput(v int32) { f.values[f.output] = v }

// Get reads a register directly, bypassing the latch — used by the
// control unit for PC/SP bookkeeping that isn't routed through the ALU.
func (f *File) Get(r isa.Register) int32 { return f.values[r] }

// Set writes a register directly, bypassing the latch. Writing r0 is a
// fault.
func (f *File) Set(r isa.Register, v int32) error {
	if r == isa.R0 {
		return &Fault{Msg: "regfile: attempted write to r0"}
	}
	f.values[r] = v
	return nil
}
