// Package cpu implements the control unit: fetch/decode/execute over
// microsteps, tick accounting, and interrupt admission. This is a
// line-for-line re-expression of original_source/processor.py's
// ControlUnit.decode_and_execute_instruction, with the Python original's
// exception-based termination (StopIteration/EOFError/MemoryError)
// re-expressed as an explicit StepResult per spec.md §9.
package cpu

import (
	"fmt"

	"rvm/internal/alu"
	"rvm/internal/datapath"
	"rvm/internal/isa"
	"rvm/internal/regfile"
)

// Outcome is the closed set of results a Step can produce.
type Outcome int

const (
	Continue Outcome = iota
	Halted
	InputExhausted
	ReadOnlyWrite
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Halted:
		return "halted"
	case InputExhausted:
		return "input_exhausted"
	case ReadOnlyWrite:
		return "read_only_write"
	default:
		return "unknown"
	}
}

// StepResult reports what happened during one Step call.
type StepResult struct {
	Outcome Outcome
	Err     error
}

// interruptVectorAddr is the single interrupt vector's data-memory slot.
const interruptVectorAddr = 0

// scratchOut is the harmless placeholder output register latched for
// instructions that never call WriteOutput (OUT, SV, the admission and
// branch-compare microsteps) — any non-r0 register works since it's
// never actually written; r1 matches the original's latch_registers
// default.
const scratchOut = isa.R1

var arithOp = map[isa.Opcode]alu.Operation{
	isa.ADD: alu.OpAdd,
	isa.SUB: alu.OpSub,
	isa.MUL: alu.OpMul,
	isa.DIV: alu.OpDiv,
	isa.MOD: alu.OpMod,
	isa.CMP: alu.OpCmp,
}

// CPU is the control unit: it owns the register file, drives the
// datapath through each instruction's microsequence, and tracks tick and
// instruction counts.
type CPU struct {
	Regs  *regfile.File
	DP    *datapath.Datapath
	Code  []isa.Instruction
	Sched *Schedule

	Tick       int
	InstrCount int

	intEnabled    bool
	isInterrupted bool
}

// New constructs a control unit over the given code, datapath, and
// interrupt schedule. Sched may be nil for programs with no interrupts.
func New(code []isa.Instruction, dp *datapath.Datapath, sched *Schedule) *CPU {
	return &CPU{Regs: regfile.New(), DP: dp, Code: code, Sched: sched}
}

// IntEnabled reports whether STI has enabled interrupt admission.
func (c *CPU) IntEnabled() bool { return c.intEnabled }

// IsInterrupted reports whether a handler is currently running.
func (c *CPU) IsInterrupted() bool { return c.isInterrupted }

// Step runs the admission check, then fetches and executes the
// instruction at (the possibly now-redirected) PC.
func (c *CPU) Step() StepResult {
	c.tryAdmitInterrupt()

	pc := c.Regs.Get(isa.PC)
	if pc < 0 || int(pc) >= len(c.Code) {
		return StepResult{Outcome: Halted}
	}
	instr := c.Code[pc]
	c.InstrCount++

	switch {
	case instr.Opcode == isa.HLT:
		return StepResult{Outcome: Halted}

	case instr.Opcode == isa.IRET:
		return c.stepIRET()

	case instr.Opcode.BranchClass():
		return c.stepBranch(instr, pc)

	case instr.Opcode.ArithmeticClass():
		return c.stepArithmetic(instr, pc)

	case instr.Opcode == isa.LD:
		return c.stepLoad(instr, pc)

	case instr.Opcode == isa.SV:
		return c.stepStore(instr, pc)

	case instr.Opcode == isa.OUT:
		return c.stepOut(instr, pc)

	case instr.Opcode == isa.IN:
		return c.stepIn(instr, pc)

	case instr.Opcode == isa.STI:
		c.intEnabled = true
		c.Tick++
		c.advance(pc)
		return StepResult{Outcome: Continue}

	case instr.Opcode == isa.CLI:
		c.intEnabled = false
		c.Tick++
		c.advance(pc)
		return StepResult{Outcome: Continue}
	}

	return StepResult{Outcome: Halted, Err: fmt.Errorf("cpu: unhandled opcode %s", instr.Opcode)}
}

// advance performs the free latch_program_counter microstep: PC <- PC+1.
// It never costs a tick.
func (c *CPU) advance(pc int32) {
	_ = c.Regs.Set(isa.PC, pc+1)
}

// tryAdmitInterrupt runs the 3-tick admission sequence if interrupts are
// enabled, no handler is currently running, the schedule is non-empty,
// and the current tick has reached the schedule's minimum key.
func (c *CPU) tryAdmitInterrupt() {
	if !c.intEnabled || c.isInterrupted || c.Sched == nil || c.Sched.Empty() {
		return
	}
	minTick, _ := c.Sched.MinTick()
	if c.Tick < minTick {
		return
	}
	pending, _ := c.Sched.Pop()

	// 1. push: memory[SP] <- PC, address via ALU LEFT.
	_ = c.Regs.Latch(isa.SP, isa.PC, scratchOut)
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), 0, false)
	c.DP.ExecuteALU(alu.OpLeft)
	c.DP.Write()
	c.Tick++

	// 2. SP <- SP - 1.
	_ = c.Regs.Latch(isa.SP, isa.R0, isa.SP)
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), 0, false)
	c.DP.ExecuteALU(alu.OpDec)
	c.Regs.WriteOutput(c.DP.OutputBus())
	c.Tick++

	// 3. PC <- memory[interrupt_vector[0]].
	_ = c.Regs.Latch(isa.R0, isa.R0, isa.PC)
	c.DP.LatchALU(0, 0, int32(interruptVectorAddr), true)
	c.DP.ExecuteALU(alu.OpRight)
	c.DP.Read()
	c.Regs.WriteOutput(c.DP.OutputBus())
	c.Tick++

	c.DP.AppendInterrupt(pending.payload)
	c.isInterrupted = true
}

func (c *CPU) stepIRET() StepResult {
	// 1. SP <- SP + 1.
	_ = c.Regs.Latch(isa.SP, isa.R0, isa.SP)
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), 0, false)
	c.DP.ExecuteALU(alu.OpInc)
	c.Regs.WriteOutput(c.DP.OutputBus())
	c.Tick++

	// 2. PC <- memory[SP], address via ALU LEFT.
	_ = c.Regs.Latch(isa.SP, isa.R0, isa.PC)
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), 0, false)
	c.DP.ExecuteALU(alu.OpLeft)
	c.DP.Read()
	c.Regs.WriteOutput(c.DP.OutputBus())
	c.Tick++

	c.isInterrupted = false
	return StepResult{Outcome: Continue}
}

func (c *CPU) stepBranch(instr isa.Instruction, pc int32) StepResult {
	zero := c.DP.ZeroFlag()
	if instr.Opcode != isa.JMP {
		_ = c.Regs.Latch(instr.Arg1, isa.R0, scratchOut)
		c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), 0, false)
		c.DP.ExecuteALU(alu.OpCmp)
		c.Tick++
		zero = c.DP.ZeroFlag()
	}

	taken := instr.Opcode == isa.JMP ||
		(instr.Opcode == isa.JE && zero) ||
		(instr.Opcode == isa.JNE && !zero)

	if !taken {
		c.advance(pc)
		return StepResult{Outcome: Continue}
	}

	useConst := instr.Arg2.Kind == isa.KindConstant
	targetReg := isa.R0
	if !useConst {
		targetReg = instr.Arg2.Reg
	}
	_ = c.Regs.Latch(isa.R0, targetReg, isa.PC)
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), instr.Arg2.Const, useConst)
	c.DP.ExecuteALU(alu.OpRight)
	c.Regs.WriteOutput(c.DP.OutputBus())
	c.Tick++
	return StepResult{Outcome: Continue}
}

func (c *CPU) stepArithmetic(instr isa.Instruction, pc int32) StepResult {
	useConst := instr.Arg2.Kind == isa.KindConstant
	arg2Reg := isa.R0
	if !useConst {
		arg2Reg = instr.Arg2.Reg
	}
	if err := c.Regs.Latch(instr.Arg1, arg2Reg, instr.Out); err != nil {
		return StepResult{Outcome: ReadOnlyWrite, Err: err}
	}
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), instr.Arg2.Const, useConst)
	c.DP.ExecuteALU(arithOp[instr.Opcode])
	c.Regs.WriteOutput(c.DP.OutputBus())
	c.Tick++
	c.advance(pc)
	return StepResult{Outcome: Continue}
}

func (c *CPU) stepLoad(instr isa.Instruction, pc int32) StepResult {
	useConst := instr.Arg2.Kind == isa.KindConstant
	addrReg := isa.R0
	if !useConst {
		addrReg = instr.Arg2.Reg
	}
	if err := c.Regs.Latch(isa.R0, addrReg, instr.Out); err != nil {
		return StepResult{Outcome: ReadOnlyWrite, Err: err}
	}
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), instr.Arg2.Const, useConst)
	c.DP.ExecuteALU(alu.OpRight)
	c.DP.Read()
	c.Regs.WriteOutput(c.DP.OutputBus())
	c.Tick++
	c.advance(pc)
	return StepResult{Outcome: Continue}
}

func (c *CPU) stepStore(instr isa.Instruction, pc int32) StepResult {
	useConst := instr.Arg2.Kind == isa.KindConstant
	addrReg := isa.R0
	op := alu.OpRight
	if !useConst {
		addrReg = instr.Arg2.Reg
		op = alu.OpLeft
	}
	// operand_1 carries the address (register form); operand_2 always
	// carries the value to store, since data_bus <- regs[operand_2].
	if err := c.Regs.Latch(addrReg, instr.Arg1, scratchOut); err != nil {
		return StepResult{Outcome: ReadOnlyWrite, Err: err}
	}
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), instr.Arg2.Const, useConst)
	c.DP.ExecuteALU(op)
	c.DP.Write()
	c.Tick++
	c.advance(pc)
	return StepResult{Outcome: Continue}
}

func (c *CPU) stepOut(instr isa.Instruction, pc int32) StepResult {
	useConst := instr.Arg2.Kind == isa.KindConstant
	srcReg := isa.R0
	if !useConst {
		srcReg = instr.Arg2.Reg
	}
	_ = c.Regs.Latch(isa.R0, srcReg, scratchOut)
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), instr.Arg2.Const, useConst)
	c.DP.ExecuteALU(alu.OpRight)
	c.DP.Print()
	c.Tick++
	c.advance(pc)
	return StepResult{Outcome: Continue}
}

func (c *CPU) stepIn(instr isa.Instruction, pc int32) StepResult {
	if err := c.Regs.Latch(isa.R0, isa.R0, instr.Arg2.Reg); err != nil {
		return StepResult{Outcome: ReadOnlyWrite, Err: err}
	}
	c.DP.LatchALU(c.Regs.Operand1(), c.Regs.Operand2(), 0, false)
	c.DP.ExecuteALU(alu.OpNop)
	if err := c.DP.Input(); err != nil {
		return StepResult{Outcome: InputExhausted, Err: err}
	}
	c.Regs.WriteOutput(c.DP.OutputBus())
	c.Tick++
	c.advance(pc)
	return StepResult{Outcome: Continue}
}
