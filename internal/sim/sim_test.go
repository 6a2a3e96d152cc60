package sim

import (
	"fmt"
	"testing"

	"rvm/internal/asm"
	"rvm/internal/cpu"
	"rvm/internal/datapath"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// TestEchoTerminatesOnSentinel assembles a program that enables
// interrupts, spins waiting for admission, and on each admitted
// character either echoes it (handler: in, out, iret) or halts when it
// reads the sentinel zero. The schedule supplies "hello world" followed
// by a terminating zero.
func TestEchoTerminatesOnSentinel(t *testing.T) {
	src := `
section text
	sti
loop:
	jmp loop
handler:
	in r1
	je r1 stop
	out r1
	iret
stop:
	halt
section data
	int 0 handler
`
	a, err := asm.Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)

	word := "hello world"
	schedule := make(map[int]int32, len(word)+1)
	tick := 5
	for _, r := range word {
		schedule[tick] = int32(r)
		tick += 10
	}
	schedule[tick] = 0 // sentinel

	res, err := Run(a, schedule, Options{Mode: datapath.ModeString})
	assert(t, err == nil, "run failed: %v", err)
	assert(t, res.Outcome == cpu.Halted, "expected clean halt, got %v", res.Outcome)
	assert(t, res.Output == word, "expected %q, got %q", word, res.Output)
}

// TestHelloWorldStoredBytesNoInterrupts assembles a program that stores
// "hello world" as word cells in the data section and emits them in
// sequence via unrolled immediate-addressed LD/OUT pairs (this ISA has
// no load-address opcode, so pointer arithmetic into a label is not
// expressible — each cell is addressed by its own label instead).
func TestHelloWorldStoredBytesNoInterrupts(t *testing.T) {
	word := "hello world"

	data := "section data\n"
	for i, r := range word {
		data += fmt.Sprintf("c%d:\n\tword '%c'\n", i, r)
	}
	text := "section text\n"
	for i := range word {
		text += fmt.Sprintf("\tld r1 c%d\n\tout r1\n", i)
	}
	text += "\thalt\n"

	a, err := asm.Assemble(data + text)
	assert(t, err == nil, "assemble failed: %v", err)

	res, err := Run(a, nil, Options{Mode: datapath.ModeString})
	assert(t, err == nil, "run failed: %v", err)
	assert(t, res.Outcome == cpu.Halted, "expected clean halt, got %v", res.Outcome)
	assert(t, res.Output == word, "expected %q, got %q", word, res.Output)
}

// TestSumOfEvenFibonacciBelowFourMillion computes the Project-Euler-style
// sum of even Fibonacci terms not exceeding 4,000,000 (a0=1, a1=2, ...;
// 31 terms from a1 through a31=3524578 stay within the bound) and prints
// the decimal sum in int mode, most-significant digit first.
func TestSumOfEvenFibonacciBelowFourMillion(t *testing.T) {
	src := `
section data
sumcell:
	word 0
digits:
	word 0
	word 0
	word 0
	word 0
	word 0
	word 0
	word 0
	word 0
section text
	add r1 r0 1
	add r2 r0 2
	add r4 r0 31
fibloop:
	je r4 fibdone
	mod r3 r2 2
	jne r3 fibskip
	ld r3 sumcell
	add r3 r3 r2
	sv r3 sumcell
fibskip:
	add r3 r1 r2
	add r1 r2 r0
	add r2 r3 r0
	sub r4 r4 1
	jmp fibloop
fibdone:
	ld r1 sumcell
	add r2 r0 0
extract:
	je r1 printsetup
	mod r3 r1 10
	add r4 r2 2
	sv r3 r4
	add r2 r2 1
	div r1 r1 10
	jmp extract
printsetup:
	sub r2 r2 1
printloop:
	add r4 r2 2
	ld r3 r4
	out r3
	je r2 printdone
	sub r2 r2 1
	jmp printloop
printdone:
	halt
`
	a, err := asm.Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)

	res, err := Run(a, nil, Options{Mode: datapath.ModeInt, Limit: 10000})
	assert(t, err == nil, "run failed: %v", err)
	assert(t, res.Outcome == cpu.Halted, "expected clean halt, got %v", res.Outcome)
	assert(t, res.Output == "4613732", "expected \"4613732\", got %q", res.Output)
}

// TestVariableStorageLoadsEachWithImmediateAddress defines word cells for
// 't','e','s','t' and loads/prints each with its own immediate-address LD.
func TestVariableStorageLoadsEachWithImmediateAddress(t *testing.T) {
	src := `
section data
c0:
	word 't'
c1:
	word 'e'
c2:
	word 's'
c3:
	word 't'
section text
	ld r1 c0
	out r1
	ld r1 c1
	out r1
	ld r1 c2
	out r1
	ld r1 c3
	out r1
	halt
`
	a, err := asm.Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)

	res, err := Run(a, nil, Options{Mode: datapath.ModeString})
	assert(t, err == nil, "run failed: %v", err)
	assert(t, res.Outcome == cpu.Halted, "expected clean halt, got %v", res.Outcome)
	assert(t, res.Output == "test", "expected \"test\", got %q", res.Output)
}

// TestWriteToR0TerminatesCleanlyWithFault assembles a program whose first
// instruction targets r0 as its output register — syntactically legal,
// but a runtime fault per spec.md's read-only-register rule.
func TestWriteToR0TerminatesCleanlyWithFault(t *testing.T) {
	src := `
section text
	add r0 r1 1
	halt
`
	a, err := asm.Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)

	res, err := Run(a, nil, Options{Mode: datapath.ModeString})
	assert(t, err == nil, "run should return a clean result, not a Go error: %v", err)
	assert(t, res.Outcome == cpu.ReadOnlyWrite, "expected ReadOnlyWrite outcome, got %v", res.Outcome)
}

// TestInterruptHandlerEchoesSingleScheduledCharacter exercises the
// minimal interrupt round trip: one scheduled admission at tick 5
// delivers 'x', the handler echoes it and sets a completion flag, and
// the main spin loop halts once it observes that flag.
func TestInterruptHandlerEchoesSingleScheduledCharacter(t *testing.T) {
	src := `
section data
doneflag:
	word 0
section text
	sti
spin:
	ld r1 doneflag
	jne r1 finish
	jmp spin
handler:
	in r2
	out r2
	add r3 r0 1
	sv r3 doneflag
	iret
finish:
	halt
section data
	int 0 handler
`
	a, err := asm.Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)

	res, err := Run(a, map[int]int32{5: int32('x')}, Options{Mode: datapath.ModeString})
	assert(t, err == nil, "run failed: %v", err)
	assert(t, res.Outcome == cpu.Halted, "expected clean halt, got %v", res.Outcome)
	assert(t, res.Output == "x", "expected \"x\", got %q", res.Output)
}
