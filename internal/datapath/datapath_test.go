package datapath

import (
	"testing"

	"rvm/internal/alu"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	d := New(nil, nil, ModeString)

	// Store 7 at address 10: right=address(10, via const), data_bus must
	// carry the value to store (7), so operand2=7.
	d.LatchALU(0, 7, 10, true)
	d.ExecuteALU(alu.OpRight) // alu_bus = 10 (the address)
	d.Write()

	d.LatchALU(10, 0, 0, false)
	d.ExecuteALU(alu.OpLeft) // alu_bus = 10 again
	d.Read()
	assert(t, d.OutputBus() == 7, "expected 7 at address 10, got %d", d.OutputBus())
}

func TestInputExhaustion(t *testing.T) {
	d := New(nil, []rune("hi"), ModeString)
	assert(t, d.Input() == nil, "first input should succeed")
	assert(t, d.OutputBus() == 'h', "expected 'h', got %q", rune(d.OutputBus()))
	assert(t, d.Input() == nil, "second input should succeed")
	assert(t, d.OutputBus() == 'i', "expected 'i', got %q", rune(d.OutputBus()))
	err := d.Input()
	assert(t, err == ErrInputExhausted, "expected exhaustion error, got %v", err)
}

func TestOutputStringMode(t *testing.T) {
	d := New(nil, nil, ModeString)
	for _, c := range "hi" {
		d.LatchALU(int32(c), 0, 0, false)
		d.ExecuteALU(alu.OpLeft)
		d.Print()
	}
	assert(t, d.Output() == "hi", "expected \"hi\", got %q", d.Output())
}

func TestOutputIntMode(t *testing.T) {
	d := New(nil, nil, ModeInt)
	for _, digit := range []int32{4, 6, 1, 3} {
		d.LatchALU(digit, 0, 0, false)
		d.ExecuteALU(alu.OpLeft)
		d.Print()
	}
	assert(t, d.Output() == "4613", "expected \"4613\", got %q", d.Output())
}

func TestAppendInterruptExtendsInputBuffer(t *testing.T) {
	d := New(nil, nil, ModeString)
	d.AppendInterrupt('x')
	err := d.Input()
	assert(t, err == nil, "input should succeed after interrupt append")
	assert(t, d.OutputBus() == 'x', "expected 'x', got %q", rune(d.OutputBus()))
}
