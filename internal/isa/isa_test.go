package isa

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestRoundTripArtifact(t *testing.T) {
	original := Artifact{
		Code: []Instruction{
			{Opcode: ADD, Out: R2, Arg1: R1, Arg2: RegisterOperand(R3)},
			{Opcode: LD, Out: R1, Arg2: ConstantOperand(42)},
			{Opcode: SV, Arg1: R1, Arg2: ConstantOperand(-7)},
			{Opcode: JE, Arg1: R0, Arg2: ConstantOperand(3)},
			{Opcode: OUT, Arg2: RegisterOperand(R2)},
			{Opcode: IN, Arg2: RegisterOperand(R1)},
			{Opcode: STI},
			{Opcode: CLI},
			{Opcode: IRET},
			{Opcode: HLT},
		},
		Data: []int32{0, 104, 101, 108, 108, 111},
	}

	encoded, err := Encode(original)
	assert(t, err == nil, "encode failed: %v", err)

	decoded, err := Decode(encoded)
	assert(t, err == nil, "decode failed: %v", err)

	assert(t, len(decoded.Code) == len(original.Code), "code length mismatch")
	for i := range original.Code {
		assert(t, decoded.Code[i] == original.Code[i], "instruction %d mismatch: got %+v want %+v", i, decoded.Code[i], original.Code[i])
	}
	assert(t, len(decoded.Data) == len(original.Data), "data length mismatch")
	for i := range original.Data {
		assert(t, decoded.Data[i] == original.Data[i], "data[%d] mismatch: got %d want %d", i, decoded.Data[i], original.Data[i])
	}
}

func TestDecodeCoercesStringData(t *testing.T) {
	decoded, err := Decode([]byte(`{"code":[{"opcode":"halt"}],"data":["3","-1",5]}`))
	assert(t, err == nil, "decode failed: %v", err)
	assert(t, decoded.Data[0] == 3 && decoded.Data[1] == -1 && decoded.Data[2] == 5, "unexpected data: %v", decoded.Data)
}

func TestDecodeRejectsUnknownOpcode(t *testing.T) {
	_, err := Decode([]byte(`{"code":[{"opcode":"bogus"}],"data":[]}`))
	assert(t, err != nil, "expected decode error for unknown opcode")
}

func TestDecodeRejectsUnknownRegister(t *testing.T) {
	_, err := Decode([]byte(`{"code":[{"opcode":"ld","out":"r9","arg2":1,"arg2_type":"const"}],"data":[]}`))
	assert(t, err != nil, "expected decode error for unknown register")
}

func TestDecodeRejectsUnparseableData(t *testing.T) {
	_, err := Decode([]byte(`{"code":[],"data":["not-a-number"]}`))
	assert(t, err != nil, "expected decode error for unparseable data cell")
}
