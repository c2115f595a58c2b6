package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-rip8/rip8/internal/state"
)

func decodeWord(t *testing.T, word uint16) Instruction {
	t.Helper()
	mem := make([]byte, state.MemSize)
	mem[0x200] = byte(word >> 8)
	mem[0x201] = byte(word)
	inst, err := Decode(mem, 0x200)
	require.NoError(t, err)
	return inst
}

func TestDecodeBasicForms(t *testing.T) {
	cases := []struct {
		word uint16
		op   Op
	}{
		{0x00E0, CLS},
		{0x00EE, RET},
		{0x0123, SYS},
		{0x1ABC, JP},
		{0x2ABC, CALL},
		{0x3A12, SEVxKK},
		{0x4A12, SNEVxKK},
		{0x5AB0, SEVxVy},
		{0x6A12, LDVxKK},
		{0x7A12, ADDVxKK},
		{0x8AB0, LDVxVy},
		{0x8AB1, OR},
		{0x8AB2, AND},
		{0x8AB3, XOR},
		{0x8AB4, ADDVxVy},
		{0x8AB5, SUB},
		{0x8AB6, SHR},
		{0x8AB7, SUBN},
		{0x8ABE, SHL},
		{0x9AB0, SNEVxVy},
		{0xAABC, LDInnn},
		{0xBABC, JPV0},
		{0xCA12, RND},
		{0xDAB5, DRW},
		{0xEA9E, SKP},
		{0xEAA1, SKNP},
		{0xFA07, LDVxDT},
		{0xFA0A, LDVxK},
		{0xFA15, LDDTVx},
		{0xFA18, LDSTVx},
		{0xFA1E, ADDIVx},
		{0xFA29, LDFVx},
		{0xFA33, LDBVx},
		{0xFA55, LDIVx},
		{0xFA65, LDVxI},
	}

	for _, c := range cases {
		inst := decodeWord(t, c.word)
		assert.Equalf(t, c.op, inst.Op, "word %04X", c.word)
	}
}

func TestDecodeOperandExtraction(t *testing.T) {
	inst := decodeWord(t, 0xD4F5) // DRW V4, VF, 5
	assert.Equal(t, byte(0x4), inst.X)
	assert.Equal(t, byte(0xF), inst.Y)
	assert.Equal(t, byte(0x5), inst.N)

	inst = decodeWord(t, 0x3A42) // SE VA, #42
	assert.Equal(t, byte(0xA), inst.X)
	assert.Equal(t, byte(0x42), inst.KK)

	inst = decodeWord(t, 0x1ABC) // JP #ABC
	assert.Equal(t, uint16(0xABC), inst.NNN)
}

func TestDecodeUnknownOpcodeErrors(t *testing.T) {
	mem := make([]byte, state.MemSize)
	mem[0x200] = 0x91
	mem[0x201] = 0x2F // 0x912F is not a valid form (9xy0 is the only 9xyN)

	_, err := Decode(mem, 0x200)
	require.Error(t, err)

	var decErr state.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, uint16(0x200), decErr.PC)
}

func TestDecodeAtLastMemoryAddressErrorsInsteadOfPanicking(t *testing.T) {
	mem := make([]byte, state.MemSize)
	mem[state.MemSize-1] = 0x12 // only one byte left: not enough for a full word

	_, err := Decode(mem, uint16(state.MemSize-1))
	require.Error(t, err)

	var decErr state.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, uint16(state.MemSize-1), decErr.PC)
}

func TestIsTerminator(t *testing.T) {
	terminators := []Op{JP, CALL, RET, JPV0, SYS, SEVxKK, SEVxVy, SNEVxKK, SNEVxVy, SKP, SKNP}
	for _, op := range terminators {
		assert.True(t, IsTerminator(op))
	}

	nonTerminators := []Op{CLS, LDVxKK, LDVxVy, LDInnn, ADDVxKK, ADDVxVy, OR, AND, XOR,
		SUB, SUBN, SHR, SHL, RND, DRW, LDVxDT, LDDTVx, LDSTVx, LDFVx, LDBVx, LDIVx, LDVxI}
	for _, op := range nonTerminators {
		assert.False(t, IsTerminator(op))
	}
}
