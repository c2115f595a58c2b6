package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPlacesFontAndPC(t *testing.T) {
	s := New()
	assert.Equal(t, uint16(ProgramStart), s.PC)
	assert.Equal(t, byte(1), s.ShouldRun)
	assert.Equal(t, byte(0xF0), s.Mem[0])
	assert.Equal(t, byte(0x80), s.Mem[79])
}

func TestInvariantsOnFreshState(t *testing.T) {
	s := New()

	assert.True(t, s.PC%2 == 0, "pc must be even")
	assert.True(t, s.PC >= ProgramStart && int(s.PC) < MemSize)
	assert.True(t, int(s.SP) >= 0 && int(s.SP) <= StackDepth)

	for i, v := range s.Regs {
		assert.True(t, v <= 255, "regs[%d] out of range", i)
	}
}

func TestResetClearsTransientStateButKeepsFont(t *testing.T) {
	s := New()
	s.PC = 0x300
	s.SP = 3
	s.Regs[0] = 0x42
	s.Fb[5] = 1
	s.Keys[3] = 1

	s.Reset()

	assert.Equal(t, uint16(ProgramStart), s.PC)
	assert.Equal(t, byte(0), s.SP)
	assert.Equal(t, byte(0), s.Regs[0])
	assert.Equal(t, byte(0), s.Fb[5])
	assert.Equal(t, byte(0), s.Keys[3])
	assert.Equal(t, byte(0xF0), s.Mem[0], "font must survive reset")
	assert.True(t, s.Running())
}

func TestHalt(t *testing.T) {
	s := New()
	assert.True(t, s.Running())
	s.Halt()
	assert.False(t, s.Running())
}

func TestOffsetsAreStable(t *testing.T) {
	// The offset table must place Mem first (offset 0) since it is the
	// largest, most frequently addressed field, and every other offset
	// must be strictly increasing in declaration order.
	assert.Equal(t, uintptr(0), FieldOffsets.Mem)
	assert.True(t, FieldOffsets.Regs > FieldOffsets.Mem)
	assert.True(t, FieldOffsets.I > FieldOffsets.Regs)
	assert.True(t, FieldOffsets.PC > FieldOffsets.Sound)
	assert.True(t, FieldOffsets.Stack > FieldOffsets.SP)
	assert.True(t, FieldOffsets.Fb > FieldOffsets.Stack)
	assert.True(t, FieldOffsets.Keys > FieldOffsets.Fb)
	assert.True(t, FieldOffsets.ShouldRun > FieldOffsets.Keys)
	assert.True(t, FieldOffsets.Fault > FieldOffsets.ShouldRun)
	assert.True(t, FieldOffsets.Size > FieldOffsets.Fault)
}

func TestResetClearsFault(t *testing.T) {
	s := New()
	s.Fault = FaultStackOverflow
	s.Reset()
	assert.Equal(t, byte(FaultNone), s.Fault)
}

func TestErrorKinds(t *testing.T) {
	assert.Contains(t, RomTooLarge{Size: 5000, Max: 3584}.Error(), "too large")
	assert.Contains(t, DecodeError{PC: 0x200, Word: 0xFFFF}.Error(), "0200")
	assert.Contains(t, StackOverflow{PC: 0x210}.Error(), "overflow")
	assert.Contains(t, StackUnderflow{PC: 0x210}.Error(), "underflow")
	assert.Contains(t, OutOfMemory{Reason: "mmap failed"}.Error(), "mmap failed")
}
