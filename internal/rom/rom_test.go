package rom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-rip8/rip8/internal/state"
)

func TestLoadBytesPlacesProgramAtProgramStart(t *testing.T) {
	s := state.New()
	program := []byte{0x12, 0x00, 0xAB, 0xCD}

	require.NoError(t, LoadBytes(s, program))

	assert.Equal(t, program, s.Mem[state.ProgramStart:state.ProgramStart+len(program)])
	assert.Equal(t, uint16(state.ProgramStart), s.PC)
	assert.Equal(t, byte(0xF0), s.Mem[0], "font must be untouched")
}

func TestLoadBytesRejectsOversizedRom(t *testing.T) {
	s := state.New()
	program := make([]byte, MaxSize+1)

	err := LoadBytes(s, program)
	require.Error(t, err)

	var tooLarge state.RomTooLarge
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, MaxSize+1, tooLarge.Size)
}

func TestLoadBytesAcceptsExactlyMaxSize(t *testing.T) {
	s := state.New()
	program := make([]byte, MaxSize)

	assert.NoError(t, LoadBytes(s, program))
}
