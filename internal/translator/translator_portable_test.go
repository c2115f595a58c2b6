package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-rip8/rip8/internal/decoder"
	"github.com/kessler-rip8/rip8/internal/helpers"
	"github.com/kessler-rip8/rip8/internal/state"
)

// newFixture returns a Translator over a fresh memory image and a zeroed
// (never registered) trampoline table: every test in this file only checks
// properties of the emitted byte stream, not its execution, so the helper
// pointers are never dereferenced.
func newFixture(t *testing.T, program map[uint16]uint16) *Translator {
	t.Helper()
	mem := make([]byte, state.MemSize)
	for pc, word := range program {
		mem[pc] = byte(word >> 8)
		mem[pc+1] = byte(word)
	}
	return New(mem, &helpers.Trampolines{})
}

func TestTranslateStopsAtFirstTerminator(t *testing.T) {
	tr := newFixture(t, map[uint16]uint16{
		0x200: 0x6005, // LD V0, 0x05 (non-terminator)
		0x202: 0x7001, // ADD V0, 0x01 (non-terminator)
		0x204: 0x1300, // JP 0x300 (terminator)
		0x206: 0x00E0, // CLS -- must never be reached by this block
	})

	code, end, err := tr.Translate(0x200)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, uint16(0x206), end, "block ends one past the JP, not past the CLS after it")
}

func TestTranslateStopsAtLdVxKEvenThoughDecoderDoesNotMarkItTerminator(t *testing.T) {
	tr := newFixture(t, map[uint16]uint16{
		0x200: 0xF20A, // LD V2, K
		0x202: 0x00E0, // CLS -- must never be reached by this block
	})

	assert.False(t, decoder.IsTerminator(decoder.LDVxK), "decoder classifies LD Vx,K as a non-terminator by design")

	_, end, err := tr.Translate(0x200)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x202), end, "translator still ends the block at LD Vx,K")
}

func TestTranslatePropagatesDecodeErrors(t *testing.T) {
	tr := newFixture(t, map[uint16]uint16{
		0x200: 0x912F, // not a valid opcode
	})

	_, _, err := tr.Translate(0x200)
	require.Error(t, err)
	var decErr state.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, uint16(0x200), decErr.PC)
}

func TestTranslateSingleNonTerminatorThenJPEndsAfterFourBytes(t *testing.T) {
	tr := newFixture(t, map[uint16]uint16{
		0x200: 0x6005, // LD V0, 0x05
		0x202: 0x1300, // JP 0x300
	})

	_, end, err := tr.Translate(0x200)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x204), end)
}
