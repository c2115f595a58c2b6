//go:build amd64 && linux

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-rip8/rip8/internal/helpers"
	"github.com/kessler-rip8/rip8/internal/state"
	"github.com/kessler-rip8/rip8/internal/translator"
)

func newCache(t *testing.T, program map[uint16]uint16) *Cache {
	t.Helper()
	mem := make([]byte, state.MemSize)
	for pc, word := range program {
		mem[pc] = byte(word >> 8)
		mem[pc+1] = byte(word)
	}
	tr := translator.New(mem, helpers.Register())
	return New(tr)
}

func TestGetOrCompileReturnsIdenticalPointerOnRepeatedLookup(t *testing.T) {
	c := newCache(t, map[uint16]uint16{
		0x200: 0x1200, // JP 0x200 (infinite loop, still a valid single-instruction block)
	})
	defer c.Release()

	b1, err := c.GetOrCompile(0x200)
	require.NoError(t, err)
	b2, err := c.GetOrCompile(0x200)
	require.NoError(t, err)

	assert.Same(t, b1, b2, "the same pc must return the identical *Block")
	assert.Equal(t, 1, c.Len(), "a repeated lookup must not recompile")
}

func TestGetOrCompileRecordsOrigin(t *testing.T) {
	c := newCache(t, map[uint16]uint16{
		0x204: 0x1204,
	})
	defer c.Release()

	b, err := c.GetOrCompile(0x204)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x204), b.Origin)
}

func TestGetOrCompileCompilesDistinctPCsIndependently(t *testing.T) {
	c := newCache(t, map[uint16]uint16{
		0x200: 0x1200,
		0x300: 0x1300,
	})
	defer c.Release()

	b1, err := c.GetOrCompile(0x200)
	require.NoError(t, err)
	b2, err := c.GetOrCompile(0x300)
	require.NoError(t, err)

	assert.NotSame(t, b1, b2)
	assert.Equal(t, 2, c.Len())
}

func TestGetOrCompilePropagatesDecodeErrors(t *testing.T) {
	c := newCache(t, map[uint16]uint16{
		0x200: 0x912F, // invalid opcode
	})
	defer c.Release()

	_, err := c.GetOrCompile(0x200)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len(), "a failed compile must not populate the cache")
}
