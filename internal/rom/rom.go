// Package rom loads a CHIP-8 program image into Guest State.
package rom

import (
	"fmt"
	"os"

	"github.com/kessler-rip8/rip8/internal/state"
)

// MaxSize is the largest ROM that fits after ProgramStart.
const MaxSize = state.MemSize - state.ProgramStart

// Load reads path and copies its bytes verbatim into s.Mem starting at
// ProgramStart. The font must already occupy mem[0..80] (state.New does
// this); Load never touches it.
func Load(s *state.State, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rip8: reading rom %q: %w", path, err)
	}
	return LoadBytes(s, data)
}

// LoadBytes places program bytes directly, for callers that already have
// the ROM image in memory (tests, embedded ROMs).
func LoadBytes(s *state.State, program []byte) error {
	if len(program) > MaxSize {
		return state.RomTooLarge{Size: len(program), Max: MaxSize}
	}
	copy(s.Mem[state.ProgramStart:], program)
	s.PC = state.ProgramStart
	return nil
}
