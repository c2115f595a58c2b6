// Package state defines the Guest State record: the single, fixed-layout
// memory block that translated CHIP-8 blocks read and mutate directly, by
// byte offset, without going through Go field accessors.
package state

import (
	"fmt"
	"unsafe"
)

const (
	// MemSize is the size of the CHIP-8 address space.
	MemSize = 4096

	// ProgramStart is where guest programs begin executing.
	ProgramStart = 0x200

	// NumRegs is the number of general-purpose V registers, V0..VF.
	NumRegs = 16

	// StackDepth is the number of call-stack levels.
	StackDepth = 16

	// ScreenWidth and ScreenHeight are the framebuffer dimensions.
	ScreenWidth  = 64
	ScreenHeight = 32

	// NumKeys is the number of hex keys on the keypad.
	NumKeys = 16

	// FlagReg is the index of the VF flag register.
	FlagReg = 0xF
)

// State is the Guest State record. Field order is the contract: emitted
// code addresses every field below by its byte offset from a BASE pointer,
// so fields must never be reordered, renamed away from their offset, or
// padded by inserting new fields in the middle of the struct. Append only.
type State struct {
	Mem   [MemSize]byte
	Regs  [NumRegs]byte
	I     uint16
	Delay byte
	Sound byte
	PC    uint16
	SP    byte
	Stack [StackDepth]uint16

	// Fb is one byte per pixel rather than one bit, trading memory for an
	// addressing mode (scaled-index, no bit-test) the emitter can use
	// directly from DRW's helper call.
	Fb [ScreenWidth * ScreenHeight]byte

	Keys [NumKeys]byte

	// ShouldRun is read by the Run Loop after every block; cleared by a
	// guest HALT condition, a fatal error, or the host window closing.
	ShouldRun byte

	// Fault is set by translated CALL/RET guard code when the stack would
	// overflow or underflow, since a translated block has no way to return
	// a Go error directly. The Run Loop checks it after every block and
	// turns a nonzero value into the matching typed error. Appended after
	// ShouldRun rather than inserted earlier, per the append-only rule.
	Fault byte
}

// Fault codes, written by translated guard code into State.Fault.
const (
	FaultNone           = 0
	FaultStackOverflow  = 1
	FaultStackUnderflow = 2
)

// Offsets is the byte-offset table the Translator and Emitter use to
// address fields of State relative to BASE. Computed once from the
// canonical struct layout above (spec's design note: "an explicit offset
// table computed from a canonical layout, consumed by both the runtime
// and the translator").
type Offsets struct {
	Mem       uintptr
	Regs      uintptr
	I         uintptr
	Delay     uintptr
	Sound     uintptr
	PC        uintptr
	SP        uintptr
	Stack     uintptr
	Fb        uintptr
	Keys      uintptr
	ShouldRun uintptr
	Fault     uintptr
	Size      uintptr
}

// FieldOffsets is the shared offset table. It is computed once at package
// init and never mutated; both the translator and tests read it.
var FieldOffsets = Offsets{
	Mem:       unsafe.Offsetof(State{}.Mem),
	Regs:      unsafe.Offsetof(State{}.Regs),
	I:         unsafe.Offsetof(State{}.I),
	Delay:     unsafe.Offsetof(State{}.Delay),
	Sound:     unsafe.Offsetof(State{}.Sound),
	PC:        unsafe.Offsetof(State{}.PC),
	SP:        unsafe.Offsetof(State{}.SP),
	Stack:     unsafe.Offsetof(State{}.Stack),
	Fb:        unsafe.Offsetof(State{}.Fb),
	Keys:      unsafe.Offsetof(State{}.Keys),
	ShouldRun: unsafe.Offsetof(State{}.ShouldRun),
	Fault:     unsafe.Offsetof(State{}.Fault),
	Size:      unsafe.Sizeof(State{}),
}

// New returns a State with the font pre-placed and PC at ProgramStart.
func New() *State {
	s := &State{
		PC:        ProgramStart,
		ShouldRun: 1,
	}
	copy(s.Mem[:], font[:])
	return s
}

// Reset restores PC/SP/timers/keys without reloading the ROM image, as if
// the guest program were re-entered from the top.
func (s *State) Reset() {
	s.PC = ProgramStart
	s.SP = 0
	s.I = 0
	s.Delay = 0
	s.Sound = 0
	s.Regs = [NumRegs]byte{}
	s.Stack = [StackDepth]uint16{}
	s.Keys = [NumKeys]byte{}
	s.Fb = [ScreenWidth * ScreenHeight]byte{}
	s.ShouldRun = 1
	s.Fault = FaultNone
}

// Running reports whether the Run Loop should keep dispatching blocks.
func (s *State) Running() bool { return s.ShouldRun != 0 }

// Halt clears ShouldRun, ending the Run Loop on its next check.
func (s *State) Halt() { s.ShouldRun = 0 }

// Base returns the state's address as BASE, the pointer emitted code
// receives in its one argument register for the duration of a single
// block call. Callers must not retain it past that call.
func (s *State) Base() uintptr { return uintptr(unsafe.Pointer(s)) }

// Error kinds, per the error handling design. Each is a distinct type so
// callers can type-switch on the failure instead of string-matching.

// RomTooLarge is returned when a ROM does not fit between ProgramStart and
// MemSize.
type RomTooLarge struct {
	Size int
	Max  int
}

func (e RomTooLarge) Error() string {
	return fmt.Sprintf("rom too large: %d bytes (max %d)", e.Size, e.Max)
}

// DecodeError is returned when a 16-bit word does not match any known
// CHIP-8 instruction.
type DecodeError struct {
	PC   uint16
	Word uint16
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decode error @ %04X: unrecognized opcode %04X", e.PC, e.Word)
}

// StackOverflow is returned by CALL when SP is already at StackDepth.
type StackOverflow struct{ PC uint16 }

func (e StackOverflow) Error() string {
	return fmt.Sprintf("stack overflow @ %04X: CALL with full stack", e.PC)
}

// StackUnderflow is returned by RET when SP is already 0.
type StackUnderflow struct{ PC uint16 }

func (e StackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow @ %04X: RET with empty stack", e.PC)
}

// OutOfMemory is returned when a W^X page mapping cannot be created.
type OutOfMemory struct{ Reason string }

func (e OutOfMemory) Error() string {
	return fmt.Sprintf("out of memory: %s", e.Reason)
}

// font is the canonical 16-sprite, 5-byte-per-glyph hex font, placed at
// mem[0..80] before a ROM is loaded. The same constant bytes appear across
// the CHIP-8 emulator ecosystem (e.g. the font table embedded directly in
// adrichey-go-chip8's emulator package) rather than being loaded from an
// external asset, since they are architecturally part of Guest State.
var font = [80]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}
