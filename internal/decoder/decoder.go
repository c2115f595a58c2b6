// Package decoder turns a 16-bit CHIP-8 opcode into a tagged Instruction
// value and classifies which instructions must end a translated block.
package decoder

import (
	"github.com/kessler-rip8/rip8/internal/state"
)

// Op names every recognized CHIP-8 instruction.
type Op int

const (
	CLS Op = iota
	RET
	SYS
	JP
	CALL
	SEVxKK
	SEVxVy
	SNEVxKK
	SNEVxVy
	LDVxKK
	LDVxVy
	LDInnn
	LDVxDT
	LDVxK
	LDDTVx
	LDSTVx
	LDFVx
	LDBVx
	LDIVx // LD [I], Vx
	LDVxI // LD Vx, [I]
	ADDVxKK
	ADDVxVy
	ADDIVx
	OR
	AND
	XOR
	SUB
	SUBN
	SHR
	SHL
	RND
	DRW
	SKP
	SKNP
	JPV0
)

// Instruction is the decoded, tagged form of one CHIP-8 opcode.
type Instruction struct {
	Op   Op
	PC   uint16
	Word uint16
	X    byte   // Vx register index, when applicable
	Y    byte   // Vy register index, when applicable
	N    byte   // 4-bit nibble operand (sprite height for DRW)
	KK   byte   // 8-bit immediate operand
	NNN  uint16 // 12-bit address operand
}

// Decode reads the big-endian 16-bit word at mem[pc:pc+2] and returns the
// tagged instruction it names. Unknown bit patterns return DecodeError, as
// does a pc too close to the end of mem to hold a full 16-bit word (e.g. a
// ROM that jumps to the last address in memory) or past its end.
func Decode(mem []byte, pc uint16) (Instruction, error) {
	if int(pc)+1 >= len(mem) {
		var hi uint16
		if int(pc) < len(mem) {
			hi = uint16(mem[pc]) << 8
		}
		return Instruction{}, state.DecodeError{PC: pc, Word: hi}
	}

	word := uint16(mem[pc])<<8 | uint16(mem[pc+1])

	x := byte(word >> 8 & 0xF)
	y := byte(word >> 4 & 0xF)
	n := byte(word & 0xF)
	kk := byte(word & 0xFF)
	nnn := word & 0xFFF

	inst := Instruction{PC: pc, Word: word, X: x, Y: y, N: n, KK: kk, NNN: nnn}

	switch {
	case word == 0x00E0:
		inst.Op = CLS
	case word == 0x00EE:
		inst.Op = RET
	case word&0xF000 == 0x0000:
		inst.Op = SYS
	case word&0xF000 == 0x1000:
		inst.Op = JP
	case word&0xF000 == 0x2000:
		inst.Op = CALL
	case word&0xF000 == 0x3000:
		inst.Op = SEVxKK
	case word&0xF000 == 0x4000:
		inst.Op = SNEVxKK
	case word&0xF00F == 0x5000:
		inst.Op = SEVxVy
	case word&0xF000 == 0x6000:
		inst.Op = LDVxKK
	case word&0xF000 == 0x7000:
		inst.Op = ADDVxKK
	case word&0xF00F == 0x8000:
		inst.Op = LDVxVy
	case word&0xF00F == 0x8001:
		inst.Op = OR
	case word&0xF00F == 0x8002:
		inst.Op = AND
	case word&0xF00F == 0x8003:
		inst.Op = XOR
	case word&0xF00F == 0x8004:
		inst.Op = ADDVxVy
	case word&0xF00F == 0x8005:
		inst.Op = SUB
	case word&0xF00F == 0x8006:
		inst.Op = SHR
	case word&0xF00F == 0x8007:
		inst.Op = SUBN
	case word&0xF00F == 0x800E:
		inst.Op = SHL
	case word&0xF00F == 0x9000:
		inst.Op = SNEVxVy
	case word&0xF000 == 0xA000:
		inst.Op = LDInnn
	case word&0xF000 == 0xB000:
		inst.Op = JPV0
	case word&0xF000 == 0xC000:
		inst.Op = RND
	case word&0xF000 == 0xD000:
		inst.Op = DRW
	case word&0xF0FF == 0xE09E:
		inst.Op = SKP
	case word&0xF0FF == 0xE0A1:
		inst.Op = SKNP
	case word&0xF0FF == 0xF007:
		inst.Op = LDVxDT
	case word&0xF0FF == 0xF00A:
		inst.Op = LDVxK
	case word&0xF0FF == 0xF015:
		inst.Op = LDDTVx
	case word&0xF0FF == 0xF018:
		inst.Op = LDSTVx
	case word&0xF0FF == 0xF01E:
		inst.Op = ADDIVx
	case word&0xF0FF == 0xF029:
		inst.Op = LDFVx
	case word&0xF0FF == 0xF033:
		inst.Op = LDBVx
	case word&0xF0FF == 0xF055:
		inst.Op = LDIVx
	case word&0xF0FF == 0xF065:
		inst.Op = LDVxI
	default:
		return Instruction{}, state.DecodeError{PC: pc, Word: word}
	}

	return inst, nil
}

// IsTerminator reports whether op must end the current translated block,
// per spec §4.1: branches, calls, returns, and every conditional skip
// (treated as a terminator since its effect on PC is runtime-determined).
func IsTerminator(op Op) bool {
	switch op {
	case JP, CALL, RET, JPV0, SYS, SEVxKK, SEVxVy, SNEVxKK, SNEVxVy, SKP, SKNP:
		return true
	default:
		return false
	}
}
