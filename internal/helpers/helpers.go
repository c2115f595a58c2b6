// Package helpers implements the seven host-language functions translated
// CHIP-8 code calls back into for effects impractical to inline: cls, drw,
// skp, sknp, ld_k, ld_f, ld_b (spec §4.4).
//
// Each helper is registered once, at startup, via ebitengine/purego's
// NewCallback, which produces a stable C-ABI function pointer for a Go
// function — the concrete mechanism behind spec §4.4's "stable C ABI"
// requirement, and the reason this repo promotes purego (present,
// indirectly, across several pack go.mod files) to a direct dependency.
package helpers

import (
	"math/rand"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/kessler-rip8/rip8/internal/state"
)

// Trampolines holds the function-pointer ABI for every helper, keyed by
// name for the Translator to embed as CALL targets.
type Trampolines struct {
	Cls  uintptr
	Drw  uintptr
	Skp  uintptr
	Sknp uintptr
	LdK  uintptr
	LdF  uintptr
	LdB  uintptr
}

// Register wraps every helper in a purego callback and returns the table
// of function pointers the Translator's callHelper emits CALLs to.
func Register() *Trampolines {
	return &Trampolines{
		Cls:  purego.NewCallback(clsHelper),
		Drw:  purego.NewCallback(drwHelper),
		Skp:  purego.NewCallback(skpHelper),
		Sknp: purego.NewCallback(sknpHelper),
		LdK:  purego.NewCallback(ldKHelper),
		LdF:  purego.NewCallback(ldFHelper),
		LdB:  purego.NewCallback(ldBHelper),
	}
}

func fromBase(base uintptr) *state.State {
	return (*state.State)(unsafe.Pointer(base))
}

// clsHelper implements CLS: fb ← 0.
func clsHelper(base uintptr) {
	s := fromBase(base)
	s.Fb = [state.ScreenWidth * state.ScreenHeight]byte{}
}

// drwHelper implements DRW Vx,Vy,n: XOR an n-row sprite from mem[I..I+n]
// into fb at (Vx mod 64, Vy mod 32), wrapping the start point but clipping
// individual pixels at the right/bottom edge. VF ← 1 iff any lit pixel was
// turned off.
func drwHelper(base uintptr, xReg, yReg, n uintptr) {
	s := fromBase(base)
	x0 := int(s.Regs[xReg&0xF]) % state.ScreenWidth
	y0 := int(s.Regs[yReg&0xF]) % state.ScreenHeight

	var collision byte
	for row := 0; row < int(n); row++ {
		y := y0 + row
		if y >= state.ScreenHeight {
			continue
		}
		spriteByte := s.Mem[int(s.I)+row]
		for col := 0; col < 8; col++ {
			x := x0 + col
			if x >= state.ScreenWidth {
				continue
			}
			bit := (spriteByte >> (7 - col)) & 1
			if bit == 0 {
				continue
			}
			idx := x + y*state.ScreenWidth
			if s.Fb[idx] != 0 {
				collision = 1
			}
			s.Fb[idx] ^= 1
		}
	}
	s.Regs[state.FlagReg] = collision
}

// skpHelper implements SKP Vx: advances PC by a further 2 if the key named
// by Vx is currently pressed. The translator has already advanced PC by 2
// for the opcode itself before calling this.
func skpHelper(base uintptr, xReg uintptr) {
	s := fromBase(base)
	if s.Keys[s.Regs[xReg&0xF]&0xF] != 0 {
		s.PC += 2
	}
}

// sknpHelper implements SKNP Vx: the inverse condition of skpHelper.
func sknpHelper(base uintptr, xReg uintptr) {
	s := fromBase(base)
	if s.Keys[s.Regs[xReg&0xF]&0xF] == 0 {
		s.PC += 2
	}
}

// ldKHelper implements LD Vx,K as a single, non-blocking poll (spec §9's
// preferred design: the Translator emits this as a terminator that leaves
// PC unmoved when no key is down, so the Run Loop re-enters the same block
// next frame rather than spinning inside one). If any of the 16 hex keys
// is pressed, stores its code into Vx and advances PC by 2; otherwise PC
// is left exactly where it was.
func ldKHelper(base uintptr, xReg uintptr) {
	s := fromBase(base)
	for key := 0; key < state.NumKeys; key++ {
		if s.Keys[key] != 0 {
			s.Regs[xReg&0xF] = byte(key)
			s.PC += 2
			return
		}
	}
}

// ldFHelper implements LD F,Vx: I ← Vx*5, pointing into the font region.
func ldFHelper(base uintptr, xReg uintptr) {
	s := fromBase(base)
	s.I = uint16(s.Regs[xReg&0xF]) * 5
}

// ldBHelper implements LD B,Vx: the binary-coded-decimal conversion of Vx
// into three distinct bytes at mem[I], mem[I+1], mem[I+2]. Spec §9(b)
// flags drafts that store mem[I+1] twice as buggy (RIP-8's own fn_extern.rs
// does exactly that); this stores three distinct digits.
func ldBHelper(base uintptr, xReg uintptr) {
	s := fromBase(base)
	v := s.Regs[xReg&0xF]
	s.Mem[s.I] = v / 100
	s.Mem[s.I+1] = (v / 10) % 10
	s.Mem[s.I+2] = v % 10
}

// randByte is not part of the Helper ABI (spec §4.4 lists only the seven
// helpers above); RND Vx,kk is emitted inline using the host's RDTSC
// instruction. Nothing in the emulator calls randByte; only this package's
// tests do.
func randByte() byte { return byte(rand.Intn(256)) }
