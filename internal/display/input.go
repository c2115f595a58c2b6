package display

import "github.com/veandco/go-sdl2/sdl"

// keyMap is the host-to-guest key table (spec.md §6), identical to
// massung's input.go KeyMap: it happens to be the same 16-key layout, just
// reordered here to match the spec's row-by-row presentation.
var keyMap = map[sdl.Scancode]byte{
	sdl.SCANCODE_1: 0x1,
	sdl.SCANCODE_2: 0x2,
	sdl.SCANCODE_3: 0x3,
	sdl.SCANCODE_4: 0xC,

	sdl.SCANCODE_Q: 0x4,
	sdl.SCANCODE_W: 0x5,
	sdl.SCANCODE_E: 0x6,
	sdl.SCANCODE_R: 0xD,

	sdl.SCANCODE_A: 0x7,
	sdl.SCANCODE_S: 0x8,
	sdl.SCANCODE_D: 0x9,
	sdl.SCANCODE_F: 0xE,

	sdl.SCANCODE_Z: 0xA,
	sdl.SCANCODE_X: 0x0,
	sdl.SCANCODE_C: 0xB,
	sdl.SCANCODE_V: 0xF,
}

// PollInput implements vm.Display: drain the SDL event queue, updating
// keys[] in place, and report whether the host asked to quit. Grounded on
// massung's ProcessEvents, minus the debug-log/step/screenshot bindings
// that belonged to its own debug overlay (see debug.go for the overlay
// this package keeps instead).
func (w *Window) PollInput(keys *[16]byte) (quit bool) {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch ev := e.(type) {
		case *sdl.QuitEvent:
			return true
		case *sdl.KeyUpEvent:
			if ev.Repeat != 0 {
				continue
			}
			if ev.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
				return true
			}
			if key, ok := keyMap[ev.Keysym.Scancode]; ok {
				keys[key] = 0
			}
		case *sdl.KeyDownEvent:
			if ev.Repeat != 0 {
				continue
			}
			if key, ok := keyMap[ev.Keysym.Scancode]; ok {
				keys[key] = 1
			}
		}
	}
	return false
}
