package display

import (
	"fmt"

	"github.com/veandco/go-sdl2/gfx"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/kessler-rip8/rip8/internal/cache"
	"github.com/kessler-rip8/rip8/internal/diag"
	"github.com/kessler-rip8/rip8/internal/state"
)

// DebugOverlay retargets massung's debug.go: instead of disassembling the
// instruction stream around PC (there is nothing to single-step — a
// translated block runs to completion before the Run Loop can observe
// it), it shows the Guest State registers and Block Cache occupancy, plus
// the tail of the diag.Logger the translator/cache/run loop write to.
type DebugOverlay struct {
	Log   *diag.Logger
	Cache *cache.Cache
}

// Draw renders the overlay onto the current frame and presents it, matching
// massung's debug.go drawing directly onto the window renderer each frame.
// Once EnableDebug has been called, Refresh calls Draw in place of its own
// Present.
func (w *Window) Draw(overlay DebugOverlay, s *state.State) {
	x, y := int32(state.ScreenWidth*Scale+8), int32(8)

	for i := 0; i < state.NumRegs; i++ {
		gfx.StringColor(w.renderer, x, y+int32(i*10), fmt.Sprintf("V%X - #%02X", i, s.Regs[i]), sdl.Color{R: 200, G: 200, B: 200, A: 255})
	}

	vx := x + 90
	gfx.StringColor(w.renderer, vx, y, fmt.Sprintf("PC - #%04X", s.PC), sdl.Color{R: 200, G: 200, B: 200, A: 255})
	gfx.StringColor(w.renderer, vx, y+10, fmt.Sprintf("SP - #%02X", s.SP), sdl.Color{R: 200, G: 200, B: 200, A: 255})
	gfx.StringColor(w.renderer, vx, y+20, fmt.Sprintf("I  - #%04X", s.I), sdl.Color{R: 200, G: 200, B: 200, A: 255})
	gfx.StringColor(w.renderer, vx, y+30, fmt.Sprintf("DT - #%02X", s.Delay), sdl.Color{R: 200, G: 200, B: 200, A: 255})
	gfx.StringColor(w.renderer, vx, y+40, fmt.Sprintf("ST - #%02X", s.Sound), sdl.Color{R: 200, G: 200, B: 200, A: 255})
	if overlay.Cache != nil {
		gfx.StringColor(w.renderer, vx, y+50, fmt.Sprintf("blocks - %d", overlay.Cache.Len()), sdl.Color{R: 200, G: 200, B: 200, A: 255})
	}

	if overlay.Log != nil {
		lines := overlay.Log.Window(16)
		for i, line := range lines {
			if len(line) > 60 {
				line = line[:57] + "..."
			}
			gfx.StringColor(w.renderer, x, y+170+int32(i*10), line, sdl.Color{R: 140, G: 140, B: 140, A: 255})
		}
	}

	w.renderer.Present()
}
