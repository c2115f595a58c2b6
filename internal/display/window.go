// Package display implements the vm.Display surface the Run Loop drives
// once per tick: an SDL2 window blitting the framebuffer, host key events
// mapped to the 16 hex keys, and a cgo-free tone generator for the sound
// timer. The window/texture shape is adapted from massung's screen.go; the
// key table from massung's input.go (the same table spec.md §6 names);
// audio is reworked from massung's audio.go to drop its cgo export in
// favor of sdl.QueueAudio.
package display

import (
	"fmt"
	"sync"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/kessler-rip8/rip8/internal/state"
)

// Scale is the integer upscale factor applied to the 64×32 guest
// framebuffer (spec.md §6: "upscaled by an implementation-defined
// factor").
const Scale = 10

// debugPanelWidth reserves room to the right of the framebuffer for the
// DebugOverlay (debug.go); drawn or not, the window is always wide enough
// to fit it so toggling the overlay never resizes the window.
const debugPanelWidth = 260

const (
	windowWidth  = state.ScreenWidth*Scale + debugPanelWidth
	windowHeight = state.ScreenHeight * Scale
)

// Window is the SDL2-backed vm.Display implementation.
type Window struct {
	win      *sdl.Window
	renderer *sdl.Renderer
	screen   *sdl.Texture
	audio    sdl.AudioDeviceID

	toneMu   sync.Mutex
	tonePump chan struct{}

	debug      *DebugOverlay
	debugState *state.State
}

// Open creates the window, renderer, render-target texture, and audio
// device. The caller must call Close when the emulator exits.
func Open(title string) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}

	win, renderer, err := sdl.CreateWindowAndRenderer(windowWidth, windowHeight, sdl.WINDOW_OPENGL)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.SetTitle(title)

	screen, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGB888, sdl.TEXTUREACCESS_TARGET,
		state.ScreenWidth, state.ScreenHeight,
	)
	if err != nil {
		return nil, fmt.Errorf("create screen texture: %w", err)
	}

	w := &Window{win: win, renderer: renderer, screen: screen}
	if err := w.openAudio(); err != nil {
		return nil, err
	}
	return w, nil
}

// Close releases the window, renderer, texture, and audio device.
func (w *Window) Close() {
	w.closeAudio()
	if w.screen != nil {
		w.screen.Destroy()
	}
	if w.renderer != nil {
		w.renderer.Destroy()
	}
	if w.win != nil {
		w.win.Destroy()
	}
	sdl.Quit()
}

// Refresh implements vm.Display: render fb into the screen texture at
// native resolution, then stretch-blit it to the window.
func (w *Window) Refresh(fb *[state.ScreenWidth * state.ScreenHeight]byte) {
	if err := w.renderer.SetRenderTarget(w.screen); err != nil {
		return
	}

	w.renderer.SetDrawColor(0, 0, 0, 255)
	w.renderer.Clear()
	w.renderer.SetDrawColor(255, 255, 255, 255)

	for p, on := range fb {
		if on == 0 {
			continue
		}
		x := int32(p % state.ScreenWidth)
		y := int32(p / state.ScreenWidth)
		w.renderer.DrawPoint(x, y)
	}

	w.renderer.SetRenderTarget(nil)
	w.renderer.SetDrawColor(0, 0, 0, 255)
	w.renderer.Clear()
	w.renderer.Copy(w.screen, nil, &sdl.Rect{W: state.ScreenWidth * Scale, H: windowHeight})

	if w.debug != nil {
		w.Draw(*w.debug, w.debugState)
		return
	}

	w.renderer.Present()
}

// EnableDebug turns on the register/cache overlay debug.go draws; every
// later Refresh call renders it before presenting.
func (w *Window) EnableDebug(overlay DebugOverlay, s *state.State) {
	w.debug = &overlay
	w.debugState = s
}
