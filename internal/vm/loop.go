// Package vm drives the Run Loop: spec.md §4.6's
// get_or_compile → execute → refresh → poll → sleep-to-60Hz → decrement
// cycle, and the Ready → Executing → (Ready | Terminated) state machine
// spec.md §4 names.
//
// The 60 Hz ticker shape is grounded on massung's main.go, which drives its
// own interpreter loop off a time.Ticker pair (video at 60 Hz, CPU at
// 1 kHz); this design collapses to a single 60 Hz ticker since spec.md §6
// states CPU stepping rate is not fixed and "the Run Loop executes one
// block per tick in the reference design."
package vm

import (
	"context"
	"time"

	"github.com/kessler-rip8/rip8/internal/cache"
	"github.com/kessler-rip8/rip8/internal/diag"
	"github.com/kessler-rip8/rip8/internal/state"
)

// tickRate is the Run Loop's cadence: 60 Hz per spec.md §6.
const tickRate = time.Second / 60

// Display is the host-facing surface the Run Loop drives once per tick. A
// concrete implementation lives in internal/display; tests substitute a
// fake so the loop's control flow can be exercised without an SDL window.
type Display interface {
	// Refresh pushes the current framebuffer to the host window.
	Refresh(fb *[state.ScreenWidth * state.ScreenHeight]byte)

	// PollInput updates keys[] in place from host input events and
	// reports whether the user asked to quit (window close, Escape, …).
	PollInput(keys *[state.NumKeys]byte) (quit bool)

	// SetSound turns the host tone on or off, following the guest sound
	// timer's nonzero/zero transitions.
	SetSound(active bool)
}

// Loop owns one guest State, its Block Cache, and the Display it drives.
type Loop struct {
	State   *state.State
	Cache   *cache.Cache
	Display Display
	Log     *diag.Logger
}

// New returns a Loop ready to Run.
func New(s *state.State, c *cache.Cache, d Display, log *diag.Logger) *Loop {
	return &Loop{State: s, Cache: c, Display: d, Log: log}
}

// Run drives the Ready → Executing → (Ready | Terminated) state machine
// until the guest halts, a fatal error is encountered, or ctx is canceled.
// It returns nil on a clean guest-initiated halt or host quit, and a
// non-nil error on a translation failure or a reported stack fault.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	wasSounding := false

	for l.State.Running() {
		select {
		case <-ctx.Done():
			l.State.Halt()
			return nil
		case <-ticker.C:
		}

		block, err := l.Cache.GetOrCompile(l.State.PC)
		if err != nil {
			l.State.Halt()
			return err
		}

		block.Page.Call(l.State.Base())

		if l.State.Fault != state.FaultNone {
			return l.faultError()
		}

		l.Display.Refresh(&l.State.Fb)

		if l.Display.PollInput(&l.State.Keys) {
			l.State.Halt()
			return nil
		}

		sounding := l.State.Sound > 0
		if sounding != wasSounding {
			l.Display.SetSound(sounding)
			wasSounding = sounding
		}

		if l.State.Delay > 0 {
			l.State.Delay--
		}
		if l.State.Sound > 0 {
			l.State.Sound--
		}
	}

	return nil
}

func (l *Loop) faultError() error {
	switch l.State.Fault {
	case state.FaultStackOverflow:
		return state.StackOverflow{PC: l.State.PC}
	case state.FaultStackUnderflow:
		return state.StackUnderflow{PC: l.State.PC}
	default:
		return nil
	}
}
