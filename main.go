// Command rip8 is a dynamic binary translator for CHIP-8: it compiles
// straight-line runs of guest bytecode to native x86-64 on first visit,
// caches the result by origin PC, and calls directly into it on every
// later visit to the same address, instead of interpreting byte by byte.
//
// Flag parsing follows ejholmes-chip8's cmd/chip8/run.go shape (urfave/cli
// being the module descended from the codegangsta/cli it imports); the
// window/translate/cache/run wiring is massung's main.go reworked around
// the Block Cache instead of a bytecode interpreter.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sqweek/dialog"
	"github.com/urfave/cli/v2"

	"github.com/kessler-rip8/rip8/internal/cache"
	"github.com/kessler-rip8/rip8/internal/diag"
	"github.com/kessler-rip8/rip8/internal/display"
	"github.com/kessler-rip8/rip8/internal/helpers"
	"github.com/kessler-rip8/rip8/internal/rom"
	"github.com/kessler-rip8/rip8/internal/state"
	"github.com/kessler-rip8/rip8/internal/translator"
	"github.com/kessler-rip8/rip8/internal/vm"
)

func init() {
	// SDL2's event loop and GL context must stay on the thread that
	// created the window (massung's main.go does the same).
	runtime.LockOSThread()
}

func main() {
	app := &cli.App{
		Name:  "rip8",
		Usage: "a dynamic binary translator for CHIP-8",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rom",
				Aliases: []string{"r"},
				Usage:   "ROM file to run; a file picker opens if omitted",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "show the register/cache debug overlay",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "rip8:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.String("rom")
	if path == "" {
		picked, err := dialog.File().Title("Load CHIP-8 ROM").Load()
		if err != nil {
			return fmt.Errorf("no rom selected: %w", err)
		}
		path = picked
	}

	s := state.New()
	if err := rom.Load(s, path); err != nil {
		return err
	}

	log := diag.New()
	log.Logf("loaded %s", path)

	help := helpers.Register()
	tr := translator.New(s.Mem[:], help)
	blockCache := cache.New(tr)
	defer blockCache.Release()

	win, err := display.Open("rip8 — " + path)
	if err != nil {
		return err
	}
	defer win.Close()

	if c.Bool("debug") {
		win.EnableDebug(display.DebugOverlay{Log: log, Cache: blockCache}, s)
	}

	loop := vm.New(s, blockCache, win, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if err := loop.Run(ctx); err != nil {
		log.Logf("halted: %s", err)
		return err
	}
	log.Log("halted")
	return nil
}
