package emitter

import (
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/kessler-rip8/rip8/internal/state"
	"golang.org/x/sys/unix"
)

// Page is an installed, immutable, executable mapping holding one
// translated block's host code. Once Install returns a Page, its mapping
// is never remapped writable again — W^X is a one-way transition.
type Page struct {
	mem []byte // the mmap'd region, mprotect'd to PROT_READ|PROT_EXEC
	fn  uintptr
}

// Len is the number of bytes of host code the page holds.
func (p *Page) Len() int { return len(p.mem) }

// Call invokes the translated block, passing base as the BASE argument
// (the Guest State pointer). The callee must not retain base past the
// call, per the Guest State ownership rule.
//
// The Translator's prologue spills its one argument from RDI (spec.md
// §4.2's SysV-derived ABI), so the block must be entered via the host's
// native calling convention, not a Go func value — an ordinary Go call
// compiles under Go's own register-based ABIInternal (first argument in
// RAX, not RDI) and would hand the callee a bogus BASE. purego.SyscallN
// is purego's documented mechanism for calling a raw function pointer
// under the host's native (SysV on amd64) convention — the Go→C
// counterpart to purego.NewCallback's C→Go direction, already used in
// internal/helpers.
func (p *Page) Call(base uintptr) { purego.SyscallN(p.fn, base) }

// Install copies code into a fresh anonymous mapping, transitions it from
// writable to executable (W^X: never both at once), and returns an
// immutable Page. This is spec §4.2's "(a) copy into RW mapping, (b)
// transition to RX, (c) hand to Cache" sequence, implemented with
// golang.org/x/sys/unix, the mmap/mprotect library the pack uses across
// several emulator/VM repos.
func Install(code []byte) (*Page, error) {
	if len(code) == 0 {
		return nil, state.OutOfMemory{Reason: "empty translated block"}
	}

	mem, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, state.OutOfMemory{Reason: "mmap: " + err.Error()}
	}

	copy(mem, code)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, state.OutOfMemory{Reason: "mprotect: " + err.Error()}
	}

	return &Page{mem: mem, fn: uintptr(unsafe.Pointer(&mem[0]))}, nil
}

// Release unmaps the page's executable memory. Only safe once no Block
// referencing this Page can be reached anymore (the Cache calls this only
// on its own teardown).
func (p *Page) Release() error {
	if p.mem == nil {
		return nil
	}
	err := unix.Munmap(p.mem)
	p.mem = nil
	p.fn = 0
	return err
}
