//go:build amd64 && linux

package emitter

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallAndCallNoOpBlock(t *testing.T) {
	e := New()
	e.Ret() // the simplest valid translated block: do nothing, return

	page, err := Install(e.Bytes())
	require.NoError(t, err)
	defer page.Release()

	assert.Equal(t, 1, page.Len())
	assert.NotPanics(t, func() { page.Call(0) })
}

func TestInstallRejectsEmptyBlock(t *testing.T) {
	_, err := Install(nil)
	require.Error(t, err)
}

func TestCallDeliversBaseInRDI(t *testing.T) {
	// mov byte [rdi+0], 0x7; ret — proves Call hands the callee BASE in
	// RDI under the host's native calling convention, not Go's ABIInternal
	// (which would deliver the first argument in RAX instead).
	e := New()
	e.MovMemImm8(RDI, 0, 0x7)
	e.Ret()

	page, err := Install(e.Bytes())
	require.NoError(t, err)
	defer page.Release()

	var scratch [8]byte
	page.Call(uintptr(unsafe.Pointer(&scratch[0])))

	assert.Equal(t, byte(0x7), scratch[0])
}

func TestInstallWritesCodeVerbatim(t *testing.T) {
	e := New()
	e.MovRegImm32(RAX, 42)
	e.Ret()

	page, err := Install(e.Bytes())
	require.NoError(t, err)
	defer page.Release()

	assert.Equal(t, e.Len(), page.Len())
	assert.Equal(t, e.Bytes(), page.mem)
}
