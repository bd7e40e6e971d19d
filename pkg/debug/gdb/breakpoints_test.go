package gdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantis-emu/mantis/pkg/emu/cpu"
)

func TestBreakpointTable_InstallRemove(t *testing.T) {
	_, processor := newTestStub(t)
	table := newBreakpointTable()

	bp := cpu.NewCodeBreakpoint(processor, 0x82001000, nil)
	require.NoError(t, table.install(processor, bp))

	// Installed in the processor iff present in the table.
	assert.Equal(t, 1, table.count())
	assert.Same(t, bp, table.lookup(0x82001000))
	require.Len(t, processor.installed, 1)
	assert.Same(t, bp, processor.installed[0])

	table.remove(processor, 0x82001000)
	assert.Zero(t, table.count())
	assert.Nil(t, table.lookup(0x82001000))
	assert.Empty(t, processor.installed)
}

func TestBreakpointTable_RejectsDuplicateGuestAddress(t *testing.T) {
	_, processor := newTestStub(t)
	table := newBreakpointTable()

	require.NoError(t, table.install(processor, cpu.NewCodeBreakpoint(processor, 0x82001000, nil)))

	err := table.install(processor, cpu.NewCodeBreakpoint(processor, 0x82001000, nil))
	assert.ErrorIs(t, err, ErrBreakpointExists)

	// The reject must not leak into the processor.
	assert.Len(t, processor.installed, 1)
	assert.Equal(t, 1, table.count())
}

func TestBreakpointTable_RejectsHostAddressConflict(t *testing.T) {
	_, processor := newTestStub(t)
	// Two guest instructions JITed into overlapping host code.
	processor.hostAddrs = map[uint32][]uint64{
		0x82001000: {0x5000, 0x5001},
		0x82002000: {0x6000, 0x5001},
	}
	table := newBreakpointTable()

	require.NoError(t, table.install(processor, cpu.NewCodeBreakpoint(processor, 0x82001000, nil)))

	err := table.install(processor, cpu.NewCodeBreakpoint(processor, 0x82002000, nil))
	assert.ErrorIs(t, err, ErrHostAddressConflict)
	assert.Equal(t, 1, table.count())
}

func TestBreakpointTable_InstallAfterRemoveSucceeds(t *testing.T) {
	_, processor := newTestStub(t)
	table := newBreakpointTable()

	require.NoError(t, table.install(processor, cpu.NewCodeBreakpoint(processor, 0x82001000, nil)))
	table.remove(processor, 0x82001000)
	require.NoError(t, table.install(processor, cpu.NewCodeBreakpoint(processor, 0x82001000, nil)))
}

func TestBreakpointTable_RemoveUnknownIsNoop(t *testing.T) {
	_, processor := newTestStub(t)
	table := newBreakpointTable()

	table.remove(processor, 0xdead0000)
	assert.Zero(t, table.count())
	assert.Empty(t, processor.installed)
}

func TestBreakpointTable_RemoveAll(t *testing.T) {
	_, processor := newTestStub(t)
	table := newBreakpointTable()

	addrs := []uint32{0x82001000, 0x82001004, 0x82001008}
	for _, addr := range addrs {
		require.NoError(t, table.install(processor, cpu.NewCodeBreakpoint(processor, addr, nil)))
	}

	table.removeAll(processor)
	assert.Zero(t, table.count())
	assert.Empty(t, processor.installed)
	for _, addr := range addrs {
		assert.Nil(t, table.lookup(addr))
	}
}
