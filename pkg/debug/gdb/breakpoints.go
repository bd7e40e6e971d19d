package gdb

import (
	"errors"

	"github.com/mantis-emu/mantis/pkg/emu/cpu"
)

var (
	// ErrBreakpointExists is reported when a guest address is already
	// breakpointed
	ErrBreakpointExists = errors.New("gdb: breakpoint already exists at guest address")
	// ErrHostAddressConflict is reported when a candidate breakpoint
	// shares a host code address with an installed one
	ErrHostAddressConflict = errors.New("gdb: host address already used by another breakpoint")
)

// breakpointTable owns every breakpoint the debugger has installed.
// Presence in the table is equivalent to being installed in the
// processor: entries are inserted only after AddBreakpoint succeeds and
// erased together with RemoveBreakpoint. The processor holds non-owning
// references in between.
type breakpointTable struct {
	byGuestAddress map[uint32]*cpu.Breakpoint
	all            []*cpu.Breakpoint
}

func newBreakpointTable() breakpointTable {
	return breakpointTable{byGuestAddress: make(map[uint32]*cpu.Breakpoint)}
}

// install validates the candidate against the table and arms it in the
// processor. A guest address may appear at most once, and no two
// breakpoints may share a host address: a JITed guest instruction can
// have several host locations, and double-patching one corrupts the
// translated code.
func (t *breakpointTable) install(processor cpu.Processor, bp *cpu.Breakpoint) error {
	for guestAddr, existing := range t.byGuestAddress {
		if guestAddr == bp.GuestAddress() {
			return ErrBreakpointExists
		}
		for _, hostAddr := range bp.HostAddresses() {
			if existing.ContainsHostAddress(hostAddr) {
				return ErrHostAddressConflict
			}
		}
	}

	if err := processor.AddBreakpoint(bp); err != nil {
		return err
	}

	t.byGuestAddress[bp.GuestAddress()] = bp
	t.all = append(t.all, bp)
	return nil
}

// remove uninstalls the breakpoint at the guest address. Removing an
// unknown address is a no-op.
func (t *breakpointTable) remove(processor cpu.Processor, guestAddr uint32) {
	bp, found := t.byGuestAddress[guestAddr]
	if !found {
		return
	}

	processor.RemoveBreakpoint(bp)
	delete(t.byGuestAddress, guestAddr)
	for i, candidate := range t.all {
		if candidate == bp {
			t.all = append(t.all[:i], t.all[i+1:]...)
			break
		}
	}
}

// removeAll uninstalls every breakpoint in insertion order
func (t *breakpointTable) removeAll(processor cpu.Processor) {
	for len(t.all) > 0 {
		t.remove(processor, t.all[0].GuestAddress())
	}
}

// lookup returns the installed breakpoint at the guest address, or nil
func (t *breakpointTable) lookup(guestAddr uint32) *cpu.Breakpoint {
	return t.byGuestAddress[guestAddr]
}

func (t *breakpointTable) count() int {
	return len(t.all)
}
