package cpu

// BreakpointHitFunc is invoked by the processor when a guest thread
// traps on an installed breakpoint.
type BreakpointHitFunc func(bp *Breakpoint, thread *ThreadDebugInfo)

// Breakpoint is a software breakpoint on one guest instruction. A guest
// instruction may have been JITed to several host locations; the
// breakpoint patches all of them. The creator owns the breakpoint; the
// processor holds a non-owning reference between AddBreakpoint and
// RemoveBreakpoint.
type Breakpoint struct {
	guestAddress  uint32
	hostAddresses []uint64
	onHit         BreakpointHitFunc
}

// NewCodeBreakpoint builds an uninstalled breakpoint for the guest
// address, resolving its host locations through the processor's
// code-translation map.
func NewCodeBreakpoint(p Processor, guestAddr uint32, onHit BreakpointHitFunc) *Breakpoint {
	return &Breakpoint{
		guestAddress:  guestAddr,
		hostAddresses: p.HostAddresses(guestAddr),
		onHit:         onHit,
	}
}

// GuestAddress returns the guest instruction address
func (bp *Breakpoint) GuestAddress() uint32 {
	return bp.guestAddress
}

// HostAddresses returns the host code addresses patched by this breakpoint
func (bp *Breakpoint) HostAddresses() []uint64 {
	return bp.hostAddresses
}

// ContainsHostAddress reports whether addr is one of the breakpoint's
// host locations
func (bp *Breakpoint) ContainsHostAddress(addr uint64) bool {
	for _, host := range bp.hostAddresses {
		if host == addr {
			return true
		}
	}
	return false
}

// Hit dispatches the hit callback. Called by the processor from the
// trapping thread.
func (bp *Breakpoint) Hit(thread *ThreadDebugInfo) {
	if bp.onHit != nil {
		bp.onHit(bp, thread)
	}
}
