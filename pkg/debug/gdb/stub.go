package gdb

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mantis-emu/mantis/pkg/emu/cpu"
	"github.com/mantis-emu/mantis/pkg/emu/kernel"
	"github.com/mantis-emu/mantis/pkg/netio"
	"github.com/mantis-emu/mantis/pkg/utils"
)

// Stub is the RSP debug stub for one emulator instance. The host
// constructs it, wires it into the processor's debug-listener slot and
// owns its lifetime; Listen starts accepting debugger connections.
//
// All shared state (the execution cache and the breakpoint table) lives
// behind a single mutex, taken by session actors on one side and the
// engine's debug-event callbacks on the other.
type Stub struct {
	processor cpu.Processor
	objects   kernel.ObjectTable
	log       *slog.Logger

	mu          sync.Mutex
	cache       executionCache
	breakpoints breakpointTable

	handlers map[string]handlerFunc

	server   *netio.SocketServer
	stopping atomic.Bool
}

// NewStub creates a stub over the processor and kernel object table.
// A nil logger falls back to slog.Default. The stub registers itself as
// the processor's debug listener.
func NewStub(processor cpu.Processor, objects kernel.ObjectTable, log *slog.Logger) *Stub {
	if log == nil {
		log = slog.Default()
	}
	s := &Stub{
		processor:   processor,
		objects:     objects,
		log:         log,
		breakpoints: newBreakpointTable(),
	}
	s.handlers = s.buildHandlers()
	processor.SetDebugListener(s)
	s.refreshCache()
	return s
}

// Listen binds the debug port and starts serving debugger connections,
// one session actor per client.
func (s *Stub) Listen(port int) error {
	server, err := netio.Create(port, func(client *netio.Socket) {
		s.log.Info("gdb: debugger connected", "peer", client.RemoteAddr())
		go newSession(s, client).run()
	})
	if err != nil {
		return utils.MakeError(err, "starting gdb stub")
	}
	s.server = server
	return nil
}

// Addr returns the bound listen address, or nil before Listen
func (s *Stub) Addr() net.Addr {
	if s.server == nil {
		return nil
	}
	return s.server.Addr()
}

// Close stops accepting clients and winds down every session at its
// next iteration. Installed breakpoints are left in place: clearing
// them is the debugger's job (the 'D' packet) or the engine's (the
// detached callback).
func (s *Stub) Close() error {
	s.stopping.Store(true)
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// refreshCache rebuilds the execution snapshot from the engine
func (s *Stub) refreshCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.refresh(s.processor, s.objects)
}

// BreakpointCount reports how many breakpoints the stub currently owns
func (s *Stub) BreakpointCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakpoints.count()
}

// --- cpu.DebugListener ---
//
// The engine invokes these on its own threads. Each takes the stub
// mutex, does bounded snapshot work and returns.

// OnFocus implements cpu.DebugListener
func (s *Stub) OnFocus() {}

// OnDetached removes every stub-owned breakpoint from the engine
func (s *Stub) OnDetached() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.refresh(s.processor, s.objects)
	s.breakpoints.removeAll(s.processor)
}

// OnExecutionPaused implements cpu.DebugListener
func (s *Stub) OnExecutionPaused() {
	s.log.Debug("gdb: execution paused")
	s.refreshCache()
}

// OnExecutionContinued implements cpu.DebugListener
func (s *Stub) OnExecutionContinued() {
	s.log.Debug("gdb: execution continued")
	s.refreshCache()
}

// OnExecutionEnded implements cpu.DebugListener
func (s *Stub) OnExecutionEnded() {
	s.log.Debug("gdb: execution ended")
	s.refreshCache()
}

// OnStepCompleted records the stepped thread for the pending stop
// reply. No breakpoint address is recorded — a step is not a hit — but
// debuggers expect the same stop-reply shape either way: some (IDA)
// remove the current breakpoint, step past it and only re-add it after
// the step is reported.
func (s *Stub) OnStepCompleted(thread *cpu.ThreadDebugInfo) {
	s.log.Debug("gdb: step completed", "thread", thread.ThreadID)
	s.mu.Lock()
	defer s.mu.Unlock()
	id := thread.ThreadID
	s.cache.notifyBPThreadID = &id
	s.cache.lastBPThreadID = &id
	s.cache.refresh(s.processor, s.objects)
}

// OnBreakpointHit records the trap site and thread; the guest address
// feeds the synthetic-PC lie until the next register read consumes it
func (s *Stub) OnBreakpointHit(bp *cpu.Breakpoint, thread *cpu.ThreadDebugInfo) {
	s.log.Debug("gdb: breakpoint hit",
		"addr", bp.GuestAddress(), "thread", thread.ThreadID)
	s.mu.Lock()
	defer s.mu.Unlock()
	addr := bp.GuestAddress()
	id := thread.ThreadID
	s.cache.notifyBPGuestAddress = &addr
	s.cache.notifyBPThreadID = &id
	s.cache.lastBPThreadID = &id
	s.cache.refresh(s.processor, s.objects)
}
