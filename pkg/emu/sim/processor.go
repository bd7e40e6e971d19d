// Package sim provides an in-process reference implementation of the
// execution-engine interfaces the debug stub consumes. It models a
// paused-by-default PowerPC guest with a flat heap and a fixed set of
// threads, raising debug events from its own goroutine the way the real
// engine does. The CLI serves it as an attach target and the protocol
// tests drive the stub end to end against it.
package sim

import (
	"sync"

	"github.com/mantis-emu/mantis/pkg/emu/cpu"
	"github.com/mantis-emu/mantis/pkg/emu/kernel"
	"github.com/mantis-emu/mantis/pkg/utils"
)

// instructionSize is the fixed width of a PPC instruction
const instructionSize = 4

// hostCodeBase is where the fake JIT pretends to emit translated code
const hostCodeBase = 0x7ff6_0000_0000

// Config describes the simulated guest
type Config struct {
	// HeapBase/HeapSize define the single readable guest heap
	HeapBase uint32
	HeapSize uint32
	// Threads seeds the guest thread list; nil gets one default thread
	Threads []*cpu.ThreadDebugInfo
	// ModuleName names the single loaded module
	ModuleName string
}

// DefaultConfig returns a guest with one thread parked at the heap base
func DefaultConfig() Config {
	const base = 0x82000000
	thread := &cpu.ThreadDebugInfo{
		ThreadID: 1,
		Name:     "Main Thread",
		Frames:   []cpu.Frame{{GuestPC: base, HostPC: hostCodeBase}},
	}
	thread.Context.R[1] = 0x7002FFF0
	thread.Context.LR = base
	return Config{
		HeapBase:   base,
		HeapSize:   1 << 20,
		Threads:    []*cpu.ThreadDebugInfo{thread},
		ModuleName: "default.xex",
	}
}

// Processor is the reference cpu.Processor. All engine state sits
// behind one mutex; debug events are handed to a dispatch goroutine so
// listener callbacks never run under it and never on the caller's
// goroutine.
type Processor struct {
	mu       sync.Mutex
	state    cpu.ExecutionState
	listener cpu.DebugListener
	threads  []*cpu.ThreadDebugInfo
	installs []*cpu.Breakpoint
	heap     *heap

	events chan func(listener cpu.DebugListener)
	done   chan struct{}
}

// New builds a paused guest from the config
func New(config Config) *Processor {
	threads := config.Threads
	if len(threads) == 0 {
		threads = DefaultConfig().Threads
	}
	p := &Processor{
		state:   cpu.ExecutionPaused,
		threads: threads,
		heap: &heap{
			base: config.HeapBase,
			mem:  make([]byte, config.HeapSize),
		},
		events: make(chan func(listener cpu.DebugListener), 16),
		done:   make(chan struct{}),
	}
	go p.dispatchEvents()
	return p
}

// Close stops the event dispatch goroutine
func (p *Processor) Close() {
	close(p.done)
}

func (p *Processor) dispatchEvents() {
	for {
		select {
		case <-p.done:
			return
		case event := <-p.events:
			p.mu.Lock()
			listener := p.listener
			p.mu.Unlock()
			if listener != nil {
				event(listener)
			}
		}
	}
}

func (p *Processor) emit(event func(listener cpu.DebugListener)) {
	select {
	case p.events <- event:
	case <-p.done:
	}
}

// SetDebugListener implements cpu.Processor
func (p *Processor) SetDebugListener(listener cpu.DebugListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = listener
}

// ExecutionState implements cpu.Processor
func (p *Processor) ExecutionState() cpu.ExecutionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pause suspends the guest and reports the pause asynchronously
func (p *Processor) Pause() {
	p.mu.Lock()
	p.state = cpu.ExecutionPaused
	p.mu.Unlock()
	p.emit(func(l cpu.DebugListener) { l.OnExecutionPaused() })
}

// Continue resumes the guest
func (p *Processor) Continue() {
	p.mu.Lock()
	p.state = cpu.ExecutionRunning
	p.mu.Unlock()
	p.emit(func(l cpu.DebugListener) { l.OnExecutionContinued() })
}

// StepGuestInstruction advances one thread by a single instruction and
// reports completion. Unknown thread ids step nothing.
func (p *Processor) StepGuestInstruction(threadID uint32) {
	p.mu.Lock()
	var stepped *cpu.ThreadDebugInfo
	for _, thread := range p.threads {
		if thread.ThreadID != threadID {
			continue
		}
		stepped = thread
		for i := range thread.Frames {
			if thread.Frames[i].GuestPC != 0 {
				thread.Frames[i].GuestPC += instructionSize
				break
			}
		}
		break
	}
	p.state = cpu.ExecutionPaused
	p.mu.Unlock()

	if stepped != nil {
		p.emit(func(l cpu.DebugListener) { l.OnStepCompleted(stepped) })
	}
}

// AddBreakpoint implements cpu.Processor
func (p *Processor) AddBreakpoint(bp *cpu.Breakpoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installs = append(p.installs, bp)
	return nil
}

// RemoveBreakpoint implements cpu.Processor
func (p *Processor) RemoveBreakpoint(bp *cpu.Breakpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, installed := range p.installs {
		if installed == bp {
			p.installs = append(p.installs[:i], p.installs[i+1:]...)
			return
		}
	}
}

// InstalledBreakpoints returns the engine-side view of armed
// breakpoints, for tests and tooling
func (p *Processor) InstalledBreakpoints() []*cpu.Breakpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*cpu.Breakpoint(nil), p.installs...)
}

// HostAddresses implements the fake JIT code-translation map: every
// guest instruction gets two deterministic host locations.
func (p *Processor) HostAddresses(guestAddr uint32) []uint64 {
	base := hostCodeBase + uint64(guestAddr)*2
	return []uint64{base, base + 1}
}

// QueryThreadDebugInfos implements cpu.Processor
func (p *Processor) QueryThreadDebugInfos() []*cpu.ThreadDebugInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*cpu.ThreadDebugInfo(nil), p.threads...)
}

// Memory implements cpu.Processor
func (p *Processor) Memory() cpu.Memory {
	return p.heap
}

// HitBreakpoint simulates a guest thread trapping on the breakpoint
// installed at the guest address. The guest pauses at the trap site and
// the breakpoint's hit callback fires on the engine goroutine.
func (p *Processor) HitBreakpoint(guestAddr uint32, threadID uint32) error {
	p.mu.Lock()
	var bp *cpu.Breakpoint
	for _, installed := range p.installs {
		if installed.GuestAddress() == guestAddr {
			bp = installed
			break
		}
	}
	var thread *cpu.ThreadDebugInfo
	for _, candidate := range p.threads {
		if candidate.ThreadID == threadID {
			thread = candidate
			break
		}
	}
	if bp == nil || thread == nil {
		p.mu.Unlock()
		return utils.MakeError(errNoSuchTrap, "breakpoint %#x / thread %d", guestAddr, threadID)
	}
	p.state = cpu.ExecutionPaused
	p.mu.Unlock()

	p.emit(func(cpu.DebugListener) { bp.Hit(thread) })
	return nil
}

// WriteGuestMemory seeds guest memory, for tests and demo setup
func (p *Processor) WriteGuestMemory(addr uint32, data []byte) error {
	return p.heap.write(addr, data)
}

// --- memory ---

var (
	errNoSuchTrap = simError("sim: no installed breakpoint or thread")
	errOutOfRange = simError("sim: address outside guest heap")
)

type simError string

func (e simError) Error() string { return string(e) }

// heap is the single flat guest heap; it doubles as the memory manager
type heap struct {
	base uint32
	mem  []byte
}

// LookupHeap implements cpu.Memory
func (h *heap) LookupHeap(addr uint32) cpu.Heap {
	if !h.contains(addr) {
		return nil
	}
	return h
}

// TranslateVirtual implements cpu.Memory
func (h *heap) TranslateVirtual(addr uint32) []byte {
	if !h.contains(addr) {
		return nil
	}
	return h.mem[addr-h.base:]
}

// QueryProtect implements cpu.Heap
func (h *heap) QueryProtect(addr uint32) (cpu.MemoryProtect, bool) {
	if !h.contains(addr) {
		return 0, false
	}
	return cpu.MemoryProtectRead | cpu.MemoryProtectExecute, true
}

func (h *heap) contains(addr uint32) bool {
	return addr >= h.base && uint64(addr) < uint64(h.base)+uint64(len(h.mem))
}

func (h *heap) write(addr uint32, data []byte) error {
	if !h.contains(addr) || uint64(addr-h.base)+uint64(len(data)) > uint64(len(h.mem)) {
		return utils.MakeError(errOutOfRange, "write of %d bytes at %#x", len(data), addr)
	}
	copy(h.mem[addr-h.base:], data)
	return nil
}

// --- kernel objects ---

// module is the single loaded guest module
type module struct {
	name string
	base uint32
}

func (m *module) Type() kernel.ObjectType { return kernel.ObjectTypeModule }
func (m *module) Name() string            { return m.name }
func (m *module) BaseAddress() uint32     { return m.base }

// ObjectTable is a static kernel object table over the simulated guest
type ObjectTable struct {
	objects []kernel.Object
}

// NewObjectTable builds a table holding the guest's single module
func NewObjectTable(config Config) *ObjectTable {
	name := config.ModuleName
	if name == "" {
		name = DefaultConfig().ModuleName
	}
	return &ObjectTable{
		objects: []kernel.Object{&module{name: name, base: config.HeapBase}},
	}
}

// GetObjectsByType implements kernel.ObjectTable
func (t *ObjectTable) GetObjectsByType(objType kernel.ObjectType) []kernel.Object {
	var out []kernel.Object
	for _, obj := range t.objects {
		if obj.Type() == objType {
			out = append(out, obj)
		}
	}
	return out
}
