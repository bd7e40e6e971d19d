package gdb

import (
	"log/slog"
	"testing"

	"github.com/mantis-emu/mantis/pkg/emu/cpu"
	"github.com/mantis-emu/mantis/pkg/emu/kernel"
)

// mockHeap is a test implementation of cpu.Heap
type mockHeap struct {
	protect cpu.MemoryProtect
	ok      bool
}

func (h *mockHeap) QueryProtect(addr uint32) (cpu.MemoryProtect, bool) {
	return h.protect, h.ok
}

// mockMemory maps a single heap at [base, base+len(data))
type mockMemory struct {
	base uint32
	data []byte
	heap *mockHeap
}

func (m *mockMemory) LookupHeap(addr uint32) cpu.Heap {
	if addr < m.base || uint64(addr) >= uint64(m.base)+uint64(len(m.data)) {
		return nil
	}
	return m.heap
}

func (m *mockMemory) TranslateVirtual(addr uint32) []byte {
	if m.LookupHeap(addr) == nil {
		return nil
	}
	return m.data[addr-m.base:]
}

// mockProcessor is a test implementation of cpu.Processor
type mockProcessor struct {
	state    cpu.ExecutionState
	threads  []*cpu.ThreadDebugInfo
	memory   *mockMemory
	listener cpu.DebugListener

	// hostAddrs overrides the code-translation map per guest address;
	// unlisted addresses get a unique synthetic pair.
	hostAddrs map[uint32][]uint64

	installed []*cpu.Breakpoint

	pauseCount    int
	continueCount int
	stepCount     int
	steppedThread uint32
}

func (p *mockProcessor) ExecutionState() cpu.ExecutionState { return p.state }

func (p *mockProcessor) Pause() {
	p.pauseCount++
	p.state = cpu.ExecutionPaused
}

func (p *mockProcessor) Continue() {
	p.continueCount++
	p.state = cpu.ExecutionRunning
}

func (p *mockProcessor) StepGuestInstruction(threadID uint32) {
	p.stepCount++
	p.steppedThread = threadID
}

func (p *mockProcessor) AddBreakpoint(bp *cpu.Breakpoint) error {
	p.installed = append(p.installed, bp)
	return nil
}

func (p *mockProcessor) RemoveBreakpoint(bp *cpu.Breakpoint) {
	for i, installed := range p.installed {
		if installed == bp {
			p.installed = append(p.installed[:i], p.installed[i+1:]...)
			return
		}
	}
}

func (p *mockProcessor) HostAddresses(guestAddr uint32) []uint64 {
	if addrs, found := p.hostAddrs[guestAddr]; found {
		return addrs
	}
	return []uint64{0x1000_0000 + uint64(guestAddr)*2, 0x1000_0001 + uint64(guestAddr)*2}
}

func (p *mockProcessor) QueryThreadDebugInfos() []*cpu.ThreadDebugInfo { return p.threads }

func (p *mockProcessor) Memory() cpu.Memory { return p.memory }

func (p *mockProcessor) SetDebugListener(listener cpu.DebugListener) { p.listener = listener }

// mockModule is a test implementation of kernel.Module
type mockModule struct {
	name string
	base uint32
}

func (m *mockModule) Type() kernel.ObjectType { return kernel.ObjectTypeModule }
func (m *mockModule) Name() string            { return m.name }
func (m *mockModule) BaseAddress() uint32     { return m.base }

// mockObjectTable is a test implementation of kernel.ObjectTable
type mockObjectTable struct {
	objects []kernel.Object
}

func (t *mockObjectTable) GetObjectsByType(objType kernel.ObjectType) []kernel.Object {
	var out []kernel.Object
	for _, obj := range t.objects {
		if obj.Type() == objType {
			out = append(out, obj)
		}
	}
	return out
}

// testThread builds a paused thread snapshot with a sensible frame list
func testThread(id uint32, name string, pc uint32) *cpu.ThreadDebugInfo {
	thread := &cpu.ThreadDebugInfo{
		ThreadID: id,
		Name:     name,
		Frames: []cpu.Frame{
			{GuestPC: 0, HostPC: 0x7000_0000}, // JIT trampoline frame
			{GuestPC: pc, HostPC: 0x7000_1000},
		},
	}
	thread.Context.LR = pc + 8
	return thread
}

// newTestStub builds a stub over a paused mock processor with the given
// threads and a readable heap at 0x82000000
func newTestStub(t *testing.T, threads ...*cpu.ThreadDebugInfo) (*Stub, *mockProcessor) {
	t.Helper()

	if len(threads) == 0 {
		threads = []*cpu.ThreadDebugInfo{testThread(1, "Main Thread", 0x82000100)}
	}

	processor := &mockProcessor{
		state:   cpu.ExecutionPaused,
		threads: threads,
		memory: &mockMemory{
			base: 0x82000000,
			data: make([]byte, 0x10000),
			heap: &mockHeap{protect: cpu.MemoryProtectRead | cpu.MemoryProtectExecute, ok: true},
		},
	}
	objects := &mockObjectTable{objects: []kernel.Object{&mockModule{name: "default.xex", base: 0x82000000}}}

	stub := NewStub(processor, objects, slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError})))
	return stub, processor
}

// testWriter routes stray log output through the test log
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
