package gdb

import (
	"github.com/mantis-emu/mantis/pkg/emu/cpu"
	"github.com/mantis-emu/mantis/pkg/emu/kernel"
)

// executionCache is the stub's snapshot of the last-seen execution
// state. It is rebuilt on every state transition and only ever touched
// under the stub mutex. While the guest runs the snapshot goes stale on
// purpose: racing the engine for thread state mid-execution is worse
// than answering from the last pause.
type executionCache struct {
	isStopped     bool
	notifyStopped bool

	// One-shot breakpoint-hit bookkeeping. notifyBPGuestAddress backs
	// the synthetic PC lie; notifyBPThreadID routes the pending stop
	// reply; lastBPThreadID is the step target.
	notifyBPGuestAddress *uint32
	notifyBPThreadID     *uint32
	lastBPThreadID       *uint32

	curThreadID *uint32

	threads []*cpu.ThreadDebugInfo

	// Module refs are held so no module unloads while we are attached.
	modules []kernel.Object
}

// refresh rebuilds the snapshot from the engine. Caller holds the stub
// mutex.
func (c *executionCache) refresh(processor cpu.Processor, objects kernel.ObjectTable) {
	c.isStopped = processor.ExecutionState() != cpu.ExecutionRunning
	c.notifyStopped = c.isStopped
	if !c.isStopped {
		// Keep the rest of the data stale while the guest executes.
		return
	}

	if objects != nil {
		c.modules = objects.GetObjectsByType(kernel.ObjectTypeModule)
	}

	c.threads = processor.QueryThreadDebugInfos()
	if c.curThreadID == nil && len(c.threads) > 0 {
		id := c.threads[0].ThreadID
		c.curThreadID = &id
	}
}

// threadInfo returns the snapshot for one thread id, or nil
func (c *executionCache) threadInfo(threadID uint32) *cpu.ThreadDebugInfo {
	for _, thread := range c.threads {
		if thread.ThreadID == threadID {
			return thread
		}
	}
	return nil
}

// curThreadInfo returns the snapshot of the debugger's current thread,
// or nil when no thread is selected
func (c *executionCache) curThreadInfo() *cpu.ThreadDebugInfo {
	if c.curThreadID == nil {
		return nil
	}
	return c.threadInfo(*c.curThreadID)
}
