package gdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mantis-emu/mantis/pkg/emu/cpu"
	"github.com/mantis-emu/mantis/pkg/utils"
)

// Canonical RSP replies
const (
	replyOK    = "OK"
	replyError = "E01"
)

// signalTrap is the signal number reported for every stop: breakpoint
// hits and completed steps both surface as SIGTRAP.
const signalTrap = 0x05

type handlerFunc func(data string) string

// buildHandlers wires the dispatch table. Tokens absent from the table
// reply with an empty payload, which RSP defines as "not supported".
// Handlers run on the session goroutine with the stub mutex held.
func (s *Stub) buildHandlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		// Sent when the connection is first established, to query the
		// reason the target halted.
		"?": func(string) string { return "S05" },

		// Extended mode; nothing changes for us.
		"!": func(string) string { return replyOK },

		"c": func(string) string { return s.executionContinue() },
		// Continue-with-signal; the signal argument is ignored.
		"C": func(string) string { return s.executionContinue() },
		"s": func(string) string { return s.executionStep() },

		interruptCommand: func(string) string { return s.executionPause() },

		"m": s.readMemoryCommand,
		"p": s.readRegisterCommand,
		// Register writes are unimplemented; claiming success keeps
		// debuggers from aborting their attach flow.
		"P": func(string) string { return replyOK },
		"g": func(string) string {
			thread := s.cache.curThreadInfo()
			if thread == nil {
				return replyError
			}
			return s.readAllRegisters(thread)
		},

		"H":  s.setCurrentThread,
		"qC": s.currentThreadReply,

		"Z": s.createBreakpointCommand,
		"z": s.deleteBreakpointCommand,
		"D": func(string) string { return s.detach() },

		"vAttach": func(string) string { return "S05" },

		"qSupported": func(string) string {
			return "PacketSize=1024;qXfer:features:read+;qXfer:threads:read+"
		},
		"qfThreadInfo": s.threadInfoList,
		"qXfer":        s.xferCommand,
	}
}

// dispatch routes one parsed command to its handler and returns the
// reply payload. Unknown tokens reply empty.
func (s *Stub) dispatch(cmd Command) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	handler, found := s.handlers[cmd.Cmd]
	if !found {
		s.log.Debug("gdb: unsupported packet", "cmd", cmd.Cmd, "data", cmd.Data)
		return ""
	}
	return handler(cmd.Data)
}

func (s *Stub) executionPause() string {
	s.log.Debug("gdb: pause requested")
	s.processor.Pause()
	return replyOK
}

func (s *Stub) executionContinue() string {
	s.log.Debug("gdb: continue requested")
	s.processor.Continue()
	return replyOK
}

// executionStep steps the thread that last trapped. With no recorded
// thread the step silently does nothing; the debugger still gets OK and
// recovers on the next stop.
func (s *Stub) executionStep() string {
	if s.cache.lastBPThreadID != nil {
		s.log.Debug("gdb: step requested", "thread", *s.cache.lastBPThreadID)
		s.processor.StepGuestInstruction(*s.cache.lastBPThreadID)
	}
	return replyOK
}

// readMemoryCommand handles 'm addr,len'. The read is refused unless
// the memory manager resolves the heap and the page is readable.
func (s *Stub) readMemoryCommand(data string) string {
	addrField, lenField, found := strings.Cut(data, ",")
	if !found {
		return replyError
	}
	addr := utils.ParseHex[uint32](addrField)
	length := utils.ParseHex[uint32](lenField)

	memory := s.processor.Memory()
	heap := memory.LookupHeap(addr)
	if heap == nil {
		return replyError
	}
	protect, ok := heap.QueryProtect(addr)
	if !ok || protect&cpu.MemoryProtectRead == 0 {
		return replyError
	}

	mem := memory.TranslateVirtual(addr)
	if uint64(len(mem)) < uint64(length) {
		return replyError
	}

	out := make([]byte, 0, length*2)
	for _, b := range mem[:length] {
		out = append(out, utils.HexByte(b)...)
	}
	return string(out)
}

func (s *Stub) readRegisterCommand(data string) string {
	rid := utils.ParseHex[uint32](data)
	result := s.readRegister(s.cache.curThreadInfo(), rid)
	if result == "" {
		return replyError
	}
	return result
}

// setCurrentThread handles 'H<op><tid>'. The op letter ('g' or 'c') is
// ignored; unknown ids (including the "-1" all-threads form) fall back
// to the first thread.
func (s *Stub) setCurrentThread(data string) string {
	// Reset to a known good id first.
	s.cache.curThreadID = nil
	if len(s.cache.threads) > 0 {
		id := s.cache.threads[0].ThreadID
		s.cache.curThreadID = &id
	}

	if len(data) > 1 {
		if tid, err := strconv.ParseInt(data[1:], 16, 64); err == nil {
			for _, thread := range s.cache.threads {
				if int64(thread.ThreadID) == tid {
					id := thread.ThreadID
					s.cache.curThreadID = &id
					break
				}
			}
		}
	}

	return replyOK
}

func (s *Stub) currentThreadReply(string) string {
	if s.cache.curThreadID == nil {
		return replyError
	}
	return "QC" + strconv.FormatUint(uint64(*s.cache.curThreadID), 10)
}

// parseBreakpointAddr extracts the address from 'type,addr,kind' data
func parseBreakpointAddr(data string) (uint32, bool) {
	if len(data) < 3 {
		return 0, false
	}
	addrField, _, _ := strings.Cut(data[2:], ",")
	if addrField == "" {
		return 0, false
	}
	return utils.ParseHex[uint32](addrField), true
}

func (s *Stub) createBreakpointCommand(data string) string {
	addr, ok := parseBreakpointAddr(data)
	if !ok {
		return replyError
	}

	s.log.Debug("gdb: adding breakpoint", "addr", fmt.Sprintf("%#x", addr))
	bp := cpu.NewCodeBreakpoint(s.processor, addr, s.OnBreakpointHit)
	if err := s.breakpoints.install(s.processor, bp); err != nil {
		s.log.Debug("gdb: breakpoint rejected", "addr", fmt.Sprintf("%#x", addr), "err", err)
		return replyError
	}
	return replyOK
}

func (s *Stub) deleteBreakpointCommand(data string) string {
	addr, ok := parseBreakpointAddr(data)
	if !ok {
		return replyError
	}

	s.log.Debug("gdb: deleting breakpoint", "addr", fmt.Sprintf("%#x", addr))
	s.breakpoints.remove(s.processor, addr)
	return replyOK
}

// detach removes every breakpoint and lets the guest run again
func (s *Stub) detach() string {
	s.log.Debug("gdb: debugger detached")
	s.breakpoints.removeAll(s.processor)
	if s.processor.ExecutionState() == cpu.ExecutionPaused {
		s.processor.Continue()
	}
	return replyOK
}

func (s *Stub) threadInfoList(string) string {
	var ids []string
	for _, thread := range s.cache.threads {
		ids = append(ids, strconv.FormatUint(uint64(thread.ThreadID), 10))
	}
	return "m" + strings.Join(ids, ",")
}

// xferCommand serves the features and threads blobs. Both are well
// below the advertised PacketSize, so offset/length are not honoured
// and the whole blob ships with its 'l' marker.
func (s *Stub) xferCommand(data string) string {
	param := strings.TrimPrefix(data, ":")
	subCmd, _, _ := strings.Cut(param, ":")
	switch subCmd {
	case "features":
		return targetXML
	case "threads":
		return s.buildThreadList()
	default:
		return replyError
	}
}

// threadStateReply builds the asynchronous stop reply. The T-form
// carries the synthesized PC and LR so the debugger can map the stop to
// its breakpoint list without a register round-trip; an unknown thread
// degrades to the bare S-form. Caller holds the stub mutex.
func (s *Stub) threadStateReply(threadID *uint32, signal uint8) string {
	if threadID == nil {
		return "S05"
	}
	thread := s.cache.threadInfo(*threadID)
	if thread == nil {
		return "S05"
	}

	var pc uint32
	for _, frame := range thread.Frames {
		if frame.GuestPC != 0 {
			pc = frame.GuestPC
			break
		}
	}
	// If a breakpoint was hit report its address, so the debugger can
	// match the stop against its own breakpoint table.
	if s.cache.notifyBPGuestAddress != nil {
		pc = *s.cache.notifyBPGuestAddress
	}

	return fmt.Sprintf("T%02x%02x:%s;%02x:%s;thread:%x;",
		signal,
		regPC, utils.FormatHex(pc, 8),
		regLR, utils.FormatHex(thread.Context.LR, 8),
		thread.ThreadID)
}
