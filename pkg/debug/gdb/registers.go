package gdb

import (
	"github.com/mantis-emu/mantis/pkg/emu/cpu"
	"github.com/mantis-emu/mantis/pkg/utils"
)

// RSP register numbering, from gdb's rs6000 description. GPRs occupy
// 0..31 and FPRs 32..63; the specials follow.
const (
	regPC    = 64
	regMSR   = 65
	regCR    = 66
	regLR    = 67
	regCTR   = 68
	regXER   = 69
	regFPSCR = 70

	regCount = 71
)

// opaqueRegisterValue is returned for registers the JIT does not
// materialize. Debuggers render these as "unavailable" instead of a
// bogus zero.
const opaqueRegisterValue = "xxxxxxxx"

// readRegister renders one register of the thread snapshot as the
// fixed-width hex string the wire expects. Everything is presented as
// 32-bit PowerPC: some debuggers (IDA among them) switch to 64-bit mode
// and disable their decompiler when any integer register looks wider.
// FPRs are the exception and return the raw 64-bit double bit pattern.
// Unknown ids render as the empty string. Caller holds the stub mutex.
func (s *Stub) readRegister(thread *cpu.ThreadDebugInfo, rid uint32) string {
	if thread == nil {
		return ""
	}

	switch rid {
	case regPC:
		// If we recently hit a breakpoint the debugger is likely asking
		// for its registers. Report the breakpoint's guest address, once:
		// the engine's instantaneous PC may lag the trap site, and the
		// debugger matches this value against its own breakpoint table.
		if s.cache.notifyBPGuestAddress != nil {
			value := utils.FormatHex(*s.cache.notifyBPGuestAddress, 8)
			s.cache.notifyBPGuestAddress = nil
			return value
		}
		// Otherwise the first frame that has a guest PC attached; the
		// debugger does not care about host frames.
		for _, frame := range thread.Frames {
			if frame.GuestPC != 0 {
				return utils.FormatHex(frame.GuestPC, 8)
			}
		}
		return utils.FormatHex(uint32(0), 8)

	case regMSR, regXER, regFPSCR:
		return opaqueRegisterValue

	case regCR:
		return utils.FormatHex(thread.Context.CR, 8)
	case regLR:
		return utils.FormatHex(thread.Context.LR, 8)
	case regCTR:
		return utils.FormatHex(thread.Context.CTR, 8)

	default:
		if rid >= regCount {
			return ""
		}
		if rid > 31 {
			return utils.FormatHex(thread.Context.F[rid-32], 16)
		}
		return utils.FormatHex(thread.Context.R[rid], 8)
	}
}

// readAllRegisters concatenates the views of every register id in
// order, as the 'g' packet expects
func (s *Stub) readAllRegisters(thread *cpu.ThreadDebugInfo) string {
	var out []byte
	for rid := uint32(0); rid < regCount; rid++ {
		out = append(out, s.readRegister(thread, rid)...)
	}
	return string(out)
}
