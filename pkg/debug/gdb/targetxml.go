package gdb

import (
	"strconv"
	"strings"
)

// targetXML is the static target description served through
// qXfer:features:read. The integer file is declared 32-bit on purpose
// (see readRegister); register numbering matches the regN constants.
// The payload is small enough to always fit one packet, so it is
// prefixed with the 'l' last-chunk marker and offsets are not honoured.
//
// TODO: describe the AltiVec file once VMX state is captured.
const targetXML = `l<?xml version="1.0"?>
<!DOCTYPE target SYSTEM "gdb-target.dtd">
<target version="1.0">
<feature name="org.gnu.gdb.power.core">
  <reg name="r0" bitsize="32" type="uint32"/>
  <reg name="r1" bitsize="32" type="uint32"/>
  <reg name="r2" bitsize="32" type="uint32"/>
  <reg name="r3" bitsize="32" type="uint32"/>
  <reg name="r4" bitsize="32" type="uint32"/>
  <reg name="r5" bitsize="32" type="uint32"/>
  <reg name="r6" bitsize="32" type="uint32"/>
  <reg name="r7" bitsize="32" type="uint32"/>
  <reg name="r8" bitsize="32" type="uint32"/>
  <reg name="r9" bitsize="32" type="uint32"/>
  <reg name="r10" bitsize="32" type="uint32"/>
  <reg name="r11" bitsize="32" type="uint32"/>
  <reg name="r12" bitsize="32" type="uint32"/>
  <reg name="r13" bitsize="32" type="uint32"/>
  <reg name="r14" bitsize="32" type="uint32"/>
  <reg name="r15" bitsize="32" type="uint32"/>
  <reg name="r16" bitsize="32" type="uint32"/>
  <reg name="r17" bitsize="32" type="uint32"/>
  <reg name="r18" bitsize="32" type="uint32"/>
  <reg name="r19" bitsize="32" type="uint32"/>
  <reg name="r20" bitsize="32" type="uint32"/>
  <reg name="r21" bitsize="32" type="uint32"/>
  <reg name="r22" bitsize="32" type="uint32"/>
  <reg name="r23" bitsize="32" type="uint32"/>
  <reg name="r24" bitsize="32" type="uint32"/>
  <reg name="r25" bitsize="32" type="uint32"/>
  <reg name="r26" bitsize="32" type="uint32"/>
  <reg name="r27" bitsize="32" type="uint32"/>
  <reg name="r28" bitsize="32" type="uint32"/>
  <reg name="r29" bitsize="32" type="uint32"/>
  <reg name="r30" bitsize="32" type="uint32"/>
  <reg name="r31" bitsize="32" type="uint32"/>

  <reg name="pc" bitsize="32" type="code_ptr" regnum="64"/>
  <reg name="msr" bitsize="32" type="uint32"/>
  <reg name="cr" bitsize="32" type="uint32"/>
  <reg name="lr" bitsize="32" type="code_ptr"/>
  <reg name="ctr" bitsize="32" type="uint32"/>
  <reg name="xer" bitsize="32" type="uint32"/>
</feature>
<feature name="org.gnu.gdb.power.fpu">
  <reg name="f0" bitsize="64" type="ieee_double" regnum="32"/>
  <reg name="f1" bitsize="64" type="ieee_double"/>
  <reg name="f2" bitsize="64" type="ieee_double"/>
  <reg name="f3" bitsize="64" type="ieee_double"/>
  <reg name="f4" bitsize="64" type="ieee_double"/>
  <reg name="f5" bitsize="64" type="ieee_double"/>
  <reg name="f6" bitsize="64" type="ieee_double"/>
  <reg name="f7" bitsize="64" type="ieee_double"/>
  <reg name="f8" bitsize="64" type="ieee_double"/>
  <reg name="f9" bitsize="64" type="ieee_double"/>
  <reg name="f10" bitsize="64" type="ieee_double"/>
  <reg name="f11" bitsize="64" type="ieee_double"/>
  <reg name="f12" bitsize="64" type="ieee_double"/>
  <reg name="f13" bitsize="64" type="ieee_double"/>
  <reg name="f14" bitsize="64" type="ieee_double"/>
  <reg name="f15" bitsize="64" type="ieee_double"/>
  <reg name="f16" bitsize="64" type="ieee_double"/>
  <reg name="f17" bitsize="64" type="ieee_double"/>
  <reg name="f18" bitsize="64" type="ieee_double"/>
  <reg name="f19" bitsize="64" type="ieee_double"/>
  <reg name="f20" bitsize="64" type="ieee_double"/>
  <reg name="f21" bitsize="64" type="ieee_double"/>
  <reg name="f22" bitsize="64" type="ieee_double"/>
  <reg name="f23" bitsize="64" type="ieee_double"/>
  <reg name="f24" bitsize="64" type="ieee_double"/>
  <reg name="f25" bitsize="64" type="ieee_double"/>
  <reg name="f26" bitsize="64" type="ieee_double"/>
  <reg name="f27" bitsize="64" type="ieee_double"/>
  <reg name="f28" bitsize="64" type="ieee_double"/>
  <reg name="f29" bitsize="64" type="ieee_double"/>
  <reg name="f30" bitsize="64" type="ieee_double"/>
  <reg name="f31" bitsize="64" type="ieee_double"/>

  <reg name="fpscr" bitsize="32" group="float" regnum="70"/>
</feature>
</target>
`

var xmlAttrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// buildThreadList renders the qXfer:threads:read blob from the cached
// thread snapshots. Caller holds the stub mutex.
func (s *Stub) buildThreadList() string {
	var buffer strings.Builder
	buffer.WriteString(`l<?xml version="1.0"?>`)
	buffer.WriteString("<threads>")
	for _, thread := range s.cache.threads {
		buffer.WriteString(`<thread id="`)
		buffer.WriteString(strconv.FormatUint(uint64(thread.ThreadID), 16))
		buffer.WriteString(`" name="`)
		buffer.WriteString(xmlAttrEscaper.Replace(thread.Name))
		buffer.WriteString(`"/>`)
	}
	buffer.WriteString("</threads>")
	return buffer.String()
}
