// Package gdb implements a GDB Remote Serial Protocol stub for the
// emulated PowerPC guest. An external debugger (GDB, IDA, LLDB)
// attaches over TCP; the stub translates the RSP command surface into
// operations on the execution engine and streams stop notifications
// back as they happen.
package gdb

import (
	"bytes"
	"errors"

	"github.com/mantis-emu/mantis/pkg/utils"
)

// RSP control bytes
const (
	ctrlAck         = '+'
	ctrlNack        = '-'
	ctrlPacketStart = '$'
	ctrlPacketEnd   = '#'
	ctrlEscape      = '}'
	ctrlInterrupt   = '\x03'
)

// interruptCommand is the pseudo-command produced by the out-of-band
// interrupt byte. It has no framing and no checksum.
const interruptCommand = "\x03"

var (
	// ErrBadFrame is reported for data that is not an RSP packet
	ErrBadFrame = errors.New("gdb: malformed packet frame")
	// ErrBadChecksum is reported when the transmitted checksum does not
	// match the payload
	ErrBadChecksum = errors.New("gdb: packet checksum mismatch")
)

// Command is one parsed RSP request, split into the command token and
// the remaining payload. For single-letter commands the token is
// exactly one byte; only 'q' and 'v' commands carry multi-character
// names. Data keeps its leading separator when one was present.
type Command struct {
	Cmd      string
	Data     string
	Checksum uint8
}

// ParsePacket parses one framed RSP packet or the lone interrupt byte.
//
// Tokenization mirrors what real clients send: up to two stray leading
// ACK bytes are skipped (GDB opens with one, IDA sometimes doubles it),
// escapes are decoded with the decoded byte entering the checksum, and
// the command/data split happens at the first ':', '.' or ';' or after
// one byte for non-q/v commands.
func ParsePacket(packet []byte) (Command, error) {
	pos := 0
	readByte := func() byte {
		if pos >= len(packet) {
			return 0
		}
		c := packet[pos]
		pos++
		return c
	}

	c := readByte()
	if c != ctrlPacketStart {
		if c == ctrlAck {
			c = readByte()
		}
		if c == ctrlAck {
			c = readByte()
		}
		// The interrupt byte arrives without framing or checksum.
		if c == ctrlInterrupt {
			return Command{Cmd: interruptCommand}, nil
		}
		if c != ctrlPacketStart {
			return Command{}, ErrBadFrame
		}
	}

	var cmd, data []byte
	cmdPart := true
	var checksum uint8

	for {
		c = readByte()
		if c == 0 || c == ctrlPacketEnd {
			break
		}

		if c == ctrlEscape {
			c = readByte() ^ 0x20
		}
		checksum += c

		if cmdPart && (c == ':' || c == '.' || c == ';') {
			cmdPart = false
		}

		if cmdPart {
			cmd = append(cmd, c)
			if len(cmd) == 1 && c != 'q' && c != 'v' {
				cmdPart = false
			}
		} else {
			data = append(data, c)
		}
	}

	transmitted := parseHexByte(readByte(), readByte())
	if transmitted != checksum {
		return Command{}, ErrBadChecksum
	}

	return Command{Cmd: string(cmd), Data: string(data), Checksum: checksum}, nil
}

// EncodePacket frames a reply payload as $payload#hh. Bytes that would
// corrupt the frame are escaped; escaped bytes contribute their decoded
// value to the checksum so the convention matches the parser.
func EncodePacket(payload string) []byte {
	buf := make([]byte, 0, len(payload)+4)
	buf = append(buf, ctrlPacketStart)

	var checksum uint8
	for i := 0; i < len(payload); i++ {
		b := payload[i]
		checksum += b
		if mustEscape(b) {
			buf = append(buf, ctrlEscape, b^0x20)
		} else {
			buf = append(buf, b)
		}
	}

	buf = append(buf, ctrlPacketEnd)
	buf = append(buf, utils.HexByte(checksum)...)
	return buf
}

func mustEscape(b byte) bool {
	return b == ctrlPacketStart || b == ctrlPacketEnd || b == ctrlEscape || b == '*'
}

func parseHexByte(hi, lo byte) uint8 {
	h, _ := utils.HexNibble(hi)
	l, _ := utils.HexNibble(lo)
	return h<<4 | l
}

// nextFrame extracts one complete frame from the receive buffer: either
// the interrupt byte at the head, or everything through the first '#'
// plus its two checksum digits. The interrupt discards whatever follows
// it, matching how clients send it alone on the wire.
func nextFrame(buffer []byte) (frame, rest []byte, ok bool) {
	if len(buffer) == 0 {
		return nil, buffer, false
	}
	if buffer[0] == ctrlInterrupt {
		return buffer[:1], nil, true
	}
	end := bytes.IndexByte(buffer, ctrlPacketEnd)
	if end < 0 || end+2 >= len(buffer) {
		return nil, buffer, false
	}
	return buffer[:end+3], buffer[end+3:], true
}
