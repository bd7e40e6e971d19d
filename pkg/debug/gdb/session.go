package gdb

import (
	"time"

	"github.com/mantis-emu/mantis/pkg/netio"
)

// idleSleep is how long the session actor parks when the wire is quiet
const idleSleep = 10 * time.Millisecond

// receiveChunkSize bounds one socket read; matches the advertised
// PacketSize so a full client packet fits in one read.
const receiveChunkSize = 1024

// session is the per-client I/O actor. It owns the receive buffer and
// the socket; everything else it touches lives behind the stub mutex.
// A session lives exactly as long as its TCP connection.
type session struct {
	stub   *Stub
	client *netio.Socket
	buffer []byte
}

func newSession(stub *Stub, client *netio.Socket) *session {
	return &session{stub: stub, client: client}
}

// run is the session main loop: poll the wire, drain complete frames,
// then deliver any pending stop notification. Runs on its own
// goroutine until the client disconnects or the stub shuts down.
func (s *session) run() {
	defer s.client.Close()

	// A debugger just attached: suspend the guest so it can look around.
	s.stub.processor.Pause()
	s.stub.refreshCache()

	s.client.SetNonblocking(true)

	chunk := make([]byte, receiveChunkSize)
	for !s.stub.stopping.Load() {
		if !s.client.IsConnected() {
			return
		}

		n, err := s.client.Receive(chunk)
		if n > 0 {
			s.buffer = append(s.buffer, chunk[:n]...)
			s.drainFrames()
		} else {
			if err != nil || !s.client.IsConnected() {
				return
			}
			time.Sleep(idleSleep)
		}

		s.deliverPendingStop()
	}
}

// drainFrames processes every complete frame sitting in the receive
// buffer: ack, dispatch, reply. Partial frames stay buffered for the
// next read.
func (s *session) drainFrames() {
	for {
		frame, rest, ok := nextFrame(s.buffer)
		if !ok {
			return
		}
		s.buffer = rest

		cmd, err := ParsePacket(frame)
		if err != nil {
			s.stub.log.Debug("gdb: dropping malformed packet", "err", err)
			s.client.Send([]byte{ctrlNack})
			continue
		}

		s.client.Send([]byte{ctrlAck})
		reply := s.stub.dispatch(cmd)
		s.client.Send(EncodePacket(reply))
	}
}

// deliverPendingStop pushes the asynchronous stop notification the
// engine flagged since the last iteration. The breakpoint thread, when
// known, becomes the debugger's current thread so follow-up register
// reads target the thread that trapped.
func (s *session) deliverPendingStop() {
	s.stub.mu.Lock()
	defer s.stub.mu.Unlock()

	cache := &s.stub.cache
	if !cache.notifyStopped {
		return
	}

	if cache.notifyBPThreadID != nil {
		id := *cache.notifyBPThreadID
		cache.curThreadID = &id
	}

	// Plain pauses carry no trap thread; report the current thread so
	// the debugger still gets a full T-form stop.
	stopThread := cache.notifyBPThreadID
	if stopThread == nil {
		stopThread = cache.curThreadID
	}

	reply := s.stub.threadStateReply(stopThread, signalTrap)
	s.client.Send(EncodePacket(reply))

	cache.notifyBPThreadID = nil
	cache.notifyStopped = false
}
