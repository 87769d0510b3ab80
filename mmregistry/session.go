package mmregistry

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// outboundQueueCapacity bounds how many frames can be buffered for a slow
// MM connection before it is dropped, mirroring the bounded mailbox sizing
// degeri-dcrlnd's htlcswitch link uses for its outgoing packet queue.
const outboundQueueCapacity = 64

// session is one connected market maker's live WebSocket link. Reads and
// writes happen on dedicated goroutines per gorilla/websocket's
// single-reader/single-writer requirement.
type session struct {
	marketMaker string
	conn        *websocket.Conn

	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newSession(marketMaker string, conn *websocket.Conn) *session {
	return &session{
		marketMaker: marketMaker,
		conn:        conn,
		send:        make(chan []byte, outboundQueueCapacity),
	}
}

// enqueue queues frame for the session's writer goroutine. It never blocks:
// a full queue means the connection is unhealthy and is closed instead.
func (s *session) enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		s.closed = true
		close(s.send)
		s.conn.Close()
		return false
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
	s.conn.Close()
}

// writeLoop drains the send queue onto the connection until it is closed.
// Run as a dedicated goroutine per session.
func (s *session) writeLoop() {
	for frame := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.close()
			return
		}
	}
}
