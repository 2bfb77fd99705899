package wire

import (
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("subsystem", "wire")

// RequestHandler dispatches one user command. reply is the framed response
// payload; async indicates the handler will deliver its reply later via
// Server.SendResponse (spec.md §4.6 "async=true means the server may defer
// the reply"); ok false sends an error response carrying errText.
type RequestHandler func(cmd FourCC, payload []byte) (reply []byte, async bool, ok bool, errText string)

// DisconnectFunc is invoked once per session end, per spec.md §4.5.
type DisconnectFunc func(peerURL string, wasInitiatedByUs bool, lastErr error)

// Server listens and serves each accepted connection on its own goroutine.
// Only the most recently accepted peer is tracked, and SendResponse writes
// to that peer (spec.md §4.5 "server (listens, accepts one peer at a
// time)").
type Server struct {
	ln net.Listener

	mu      sync.Mutex
	peer    *PeerConn
	handler RequestHandler
	onDisc  DisconnectFunc

	quit     chan struct{}
	quitOnce sync.Once
}

// NewServer constructs a Server; call Listen to start accepting.
func NewServer(handler RequestHandler, onDisconnect DisconnectFunc) *Server {
	return &Server{handler: handler, onDisc: onDisconnect, quit: make(chan struct{})}
}

// Listen starts the accept loop on addr in a background goroutine.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go s.acceptLoop()
	return nil
}

// Addr reports the listener's bound address.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.WithError(err).Warn("accept failed")
				return
			}
		}
		peer := newPeerConn(conn)
		s.mu.Lock()
		s.peer = peer
		s.mu.Unlock()
		go s.serve(peer)
	}
}

func (s *Server) serve(peer *PeerConn) {
	var lastErr error
	wasInitiatedByUs := false
	handshakeDone := false

	log.WithField("session", peer.SessionID).WithField("peer", peer.RemoteAddr()).Info("accepted connection")

	defer func() {
		peer.Close()
		s.mu.Lock()
		if s.peer == peer {
			s.peer = nil
		}
		s.mu.Unlock()
		log.WithField("session", peer.SessionID).WithField("lastErr", lastErr).Info("connection closed")
		if s.onDisc != nil {
			s.onDisc(peer.RemoteAddr(), wasInitiatedByUs, lastErr)
		}
	}()

	for {
		hdr, err := ReadRequestHeader(peer.conn)
		if err != nil {
			if err == ErrProtocolMismatch {
				log.Warn("dropping connection: sentinel mismatch")
			}
			lastErr = err
			return
		}

		switch hdr.Cmd {
		case HELO:
			if _, err := ReadRequestPayload(peer.conn, hdr); err != nil {
				lastErr = err
				return
			}
			if err := peer.SendRequest(HELO, nil); err != nil {
				lastErr = err
				return
			}
			handshakeDone = true
			continue
		case BYE0:
			if _, err := ReadRequestPayload(peer.conn, hdr); err != nil {
				lastErr = err
				return
			}
			_ = peer.SendRequest(BYE0, nil)
			wasInitiatedByUs = false
			return
		}

		if !handshakeDone {
			log.Warn("dropping connection: command received before handshake")
			lastErr = io.ErrUnexpectedEOF
			return
		}

		payload, err := ReadRequestPayload(peer.conn, hdr)
		if err != nil {
			lastErr = err
			return
		}

		reply, async, ok, errText := s.handler(hdr.Cmd, payload)
		if !ok {
			if err := peer.SendResponse(hdr.Cmd, nil, true, errText); err != nil {
				lastErr = err
				return
			}
			continue
		}
		if async {
			continue // the handler will call SendResponse later
		}
		if err := peer.SendResponse(hdr.Cmd, reply, false, ""); err != nil {
			lastErr = err
			return
		}
	}
}

// SendResponse sends a deferred (async) reply to the current peer, framed
// under the server-peer mutex, per spec.md §4.6.
func (s *Server) SendResponse(cmd FourCC, payload []byte, isErr bool, errText string) error {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()
	if peer == nil {
		return io.ErrClosedPipe
	}
	return peer.SendResponse(cmd, payload, isErr, errText)
}

// Close stops accepting new connections and closes the current peer.
func (s *Server) Close() error {
	s.quitOnce.Do(func() { close(s.quit) })
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()
	if peer != nil {
		peer.Close()
	}
	return err
}
