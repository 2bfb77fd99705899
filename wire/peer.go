package wire

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// PeerConn wraps a net.Conn with the dedicated mutex spec.md §5 requires:
// "any thread calling SendResponse/ExecuteCommand blocks on [the peer's]
// mutex". Reads are only ever performed by the owning read-loop goroutine,
// so only writes need the lock. SessionID disambiguates this connection's
// log lines from any connection that preceded or follows it on the same
// listener (only one peer is live at a time per spec.md §4.5, but sessions
// still need a stable identity across accept/disconnect log pairs).
type PeerConn struct {
	conn      net.Conn
	mu        sync.Mutex
	SessionID string
}

func newPeerConn(conn net.Conn) *PeerConn {
	return &PeerConn{conn: conn, SessionID: uuid.NewString()}
}

// SendRequest frames and writes a request (or handshake/teardown) packet,
// serialized against concurrent writers.
func (p *PeerConn) SendRequest(cmd FourCC, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return WriteRequest(p.conn, cmd, payload)
}

// SendResponse frames and writes a response packet, serialized against
// concurrent writers.
func (p *PeerConn) SendResponse(cmd FourCC, payload []byte, isErr bool, errText string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return WriteResponse(p.conn, cmd, payload, isErr, errText)
}

// Close closes the underlying connection, unblocking any in-flight read.
func (p *PeerConn) Close() error {
	return p.conn.Close()
}

// RemoteAddr returns the peer's address as a URL-ish string for disconnect
// reporting.
func (p *PeerConn) RemoteAddr() string {
	if p.conn == nil {
		return ""
	}
	return p.conn.RemoteAddr().String()
}
