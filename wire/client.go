package wire

import (
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ResponseHandler is invoked on the client's read-loop goroutine for every
// response frame received, per spec.md §9 "Callback threading".
type ResponseHandler func(cmd FourCC, isErr bool, payload []byte, errText string)

// Client connects once to a remote peer and runs a symmetric read loop
// expecting response frames (spec.md §4.5).
type Client struct {
	*PeerConn
	onResponse ResponseHandler
	onDisc     DisconnectFunc

	closing int32
}

// Dial connects to addr, exchanges the HELO handshake synchronously, and
// starts the background read loop.
func Dial(addr string, onResponse ResponseHandler, onDisconnect DisconnectFunc) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	peer := newPeerConn(conn)
	if err := peer.SendRequest(HELO, nil); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "wire: handshake send")
	}
	hdr, err := ReadRequestHeader(conn)
	if err != nil || hdr.Cmd != HELO {
		conn.Close()
		return nil, errors.Wrap(err, "wire: handshake reply")
	}
	if _, err := ReadRequestPayload(conn, hdr); err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{PeerConn: peer, onResponse: onResponse, onDisc: onDisconnect}
	log.WithField("session", peer.SessionID).WithField("addr", addr).Info("connected")
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	var lastErr error
	for {
		hdr, err := ReadResponseHeader(c.conn)
		if err != nil {
			lastErr = err
			break
		}
		payload, errText, err := ReadResponseBody(c.conn, hdr)
		if err != nil {
			lastErr = err
			break
		}
		if c.onResponse != nil {
			c.onResponse(hdr.Cmd, hdr.Status == StatusErr, payload, errText)
		}
	}
	wasUs := atomic.LoadInt32(&c.closing) != 0
	c.conn.Close()
	if c.onDisc != nil {
		c.onDisc(c.RemoteAddr(), wasUs, lastErr)
	}
}

// Close sends BYE0 and closes the connection, marking the disconnect as
// self-initiated.
func (c *Client) Close() error {
	atomic.StoreInt32(&c.closing, 1)
	_ = c.SendRequest(BYE0, nil)
	return c.conn.Close()
}
