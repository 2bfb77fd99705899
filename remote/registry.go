// Package remote implements the Remote Command Registry: a process-global
// table of named operations dispatched between a tool host and a running
// client, riding on the wire package's TCP framing (spec.md §3 "Remote
// Command Descriptor", §4.6).
package remote

import (
	"sync"

	"github.com/forgecore/enginecore/wire"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("subsystem", "remote")

// ServerFn handles a request on the server side. async=true defers the
// reply to a later SendResponse call (spec.md §4.6).
type ServerFn func(serverUserData interface{}, payload []byte) (reply []byte, async bool, ok bool, errText string)

// ClientFn handles a response on the client side.
type ClientFn func(clientUserData interface{}, isErr bool, payload []byte, errText string)

// Descriptor is {fourCC, serverFn, clientFn, serverUserData,
// clientUserData, async}, per spec.md §3.
type Descriptor struct {
	FourCC         wire.FourCC
	ServerFn       ServerFn
	ClientFn       ClientFn
	ServerUserData interface{}
	ClientUserData interface{}
	Async          bool
}

// Registry is the command table plus the live server/client transport.
// ExecuteCommand and SendResponse are callable from any goroutine (spec.md
// §4.6); reply correlation beyond fourCC is the VFS layer's job, not the
// registry's.
type Registry struct {
	mu          sync.Mutex
	descriptors map[wire.FourCC]*Descriptor

	server *wire.Server
	client *wire.Client

	onDisconnect wire.DisconnectFunc
}

// NewRegistry creates an empty registry. Most callers only need one per
// process; Default provides a process-global instance for ergonomic parity
// with the original's singleton, per spec.md §9.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[wire.FourCC]*Descriptor)}
}

// Default is the process-global registry most call sites use.
var Default = NewRegistry()

// Register adds d to the table. Registering a duplicate fourCC is a
// programmer error: logged and asserted, per spec.md §7
// "DuplicateRegistration".
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[d.FourCC]; exists {
		log.WithField("fourCC", d.FourCC).Panic("duplicate remote command registration")
	}
	cp := d
	r.descriptors[d.FourCC] = &cp
}

// SetDisconnectHandler installs the callback invoked once per session end.
func (r *Registry) SetDisconnectHandler(fn wire.DisconnectFunc) {
	r.mu.Lock()
	r.onDisconnect = fn
	r.mu.Unlock()
}

func (r *Registry) lookup(cmd wire.FourCC) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.descriptors[cmd]
}

// replaceClientFn swaps the ClientFn of an already-registered descriptor
// under the registry lock, so a late rebind (e.g. RegisterConsoleClient
// attaching to a descriptor RegisterConsole already installed) can't race
// dispatchClient reading the same pointer.
func (r *Registry) replaceClientFn(cmd wire.FourCC, fn ClientFn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, exists := r.descriptors[cmd]
	if !exists {
		return false
	}
	d.ClientFn = fn
	return true
}

// StartServer begins listening on addr, dispatching registered commands'
// ServerFn as requests arrive.
func (r *Registry) StartServer(addr string) error {
	r.server = wire.NewServer(r.dispatchServer, r.handleDisconnect)
	return r.server.Listen(addr)
}

// Connect dials addr, dispatching registered commands' ClientFn as
// responses arrive.
func (r *Registry) Connect(addr string) error {
	client, err := wire.Dial(addr, r.dispatchClient, r.handleDisconnect)
	if err != nil {
		return err
	}
	r.client = client
	return nil
}

func (r *Registry) handleDisconnect(peerURL string, wasUs bool, lastErr error) {
	r.mu.Lock()
	fn := r.onDisconnect
	r.mu.Unlock()
	if fn != nil {
		fn(peerURL, wasUs, lastErr)
	}
}

func (r *Registry) dispatchServer(cmd wire.FourCC, payload []byte) ([]byte, bool, bool, string) {
	d := r.lookup(cmd)
	if d == nil || d.ServerFn == nil {
		return nil, false, false, "remote: no server handler for " + cmd.String()
	}
	reply, async, ok, errText := d.ServerFn(d.ServerUserData, payload)
	return reply, async || d.Async, ok, errText
}

func (r *Registry) dispatchClient(cmd wire.FourCC, isErr bool, payload []byte, errText string) {
	r.mu.Lock()
	var fn ClientFn
	var userData interface{}
	if d := r.descriptors[cmd]; d != nil {
		fn, userData = d.ClientFn, d.ClientUserData
	}
	r.mu.Unlock()
	if fn == nil {
		log.WithField("fourCC", cmd).Warn("remote: no client handler for response")
		return
	}
	fn(userData, isErr, payload, errText)
}

// Connected reports whether a client transport is currently dialed.
func (r *Registry) Connected() bool {
	return r.client != nil
}

// ServerAddr reports the bound listen address, or "" if no server is
// running.
func (r *Registry) ServerAddr() string {
	if r.server == nil || r.server.Addr() == nil {
		return ""
	}
	return r.server.Addr().String()
}

// ExecuteCommand frames a request and writes it to the peer socket under
// the client mutex, per spec.md §4.6.
func (r *Registry) ExecuteCommand(cmd wire.FourCC, payload []byte) error {
	if r.client == nil {
		return errors.New("remote: not connected")
	}
	return r.client.SendRequest(cmd, payload)
}

// SendResponse frames a reply and writes it to the server-peer socket under
// the server mutex, per spec.md §4.6. It is how an async ServerFn delivers
// its deferred reply.
func (r *Registry) SendResponse(cmd wire.FourCC, payload []byte, isErr bool, errText string) error {
	if r.server == nil {
		return errors.New("remote: no server running")
	}
	return r.server.SendResponse(cmd, payload, isErr, errText)
}

// Close tears down whichever transports are live.
func (r *Registry) Close() error {
	var err error
	if r.client != nil {
		if e := r.client.Close(); e != nil {
			err = e
		}
	}
	if r.server != nil {
		if e := r.server.Close(); e != nil {
			err = e
		}
	}
	return err
}
