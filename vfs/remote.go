package vfs

import (
	"encoding/binary"
	"time"

	"github.com/forgecore/enginecore/remote"
	"github.com/forgecore/enginecore/wire"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// pendingTTL bounds how long a remote request waits for a reply before the
// cache self-evicts it, so an abandoned request cannot leak forever
// (Domain Stack: go-cache "TTL-expiring store").
const pendingTTL = 30 * time.Second

// pendingKey correlates a reply to its request by (fourCC, path), per
// spec.md §4.5 "pop the oldest pending request with matching fourCC-and-path
// tuple" and §4.8.
func pendingKey(cmd wire.FourCC, path string) string {
	return cmd.String() + "\x00" + path
}

// remoteIO issues VFS operations over the wire using the remote command
// registry and tracks in-flight requests in a TTL cache keyed by
// (fourCC, path), per spec.md §4.8 "Remote I/O".
type remoteIO struct {
	reg     *remote.Registry
	pending *gocache.Cache
}

func newRemoteIO(reg *remote.Registry) *remoteIO {
	return &remoteIO{reg: reg, pending: gocache.New(pendingTTL, pendingTTL/2)}
}

// registerHandlers wires the client-side FRD0/FWT0/FINF reply handlers and
// the server-side handlers that answer them, per spec.md §4.8 "Server-side
// remote handlers" and §6's built-in fourCC table.
func (r *remoteIO) registerHandlers(localRead func(path string, flags Flags) ([]byte, error),
	localWrite func(path string, data []byte, flags Flags) (int, error),
	localStat func(path string) (Info, error)) {

	r.reg.Register(remote.Descriptor{
		FourCC: wire.FRD0,
		ServerFn: func(_ interface{}, payload []byte) ([]byte, bool, bool, string) {
			path, _, err := decodeString(payload)
			if err != nil {
				return nil, false, false, err.Error()
			}
			data, err := localRead(path, 0)
			if err != nil {
				return nil, false, false, err.Error()
			}
			return encodePathAndBytes(path, data), false, true, ""
		},
		ClientFn: func(_ interface{}, isErr bool, payload []byte, errText string) {
			r.completeRead(payload, isErr, errText)
		},
	})

	r.reg.Register(remote.Descriptor{
		FourCC: wire.FWT0,
		ServerFn: func(_ interface{}, payload []byte) ([]byte, bool, bool, string) {
			path, rest, err := decodeString(payload)
			if err != nil {
				return nil, false, false, err.Error()
			}
			if len(rest) < 8 {
				return nil, false, false, "vfs: short FWT0 payload"
			}
			flags := Flags(binary.LittleEndian.Uint32(rest[0:4]))
			size := binary.LittleEndian.Uint32(rest[4:8])
			if uint32(len(rest)-8) < size {
				return nil, false, false, "vfs: truncated FWT0 body"
			}
			body := rest[8 : 8+size]
			n, err := localWrite(path, body, flags)
			if err != nil {
				return nil, false, false, err.Error()
			}
			reply := encodeString(path)
			var written [8]byte
			binary.LittleEndian.PutUint64(written[:], uint64(n))
			reply = append(reply, written[:]...)
			return reply, false, true, ""
		},
		ClientFn: func(_ interface{}, isErr bool, payload []byte, errText string) {
			r.completeWrite(payload, isErr, errText)
		},
	})

	r.reg.Register(remote.Descriptor{
		FourCC: wire.FINF,
		ServerFn: func(_ interface{}, payload []byte) ([]byte, bool, bool, string) {
			path, _, err := decodeString(payload)
			if err != nil {
				return nil, false, false, err.Error()
			}
			info, err := localStat(path)
			if err != nil {
				return nil, false, false, err.Error()
			}
			reply := encodeString(path)
			var tail [20]byte
			typ := uint32(0)
			if info.IsDir {
				typ = 1
			}
			binary.LittleEndian.PutUint32(tail[0:4], typ)
			binary.LittleEndian.PutUint64(tail[4:12], uint64(info.Size))
			binary.LittleEndian.PutUint64(tail[12:20], uint64(info.Mtime))
			reply = append(reply, tail[:]...)
			return reply, false, true, ""
		},
		ClientFn: func(_ interface{}, isErr bool, payload []byte, errText string) {
			r.completeInfo(payload, isErr, errText)
		},
	})
}

func (r *remoteIO) submitRead(req *Request) {
	key := pendingKey(wire.FRD0, req.Path)
	r.pending.Set(key, req, gocache.DefaultExpiration)
	if err := r.reg.ExecuteCommand(wire.FRD0, encodeString(req.Path)); err != nil {
		r.pending.Delete(key)
		req.Callback(req, nil, Info{}, err)
	}
}

func (r *remoteIO) submitWrite(req *Request) {
	key := pendingKey(wire.FWT0, req.Path)
	r.pending.Set(key, req, gocache.DefaultExpiration)
	payload := encodeString(req.Path)
	var head [8]byte
	binary.LittleEndian.PutUint32(head[0:4], uint32(req.Flags))
	binary.LittleEndian.PutUint32(head[4:8], uint32(len(req.Data)))
	payload = append(payload, head[:]...)
	payload = append(payload, req.Data...)
	if err := r.reg.ExecuteCommand(wire.FWT0, payload); err != nil {
		r.pending.Delete(key)
		req.Callback(req, nil, Info{}, err)
	}
}

func (r *remoteIO) submitInfo(req *Request) {
	key := pendingKey(wire.FINF, req.Path)
	r.pending.Set(key, req, gocache.DefaultExpiration)
	if err := r.reg.ExecuteCommand(wire.FINF, encodeString(req.Path)); err != nil {
		r.pending.Delete(key)
		req.Callback(req, nil, Info{}, err)
	}
}

func (r *remoteIO) completeRead(payload []byte, isErr bool, errText string) {
	path, rest, err := decodeString(payload)
	if err != nil {
		return
	}
	req := r.pop(wire.FRD0, path)
	if req == nil {
		return
	}
	if isErr {
		req.Callback(req, nil, Info{}, errors.New(errText))
		return
	}
	if req.Flags&TextFile != 0 {
		rest = append(append([]byte(nil), rest...), 0)
	}
	req.Callback(req, rest, Info{}, nil)
}

func (r *remoteIO) completeWrite(payload []byte, isErr bool, errText string) {
	path, rest, err := decodeString(payload)
	if err != nil {
		return
	}
	req := r.pop(wire.FWT0, path)
	if req == nil {
		return
	}
	if isErr {
		req.Callback(req, nil, Info{}, errors.New(errText))
		return
	}
	var written int64
	if len(rest) >= 8 {
		written = int64(binary.LittleEndian.Uint64(rest[:8]))
	}
	req.Callback(req, nil, Info{Size: written}, nil)
}

func (r *remoteIO) completeInfo(payload []byte, isErr bool, errText string) {
	path, rest, err := decodeString(payload)
	if err != nil {
		return
	}
	req := r.pop(wire.FINF, path)
	if req == nil {
		return
	}
	if isErr {
		req.Callback(req, nil, Info{}, errors.New(errText))
		return
	}
	if len(rest) < 20 {
		req.Callback(req, nil, Info{}, errors.New("vfs: short FINF reply"))
		return
	}
	typ := binary.LittleEndian.Uint32(rest[0:4])
	size := binary.LittleEndian.Uint64(rest[4:12])
	mtime := binary.LittleEndian.Uint64(rest[12:20])
	req.Callback(req, nil, Info{IsDir: typ == 1, Size: int64(size), Mtime: int64(mtime)}, nil)
}

func (r *remoteIO) pop(cmd wire.FourCC, path string) *Request {
	key := pendingKey(cmd, path)
	v, ok := r.pending.Get(key)
	if !ok {
		return nil
	}
	r.pending.Delete(key)
	return v.(*Request)
}

// encodeString writes a u32-length-prefixed string, per spec.md §6.
func encodeString(s string) []byte {
	buf := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(s)))
	copy(buf[4:], s)
	return buf
}

func decodeString(buf []byte) (s string, rest []byte, err error) {
	if len(buf) < 4 {
		return "", nil, errors.New("vfs: short string payload")
	}
	n := binary.LittleEndian.Uint32(buf[:4])
	if uint32(len(buf)-4) < n {
		return "", nil, errors.New("vfs: truncated string payload")
	}
	return string(buf[4 : 4+n]), buf[4+n:], nil
}

func encodePathAndBytes(path string, data []byte) []byte {
	out := encodeString(path)
	out = append(out, data...)
	return out
}
