package vfs

import (
	"github.com/forgecore/enginecore/alloc"
	"github.com/forgecore/enginecore/blob"
)

// Command is the VFS Request's operation kind (spec.md §3 "VFS Request").
type Command int

const (
	CmdRead Command = iota
	CmdWrite
	CmdInfo
)

func (c Command) String() string {
	switch c {
	case CmdRead:
		return "Read"
	case CmdWrite:
		return "Write"
	case CmdInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Flags modify how a request is carried out, per spec.md §4.8.
type Flags uint32

const (
	// TextFile appends a trailing NUL to a completed read.
	TextFile Flags = 1 << iota
	// CreateDirs recursively creates missing parent directories before a
	// write.
	CreateDirs
	// Append opens the destination for append rather than atomic replace.
	Append
	// NoCopy suppresses freeing the request's write blob after the callback
	// returns, since the caller retains ownership.
	NoCopy
)

// Info is the result of a CmdInfo request (spec.md §6 FINF payload).
type Info struct {
	IsDir bool
	Size  int64
	Mtime int64 // unix nanoseconds
}

// Callback receives a request's result. data is nil on failure; err
// describes the failure for logging (callers should not assume a non-nil
// err always accompanies a nil data on the wire path, since remote errors
// surface as an empty blob per spec.md §7).
type Callback func(req *Request, data []byte, info Info, err error)

// Request is {command, mountKind, flags, path, blob?, allocator, user,
// callback}, per spec.md §3. It lives on either the async worker queue or
// the remote-pending store until resolved.
type Request struct {
	Command   Command
	Flags     Flags
	Path      string
	Data      []byte // write payload
	Allocator alloc.Allocator
	User      interface{}
	Callback  Callback

	mount *Mount
	rest  string
}

// NewBlob wraps a completed read's bytes in a Blob allocated through the
// request's own allocator, so a caller that requested a specific allocator
// (e.g. a per-frame temp arena) gets its result attributed there rather than
// the Go heap.
func (r *Request) NewBlob(data []byte) *blob.Blob {
	a := r.Allocator
	if a == nil {
		a = alloc.Heap{}
	}
	b := blob.New(a, blob.GrowMultiply, 0)
	if err := b.Write(data); err != nil {
		log.WithError(err).Warn("vfs: failed to materialize result blob")
	}
	return b
}
