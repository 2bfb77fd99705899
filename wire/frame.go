// Package wire implements the length-prefixed four-CC packet codec over a
// stream socket that the engine's remote-services layer rides on top of
// (spec.md §3 "Wire Frame", §4.5).
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// FourCC is a 32-bit integer formed from four ASCII characters, used as a
// command/packet tag (spec.md GLOSSARY).
type FourCC uint32

// MakeFourCC packs a 4-character ASCII tag little-endian, so the first
// character is the lowest-order byte on the wire.
func MakeFourCC(tag string) FourCC {
	if len(tag) != 4 {
		panic("wire: four-CC tag must be exactly 4 characters: " + tag)
	}
	return FourCC(uint32(tag[0]) | uint32(tag[1])<<8 | uint32(tag[2])<<16 | uint32(tag[3])<<24)
}

func (f FourCC) String() string {
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// Sentinel introduces every protocol frame (spec.md §3).
var Sentinel = MakeFourCC("USRC")

// Built-in command four-CCs, per spec.md §6.
var (
	HELO = MakeFourCC("HELO")
	BYE0 = MakeFourCC("BYE0")
	FRD0 = MakeFourCC("FRD0")
	FWT0 = MakeFourCC("FWT0")
	FINF = MakeFourCC("FINF")
	DMON = MakeFourCC("DMON")
	CONX = MakeFourCC("CONX")
)

// Response status tags.
const (
	StatusOK  uint32 = 0
	StatusErr uint32 = 1
)

// ErrProtocolMismatch is returned (and the connection dropped, per spec.md
// §7 "ProtocolMismatch") whenever a sentinel or length does not match.
var ErrProtocolMismatch = errors.New("wire: protocol mismatch")

const chunkSize = 4096

// readExact reads exactly n bytes from r in <=4KiB chunks, per spec.md
// §4.5 step 3.
func readExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		want := n - read
		if want > chunkSize {
			want = chunkSize
		}
		got, err := io.ReadFull(r, buf[read:read+want])
		read += got
		if err != nil {
			return buf[:read], err
		}
	}
	return buf, nil
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// RequestHeader is the 12-byte header shared by requests and handshake /
// teardown frames: [SENTINEL][cmdFourCC][payloadBytes].
type RequestHeader struct {
	Cmd         FourCC
	PayloadSize uint32
}

// ReadRequestHeader reads and validates a 12-byte request-shaped header.
// Per spec.md §4.5 step 1: if the sentinel mismatches, the caller must drop
// the connection.
func ReadRequestHeader(r io.Reader) (RequestHeader, error) {
	sentinel, err := readU32(r)
	if err != nil {
		return RequestHeader{}, err
	}
	if FourCC(sentinel) != Sentinel {
		return RequestHeader{}, ErrProtocolMismatch
	}
	cmd, err := readU32(r)
	if err != nil {
		return RequestHeader{}, err
	}
	size, err := readU32(r)
	if err != nil {
		return RequestHeader{}, err
	}
	return RequestHeader{Cmd: FourCC(cmd), PayloadSize: size}, nil
}

// WriteRequest writes a full request frame (header + payload). It is also
// used for the HELO/BYE0 handshake/teardown frames, whose payload is empty.
func WriteRequest(w io.Writer, cmd FourCC, payload []byte) error {
	if err := writeU32(w, uint32(Sentinel)); err != nil {
		return err
	}
	if err := writeU32(w, uint32(cmd)); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(payload))); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadRequestPayload reads PayloadSize bytes following a RequestHeader.
func ReadRequestPayload(r io.Reader, h RequestHeader) ([]byte, error) {
	return readExact(r, int(h.PayloadSize))
}

// ResponseHeader is the 16-byte header preceding a response payload:
// [SENTINEL][cmdFourCC][OK|ERR][payloadBytes].
type ResponseHeader struct {
	Cmd         FourCC
	Status      uint32
	PayloadSize uint32
}

// ReadResponseHeader reads and validates a 16-byte response-shaped header.
func ReadResponseHeader(r io.Reader) (ResponseHeader, error) {
	sentinel, err := readU32(r)
	if err != nil {
		return ResponseHeader{}, err
	}
	if FourCC(sentinel) != Sentinel {
		return ResponseHeader{}, ErrProtocolMismatch
	}
	cmd, err := readU32(r)
	if err != nil {
		return ResponseHeader{}, err
	}
	status, err := readU32(r)
	if err != nil {
		return ResponseHeader{}, err
	}
	size, err := readU32(r)
	if err != nil {
		return ResponseHeader{}, err
	}
	return ResponseHeader{Cmd: FourCC(cmd), Status: status, PayloadSize: size}, nil
}

// ReadResponseBody reads the payload following a ResponseHeader, plus the
// trailing [u32 errLen][errText] when Status is StatusErr.
func ReadResponseBody(r io.Reader, h ResponseHeader) (payload []byte, errText string, err error) {
	payload, err = readExact(r, int(h.PayloadSize))
	if err != nil {
		return nil, "", err
	}
	if h.Status != StatusErr {
		return payload, "", nil
	}
	errLen, err := readU32(r)
	if err != nil {
		return payload, "", err
	}
	errBytes, err := readExact(r, int(errLen))
	if err != nil {
		return payload, "", err
	}
	return payload, string(errBytes), nil
}

// WriteResponse writes a full response frame, including the trailing error
// text when isErr is set.
func WriteResponse(w io.Writer, cmd FourCC, payload []byte, isErr bool, errText string) error {
	if err := writeU32(w, uint32(Sentinel)); err != nil {
		return err
	}
	if err := writeU32(w, uint32(cmd)); err != nil {
		return err
	}
	status := StatusOK
	if isErr {
		status = StatusErr
	}
	if err := writeU32(w, status); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(payload))); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	if !isErr {
		return nil
	}
	if err := writeU32(w, uint32(len(errText))); err != nil {
		return err
	}
	_, err := w.Write([]byte(errText))
	return err
}
