package wire

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRemoteEcho is the end-to-end scenario from spec.md §9 "Remote echo":
// a server echoes TEST's payload; the client's handler is invoked exactly
// once with the identical payload.
func TestRemoteEcho(t *testing.T) {
	TEST := MakeFourCC("TEST")

	srv := NewServer(func(cmd FourCC, payload []byte) ([]byte, bool, bool, string) {
		if cmd != TEST {
			return nil, false, false, "unknown command"
		}
		return payload, false, true, ""
	}, nil)
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	defer srv.Close()

	var mu sync.Mutex
	var calls int
	var got []byte
	done := make(chan struct{}, 1)

	cli, err := Dial(srv.Addr().String(), func(cmd FourCC, isErr bool, payload []byte, errText string) {
		mu.Lock()
		calls++
		got = append([]byte(nil), payload...)
		mu.Unlock()
		done <- struct{}{}
	}, nil)
	require.NoError(t, err)
	defer cli.Close()

	require.NoError(t, cli.SendRequest(TEST, []byte("ping")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls, "expected exactly 1 callback invocation")
	require.Equal(t, "ping", string(got))
}

func TestClientCloseReportsSelfInitiatedDisconnect(t *testing.T) {
	srv := NewServer(func(cmd FourCC, payload []byte) ([]byte, bool, bool, string) {
		return nil, true, true, "" // never replies
	}, nil)
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	defer srv.Close()

	discCh := make(chan bool, 1)
	cli, err := Dial(srv.Addr().String(), func(FourCC, bool, []byte, string) {}, func(peerURL string, wasUs bool, lastErr error) {
		discCh <- wasUs
	})
	require.NoError(t, err)

	require.NoError(t, cli.Close())

	select {
	case wasUs := <-discCh:
		require.True(t, wasUs, "expected wasInitiatedByUs=true")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect callback")
	}
}
