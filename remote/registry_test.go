package remote

import (
	"testing"
	"time"

	"github.com/forgecore/enginecore/wire"
	"github.com/stretchr/testify/require"
)

func TestRegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	echo := wire.MakeFourCC("ECHO")
	r.Register(Descriptor{FourCC: echo, ServerFn: func(interface{}, []byte) ([]byte, bool, bool, string) {
		return nil, false, true, ""
	}})

	require.Panics(t, func() {
		r.Register(Descriptor{FourCC: echo})
	}, "expected panic on duplicate registration")
}

func TestExecuteCommandRoundTrip(t *testing.T) {
	echo := wire.MakeFourCC("ECHO")

	server := NewRegistry()
	server.Register(Descriptor{
		FourCC: echo,
		ServerFn: func(_ interface{}, payload []byte) ([]byte, bool, bool, string) {
			return payload, false, true, ""
		},
	})
	require.NoError(t, server.StartServer("127.0.0.1:0"))
	defer server.Close()

	done := make(chan []byte, 1)
	client := NewRegistry()
	client.Register(Descriptor{
		FourCC: echo,
		ClientFn: func(_ interface{}, isErr bool, payload []byte, errText string) {
			done <- payload
		},
	})
	require.NoError(t, client.Connect(server.ServerAddr()))
	defer client.Close()

	require.NoError(t, client.ExecuteCommand(echo, []byte("hi")))

	select {
	case got := <-done:
		require.Equal(t, "hi", string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestUnknownCommandReturnsError(t *testing.T) {
	server := NewRegistry()
	require.NoError(t, server.StartServer("127.0.0.1:0"))
	defer server.Close()

	errCh := make(chan string, 1)
	client := NewRegistry()
	unknown := wire.MakeFourCC("UNKN")
	client.Register(Descriptor{
		FourCC: unknown,
		ClientFn: func(_ interface{}, isErr bool, payload []byte, errText string) {
			if isErr {
				errCh <- errText
			}
		},
	})
	require.NoError(t, client.Connect(server.ServerAddr()))
	defer client.Close()

	require.NoError(t, client.ExecuteCommand(unknown, nil))

	select {
	case msg := <-errCh:
		require.NotEmpty(t, msg, "expected non-empty error text")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error response")
	}
}
