package vfs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgecore/enginecore/remote"
	"github.com/stretchr/testify/require"
)

// TestRemoteReadRoundTrip exercises the FRD0 path end-to-end: a server VFS
// with a local mount answers a client VFS's remote read, per spec.md §4.8
// "Remote I/O" and "Server-side remote handlers".
func TestRemoteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := []byte("hello from the server")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.txt"), data, 0o644))

	serverReg := remote.NewRegistry()
	serverVFS := New(serverReg)
	defer serverVFS.Close()
	_, err := serverVFS.MountLocal(dir, "data", false)
	require.NoError(t, err)
	require.NoError(t, serverReg.StartServer("127.0.0.1:0"))
	defer serverReg.Close()

	clientReg := remote.NewRegistry()
	clientVFS := New(clientReg)
	defer clientVFS.Close()
	_, err = clientVFS.MountRemote("data", false)
	require.NoError(t, err)

	addr := addrOfRegistry(t, serverReg)
	require.NoError(t, clientReg.Connect(addr))
	defer clientReg.Close()

	done := make(chan struct{})
	var got []byte
	var gotErr error
	clientVFS.ReadFileAsync(&Request{Path: "/data/greeting.txt", Callback: func(_ *Request, d []byte, _ Info, err error) {
		got, gotErr = d, err
		close(done)
	}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for remote read")
	}
	require.NoError(t, gotErr)
	require.Equal(t, string(data), string(got))
}

// addrOfRegistry reaches into the registry's server to fetch its bound
// address; exported only for this test via the package-internal field.
func addrOfRegistry(t *testing.T, r *remote.Registry) string {
	t.Helper()
	addr := r.ServerAddr()
	require.NotEmpty(t, addr, "server has no bound address")
	return addr
}
