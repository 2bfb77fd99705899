package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFourCCRoundTrip(t *testing.T) {
	f := MakeFourCC("TEST")
	require.Equal(t, "TEST", f.String())
}

func TestRequestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello world")
	require.NoError(t, WriteRequest(&buf, FRD0, payload))
	hdr, err := ReadRequestHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, FRD0, hdr.Cmd)
	require.Equal(t, len(payload), int(hdr.PayloadSize))
	got, err := ReadRequestPayload(&buf, hdr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestResponseFrameErrorRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, FINF, nil, true, "file not found"))
	hdr, err := ReadResponseHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, StatusErr, hdr.Status)
	_, errText, err := ReadResponseBody(&buf, hdr)
	require.NoError(t, err)
	require.Equal(t, "file not found", errText)
}

func TestSentinelMismatchDropsConnection(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	_, err := ReadRequestHeader(&buf)
	require.ErrorIs(t, err, ErrProtocolMismatch)
}
