package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoolCoercion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	s, err := Load(path)
	require.NoError(t, err)

	cases := map[string]bool{
		"1": true, "0": false,
		"true": true, "FALSE": false,
		"on": true, "OFF": false,
	}
	for raw, want := range cases {
		s.SetString(SectionEngine, KeyConnectToServer, raw)
		require.Equal(t, want, s.Bool(SectionEngine, KeyConnectToServer, !want), "Bool(%q)", raw)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	s, err := Load(path)
	require.NoError(t, err)
	s.SetBool(SectionEngine, KeyConnectToServer, true)
	s.SetString(SectionEngine, KeyRemoteServicesURL, "example.test:9009")
	s.SetInt(SectionTooling, KeyServerPort, 9100)
	require.NoError(t, s.Save())
	_, err = os.Stat(path)
	require.NoError(t, err, "expected file on disk")

	reloaded, err := Load(path)
	require.NoError(t, err)
	eng := reloaded.Engine()
	require.True(t, eng.ConnectToServer)
	require.Equal(t, "example.test:9009", eng.RemoteServicesURL)
	tool := reloaded.Tooling()
	require.Equal(t, 9100, tool.ServerPort)
}

func TestDefaultsWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	s, err := Load(path)
	require.NoError(t, err)
	eng := s.Engine()
	require.False(t, eng.ConnectToServer, "expected default ConnectToServer=false")
	tool := s.Tooling()
	require.Equal(t, 9009, tool.ServerPort)
}
