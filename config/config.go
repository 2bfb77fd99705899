// Package config persists engine settings as INI, per spec.md §6
// "Persisted state" and §2 (Ambient Stack expansion).
package config

import (
	"strconv"
	"strings"

	"github.com/Unknwon/goconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("subsystem", "config")

// Option keys consumed by the core, per spec.md §6 "Configuration surface".
const (
	SectionEngine  = "engine"
	SectionTooling = "tooling"

	KeyConnectToServer   = "connectToServer"
	KeyRemoteServicesURL = "remoteServicesUrl"
	KeyDebugAllocations  = "debugAllocations"
	KeyEnableServer      = "enableServer"
	KeyServerPort        = "serverPort"
)

// Settings wraps a goconfig file with the core's enumerated options plus
// pass-through access for collaborator sections, per spec.md §6.
type Settings struct {
	path string
	cfg  *goconfig.ConfigFile
}

// Load reads path, creating an empty in-memory config file if it does not
// exist yet (first-boot case).
func Load(path string) (*Settings, error) {
	cfg, err := goconfig.LoadConfigFile(path)
	if err != nil {
		log.WithField("path", path).WithError(err).Warn("config: load failed, starting with defaults")
		cfg = goconfig.NewConfigFile()
	}
	return &Settings{path: path, cfg: cfg}, nil
}

// Save persists the settings back to disk as INI.
func (s *Settings) Save() error {
	if err := goconfig.SaveConfigFile(s.cfg, s.path); err != nil {
		return errors.Wrapf(err, "config: save %q", s.path)
	}
	return nil
}

// String returns a string option, or def if unset.
func (s *Settings) String(section, key, def string) string {
	v, err := s.cfg.GetValue(section, key)
	if err != nil || v == "" {
		return def
	}
	return v
}

// SetString sets a string option.
func (s *Settings) SetString(section, key, value string) {
	_ = s.cfg.SetValue(section, key, value)
}

// Bool parses "1/0, true/false, on/off" case-insensitively, per spec.md §6.
func (s *Settings) Bool(section, key string, def bool) bool {
	raw, err := s.cfg.GetValue(section, key)
	if err != nil || raw == "" {
		return def
	}
	b, ok := parseBool(raw)
	if !ok {
		log.WithField("section", section).WithField("key", key).WithField("value", raw).
			Warn("config: unrecognized boolean value, using default")
		return def
	}
	return b
}

// SetBool writes a canonical "true"/"false".
func (s *Settings) SetBool(section, key string, value bool) {
	if value {
		s.SetString(section, key, "true")
	} else {
		s.SetString(section, key, "false")
	}
}

// Int returns an integer option, or def if unset or unparsable.
func (s *Settings) Int(section, key string, def int) int {
	raw, err := s.cfg.GetValue(section, key)
	if err != nil || raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// SetInt writes an integer option.
func (s *Settings) SetInt(section, key string, value int) {
	s.SetString(section, key, strconv.Itoa(value))
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on":
		return true, true
	case "0", "false", "off":
		return false, true
	default:
		return false, false
	}
}

// EngineOptions is the §6-enumerated "engine" section, resolved with
// defaults.
type EngineOptions struct {
	ConnectToServer   bool
	RemoteServicesURL string
	DebugAllocations  bool
}

// ToolingOptions is the §6-enumerated "tooling" section.
type ToolingOptions struct {
	EnableServer bool
	ServerPort   int
}

// Engine resolves the engine section.
func (s *Settings) Engine() EngineOptions {
	return EngineOptions{
		ConnectToServer:   s.Bool(SectionEngine, KeyConnectToServer, false),
		RemoteServicesURL: s.String(SectionEngine, KeyRemoteServicesURL, "127.0.0.1:9009"),
		DebugAllocations:  s.Bool(SectionEngine, KeyDebugAllocations, false),
	}
}

// Tooling resolves the tooling section.
func (s *Settings) Tooling() ToolingOptions {
	return ToolingOptions{
		EnableServer: s.Bool(SectionTooling, KeyEnableServer, false),
		ServerPort:   s.Int(SectionTooling, KeyServerPort, 9009),
	}
}
