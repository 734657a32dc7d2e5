package config

import (
	"fmt"
	"os"

	"github.com/mcoot/flightlobby/internal/protocol"
)

// Settings is the persisted operator settings blob: a sequential binary
// record of the day message and the handshake timeout in seconds.
type Settings struct {
	DayMessage           string
	HandshakeTimeoutSecs int32
}

// DefaultSettings returns the values used when no settings file exists.
func DefaultSettings() Settings {
	return Settings{
		DayMessage:           "",
		HandshakeTimeoutSecs: int32(Default().HandshakeTimeout.Seconds()),
	}
}

// LoadSettings reads the settings blob. A missing file yields defaults with
// no error.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), err
	}

	r := protocol.NewReader(data)
	s := Settings{
		DayMessage:           r.String(),
		HandshakeTimeoutSecs: r.Int32(),
	}
	if err := r.Err(); err != nil {
		return DefaultSettings(), fmt.Errorf("corrupt settings file %q: %w", path, err)
	}
	return s, nil
}

// SaveSettings writes the settings blob.
func SaveSettings(path string, s Settings) error {
	w := protocol.NewWriter()
	w.PutString(s.DayMessage)
	w.PutInt32(s.HandshakeTimeoutSecs)
	return os.WriteFile(path, w.Bytes(), 0o644)
}
