// Package config holds server configuration and the small persisted settings
// record (message of the day plus handshake timeout).
package config

import "time"

// Config holds the server's runtime configuration.
type Config struct {
	// Ports are the TCP listen ports. Every port accepts the same
	// protocol; multiple ports exist to dodge restrictive firewalls.
	Ports []int

	// TickInterval is the idle sleep between tick loop passes.
	TickInterval time.Duration

	// HandshakeTimeout bounds the initial call-sign read. Overridable at
	// runtime from the operator console and persisted in settings.
	HandshakeTimeout time.Duration

	// StatusAddr is the listen address for the HTTP status surface;
	// empty disables it.
	StatusAddr string

	// SettingsPath is where the settings blob lives.
	SettingsPath string
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		Ports:            []int{4444, 4445, 4567, 6969, 60385, 32000},
		TickInterval:     10 * time.Millisecond,
		HandshakeTimeout: 10 * time.Second,
		StatusAddr:       ":8080",
		SettingsPath:     "settings",
	}
}
