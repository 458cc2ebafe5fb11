package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedProtocol = errors.New("Unsupported protocol")

// Protocol selects which RCON dialect a session speaks. It is chosen once at
// connect time and never changes for the life of the session.
type Protocol int

const (
	// Source is the Valve/Source binary RCON dialect. This is the default.
	Source Protocol = iota

	// Hyrcon is the legacy line-oriented HYRCON bridge dialect.
	Hyrcon
)

func (p Protocol) String() string {
	switch p {
	case Hyrcon:
		return "hyrcon"
	default:
		return "source"
	}
}

// DefaultPort returns the TCP port conventionally used by the protocol.
func (p Protocol) DefaultPort() int {
	switch p {
	case Hyrcon:
		return 5522
	default:
		return 25575
	}
}

// ParseProtocol parses a protocol name, accepting the common aliases "src"
// for Source and "legacy" for Hyrcon. Matching ignores case and surrounding
// whitespace.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source", "src":
		return Source, nil

	case "hyrcon", "legacy":
		return Hyrcon, nil

	default:
		return Source, fmt.Errorf("Failed to parse '%s': %w", s, ErrUnsupportedProtocol)
	}
}
