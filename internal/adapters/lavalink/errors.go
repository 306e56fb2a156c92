package lavalink

import (
	"errors"
	"fmt"
)

var (
	ErrNoNode   = errors.New("no lavalink node available")
	ErrNoJoiner = errors.New("voice joiner not configured")
	ErrBadID    = errors.New("invalid snowflake")
)

// LoadError es un loadFailed del nodo (track privado, región, etc).
type LoadError struct {
	Message  string
	Severity string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("lavalink load failed (%s): %s", e.Severity, e.Message)
}
