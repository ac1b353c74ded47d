package entity

import "time"

// RemoteSession is a browser session known to the rendering backend.
// Liveness is unknown until a connect is attempted.
type RemoteSession struct {
	ID           string
	StartedAt    time.Time
	ConnectionID string
}

// Claimed reports whether another caller currently holds a connection to the session.
func (s RemoteSession) Claimed() bool {
	return s.ConnectionID != ""
}
