package repository

import (
	"context"

	"github.com/user/page-insight-service/internal/entity"
)

// SessionRegistry lists the sessions currently known to the rendering backend.
type SessionRegistry interface {
	ListSessions(ctx context.Context) ([]entity.RemoteSession, error)
}

// BrowserLauncher opens connections to remote browser sessions.
type BrowserLauncher interface {
	// Connect reconnects to an existing session. It returns an error wrapping
	// ErrSessionUnavailable if the session is gone or already claimed.
	Connect(ctx context.Context, sessionID string) (BrowserHandle, error)
	// Launch starts a brand-new session and connects to it.
	Launch(ctx context.Context) (BrowserHandle, error)
}

// BrowserHandle is a live connection to one remote session.
type BrowserHandle interface {
	SessionID() string
	NewPage(ctx context.Context) (PageView, error)
	IsConnected() bool
	// Disconnect drops the connection without terminating the remote session,
	// so the backend marks it unclaimed again.
	Disconnect() error
}

// PageView is one tab opened within a BrowserHandle.
type PageView interface {
	// Navigate loads url and returns once the DOM content has loaded.
	Navigate(ctx context.Context, url string) error
	// HTML returns the serialized DOM of the current document.
	HTML(ctx context.Context) (string, error)
	Close() error
}
