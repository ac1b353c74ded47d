package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/user/page-insight-service/internal/entity"
	"github.com/user/page-insight-service/internal/repository"
	"github.com/user/page-insight-service/pkg/metrics"
	"go.uber.org/zap"
)

// SessionPool borrows remote browser sessions for the duration of one request.
// It keeps no local registry: claim bookkeeping belongs to the backend, so
// concurrent callers each negotiate their own claim.
type SessionPool struct {
	registry repository.SessionRegistry
	launcher repository.BrowserLauncher
	logger   *zap.Logger
	pick     func(n int) int
}

// NewSessionPool creates a pool over the given backend.
func NewSessionPool(registry repository.SessionRegistry, launcher repository.BrowserLauncher, logger *zap.Logger) *SessionPool {
	return &SessionPool{
		registry: registry,
		launcher: launcher,
		logger:   logger,
		pick:     rand.IntN,
	}
}

// Lease is one acquired browser handle plus the page opened on it.
type Lease struct {
	Handle repository.BrowserHandle
	Reused bool

	mu         sync.Mutex
	page       repository.PageView
	once       sync.Once
	releaseErr error
}

// OpenPage opens the lease's page, or returns it if already open.
func (l *Lease) OpenPage(ctx context.Context) (repository.PageView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.page != nil {
		return l.page, nil
	}
	page, err := l.Handle.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	l.page = page
	return page, nil
}

// Acquire reconnects to one randomly chosen unclaimed session if any exist,
// and launches a new session otherwise or if that single reconnect fails.
func (p *SessionPool) Acquire(ctx context.Context) (*Lease, error) {
	sessions, err := p.registry.ListSessions(ctx)
	if err != nil {
		metrics.SessionAcquisitionFailuresTotal.Inc()
		return nil, fmt.Errorf("failed to list browser sessions: %w", err)
	}

	if idle := unclaimed(sessions); len(idle) > 0 {
		chosen := idle[p.pick(len(idle))]
		handle, err := p.launcher.Connect(ctx, chosen.ID)
		if err == nil {
			p.logger.Debug("session reused", zap.String("session_id", chosen.ID), zap.Int("idle_sessions", len(idle)))
			return p.lease(handle, true), nil
		}
		// The session may have died or been claimed since it was listed.
		metrics.SessionReconnectFailuresTotal.Inc()
		p.logger.Warn("session reconnect failed, launching", zap.String("session_id", chosen.ID), zap.Error(err))
	}

	handle, err := p.launcher.Launch(ctx)
	if err != nil {
		metrics.SessionAcquisitionFailuresTotal.Inc()
		return nil, fmt.Errorf("failed to launch browser session: %w", err)
	}
	p.logger.Info("session launched", zap.String("session_id", handle.SessionID()))
	return p.lease(handle, false), nil
}

func (p *SessionPool) lease(handle repository.BrowserHandle, reused bool) *Lease {
	outcome := "launched"
	if reused {
		outcome = "reused"
	}
	metrics.SessionAcquisitionsTotal.WithLabelValues(outcome).Inc()
	metrics.SessionsInUse.Inc()
	return &Lease{Handle: handle, Reused: reused}
}

// Release closes the lease's page and disconnects its handle, leaving the
// remote session alive and unclaimed. Only the first call has any effect.
func (p *SessionPool) Release(l *Lease) error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		l.releaseErr = p.release(l)
	})
	return l.releaseErr
}

func (p *SessionPool) release(l *Lease) error {
	var errs []error

	l.mu.Lock()
	page := l.page
	l.page = nil
	l.mu.Unlock()

	if page != nil {
		if err := page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}
	if err := l.Handle.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("failed to disconnect session %s: %w", l.Handle.SessionID(), err))
	}

	metrics.SessionReleasesTotal.Inc()
	metrics.SessionsInUse.Dec()
	p.logger.Debug("session released", zap.String("session_id", l.Handle.SessionID()), zap.Bool("reused", l.Reused))
	return errors.Join(errs...)
}

// WithLease acquires a session, runs fn with it and releases it on every
// exit path, including panics. It returns fn's error.
func (p *SessionPool) WithLease(ctx context.Context, fn func(ctx context.Context, l *Lease) error) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Release(lease); err != nil {
			p.logger.Warn("failed to release browser session", zap.String("session_id", lease.Handle.SessionID()), zap.Error(err))
		}
	}()
	return fn(ctx, lease)
}

func unclaimed(sessions []entity.RemoteSession) []entity.RemoteSession {
	idle := make([]entity.RemoteSession, 0, len(sessions))
	for _, s := range sessions {
		if !s.Claimed() {
			idle = append(idle, s)
		}
	}
	return idle
}
