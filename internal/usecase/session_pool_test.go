package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/page-insight-service/internal/entity"
	"github.com/user/page-insight-service/internal/repository"
	"go.uber.org/zap/zaptest"
)

func newTestPool(t *testing.T, registry *fakeRegistry, launcher *fakeLauncher) *SessionPool {
	t.Helper()
	return NewSessionPool(registry, launcher, zaptest.NewLogger(t))
}

func sessions(descs ...string) []entity.RemoteSession {
	// "id" is unclaimed, "id*" is claimed.
	out := make([]entity.RemoteSession, 0, len(descs))
	for _, s := range descs {
		rs := entity.RemoteSession{ID: s, StartedAt: time.Unix(0, 0)}
		if n := len(s); n > 0 && s[n-1] == '*' {
			rs.ID = s[:n-1]
			rs.ConnectionID = "conn-" + rs.ID
		}
		out = append(out, rs)
	}
	return out
}

func TestSessionPool_Acquire_ReusesUnclaimedSession(t *testing.T) {
	rec := &recorder{}
	registry := &fakeRegistry{rec: rec, sessions: sessions("a*", "b", "c*")}
	launcher := &fakeLauncher{rec: rec}
	pool := newTestPool(t, registry, launcher)

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	assert.True(t, lease.Reused)
	assert.Equal(t, "b", lease.Handle.SessionID())
	assert.Equal(t, []string{"list", "connect:b"}, rec.list())
	assert.Zero(t, rec.count("launch"))
}

func TestSessionPool_Acquire_PicksAmongUnclaimed(t *testing.T) {
	rec := &recorder{}
	registry := &fakeRegistry{rec: rec, sessions: sessions("a", "b*", "c", "d")}
	launcher := &fakeLauncher{rec: rec}
	pool := newTestPool(t, registry, launcher)

	var offered int
	pool.pick = func(n int) int {
		offered = n
		return n - 1
	}

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, offered)
	assert.Equal(t, "d", lease.Handle.SessionID())
}

func TestSessionPool_Acquire_LaunchesWhenNoneUnclaimed(t *testing.T) {
	tests := []struct {
		name     string
		sessions []entity.RemoteSession
	}{
		{name: "empty registry", sessions: nil},
		{name: "all claimed", sessions: sessions("a*", "b*")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			registry := &fakeRegistry{rec: rec, sessions: tc.sessions}
			launcher := &fakeLauncher{rec: rec}
			pool := newTestPool(t, registry, launcher)

			lease, err := pool.Acquire(context.Background())
			require.NoError(t, err)
			assert.False(t, lease.Reused)
			assert.Equal(t, []string{"list", "launch"}, rec.list())
		})
	}
}

func TestSessionPool_Acquire_SingleReconnectThenLaunch(t *testing.T) {
	rec := &recorder{}
	registry := &fakeRegistry{rec: rec, sessions: sessions("a", "b", "c")}
	launcher := &fakeLauncher{rec: rec, connectErr: repository.ErrSessionUnavailable}
	pool := newTestPool(t, registry, launcher)
	pool.pick = func(int) int { return 0 }

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	assert.False(t, lease.Reused)
	assert.Equal(t, []string{"list", "connect:a", "launch"}, rec.list())
}

func TestSessionPool_Acquire_Failures(t *testing.T) {
	t.Run("registry error", func(t *testing.T) {
		rec := &recorder{}
		pool := newTestPool(t, &fakeRegistry{rec: rec, err: errBoom}, &fakeLauncher{rec: rec})

		_, err := pool.Acquire(context.Background())
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, []string{"list"}, rec.list())
	})

	t.Run("launch error", func(t *testing.T) {
		rec := &recorder{}
		pool := newTestPool(t, &fakeRegistry{rec: rec}, &fakeLauncher{rec: rec, launchErr: errBoom})

		_, err := pool.Acquire(context.Background())
		require.ErrorIs(t, err, errBoom)
	})
}

func TestSessionPool_Release_ClosesPageThenDisconnects(t *testing.T) {
	rec := &recorder{}
	pool := newTestPool(t, &fakeRegistry{rec: rec}, &fakeLauncher{rec: rec})

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	_, err = lease.OpenPage(context.Background())
	require.NoError(t, err)

	require.NoError(t, pool.Release(lease))
	require.NoError(t, pool.Release(lease))

	assert.Equal(t, []string{"list", "launch", "new_page", "close_page", "disconnect"}, rec.list())
	assert.False(t, lease.Handle.IsConnected())
}

func TestSessionPool_Release_WithoutPage(t *testing.T) {
	rec := &recorder{}
	pool := newTestPool(t, &fakeRegistry{rec: rec}, &fakeLauncher{rec: rec})

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Release(lease))

	assert.Zero(t, rec.count("close_page"))
	assert.Equal(t, 1, rec.count("disconnect"))
}

func TestSessionPool_Release_ReportsErrorsOnce(t *testing.T) {
	rec := &recorder{}
	launcher := &fakeLauncher{rec: rec, page: &fakePage{rec: rec, closeErr: errBoom}, disconnErr: errBoom}
	pool := newTestPool(t, &fakeRegistry{rec: rec}, launcher)

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	_, err = lease.OpenPage(context.Background())
	require.NoError(t, err)

	first := pool.Release(lease)
	require.ErrorIs(t, first, errBoom)
	assert.Equal(t, first, pool.Release(lease))
	assert.Equal(t, 1, rec.count("disconnect"), "disconnect must still run when closing the page fails")
}

func TestLease_OpenPageReturnsSamePage(t *testing.T) {
	rec := &recorder{}
	page := &fakePage{rec: rec}
	pool := newTestPool(t, &fakeRegistry{rec: rec}, &fakeLauncher{rec: rec, page: page})

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	p1, err := lease.OpenPage(context.Background())
	require.NoError(t, err)
	p2, err := lease.OpenPage(context.Background())
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, rec.count("new_page"))
}

func TestSessionPool_WithLease(t *testing.T) {
	t.Run("releases after success", func(t *testing.T) {
		rec := &recorder{}
		pool := newTestPool(t, &fakeRegistry{rec: rec}, &fakeLauncher{rec: rec})

		err := pool.WithLease(context.Background(), func(ctx context.Context, l *Lease) error {
			rec.add("work")
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"list", "launch", "work", "disconnect"}, rec.list())
	})

	t.Run("releases after error and returns it", func(t *testing.T) {
		rec := &recorder{}
		pool := newTestPool(t, &fakeRegistry{rec: rec}, &fakeLauncher{rec: rec})

		err := pool.WithLease(context.Background(), func(ctx context.Context, l *Lease) error {
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, rec.count("disconnect"))
	})

	t.Run("releases on panic", func(t *testing.T) {
		rec := &recorder{}
		pool := newTestPool(t, &fakeRegistry{rec: rec}, &fakeLauncher{rec: rec})

		assert.Panics(t, func() {
			_ = pool.WithLease(context.Background(), func(ctx context.Context, l *Lease) error {
				panic("render exploded")
			})
		})
		assert.Equal(t, 1, rec.count("disconnect"))
	})

	t.Run("no release when acquisition fails", func(t *testing.T) {
		rec := &recorder{}
		pool := newTestPool(t, &fakeRegistry{rec: rec, err: errBoom}, &fakeLauncher{rec: rec})

		called := false
		err := pool.WithLease(context.Background(), func(ctx context.Context, l *Lease) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, errBoom)
		assert.False(t, called)
		assert.Zero(t, rec.count("disconnect"))
	})
}
