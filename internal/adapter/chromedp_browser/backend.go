package chromedp_browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/user/page-insight-service/internal/entity"
	"github.com/user/page-insight-service/internal/repository"
	"github.com/user/page-insight-service/pkg/useragent"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// Options configures the remote rendering backend.
type Options struct {
	APIURL     string
	WSURL      string
	Token      string
	HTTPClient *http.Client
	UserAgents *useragent.Rotator
}

// Backend talks to a remote browser service: its REST API for session
// bookkeeping and its CDP websocket for driving browsers.
type Backend struct {
	apiURL     string
	wsURL      string
	token      string
	httpClient *http.Client
	userAgents *useragent.Rotator
	logger     *zap.Logger
}

var (
	_ repository.SessionRegistry = (*Backend)(nil)
	_ repository.BrowserLauncher = (*Backend)(nil)
)

// NewBackend creates a new remote browser backend.
func NewBackend(opts Options, logger *zap.Logger) *Backend {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	agents := opts.UserAgents
	if agents == nil {
		agents = useragent.NewRotator()
	}
	return &Backend{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		wsURL:      strings.TrimRight(opts.WSURL, "/"),
		token:      opts.Token,
		httpClient: client,
		userAgents: agents,
		logger:     logger,
	}
}

type sessionDTO struct {
	SessionID           string `json:"sessionId"`
	StartTime           int64  `json:"startTime"`
	ConnectionID        string `json:"connectionId,omitempty"`
	ConnectionStartTime int64  `json:"connectionStartTime,omitempty"`
}

type sessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type acquireResponse struct {
	SessionID string `json:"sessionId"`
}

// ListSessions returns every session the backend currently knows about.
func (b *Backend) ListSessions(ctx context.Context) ([]entity.RemoteSession, error) {
	var resp sessionsResponse
	if err := b.call(ctx, http.MethodGet, "/v1/sessions", &resp); err != nil {
		return nil, err
	}

	sessions := make([]entity.RemoteSession, 0, len(resp.Sessions))
	for _, s := range resp.Sessions {
		if s.SessionID == "" {
			continue
		}
		sessions = append(sessions, entity.RemoteSession{
			ID:           s.SessionID,
			StartedAt:    time.UnixMilli(s.StartTime).UTC(),
			ConnectionID: s.ConnectionID,
		})
	}
	return sessions, nil
}

// Connect attaches to an existing session over CDP.
func (b *Backend) Connect(ctx context.Context, sessionID string) (repository.BrowserHandle, error) {
	handle, err := b.dial(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", repository.ErrSessionUnavailable, sessionID, err)
	}
	return handle, nil
}

// Launch asks the backend for a new browser and connects to it.
func (b *Backend) Launch(ctx context.Context) (repository.BrowserHandle, error) {
	var resp acquireResponse
	if err := b.call(ctx, http.MethodPost, "/v1/acquire", &resp); err != nil {
		return nil, fmt.Errorf("failed to acquire new session: %w", err)
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("failed to acquire new session: backend returned no session id")
	}

	handle, err := b.dial(ctx, resp.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to new session %s: %w", resp.SessionID, err)
	}
	return handle, nil
}

// ConnectURL is the CDP websocket endpoint for sessionID.
func (b *Backend) ConnectURL(sessionID string) string {
	return b.wsURL + "/v1/connect?browser_session=" + url.QueryEscape(sessionID)
}

func (b *Backend) dial(ctx context.Context, sessionID string) (*browserHandle, error) {
	sugar := b.logger.Sugar()

	// The connection outlives ctx; it is torn down by Disconnect.
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), b.ConnectURL(sessionID), chromedp.NoModifyURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run dials the websocket and attaches a tab. It must run on
	// browserCtx itself, so ctx only bounds it through AfterFunc.
	stop := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stop()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	return &browserHandle{
		sessionID:     sessionID,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		userAgents:    b.userAgents,
		logger:        b.logger.With(zap.String("session_id", sessionID)),
	}, nil
}

func (b *Backend) call(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, b.apiURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}
