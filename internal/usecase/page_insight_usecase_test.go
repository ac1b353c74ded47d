package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/page-insight-service/internal/entity"
	"go.uber.org/zap/zaptest"
)

const target = "https://acme.com/"

type pipelineFixture struct {
	rec      *recorder
	cache    *fakeCache
	registry *fakeRegistry
	launcher *fakeLauncher
	page     *fakePage
	llm      *fakeLLM
	uc       *pageInsightUseCase
}

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.FixedZone("EST", -5*3600))

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	rec := &recorder{}
	page := &fakePage{rec: rec, html: acmePage}
	f := &pipelineFixture{
		rec:      rec,
		cache:    newFakeCache(),
		registry: &fakeRegistry{rec: rec, sessions: sessions("idle")},
		launcher: &fakeLauncher{rec: rec, page: page},
		page:     page,
		llm: &fakeLLM{
			text:       "Acme sells rockets.",
			structured: `{"logos":["https://acme.com/logo.png"],"favicons":["https://acme.com/fav.ico"]}`,
		},
	}

	logger := zaptest.NewLogger(t)
	pool := NewSessionPool(f.registry, f.launcher, logger)
	analyzer := NewAnalyzer(f.llm, 200, logger)
	f.uc = NewPageInsight(f.cache, pool, analyzer, PageInsightOptions{PageLoadTimeout: time.Second}, logger).(*pageInsightUseCase)
	f.uc.now = func() time.Time { return fixedNow }
	return f
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "page:https://acme.com/?q=1", CacheKey("https://acme.com/?q=1"))
}

func TestPageInsight_CacheMissRunsPipeline(t *testing.T) {
	f := newPipelineFixture(t)

	resp, err := f.uc.Handle(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, "Acme", resp.Meta.Title)
	assert.Equal(t, "", resp.Meta.Description)
	assert.Equal(t, fixedNow.UTC(), resp.Meta.CachedAt)
	assert.Equal(t, "Acme sells rockets.", resp.Summary)
	assert.Equal(t, []string{"https://acme.com/logo.png"}, resp.Logos)
	assert.Equal(t, []string{"https://acme.com/fav.ico"}, resp.Favicons)
	assert.Equal(t, target, f.page.navigated)

	assert.Equal(t, 1, f.rec.count("connect:idle"))
	assert.Equal(t, 1, f.rec.count("disconnect"))
	assert.Equal(t, 1, f.rec.count("close_page"))

	require.Len(t, f.cache.puts, 1)
	put := f.cache.puts[0]
	assert.Equal(t, "page:"+target, put.key)
	assert.Equal(t, DefaultCacheTTL, put.ttl)

	var stored entity.ResponseData
	require.NoError(t, json.Unmarshal([]byte(put.value), &stored))
	assert.Equal(t, *resp, stored)
}

func TestPageInsight_CacheWrittenBeforeRelease(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.uc.Handle(context.Background(), target)
	require.NoError(t, err)

	events := f.rec.list()
	assert.Equal(t, []string{"list", "connect:idle", "new_page", "navigate", "html", "close_page", "disconnect"}, events)
	require.Len(t, f.cache.puts, 1)
}

func TestPageInsight_CacheHitSkipsPipeline(t *testing.T) {
	f := newPipelineFixture(t)

	cached := entity.ResponseData{
		Meta:     entity.ResponseMeta{Title: "Cached", Description: "d", CachedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Summary:  "from cache",
		Logos:    []string{"https://acme.com/old-logo.png"},
		Favicons: []string{},
	}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	f.cache.values[CacheKey(target)] = string(payload)

	resp, err := f.uc.Handle(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, cached, *resp)
	assert.Empty(t, f.rec.list(), "no registry, session or page calls on a hit")
	assert.Zero(t, f.llm.calls())
	assert.Empty(t, f.cache.puts)
}

func TestPageInsight_CorruptCacheEntryIsMiss(t *testing.T) {
	f := newPipelineFixture(t)
	f.cache.values[CacheKey(target)] = "{not json"

	resp, err := f.uc.Handle(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "Acme", resp.Meta.Title)
	require.Len(t, f.cache.puts, 1)
}

func TestPageInsight_CacheReadErrorIsMiss(t *testing.T) {
	f := newPipelineFixture(t)
	f.cache.getErr = errBoom

	_, err := f.uc.Handle(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 1, f.rec.count("disconnect"))
}

func TestPageInsight_CacheWriteFailureStillReturns(t *testing.T) {
	f := newPipelineFixture(t)
	f.cache.putErr = errBoom

	resp, err := f.uc.Handle(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "Acme sells rockets.", resp.Summary)
	assert.Equal(t, 1, f.rec.count("disconnect"))
}

func TestPageInsight_BadRequest(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "ftp://acme.com/"} {
		t.Run(raw, func(t *testing.T) {
			f := newPipelineFixture(t)

			_, err := f.uc.Handle(context.Background(), raw)
			require.ErrorIs(t, err, ErrBadRequest)
			assert.Equal(t, "bad_request", ErrorType(err))
			assert.Zero(t, f.cache.gets)
			assert.Empty(t, f.rec.list())
			assert.Zero(t, f.llm.calls())
		})
	}
}

func TestPageInsight_Failures(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(f *pipelineFixture)
		kind         error
		disconnects  int
		llmCallsZero bool
	}{
		{
			name:         "registry failure",
			setup:        func(f *pipelineFixture) { f.registry.err = errBoom },
			kind:         ErrAcquisition,
			disconnects:  0,
			llmCallsZero: true,
		},
		{
			name: "launch failure",
			setup: func(f *pipelineFixture) {
				f.registry.sessions = nil
				f.launcher.launchErr = errBoom
			},
			kind:         ErrAcquisition,
			disconnects:  0,
			llmCallsZero: true,
		},
		{
			name:         "open page failure",
			setup:        func(f *pipelineFixture) { f.launcher.pageErr = errBoom },
			kind:         ErrRender,
			disconnects:  1,
			llmCallsZero: true,
		},
		{
			name:         "navigation failure",
			setup:        func(f *pipelineFixture) { f.page.navigateErr = errBoom },
			kind:         ErrRender,
			disconnects:  1,
			llmCallsZero: true,
		},
		{
			name:         "html failure",
			setup:        func(f *pipelineFixture) { f.page.htmlErr = errBoom },
			kind:         ErrRender,
			disconnects:  1,
			llmCallsZero: true,
		},
		{
			name:        "summarization failure",
			setup:       func(f *pipelineFixture) { f.llm.textErr = errBoom },
			kind:        ErrDownstream,
			disconnects: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			tc.setup(f)

			resp, err := f.uc.Handle(context.Background(), target)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tc.kind)
			assert.ErrorIs(t, err, errBoom)
			assert.Equal(t, tc.disconnects, f.rec.count("disconnect"))
			assert.Empty(t, f.cache.puts, "failed pipelines are never cached")
			if tc.llmCallsZero {
				assert.Zero(t, f.llm.calls())
			}
		})
	}
}

func TestPageInsight_PanicStillReleases(t *testing.T) {
	f := newPipelineFixture(t)
	f.page.panicMsg = "renderer crashed"

	assert.Panics(t, func() {
		_, _ = f.uc.Handle(context.Background(), target)
	})
	assert.Equal(t, 1, f.rec.count("disconnect"))
}
