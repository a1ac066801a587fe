package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/tokencache"
	"github.com/teemow/voicecal/internal/toolerr"
)

var testCreds = config.Credentials{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	RefreshToken: "1//refresh",
}

func tokenServer(t *testing.T, calls *int32, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestRefresherSuccess(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "1//refresh", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "ya29.fresh",
			"expires_in":   3599,
			"token_type":   "Bearer",
		})
	})

	r := NewRefresher(testCreds, RefresherOptions{TokenURL: srv.URL, Timeout: time.Second})

	got, err := r.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Each call performs its own refresh.
	_, err = r.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRefresherInvalidGrant(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Token has been expired or revoked.",
		})
	})

	r := NewRefresher(testCreds, RefresherOptions{TokenURL: srv.URL, Timeout: time.Second})

	tok, err := r.AccessToken(context.Background())
	require.Error(t, err)
	assert.Empty(t, tok)

	te, ok := toolerr.As(err)
	require.True(t, ok)
	assert.Equal(t, toolerr.KindAuth, te.Kind)
	assert.Equal(t, http.StatusBadRequest, te.Status)
	assert.Contains(t, te.Message, "invalid_grant")
	assert.Equal(t, toolerr.OpTokenRefresh, te.Op)
}

func TestRefresherMissingAccessToken(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token_type": "Bearer"})
	})

	r := NewRefresher(testCreds, RefresherOptions{TokenURL: srv.URL, Timeout: time.Second})

	_, err := r.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolerr.ErrAuth))
}

func TestRefresherTimeout(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	r := NewRefresher(testCreds, RefresherOptions{TokenURL: srv.URL, Timeout: 50 * time.Millisecond})

	_, err := r.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolerr.ErrNetwork))
}

func TestRefresherConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewRefresher(testCreds, RefresherOptions{TokenURL: url, Timeout: time.Second})

	_, err := r.Token(context.Background())
	require.Error(t, err)
	te, ok := toolerr.As(err)
	require.True(t, ok)
	assert.Equal(t, toolerr.KindNetwork, te.Kind)
	assert.Equal(t, "request to Google failed", te.Message)
}

type fakeRefresher struct {
	calls int
	token *oauth2.Token
	err   error
}

func (f *fakeRefresher) Token(context.Context) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}

func (failingCache) Close() error { return nil }

func TestCachingTokenProvider(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	src := &fakeRefresher{token: &oauth2.Token{AccessToken: "ya29.a", Expiry: now.Add(time.Hour)}}

	p := NewCachingTokenProvider(src, tokencache.NewMemory(), testCreds, nil, nil)
	p.now = func() time.Time { return now }

	got, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.a", got)

	got, err = p.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.a", got)
	assert.Equal(t, 1, src.calls)
}

func TestCachingTokenProviderSkipsTokensWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	src := &fakeRefresher{token: &oauth2.Token{AccessToken: "ya29.a"}}
	p := NewCachingTokenProvider(src, tokencache.NewMemory(), testCreds, nil, nil)

	_, err := p.AccessToken(ctx)
	require.NoError(t, err)
	_, err = p.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCachingTokenProviderFallsBackWhenCacheFails(t *testing.T) {
	src := &fakeRefresher{token: &oauth2.Token{AccessToken: "ya29.a", Expiry: time.Now().Add(time.Hour)}}
	p := NewCachingTokenProvider(src, failingCache{}, testCreds, nil, nil)

	got, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.a", got)
}

func TestCachingTokenProviderPropagatesRefreshErrors(t *testing.T) {
	src := &fakeRefresher{err: toolerr.Auth(400, "Google rejected the refresh token: invalid_grant", nil)}
	p := NewCachingTokenProvider(src, tokencache.NewMemory(), testCreds, nil, nil)

	_, err := p.AccessToken(context.Background())
	assert.True(t, errors.Is(err, toolerr.ErrAuth))
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(testCreds)
	assert.Len(t, a, 32)
	assert.NotContains(t, a, "refresh")
	assert.Equal(t, a, CacheKey(testCreds))

	other := testCreds
	other.RefreshToken = "1//other"
	assert.NotEqual(t, a, CacheKey(other))
}
