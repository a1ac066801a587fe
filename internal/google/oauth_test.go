package google

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsentFlowAuthCodeURL(t *testing.T) {
	f := NewConsentFlow(testCreds, "http://localhost:8787"+CallbackPath, "", nil)

	u, err := url.Parse(f.AuthCodeURL())
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, f.State(), q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.events", q.Get("scope"))
	assert.Equal(t, "http://localhost:8787/oauth2callback", q.Get("redirect_uri"))
}

func TestConsentFlowCallback(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "ya29.a",
			"refresh_token": "1//minted",
			"expires_in":    3599,
			"token_type":    "Bearer",
		})
	})

	f := NewConsentFlow(testCreds, "http://localhost:8787"+CallbackPath, srv.URL, nil)
	results := make(chan ConsentResult, 1)
	h := f.CallbackHandler(results)

	t.Run("state mismatch", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CallbackPath+"?state=forged&code=x", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Len(t, results, 0)
	})

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CallbackPath+"?state="+f.State()+"&code=the-code", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		res := <-results
		require.NoError(t, res.Err)
		assert.Equal(t, "1//minted", res.Token.RefreshToken)
	})
}

func TestConsentFlowDenied(t *testing.T) {
	f := NewConsentFlow(testCreds, "http://localhost:8787"+CallbackPath, "", nil)
	results := make(chan ConsentResult, 1)

	rec := httptest.NewRecorder()
	f.CallbackHandler(results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CallbackPath+"?state="+f.State()+"&error=access_denied", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	res := <-results
	assert.ErrorContains(t, res.Err, "access_denied")
}

func TestConsentFlowErrorWithoutStateIsIgnored(t *testing.T) {
	f := NewConsentFlow(testCreds, "http://localhost:8787"+CallbackPath, "", nil)
	results := make(chan ConsentResult, 1)
	h := f.CallbackHandler(results)

	for _, query := range []string{"?error=access_denied", "?state=forged&error=access_denied"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CallbackPath+query, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Contains(t, rec.Body.String(), "State mismatch", query)
		assert.Len(t, results, 0, query)
	}
}

func TestConsentFlowMissingRefreshToken(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "ya29.a", "token_type": "Bearer"})
	})

	f := NewConsentFlow(testCreds, "http://localhost:8787"+CallbackPath, srv.URL, nil)
	_, err := f.Exchange(t.Context(), "the-code")
	assert.ErrorContains(t, err, "no refresh token returned")
}
