package google

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/voicecal/internal/config"
)

// CallbackPath is where the consent flow expects Google to redirect.
const CallbackPath = "/oauth2callback"

// NewHTTPClient returns the client used for all outbound Google calls.
// It forces HTTP/1.1 by disabling HTTP/2.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
			IdleConnTimeout:   90 * time.Second,
		},
	}
}

// OAuthConfig builds the oauth2 configuration for the calendar scopes.
// An empty tokenURL selects Google's production endpoint.
func OAuthConfig(creds config.Credentials, tokenURL, redirectURL string, scopes []string) *oauth2.Config {
	endpoint := google.Endpoint
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	// Client credentials go in the form body.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}
}

// ConsentResult is delivered once the browser returns to the callback.
type ConsentResult struct {
	Token *oauth2.Token
	Err   error
}

// ConsentFlow mints a refresh token through the authorization-code grant
// with offline access and forced consent, so Google always returns one.
type ConsentFlow struct {
	conf       *oauth2.Config
	state      string
	httpClient *http.Client
}

// NewConsentFlow prepares a flow redirecting to redirectURL. Only the client
// id and secret of creds are used.
func NewConsentFlow(creds config.Credentials, redirectURL, tokenURL string, httpClient *http.Client) *ConsentFlow {
	if httpClient == nil {
		httpClient = NewHTTPClient(config.DefaultHTTPTimeout)
	}
	return &ConsentFlow{
		conf:       OAuthConfig(creds, tokenURL, redirectURL, nil),
		state:      uuid.NewString(),
		httpClient: httpClient,
	}
}

// State returns the anti-forgery value embedded in the consent URL.
func (f *ConsentFlow) State() string {
	return f.state
}

// AuthCodeURL returns the URL the user must open to grant access.
func (f *ConsentFlow) AuthCodeURL() string {
	return f.conf.AuthCodeURL(f.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (f *ConsentFlow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	tok, err := f.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if tok.RefreshToken == "" {
		return tok, errors.New("no refresh token returned; revoke the app's access in your Google account and run the flow again")
	}
	return tok, nil
}

// CallbackHandler validates the redirect, exchanges the code and sends the
// outcome on results. Requests without the flow's state are rejected before
// anything is delivered, including Google's error redirects. Only the first
// valid callback is delivered.
func (f *ConsentFlow) CallbackHandler(results chan<- ConsentResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != f.state {
			writePage(w, http.StatusBadRequest, "State mismatch. Start the flow again.")
			return
		}
		if e := q.Get("error"); e != "" {
			writePage(w, http.StatusBadRequest, "Authorization failed: "+e)
			deliver(results, ConsentResult{Err: fmt.Errorf("authorization denied: %s", e)})
			return
		}
		code := q.Get("code")
		if code == "" {
			writePage(w, http.StatusBadRequest, "Missing authorization code.")
			return
		}

		tok, err := f.Exchange(r.Context(), code)
		if err != nil {
			writePage(w, http.StatusBadGateway, "Token exchange failed: "+err.Error())
			deliver(results, ConsentResult{Err: err})
			return
		}

		writePage(w, http.StatusOK, "Authorization complete. You can close this tab.")
		deliver(results, ConsentResult{Token: tok})
	})
}

func deliver(results chan<- ConsentResult, res ConsentResult) {
	select {
	case results <- res:
	default:
	}
}

func writePage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "<!doctype html><html><body><p>%s</p></body></html>", html.EscapeString(msg))
}
