package google

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/logging"
	"github.com/teemow/voicecal/internal/tokencache"
	"github.com/teemow/voicecal/internal/toolerr"
)

// TokenProvider yields a bearer token for the Calendar API.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenRefresher performs a refresh grant and returns the full token.
type TokenRefresher interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// RefresherOptions tunes a Refresher. Zero values select defaults.
type RefresherOptions struct {
	// TokenURL overrides Google's token endpoint.
	TokenURL string

	// Timeout bounds a single refresh (default: 20s)
	Timeout time.Duration

	// HTTPClient is used for the token request.
	HTTPClient *http.Client

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Refresher exchanges the configured refresh token for an access token on
// every call. It holds no mutable state and is safe for concurrent use.
type Refresher struct {
	conf         *oauth2.Config
	refreshToken string
	timeout      time.Duration
	httpClient   *http.Client
	metrics      *instrumentation.Metrics
	logger       *slog.Logger
}

// NewRefresher creates a Refresher for creds.
func NewRefresher(creds config.Credentials, opts RefresherOptions) *Refresher {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultHTTPTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(opts.Timeout)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Refresher{
		conf:         OAuthConfig(creds, opts.TokenURL, "", nil),
		refreshToken: creds.RefreshToken,
		timeout:      opts.Timeout,
		httpClient:   opts.HTTPClient,
		metrics:      opts.Metrics,
		logger:       logging.WithOperation(opts.Logger, toolerr.OpTokenRefresh),
	}
}

// Token performs one refresh grant. Failures are *toolerr.Error values of
// kind auth or network; a nil error always comes with a non-empty token.
func (r *Refresher) Token(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth, instrumentation.OperationRefresh)
	defer span.End()

	start := time.Now()
	tok, err := r.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: r.refreshToken}).Token()
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = errors.New("token endpoint returned no access token")
	}
	duration := time.Since(start)

	if err != nil {
		terr := classifyRefreshError(err)
		instrumentation.SetSpanError(span, terr)
		r.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		r.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth, instrumentation.OperationRefresh, instrumentation.StatusError, duration)
		r.logger.WarnContext(ctx, "token refresh failed",
			slog.String(logging.KeyKind, string(terr.Kind)),
			slog.Int(logging.KeyStatus, terr.Status),
			logging.Err(err),
		)
		return nil, terr
	}

	instrumentation.SetSpanSuccess(span)
	r.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	r.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth, instrumentation.OperationRefresh, instrumentation.StatusSuccess, duration)
	r.logger.DebugContext(ctx, "access token refreshed",
		slog.String("token", logging.SanitizeToken(tok.AccessToken)),
		slog.Time("expiry", tok.Expiry),
	)
	return tok, nil
}

// AccessToken implements TokenProvider.
func (r *Refresher) AccessToken(ctx context.Context) (string, error) {
	tok, err := r.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// classifyRefreshError maps a refresh failure onto the error taxonomy.
// Provider rejections are auth errors; timeouts and transport failures are
// network errors.
func classifyRefreshError(err error) *toolerr.Error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		msg := "Google rejected the refresh token"
		if re.ErrorCode != "" {
			msg = fmt.Sprintf("%s: %s", msg, re.ErrorCode)
		}
		return toolerr.Auth(status, msg, err)
	}
	if toolerr.IsTransport(err) {
		return toolerr.Network(toolerr.OpTokenRefresh, err)
	}
	return toolerr.Auth(0, "could not obtain an access token", err)
}

// DefaultExpirySkew is subtracted from a token's lifetime before caching it.
const DefaultExpirySkew = time.Minute

// CachingTokenProvider serves access tokens from a cache and refreshes on a
// miss. Cache failures fall back to a refresh and are never returned.
type CachingTokenProvider struct {
	source  TokenRefresher
	cache   tokencache.Cache
	key     string
	skew    time.Duration
	now     func() time.Time
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewCachingTokenProvider wraps source with cache, keyed by the identity of creds.
func NewCachingTokenProvider(source TokenRefresher, cache tokencache.Cache, creds config.Credentials, metrics *instrumentation.Metrics, logger *slog.Logger) *CachingTokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingTokenProvider{
		source:  source,
		cache:   cache,
		key:     CacheKey(creds),
		skew:    DefaultExpirySkew,
		now:     time.Now,
		metrics: metrics,
		logger:  logger,
	}
}

// AccessToken implements TokenProvider.
func (p *CachingTokenProvider) AccessToken(ctx context.Context) (string, error) {
	cached, err := p.cache.Get(ctx, p.key)
	switch {
	case err == nil && cached != "":
		p.metrics.RecordTokenCacheLookup(ctx, instrumentation.CacheResultHit)
		return cached, nil
	case err == nil || errors.Is(err, tokencache.ErrMiss):
		p.metrics.RecordTokenCacheLookup(ctx, instrumentation.CacheResultMiss)
	default:
		p.metrics.RecordTokenCacheLookup(ctx, instrumentation.CacheResultError)
		p.logger.WarnContext(ctx, "token cache read failed, refreshing", logging.Err(err))
	}

	tok, err := p.source.Token(ctx)
	if err != nil {
		return "", err
	}

	if !tok.Expiry.IsZero() {
		ttl := tok.Expiry.Sub(p.now()) - p.skew
		if err := p.cache.Set(ctx, p.key, tok.AccessToken, ttl); err != nil {
			p.logger.WarnContext(ctx, "token cache write failed", logging.Err(err))
		}
	}

	return tok.AccessToken, nil
}

// CacheKey derives a stable, non-reversible key for a credential set.
func CacheKey(creds config.Credentials) string {
	sum := sha256.Sum256([]byte(creds.ClientID + "\x00" + creds.RefreshToken))
	return hex.EncodeToString(sum[:16])
}
