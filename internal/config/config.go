package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultCalendarID      = "primary"
	DefaultTimeZone        = "America/Los_Angeles"
	DefaultEventTitle      = "Meeting"
	DefaultDurationMinutes = 30
	DefaultHTTPTimeout     = 20 * time.Second
	DefaultOAuthPort       = 8787
	DefaultValkeyKeyPrefix = "voicecal:token:"

	// MinDurationMinutes and MaxDurationMinutes bound event length.
	MinDurationMinutes = 15
	MaxDurationMinutes = 240
)

// Token cache backends.
const (
	TokenCacheNone   = "none"
	TokenCacheMemory = "memory"
	TokenCacheValkey = "valkey"
)

// Credentials is the OAuth client identity plus the long-lived refresh token.
// It never prints its secret parts.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// String implements fmt.Stringer without exposing secrets.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{ClientID:%s ClientSecret:%s RefreshToken:%s}",
		c.ClientID, redact(c.ClientSecret), redact(c.RefreshToken))
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", c.ClientID),
		slog.String("client_secret", redact(c.ClientSecret)),
		slog.String("refresh_token", redact(c.RefreshToken)),
	)
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<redacted>"
}

// TokenCacheConfig selects where refreshed access tokens are kept between requests.
type TokenCacheConfig struct {
	// Backend is one of none, memory, valkey (default: none)
	Backend string

	// ValkeyAddrs is the list of host:port addresses for the valkey backend.
	ValkeyAddrs []string

	// ValkeyPassword authenticates against the valkey server.
	ValkeyPassword string

	// ValkeyDB selects the logical database.
	ValkeyDB int

	// ValkeyTLS enables TLS for the valkey connection.
	ValkeyTLS bool

	// KeyPrefix is prepended to every cache key.
	KeyPrefix string
}

// RateLimitConfig bounds inbound tool calls per client address.
// A zero PerSecond disables limiting.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int

	// TrustProxy keys clients by X-Forwarded-For instead of the socket address.
	TrustProxy bool
}

// Config is the immutable runtime configuration. Build it once with Load and
// pass it to constructors.
type Config struct {
	Credentials Credentials

	// CalendarID is the calendar events are inserted into (default: primary)
	CalendarID string

	// DefaultTimeZone is the IANA zone used when a request names none.
	DefaultTimeZone string

	// DefaultTitle labels events created without a title (default: Meeting)
	DefaultTitle string

	// DefaultDurationMinutes is the event length when none is requested (default: 30)
	DefaultDurationMinutes int

	// HTTPTimeout bounds each outbound call to Google (default: 20s)
	HTTPTimeout time.Duration

	// TokenURL overrides the Google token endpoint.
	TokenURL string

	// CalendarEndpoint overrides the Calendar API base URL.
	CalendarEndpoint string

	// SharedSecret, when set, must accompany every inbound tool call.
	// A value starting with "$2" is treated as a bcrypt hash.
	SharedSecret string

	TokenCache TokenCacheConfig

	RateLimit RateLimitConfig

	// OAuthPort is the local port used by the refresh-token helper (default: 8787)
	OAuthPort int
}

// Load reads the configuration from the environment. Call LoadEnvFiles first
// to pick up .env files.
func Load() (Config, error) {
	var errs []error

	duration, err := getEnvIntOrDefault("DEFAULT_DURATION_MINUTES", DefaultDurationMinutes)
	errs = append(errs, err)
	timeout, err := getEnvDurationOrDefault("HTTP_TIMEOUT", DefaultHTTPTimeout)
	errs = append(errs, err)
	valkeyDB, err := getEnvIntOrDefault("VALKEY_DB", 0)
	errs = append(errs, err)
	oauthPort, err := getEnvIntOrDefault("GOOGLE_OAUTH_PORT", DefaultOAuthPort)
	errs = append(errs, err)
	rate, err := getEnvFloatOrDefault("TOOL_RATE_LIMIT", 0)
	errs = append(errs, err)
	burst, err := getEnvIntOrDefault("TOOL_RATE_BURST", 10)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Credentials: Credentials{
			ClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
			RefreshToken: strings.TrimSpace(os.Getenv("GOOGLE_REFRESH_TOKEN")),
		},
		CalendarID:             getEnvOrDefault("CALENDAR_ID", DefaultCalendarID),
		DefaultTimeZone:        getEnvOrDefault("DEFAULT_TIMEZONE", DefaultTimeZone),
		DefaultTitle:           getEnvOrDefault("DEFAULT_EVENT_TITLE", DefaultEventTitle),
		DefaultDurationMinutes: duration,
		HTTPTimeout:            timeout,
		TokenURL:               os.Getenv("GOOGLE_TOKEN_URL"),
		CalendarEndpoint:       os.Getenv("GOOGLE_CALENDAR_ENDPOINT"),
		SharedSecret:           os.Getenv("TOOL_SHARED_SECRET"),
		TokenCache: TokenCacheConfig{
			Backend:        strings.ToLower(getEnvOrDefault("TOKEN_CACHE", TokenCacheNone)),
			ValkeyAddrs:    splitList(getEnvOrDefault("VALKEY_ADDR", "localhost:6379")),
			ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
			ValkeyDB:       valkeyDB,
			ValkeyTLS:      getEnvBoolOrDefault("VALKEY_TLS_ENABLED", false),
			KeyPrefix:      getEnvOrDefault("VALKEY_KEY_PREFIX", DefaultValkeyKeyPrefix),
		},
		RateLimit: RateLimitConfig{
			PerSecond:  rate,
			Burst:      burst,
			TrustProxy: getEnvBoolOrDefault("TOOL_RATE_TRUST_PROXY", false),
		},
		OAuthPort: oauthPort,
	}

	return cfg, nil
}

// ValidateCredentials reports every missing credential at once.
func (c *Config) ValidateCredentials() error {
	var missing []string
	if c.Credentials.ClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if c.Credentials.ClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if c.Credentials.RefreshToken == "" {
		missing = append(missing, "GOOGLE_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks the full configuration needed to schedule events.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ValidateCredentials(); err != nil {
		errs = append(errs, err)
	}
	if c.CalendarID == "" {
		errs = append(errs, errors.New("calendar id must not be empty"))
	}
	if _, err := time.LoadLocation(c.DefaultTimeZone); err != nil || c.DefaultTimeZone == "" {
		errs = append(errs, fmt.Errorf("invalid default timezone %q", c.DefaultTimeZone))
	}
	if c.DefaultDurationMinutes < MinDurationMinutes || c.DefaultDurationMinutes > MaxDurationMinutes {
		errs = append(errs, fmt.Errorf("default duration must be between %d and %d minutes, got %d",
			MinDurationMinutes, MaxDurationMinutes, c.DefaultDurationMinutes))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout))
	}

	switch c.TokenCache.Backend {
	case TokenCacheNone, TokenCacheMemory:
	case TokenCacheValkey:
		if len(c.TokenCache.ValkeyAddrs) == 0 {
			errs = append(errs, errors.New("VALKEY_ADDR is required when TOKEN_CACHE=valkey"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid token cache %q, must be one of: none, memory, valkey", c.TokenCache.Backend))
	}

	if c.RateLimit.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %g", c.RateLimit.PerSecond))
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("rate limit burst must be at least 1, got %d", c.RateLimit.Burst))
	}

	return errors.Join(errs...)
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the boolean value of an environment variable or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvIntOrDefault parses an integer variable. A malformed number is an error.
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, value)
	}
	return parsed, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a number", key, value)
	}
	return parsed, nil
}

// getEnvDurationOrDefault accepts Go durations ("20s") or plain seconds ("20").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a duration like 20s", key, value)
	}
	return d, nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
