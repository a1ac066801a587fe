package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("GOOGLE_REFRESH_TOKEN", "refresh-token")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "client-id", cfg.Credentials.ClientID)
	assert.Equal(t, DefaultCalendarID, cfg.CalendarID)
	assert.Equal(t, DefaultTimeZone, cfg.DefaultTimeZone)
	assert.Equal(t, DefaultEventTitle, cfg.DefaultTitle)
	assert.Equal(t, 30, cfg.DefaultDurationMinutes)
	assert.Equal(t, 20*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, TokenCacheNone, cfg.TokenCache.Backend)
	assert.Equal(t, []string{"localhost:6379"}, cfg.TokenCache.ValkeyAddrs)
	assert.Equal(t, 8787, cfg.OAuthPort)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CALENDAR_ID", "team@group.calendar.google.com")
	t.Setenv("DEFAULT_TIMEZONE", "America/New_York")
	t.Setenv("DEFAULT_EVENT_TITLE", "Call")
	t.Setenv("DEFAULT_DURATION_MINUTES", "45")
	t.Setenv("HTTP_TIMEOUT", "5")
	t.Setenv("TOKEN_CACHE", "Valkey")
	t.Setenv("VALKEY_ADDR", "cache-a:6379, cache-b:6379")
	t.Setenv("TOOL_RATE_LIMIT", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "team@group.calendar.google.com", cfg.CalendarID)
	assert.Equal(t, "Call", cfg.DefaultTitle)
	assert.Equal(t, 45, cfg.DefaultDurationMinutes)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, TokenCacheValkey, cfg.TokenCache.Backend)
	assert.Equal(t, []string{"cache-a:6379", "cache-b:6379"}, cfg.TokenCache.ValkeyAddrs)
	assert.Equal(t, 2.5, cfg.RateLimit.PerSecond)
}

func TestLoadMalformedNumbers(t *testing.T) {
	t.Setenv("DEFAULT_DURATION_MINUTES", "thirty")
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_DURATION_MINUTES")
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
}

func TestValidateReportsAllMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_REFRESH_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REFRESH_TOKEN")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Credentials:            Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"},
			CalendarID:             "primary",
			DefaultTimeZone:        "Europe/Berlin",
			DefaultTitle:           "Meeting",
			DefaultDurationMinutes: 30,
			HTTPTimeout:            time.Second,
			TokenCache:             TokenCacheConfig{Backend: TokenCacheNone},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad timezone", func(c *Config) { c.DefaultTimeZone = "Mars/Olympus" }, "invalid default timezone"},
		{"short duration", func(c *Config) { c.DefaultDurationMinutes = 5 }, "between 15 and 240"},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, "http timeout must be positive"},
		{"unknown cache", func(c *Config) { c.TokenCache.Backend = "redis" }, "invalid token cache"},
		{"valkey without addr", func(c *Config) { c.TokenCache.Backend = TokenCacheValkey }, "VALKEY_ADDR is required"},
		{"zero burst", func(c *Config) { c.RateLimit = RateLimitConfig{PerSecond: 1} }, "burst must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCredentialsNeverPrintSecrets(t *testing.T) {
	creds := Credentials{ClientID: "id-123", ClientSecret: "s3cr3t", RefreshToken: "1//refresh"}

	out := fmt.Sprintf("%v %s", creds, creds)
	assert.Contains(t, out, "id-123")
	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "1//refresh")
	assert.NotContains(t, creds.LogValue().String(), "s3cr3t")
}

func TestLoadEnvFilesExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("VOICECAL_TEST_ONLY=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("VOICECAL_TEST_ONLY") })

	loaded, err := LoadEnvFiles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, loaded)
	assert.Equal(t, "from-file", os.Getenv("VOICECAL_TEST_ONLY"))
}

func TestLoadEnvFilesDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CALENDAR_ID=from-file\n"), 0o600))
	t.Setenv("CALENDAR_ID", "from-env")

	_, err := LoadEnvFiles(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", os.Getenv("CALENDAR_ID"))
}

func TestLoadEnvFilesMissingExplicitPath(t *testing.T) {
	_, err := LoadEnvFiles(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestWriteUserEnv(t *testing.T) {
	// Registered before Setenv so it runs after the variable is restored.
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()

	path, err := WriteUserEnv(map[string]string{"GOOGLE_REFRESH_TOKEN": "1//first"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(xdg.ConfigHome, UserEnvFile), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A file left world-readable by hand is tightened on the next write.
	require.NoError(t, os.Chmod(path, 0o644))
	_, err = WriteUserEnv(map[string]string{"GOOGLE_REFRESH_TOKEN": "1//second", "CALENDAR_ID": "team"})
	require.NoError(t, err)

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GOOGLE_REFRESH_TOKEN": "1//second", "CALENDAR_ID": "team"}, values)
}
