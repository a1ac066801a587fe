package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/voicecal/internal/calendar"
	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/google"
	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/scheduler"
	"github.com/teemow/voicecal/internal/tokencache"
)

// calendarFlags are the scheduling overrides shared by serve and create.
type calendarFlags struct {
	calendarID string
	timezone   string
}

func (f *calendarFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.calendarID, "calendar-id", config.DefaultCalendarID, "Calendar to insert events into. Can also use CALENDAR_ID env var.")
	cmd.Flags().StringVar(&f.timezone, "timezone", config.DefaultTimeZone, "Default IANA time zone. Can also use DEFAULT_TIMEZONE env var.")
}

// readConfig reads the environment and applies flags the user set
// explicitly. The result is not validated.
func readConfig(cmd *cobra.Command, flags *calendarFlags) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags != nil {
		if cmd.Flags().Changed("calendar-id") {
			cfg.CalendarID = flags.calendarID
		}
		if cmd.Flags().Changed("timezone") {
			cfg.DefaultTimeZone = flags.timezone
		}
	}
	return cfg, nil
}

// loadConfig is readConfig followed by full validation.
func loadConfig(cmd *cobra.Command, flags *calendarFlags) (config.Config, error) {
	cfg, err := readConfig(cmd, flags)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newTokenCache returns the configured cache, or nil when caching is off.
func newTokenCache(cfg config.TokenCacheConfig) (tokencache.Cache, error) {
	switch cfg.Backend {
	case config.TokenCacheMemory:
		return tokencache.NewMemory(), nil
	case config.TokenCacheValkey:
		return tokencache.NewValkey(tokencache.ValkeyConfig{
			Addrs:     cfg.ValkeyAddrs,
			Password:  cfg.ValkeyPassword,
			DB:        cfg.ValkeyDB,
			TLS:       cfg.ValkeyTLS,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		return nil, nil
	}
}

// buildScheduler wires the refresher, the optional token cache and the
// calendar client into a Scheduler. The returned cleanup releases the cache.
func buildScheduler(cfg config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*scheduler.Scheduler, func(), error) {
	httpClient := google.NewHTTPClient(cfg.HTTPTimeout)

	refresher := google.NewRefresher(cfg.Credentials, google.RefresherOptions{
		TokenURL:   cfg.TokenURL,
		Timeout:    cfg.HTTPTimeout,
		HTTPClient: httpClient,
		Metrics:    metrics,
		Logger:     logger,
	})

	var tokens google.TokenProvider = refresher
	cleanup := func() {}

	cache, err := newTokenCache(cfg.TokenCache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token cache: %w", err)
	}
	if cache != nil {
		tokens = google.NewCachingTokenProvider(refresher, cache, cfg.Credentials, metrics, logger)
		cleanup = func() {
			if err := cache.Close(); err != nil {
				logger.Warn("failed to close token cache", "error", err)
			}
		}
		logger.Info("token cache enabled", "backend", cfg.TokenCache.Backend)
	}

	client := calendar.NewClient(calendar.ClientOptions{
		Endpoint:   cfg.CalendarEndpoint,
		Timeout:    cfg.HTTPTimeout,
		HTTPClient: httpClient,
		Metrics:    metrics,
		Logger:     logger,
	})

	opts := scheduler.OptionsFromConfig(cfg)
	opts.Metrics = metrics
	opts.Logger = logger

	return scheduler.New(tokens, client, opts), cleanup, nil
}
