// Package config loads the immutable runtime configuration of voicecal from
// environment variables, optionally seeded from .env files.
//
// Required:
//   - GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REFRESH_TOKEN
//
// Optional (defaults in parentheses):
//   - CALENDAR_ID (primary)
//   - DEFAULT_TIMEZONE (America/Los_Angeles)
//   - DEFAULT_EVENT_TITLE (Meeting)
//   - DEFAULT_DURATION_MINUTES (30)
//   - HTTP_TIMEOUT (20s)
//   - GOOGLE_TOKEN_URL, GOOGLE_CALENDAR_ENDPOINT (Google production endpoints)
//   - TOOL_SHARED_SECRET (unset: tool endpoints are open)
//   - TOOL_RATE_LIMIT, TOOL_RATE_BURST (0: unlimited, 10)
//   - TOKEN_CACHE (none), VALKEY_ADDR, VALKEY_PASSWORD, VALKEY_DB,
//     VALKEY_TLS_ENABLED, VALKEY_KEY_PREFIX
//   - GOOGLE_OAUTH_PORT (8787)
package config
