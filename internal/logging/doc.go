// Package logging provides structured logging utilities for voicecal.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.insert")
//	logger.Info("event created",
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("scheduling",
//	    logging.CallerHash(req.Name))
//
// # Security Considerations
//
//   - Caller names are hashed to prevent PII leakage while allowing correlation
//   - Invitees are logged by domain only
//   - Tokens are never logged directly
package logging
