// Package logging provides structured logging utilities for mailai.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from configuration (text or JSON handler)
//   - Request-scoped loggers carried through context.Context
//   - PII sanitization (email anonymization, token masking)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(logging.FromContext(ctx), "gmail.list")
//	logger.Info("listing emails", logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("profile fetched", logging.UserHash(email))
//
// # Security Considerations
//
//   - User emails are hashed to prevent PII leakage while allowing correlation
//   - Bearer and refresh tokens are never logged directly
package logging
