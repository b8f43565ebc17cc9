// Package logger builds the process-wide slog logger: human-readable text
// outside production, JSON in production.
package logger
