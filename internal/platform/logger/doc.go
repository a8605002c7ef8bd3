// Package logger configures structured JSON logging on top of log/slog and
// carries request-scoped loggers through context.Context.
//
// Attributes named "error" are passed through the redact package before they
// are written, so connection strings and tokens embedded in driver errors do
// not reach the log sink.
package logger
