package logging

import (
	"log/slog"
	"os"
)

// InitStructured reconfigures the operational logger.
// format: "text" (default) or "json". level: "debug", "info", "warn", "error".
func InitStructured(format, level string) {
	SetLevelFromString(level)

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	opLogger.Store(slog.New(handler))
}

// OpWithTrace returns the operational logger annotated with trace context,
// for handlers running under the optional OpenTelemetry middleware.
func OpWithTrace(traceID, spanID string) *slog.Logger {
	l := opLogger.Load()
	if traceID == "" {
		return l
	}
	args := []any{"trace_id", traceID}
	if spanID != "" {
		args = append(args, "span_id", spanID)
	}
	return l.With(args...)
}
