package logging

import (
	"fmt"
	"log/slog"

	"github.com/cochaviz/pwakit/internal/precache"
)

// ResultLogger reports precache engine results.
type ResultLogger struct {
	Logger *slog.Logger
}

// LogResult writes a summary line for op, followed by one line per warning and
// per non-fatal engine error.
func (r ResultLogger) LogResult(op string, result precache.BuildResult) {
	logger := Ensure(r.Logger)

	logger.Info("service worker built",
		"mode", op,
		"precache", fmt.Sprintf("%d entries (%s)", result.Count, FormatKiB(result.Size)),
		"files", result.FilePaths,
	)
	for _, warning := range result.Warnings {
		logger.Warn(warning, "mode", op)
	}
	for _, message := range result.Errors {
		logger.Error(message, "mode", op)
	}
}

// FormatKiB renders a byte count with two decimals, e.g. "12.34 KiB".
func FormatKiB(size int64) string {
	return fmt.Sprintf("%.2f KiB", float64(size)/1024)
}
