package build

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cochaviz/pwakit/internal/logging"
	"github.com/cochaviz/pwakit/internal/options"
	"github.com/cochaviz/pwakit/internal/precache"
)

// Generator synthesizes a complete service worker from configuration.
type Generator struct {
	Engine  precache.Engine
	Results ResultLogger
	Logger  *slog.Logger
}

// Generate passes opts.Workbox to the engine unchanged.
func (g Generator) Generate(ctx context.Context, opts options.ResolvedOptions) (precache.BuildResult, error) {
	logging.Ensure(g.Logger).Debug("generating service worker",
		"strategy", string(options.StrategyGenerateSW),
		"sw_dest", opts.Workbox.SwDest,
	)

	result, err := g.Engine.GenerateSW(ctx, opts.Workbox)
	if err != nil {
		return precache.BuildResult{}, fmt.Errorf("generate service worker: %w", err)
	}

	g.results().LogResult(OpGenerateSW, result)
	return result, nil
}

func (g Generator) results() ResultLogger {
	if g.Results != nil {
		return g.Results
	}
	return logging.ResultLogger{Logger: g.Logger}
}
