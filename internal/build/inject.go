package build

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cochaviz/pwakit/internal/logging"
	"github.com/cochaviz/pwakit/internal/options"
	"github.com/cochaviz/pwakit/internal/precache"
)

// modeOption is accepted by configuration but rejected by the engine's
// injectManifest validation, so it is removed before the call.
const modeOption = "mode"

// Injector splices the precache manifest into a bundled service worker.
type Injector struct {
	Engine  precache.Engine
	Results ResultLogger
	Logger  *slog.Logger
}

// Inject runs the engine against swDest, the bundled output, which replaces
// any configured swSrc. opts is not modified.
func (i Injector) Inject(ctx context.Context, opts options.ResolvedOptions, swDest string) (precache.BuildResult, error) {
	logger := i.logger()

	injectOpts := opts.InjectManifest.Clone()
	injectOpts.SwSrc = swDest
	if value, ok := injectOpts.Extra[modeOption]; ok {
		delete(injectOpts.Extra, modeOption)
		logger.Debug("dropping injectManifest option", "option", modeOption, "value", value)
	}

	result, err := i.Engine.InjectManifest(ctx, injectOpts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return precache.BuildResult{}, err
		}
		return precache.BuildResult{}, &InjectionError{SwSrc: injectOpts.SwSrc, SwDest: injectOpts.SwDest, Err: err}
	}

	i.results().LogResult(OpInjectManifest, result)
	return result, nil
}

func (i Injector) logger() *slog.Logger {
	return logging.Ensure(i.Logger).With("strategy", string(options.StrategyInjectManifest))
}

func (i Injector) results() ResultLogger {
	if i.Results != nil {
		return i.Results
	}
	return logging.ResultLogger{Logger: i.Logger}
}
