// Package build runs the service-worker generation pipeline: either the
// engine synthesizes a whole worker, or custom source is bundled and the
// precache manifest is injected into the bundle.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/cochaviz/pwakit/internal/artifacts"
	"github.com/cochaviz/pwakit/internal/host"
	"github.com/cochaviz/pwakit/internal/logging"
	"github.com/cochaviz/pwakit/internal/options"
	"github.com/cochaviz/pwakit/internal/precache"
)

type Service struct {
	Logger *slog.Logger
	// Engine is called only when a strategy needs it; wrap loaders with
	// LazyEngine so construction happens once.
	Engine        func() precache.Engine
	Bundler       Bundler
	Results       ResultLogger
	ArtifactStore artifacts.ArtifactStore
}

// Run executes exactly one strategy for opts and describes the files it wrote.
func (s *Service) Run(ctx context.Context, opts options.ResolvedOptions, hc host.Context) (BuildOutput, error) {
	if s.Engine == nil {
		return BuildOutput{}, errors.New("precache engine is not configured")
	}

	runID := uuid.NewString()
	logger := s.logger().With("run", runID, "strategy", string(opts.Strategy))

	var (
		result precache.BuildResult
		err    error
	)
	switch opts.Strategy {
	case options.StrategyInjectManifest:
		result, err = s.injectManifest(ctx, opts, hc, logger)
	case options.StrategyGenerateSW, "":
		result, err = Generator{Engine: s.Engine(), Results: s.Results, Logger: logger}.Generate(ctx, opts)
	default:
		return BuildOutput{}, fmt.Errorf("%w: unknown strategy %q", options.ErrInvalidOption, opts.Strategy)
	}
	if err != nil {
		return BuildOutput{}, err
	}

	stored, err := s.storeArtifacts(opts, result, runID)
	if err != nil {
		return BuildOutput{}, err
	}
	logger.Debug("service worker artifacts recorded", "artifacts", len(stored))

	return BuildOutput{
		RunID:     runID,
		Strategy:  opts.Strategy,
		Result:    result,
		Artifacts: stored,
	}, nil
}

func (s *Service) injectManifest(ctx context.Context, opts options.ResolvedOptions, hc host.Context, logger *slog.Logger) (precache.BuildResult, error) {
	if s.Bundler == nil {
		return precache.BuildResult{}, errors.New("bundler is not configured")
	}

	names := ResolvePluginSubset(opts.VitePlugins, hc.PluginNames())
	plugins := FilterPlugins(hc.Plugins, names)
	logger.Debug("bundle plugins resolved", "selected", names, "applied", len(plugins))

	swDest := opts.InjectManifest.SwDest
	err := Bundle(ctx, s.Bundler, BundleRequest{
		Entry:     opts.SwSrc,
		Plugins:   plugins,
		Outfile:   swDest,
		Sourcemap: hc.Sourcemap,
		Logger:    logger,
	})
	if err != nil {
		return precache.BuildResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return precache.BuildResult{}, err
	}

	return Injector{Engine: s.Engine(), Results: s.Results, Logger: logger}.Inject(ctx, opts, swDest)
}

// storeArtifacts describes every file the engine wrote, plus the bundle's
// external sourcemap when one was emitted.
func (s *Service) storeArtifacts(opts options.ResolvedOptions, result precache.BuildResult, runID string) ([]artifacts.Artifact, error) {
	paths := append([]string(nil), result.FilePaths...)
	if opts.Strategy == options.StrategyInjectManifest {
		sourcemap := opts.InjectManifest.SwDest + ".map"
		if _, err := os.Stat(sourcemap); err == nil {
			paths = append(paths, sourcemap)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	metadata := map[string]any{
		"run":      runID,
		"strategy": string(opts.Strategy),
		"entries":  result.Count,
		"size":     result.Size,
	}

	stored := make([]artifacts.Artifact, 0, len(paths))
	for _, path := range paths {
		var (
			artifact artifacts.Artifact
			err      error
		)
		if s.ArtifactStore != nil {
			artifact, err = s.ArtifactStore.StoreArtifact(path, artifacts.KindFor(path), metadata)
		} else {
			artifact, err = artifacts.Describe(path, artifacts.KindFor(path), metadata)
		}
		if err != nil {
			return nil, fmt.Errorf("record artifact %s: %w", path, err)
		}
		stored = append(stored, artifact)
	}
	return stored, nil
}

func (s *Service) logger() *slog.Logger {
	return logging.Ensure(s.Logger).With("component", "build")
}
