package build

import (
	"log/slog"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/cochaviz/pwakit/internal/artifacts"
	"github.com/cochaviz/pwakit/internal/host"
	"github.com/cochaviz/pwakit/internal/options"
	"github.com/cochaviz/pwakit/internal/precache"
)

// Operation tags passed to the ResultLogger.
const (
	OpGenerateSW     = "generateSW"
	OpInjectManifest = "injectManifest"
)

// BundleRequest describes one bundle of custom service-worker source.
type BundleRequest struct {
	// Entry is the authored source; only its side effects are kept.
	Entry     string
	Plugins   []api.Plugin
	Outfile   string
	Sourcemap host.Sourcemap

	// Logger receives session release failures.
	Logger *slog.Logger
}

// BuildOutput captures the result of one pipeline run.
type BuildOutput struct {
	RunID     string
	Strategy  options.Strategy
	Result    precache.BuildResult
	Artifacts []artifacts.Artifact
}
