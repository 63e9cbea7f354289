// Package host models the build that pwakit runs inside: where output goes,
// how sourcemaps are emitted, and which esbuild plugins are available.
package host

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/cochaviz/pwakit/internal/logging"
)

const DefaultOutDir = "dist"

// Context is a read-only snapshot of the host build for one invocation.
type Context struct {
	Root      string
	OutDir    string
	Mode      string
	Sourcemap Sourcemap
	Plugins   []api.Plugin
	Logger    *slog.Logger
}

// New resolves paths and constructs the host plugin chain in its fixed order.
func New(cfg Config, mode string, logger *slog.Logger) (Context, error) {
	logger = logging.Ensure(logger).With("component", "host")

	root := cfg.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return Context{}, fmt.Errorf("resolve root: %w", err)
	}

	outDir := cfg.Build.OutDir
	if outDir == "" {
		outDir = DefaultOutDir
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}

	sourcemap := cfg.Build.Sourcemap
	if sourcemap == "" {
		sourcemap = SourcemapOff
	}

	defines := map[string]string{
		"process.env.NODE_ENV": quote(mode),
		"import.meta.env.MODE": quote(mode),
		"import.meta.env.PROD": fmt.Sprint(mode == "production"),
		"import.meta.env.DEV":  fmt.Sprint(mode != "production"),
	}
	for k, v := range cfg.Define {
		defines[k] = v
	}

	plugins := []api.Plugin{
		AliasPlugin(cfg.Resolve.Alias, root),
		DefinePlugin(defines),
		ReplacePlugin(cfg.Replace),
		ReportPlugin(logger),
	}

	logger.Debug("host context resolved", "root", root, "out_dir", outDir, "sourcemap", string(sourcemap), "plugins", len(plugins))

	return Context{
		Root:      root,
		OutDir:    outDir,
		Mode:      mode,
		Sourcemap: sourcemap,
		Plugins:   plugins,
		Logger:    logger,
	}, nil
}

// PluginNames lists plugin names in host order.
func (c Context) PluginNames() []string {
	names := make([]string, 0, len(c.Plugins))
	for _, plugin := range c.Plugins {
		names = append(names, plugin.Name)
	}
	return names
}
