package simple

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cochaviz/pwakit/internal/artifacts"
	"github.com/cochaviz/pwakit/internal/build"
	"github.com/cochaviz/pwakit/internal/bundler"
	"github.com/cochaviz/pwakit/internal/host"
	"github.com/cochaviz/pwakit/internal/logging"
	"github.com/cochaviz/pwakit/internal/options"
	"github.com/cochaviz/pwakit/internal/precache"
	"github.com/cochaviz/pwakit/internal/register"
	"github.com/cochaviz/pwakit/internal/repositories/local"
)

var DefaultConfigFile = options.DefaultConfigFile

// Project is a loaded configuration file resolved against its host build.
type Project struct {
	Host    host.Context
	Options options.ResolvedOptions
}

// PluginStatus reports whether a host plugin takes part in bundling.
type PluginStatus struct {
	Name    string
	Bundled bool
}

// Load reads configPath and resolves it. A non-empty mode overrides the
// configured one.
func Load(configPath, mode string, logger *slog.Logger) (Project, error) {
	logger = logging.Ensure(logger).With("component", "config.simple")

	if strings.TrimSpace(configPath) == "" {
		configPath = DefaultConfigFile
	}
	file, err := options.Load(configPath)
	if err != nil {
		return Project{}, err
	}
	if mode != "" {
		file.PWA.Mode = mode
	}
	if file.PWA.Mode == "" {
		file.PWA.Mode = options.DefaultMode
	}

	hc, err := host.New(file.Host, file.PWA.Mode, logger)
	if err != nil {
		return Project{}, err
	}
	resolved, err := options.Resolve(file.PWA, hc)
	if err != nil {
		return Project{}, fmt.Errorf("%s: %w", configPath, err)
	}

	logger.Debug("configuration loaded", "config", configPath, "strategy", string(resolved.Strategy), "mode", resolved.Mode)
	return Project{Host: hc, Options: resolved}, nil
}

// BuildServiceWorker runs the pipeline for the project at configPath. When
// metadataDir is set, a JSON record of every generated file is written there.
func BuildServiceWorker(ctx context.Context, configPath, mode, metadataDir string, logger *slog.Logger) (build.BuildOutput, error) {
	logger = logging.Ensure(logger)

	project, err := Load(configPath, mode, logger)
	if err != nil {
		return build.BuildOutput{}, err
	}

	service := build.Service{
		Logger: logger.With("service", "build"),
		Engine: build.LazyEngine(func() precache.Engine {
			return precache.NewBuilder(logger.With("component", "precache"))
		}),
		Bundler: bundler.Esbuild{
			Logger: logger,
			Minify: project.Options.Mode == "production",
		},
		Results: logging.ResultLogger{Logger: logger},
		ArtifactStore: &local.LocalArtifactStore{
			BaseDir:     project.Options.OutDir,
			MetadataDir: metadataDir,
		},
	}

	return service.Run(ctx, project.Options, project.Host)
}

// RenderRegister renders a registration script. With write set, the script is
// also stored as registerSW.js in the output directory.
func RenderRegister(configPath string, mode register.Mode, source string, write bool, logger *slog.Logger) (string, *artifacts.Artifact, error) {
	project, err := Load(configPath, "", logger)
	if err != nil {
		return "", nil, err
	}

	script, err := register.Render(project.Options, mode, source)
	if err != nil {
		return "", nil, err
	}
	if !write {
		return script, nil, nil
	}

	store := &local.LocalArtifactStore{BaseDir: project.Options.OutDir}
	artifact, err := register.Write(store, project.Options, mode, source)
	if err != nil {
		return "", nil, err
	}
	return script, &artifact, nil
}

// ListPlugins reports every host plugin in host order and whether it is used
// when bundling custom service-worker source.
func ListPlugins(configPath string, logger *slog.Logger) ([]PluginStatus, error) {
	project, err := Load(configPath, "", logger)
	if err != nil {
		return nil, err
	}

	available := project.Host.PluginNames()
	selected := build.FilterPlugins(project.Host.Plugins, build.ResolvePluginSubset(project.Options.VitePlugins, available))
	bundled := make(map[string]bool, len(selected))
	for _, plugin := range selected {
		bundled[plugin.Name] = true
	}

	statuses := make([]PluginStatus, len(available))
	for i, name := range available {
		statuses[i] = PluginStatus{Name: name, Bundled: bundled[name]}
	}
	return statuses, nil
}
