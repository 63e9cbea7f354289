// Package options loads pwakit configuration and resolves it into the
// immutable value consumed by the generation pipeline.
package options

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cochaviz/pwakit/internal/host"
	"github.com/cochaviz/pwakit/internal/precache"
)

// ErrInvalidOption is matched by every resolution failure.
var ErrInvalidOption = errors.New("invalid option")

type RegisterType string

const (
	RegisterAutoUpdate RegisterType = "autoUpdate"
	RegisterPrompt     RegisterType = "prompt"
)

type WorkerType string

const (
	WorkerClassic WorkerType = "classic"
	WorkerModule  WorkerType = "module"
)

type Strategy string

const (
	StrategyGenerateSW     Strategy = "generateSW"
	StrategyInjectManifest Strategy = "injectManifest"
)

const (
	DefaultBase         = "/"
	DefaultFilename     = "sw.js"
	DefaultSrcDir       = "public"
	DefaultMode         = "production"
	DefaultRegisterType = RegisterPrompt

	// Hashed assets such as app-1a2b3c4d.js already carry a revision.
	defaultDontCacheBust = `[.-][a-f0-9]{8}\.`
)

var DefaultGlobPatterns = []string{"**/*.{js,css,html}"}

type DevOptions struct {
	Enabled bool       `yaml:"enabled"`
	Type    WorkerType `yaml:"type"`
}

// Config is the "pwa" section of the configuration file as written by the user.
type Config struct {
	Base           string                          `yaml:"base"`
	Filename       string                          `yaml:"filename"`
	Scope          string                          `yaml:"scope"`
	RegisterType   RegisterType                    `yaml:"registerType"`
	Strategies     Strategy                        `yaml:"strategies"`
	SrcDir         string                          `yaml:"srcDir"`
	Mode           string                          `yaml:"mode"`
	DevOptions     DevOptions                      `yaml:"devOptions"`
	SwSrc          string                          `yaml:"swSrc"`
	VitePlugins    PluginSelection                 `yaml:"vitePlugins"`
	Workbox        precache.GenerateSWOptions      `yaml:"workbox"`
	InjectManifest *precache.InjectManifestOptions `yaml:"injectManifest"`
}

// ResolvedOptions is the configuration after defaults and path resolution.
// Treat it as a value: the pipeline copies what it changes.
type ResolvedOptions struct {
	Root   string
	SrcDir string
	OutDir string

	Base         string
	Filename     string
	Scope        string
	Mode         string
	RegisterType RegisterType
	DevOptions   DevOptions
	Strategy     Strategy

	// SwSrc is the authored service-worker source, before bundling.
	SwSrc          string
	Workbox        precache.GenerateSWOptions
	InjectManifest precache.InjectManifestOptions
	VitePlugins    PluginSelection
}

// AutoUpdate reports whether the registration script should update silently.
func (o ResolvedOptions) AutoUpdate() bool {
	return o.RegisterType == RegisterAutoUpdate
}

// ServiceWorkerURL is the public URL the browser registers.
func (o ResolvedOptions) ServiceWorkerURL() string {
	return o.Base + o.Filename
}

// Resolve applies defaults to cfg using paths from the host build.
func Resolve(cfg Config, hc host.Context) (ResolvedOptions, error) {
	resolved := ResolvedOptions{
		Root:         hc.Root,
		OutDir:       hc.OutDir,
		Base:         withDefault(cfg.Base, DefaultBase),
		Mode:         withDefault(cfg.Mode, withDefault(hc.Mode, DefaultMode)),
		RegisterType: RegisterType(withDefault(string(cfg.RegisterType), string(DefaultRegisterType))),
		DevOptions:   cfg.DevOptions,
		VitePlugins:  cfg.VitePlugins,
	}
	if !strings.HasSuffix(resolved.Base, "/") {
		resolved.Base += "/"
	}
	authored := withDefault(cfg.Filename, DefaultFilename)
	resolved.Filename = outputName(authored)
	resolved.Scope = withDefault(cfg.Scope, resolved.Base)
	resolved.SrcDir = anchor(hc.Root, withDefault(cfg.SrcDir, DefaultSrcDir))
	if resolved.DevOptions.Type == "" {
		resolved.DevOptions.Type = WorkerClassic
	}

	if err := validate(resolved); err != nil {
		return ResolvedOptions{}, err
	}

	switch cfg.Strategies {
	case "":
		resolved.Strategy = StrategyGenerateSW
		if cfg.InjectManifest != nil || cfg.SwSrc != "" {
			resolved.Strategy = StrategyInjectManifest
		}
	case StrategyGenerateSW, StrategyInjectManifest:
		resolved.Strategy = cfg.Strategies
	default:
		return ResolvedOptions{}, fmt.Errorf("%w: strategies %q must be %s or %s", ErrInvalidOption, cfg.Strategies, StrategyGenerateSW, StrategyInjectManifest)
	}

	swDest := filepath.Join(resolved.OutDir, resolved.Filename)

	resolved.Workbox = cfg.Workbox.Clone()
	applyGlobDefaults(&resolved.Workbox.GlobOptions, hc.Root, resolved.OutDir)
	resolved.Workbox.SwDest = anchor(hc.Root, withDefault(resolved.Workbox.SwDest, swDest))
	resolved.Workbox.Mode = withDefault(resolved.Workbox.Mode, resolved.Mode)

	if cfg.InjectManifest != nil {
		resolved.InjectManifest = cfg.InjectManifest.Clone()
	}
	applyGlobDefaults(&resolved.InjectManifest.GlobOptions, hc.Root, resolved.OutDir)
	resolved.InjectManifest.SwSrc = anchor(hc.Root, withDefault(resolved.InjectManifest.SwSrc,
		withDefault(cfg.SwSrc, filepath.Join(resolved.SrcDir, authored))))
	resolved.InjectManifest.SwDest = anchor(hc.Root, withDefault(resolved.InjectManifest.SwDest, swDest))
	resolved.SwSrc = resolved.InjectManifest.SwSrc

	return resolved, nil
}

func validate(o ResolvedOptions) error {
	switch o.RegisterType {
	case RegisterAutoUpdate, RegisterPrompt:
	default:
		return fmt.Errorf("%w: registerType %q must be %s or %s", ErrInvalidOption, o.RegisterType, RegisterAutoUpdate, RegisterPrompt)
	}
	switch o.DevOptions.Type {
	case WorkerClassic, WorkerModule:
	default:
		return fmt.Errorf("%w: devOptions.type %q must be %s or %s", ErrInvalidOption, o.DevOptions.Type, WorkerClassic, WorkerModule)
	}
	switch o.Mode {
	case "production", "development":
	default:
		return fmt.Errorf("%w: mode %q must be production or development", ErrInvalidOption, o.Mode)
	}
	if strings.ContainsAny(o.Filename, `/\`) {
		return fmt.Errorf("%w: filename %q must not contain a path", ErrInvalidOption, o.Filename)
	}
	return nil
}

func applyGlobDefaults(opts *precache.GlobOptions, root, outDir string) {
	opts.GlobDirectory = anchor(root, withDefault(opts.GlobDirectory, outDir))
	if len(opts.GlobPatterns) == 0 {
		opts.GlobPatterns = append([]string(nil), DefaultGlobPatterns...)
	}
	if opts.DontCacheBustURLsMatching == "" {
		opts.DontCacheBustURLsMatching = defaultDontCacheBust
	}
}

// outputName maps an authored file name onto the emitted one; TypeScript
// sources are emitted as JavaScript.
func outputName(filename string) string {
	switch ext := filepath.Ext(filename); ext {
	case ".ts", ".mts":
		return strings.TrimSuffix(filename, ext) + ".js"
	default:
		return filename
	}
}

func anchor(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func dirOf(path string) string {
	dir := filepath.Dir(path)
	if dir == "" {
		return "."
	}
	return dir
}
