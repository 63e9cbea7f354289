// Package precache computes precache manifests and writes service workers
// that consume them.
package precache

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

// Engine is the precache-build surface consumed by the generation pipeline.
type Engine interface {
	GenerateSW(ctx context.Context, opts GenerateSWOptions) (BuildResult, error)
	InjectManifest(ctx context.Context, opts InjectManifestOptions) (BuildResult, error)
}

// Ensure Builder satisfies the engine interface.
var _ Engine = (*Builder)(nil)

//go:embed templates/sw.js.tmpl
var serviceWorkerTemplate string

// Builder is the filesystem-backed Engine.
type Builder struct {
	Logger *slog.Logger

	tmpl *template.Template
}

// NewBuilder parses the embedded service-worker template once.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{
		Logger: logger,
		tmpl:   template.Must(template.New("sw").Parse(serviceWorkerTemplate)),
	}
}

func (b *Builder) logger() *slog.Logger {
	if b != nil && b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// InjectManifest replaces the injection point in SwSrc with the manifest and
// writes the result to SwDest.
func (b *Builder) InjectManifest(ctx context.Context, opts InjectManifestOptions) (BuildResult, error) {
	if err := validateInjectManifest(opts); err != nil {
		return BuildResult{}, err
	}
	injectionPoint := opts.InjectionPoint
	if injectionPoint == "" {
		injectionPoint = DefaultInjectionPoint
	}

	source, err := os.ReadFile(opts.SwSrc)
	if err != nil {
		return BuildResult{}, fmt.Errorf("read service worker source: %w", err)
	}
	if n := strings.Count(string(source), injectionPoint); n != 1 {
		return BuildResult{}, &InjectionPointError{Path: opts.SwSrc, InjectionPoint: injectionPoint, Occurrences: n}
	}

	entries, result, err := buildManifest(ctx, opts.GlobOptions, opts.SwDest)
	if err != nil {
		return BuildResult{}, err
	}
	manifest, err := json.Marshal(entries)
	if err != nil {
		return BuildResult{}, fmt.Errorf("encode manifest: %w", err)
	}

	// TODO: rewrite the adjacent .map so mappings after the injection point stay aligned.
	output := strings.Replace(string(source), injectionPoint, string(manifest), 1)
	if err := writeFile(opts.SwDest, []byte(output)); err != nil {
		return BuildResult{}, err
	}

	b.logger().Debug("manifest injected",
		"sw_src", opts.SwSrc,
		"sw_dest", opts.SwDest,
		"entries", result.Count,
	)

	result.Manifest = entries
	result.FilePaths = []string{opts.SwDest}
	return result, nil
}

// GenerateSW writes a self-contained service worker precaching the manifest.
func (b *Builder) GenerateSW(ctx context.Context, opts GenerateSWOptions) (BuildResult, error) {
	if err := validateGenerateSW(opts); err != nil {
		return BuildResult{}, err
	}

	entries, result, err := buildManifest(ctx, opts.GlobOptions, opts.SwDest)
	if err != nil {
		return BuildResult{}, err
	}

	data, err := newTemplateData(opts, entries)
	if err != nil {
		return BuildResult{}, err
	}

	tmpl := b.tmpl
	if tmpl == nil {
		tmpl = template.Must(template.New("sw").Parse(serviceWorkerTemplate))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return BuildResult{}, fmt.Errorf("render service worker: %w", err)
	}
	if err := writeFile(opts.SwDest, buf.Bytes()); err != nil {
		return BuildResult{}, err
	}

	b.logger().Debug("service worker generated", "sw_dest", opts.SwDest, "entries", result.Count)

	result.Manifest = entries
	result.FilePaths = []string{opts.SwDest}
	return result, nil
}

type templateData struct {
	CacheName             string
	Manifest              string
	ImportScripts         string
	NavigateFallback      string
	NavigateDenylist      string
	Debug                 bool
	SkipWaiting           bool
	ClientsClaim          bool
	CleanupOutdatedCaches bool
}

func newTemplateData(opts GenerateSWOptions, entries []ManifestEntry) (templateData, error) {
	cacheID := opts.CacheID
	if cacheID == "" {
		cacheID = "pwakit"
	}

	data := templateData{
		Debug:                 opts.Mode == "development",
		SkipWaiting:           opts.SkipWaiting,
		ClientsClaim:          opts.ClientsClaim,
		CleanupOutdatedCaches: opts.CleanupOutdatedCaches,
	}

	var navigateFallback any
	if opts.NavigateFallback != "" {
		navigateFallback = opts.NavigateFallback
	}

	encode := func(dst *string, v any) error {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode template data: %w", err)
		}
		*dst = string(encoded)
		return nil
	}
	for _, err := range []error{
		encode(&data.CacheName, cacheID+"-precache-v1"),
		encode(&data.Manifest, entries),
		encode(&data.ImportScripts, nonNil(opts.ImportScripts)),
		encode(&data.NavigateDenylist, nonNil(opts.NavigateFallbackDenylist)),
		encode(&data.NavigateFallback, navigateFallback),
	} {
		if err != nil {
			return templateData{}, err
		}
	}
	return data, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func validateInjectManifest(opts InjectManifestOptions) error {
	if len(opts.Extra) > 0 {
		keys := make([]string, 0, len(opts.Extra))
		for k := range opts.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return &ValidationError{Field: keys[0], Reason: "is not allowed"}
	}
	if strings.TrimSpace(opts.SwSrc) == "" {
		return &ValidationError{Field: "swSrc", Reason: "is required"}
	}
	if strings.TrimSpace(opts.SwDest) == "" {
		return &ValidationError{Field: "swDest", Reason: "is required"}
	}
	return validateGlob(opts.GlobOptions)
}

func validateGenerateSW(opts GenerateSWOptions) error {
	if strings.TrimSpace(opts.SwDest) == "" {
		return &ValidationError{Field: "swDest", Reason: "is required"}
	}
	if !strings.HasSuffix(opts.SwDest, ".js") {
		return &ValidationError{Field: "swDest", Reason: "must end with .js"}
	}
	switch opts.Mode {
	case "", "production", "development":
	default:
		return &ValidationError{Field: "mode", Reason: "must be one of [production, development]"}
	}
	for _, pattern := range opts.NavigateFallbackDenylist {
		if _, err := regexp.Compile(pattern); err != nil {
			return &ValidationError{Field: "navigateFallbackDenylist", Reason: err.Error()}
		}
	}
	return validateGlob(opts.GlobOptions)
}

func validateGlob(opts GlobOptions) error {
	if len(opts.GlobPatterns) > 0 && strings.TrimSpace(opts.GlobDirectory) == "" {
		return &ValidationError{Field: "globDirectory", Reason: "is required when globPatterns are set"}
	}
	for _, entry := range opts.AdditionalManifestEntries {
		if entry.URL == "" {
			return &ValidationError{Field: "additionalManifestEntries", Reason: "entries require a url"}
		}
	}
	return nil
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
