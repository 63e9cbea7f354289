package build

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cochaviz/pwakit/internal/artifacts"
	"github.com/cochaviz/pwakit/internal/host"
	"github.com/cochaviz/pwakit/internal/logging"
	"github.com/cochaviz/pwakit/internal/options"
	"github.com/cochaviz/pwakit/internal/precache"
)

type stubSession struct {
	writeErr error
	closeErr error
	outfile  string
	writes   int
	closes   int
}

func (s *stubSession) Write(context.Context) error {
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	if s.outfile != "" {
		return os.WriteFile(s.outfile, []byte("self.__WB_MANIFEST;\n"), 0o644)
	}
	return nil
}

func (s *stubSession) Close() error {
	s.closes++
	return s.closeErr
}

type stubBundler struct {
	session  *stubSession
	openErr  error
	requests []BundleRequest
}

func (b *stubBundler) Open(_ context.Context, request BundleRequest) (BundleSession, error) {
	b.requests = append(b.requests, request)
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.session.outfile = request.Outfile
	return b.session, nil
}

type stubEngine struct {
	injected  []precache.InjectManifestOptions
	generated []precache.GenerateSWOptions
	err       error
	result    precache.BuildResult
}

func (e *stubEngine) InjectManifest(_ context.Context, opts precache.InjectManifestOptions) (precache.BuildResult, error) {
	e.injected = append(e.injected, opts)
	return e.result, e.err
}

func (e *stubEngine) GenerateSW(_ context.Context, opts precache.GenerateSWOptions) (precache.BuildResult, error) {
	e.generated = append(e.generated, opts)
	if e.err != nil {
		return precache.BuildResult{}, e.err
	}
	if err := os.WriteFile(opts.SwDest, []byte("// sw\n"), 0o644); err != nil {
		return precache.BuildResult{}, err
	}
	result := e.result
	result.FilePaths = []string{opts.SwDest}
	return result, nil
}

type recordingResults struct {
	ops []string
}

func (r *recordingResults) LogResult(op string, _ precache.BuildResult) {
	r.ops = append(r.ops, op)
}

func namedPlugins(names ...string) []api.Plugin {
	plugins := make([]api.Plugin, 0, len(names))
	for _, name := range names {
		plugins = append(plugins, api.Plugin{Name: name, Setup: func(api.PluginBuild) {}})
	}
	return plugins
}

func pluginNames(plugins []api.Plugin) []string {
	names := make([]string, 0, len(plugins))
	for _, plugin := range plugins {
		names = append(names, plugin.Name)
	}
	return names
}

func injectOptions(t *testing.T) options.ResolvedOptions {
	t.Helper()
	dir := t.TempDir()
	return options.ResolvedOptions{
		Strategy: options.StrategyInjectManifest,
		SwSrc:    filepath.Join(dir, "src", "sw.ts"),
		InjectManifest: precache.InjectManifestOptions{
			GlobOptions: precache.GlobOptions{GlobDirectory: dir},
			SwSrc:       filepath.Join(dir, "src", "sw.ts"),
			SwDest:      filepath.Join(dir, "sw.js"),
			Extra:       map[string]any{"mode": "production", "maximumFileSizeToCacheInBytes": 10},
		},
	}
}

func TestResolvePluginSubset(t *testing.T) {
	t.Parallel()

	all := []string{"alias", "define", "replace", "pwakit:report"}

	assert.Equal(t, DefaultPluginSubset, ResolvePluginSubset(options.PluginSelection{}, all))
	assert.Equal(t, DefaultPluginSubset, ResolvePluginSubset(options.PluginNames(), all))
	assert.Equal(t, []string{"replace", "replace"}, ResolvePluginSubset(options.PluginNames("replace", "replace"), all))

	var seen []string
	selector := options.PluginSelector(func(names []string) []string {
		seen = names
		return []string{"pwakit:report"}
	})
	assert.Equal(t, []string{"pwakit:report"}, ResolvePluginSubset(selector, all))
	assert.Equal(t, all, seen)

	empty := options.PluginSelector(func([]string) []string { return nil })
	assert.Equal(t, DefaultPluginSubset, ResolvePluginSubset(empty, all))
}

func TestFilterPluginsKeepsHostOrder(t *testing.T) {
	t.Parallel()

	plugins := namedPlugins("alias", "define", "replace", "pwakit:report")
	filtered := FilterPlugins(plugins, []string{"replace", "alias", "json"})

	assert.Equal(t, []string{"alias", "replace"}, pluginNames(filtered))
}

func TestBundleReleasesSessionOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		writeErr error
		closeErr error
		wantErr  bool
	}{
		{name: "success"},
		{name: "write fails", writeErr: errors.New("could not resolve \"./missing\""), wantErr: true},
		{name: "release fails", closeErr: errors.New("already disposed")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			session := &stubSession{writeErr: tt.writeErr, closeErr: tt.closeErr}
			bundler := &stubBundler{session: session}

			err := Bundle(context.Background(), bundler, BundleRequest{
				Entry:   "src/sw.ts",
				Outfile: filepath.Join(t.TempDir(), "sw.js"),
				Logger:  logging.NewCLI(&logs, slog.LevelInfo),
			})

			assert.Equal(t, 1, session.writes)
			assert.Equal(t, 1, session.closes)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBundle))
				var bundleErr *BundleError
				require.True(t, errors.As(err, &bundleErr))
				assert.Equal(t, "src/sw.ts", bundleErr.Entry)
			} else {
				assert.NoError(t, err)
			}
			if tt.closeErr != nil {
				assert.Contains(t, logs.String(), "WARN release bundle session")
			}
		})
	}
}

func TestBundleOpenFailureHasNoSession(t *testing.T) {
	t.Parallel()

	bundler := &stubBundler{openErr: errors.New("invalid options")}
	err := Bundle(context.Background(), bundler, BundleRequest{Entry: "sw.js"})

	assert.True(t, errors.Is(err, ErrBundle))
	assert.Len(t, bundler.requests, 1)
}

func TestInjectorStripsModeAndForcesSwSrc(t *testing.T) {
	t.Parallel()

	opts := injectOptions(t)
	engine := &stubEngine{result: precache.BuildResult{Count: 2}}
	results := &recordingResults{}

	result, err := Injector{Engine: engine, Results: results}.Inject(context.Background(), opts, opts.InjectManifest.SwDest)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	require.Len(t, engine.injected, 1)
	sent := engine.injected[0]
	assert.Equal(t, opts.InjectManifest.SwDest, sent.SwSrc)
	assert.NotContains(t, sent.Extra, "mode")
	assert.Contains(t, sent.Extra, "maximumFileSizeToCacheInBytes")
	assert.Equal(t, []string{OpInjectManifest}, results.ops)

	assert.Equal(t, "production", opts.InjectManifest.Extra["mode"])
	assert.NotEqual(t, opts.InjectManifest.SwDest, opts.InjectManifest.SwSrc)
}

func TestInjectorWrapsEngineErrors(t *testing.T) {
	t.Parallel()

	opts := injectOptions(t)
	cause := &precache.InjectionPointError{Path: opts.InjectManifest.SwDest, InjectionPoint: precache.DefaultInjectionPoint}
	engine := &stubEngine{err: cause}
	results := &recordingResults{}

	_, err := Injector{Engine: engine, Results: results}.Inject(context.Background(), opts, opts.InjectManifest.SwDest)

	assert.True(t, errors.Is(err, ErrInjection))
	assert.True(t, errors.Is(err, precache.ErrInjectionPoint))
	assert.Empty(t, results.ops)
}

func TestGeneratorPassesWorkboxVerbatim(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := options.ResolvedOptions{
		Strategy: options.StrategyGenerateSW,
		Workbox: precache.GenerateSWOptions{
			GlobOptions: precache.GlobOptions{GlobDirectory: dir, GlobPatterns: []string{"**/*.html"}},
			SwDest:      filepath.Join(dir, "sw.js"),
			SkipWaiting: true,
		},
	}
	engine := &stubEngine{}
	results := &recordingResults{}

	_, err := Generator{Engine: engine, Results: results}.Generate(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, engine.generated, 1)
	assert.Equal(t, opts.Workbox, engine.generated[0])
	assert.Equal(t, []string{OpGenerateSW}, results.ops)
}

func TestLazyEngineLoadsOnce(t *testing.T) {
	t.Parallel()

	loads := 0
	engine := LazyEngine(func() precache.Engine {
		loads++
		return &stubEngine{}
	})

	assert.Equal(t, 0, loads)
	first := engine()
	second := engine()
	assert.Equal(t, 1, loads)
	assert.Same(t, first, second)
}

func TestServiceRunGenerateSWSkipsBundling(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := options.ResolvedOptions{
		Strategy: options.StrategyGenerateSW,
		Workbox: precache.GenerateSWOptions{
			GlobOptions: precache.GlobOptions{GlobDirectory: dir},
			SwDest:      filepath.Join(dir, "sw.js"),
		},
	}
	engine := &stubEngine{result: precache.BuildResult{Count: 1}}
	bundler := &stubBundler{session: &stubSession{}}
	service := &Service{
		Engine:  LazyEngine(func() precache.Engine { return engine }),
		Bundler: bundler,
		Results: &recordingResults{},
	}

	output, err := service.Run(context.Background(), opts, host.Context{})
	require.NoError(t, err)

	assert.Empty(t, bundler.requests)
	assert.Empty(t, engine.injected)
	assert.Len(t, engine.generated, 1)
	assert.Equal(t, options.StrategyGenerateSW, output.Strategy)
	assert.NotEmpty(t, output.RunID)
	require.Len(t, output.Artifacts, 1)
	assert.Equal(t, artifacts.ServiceWorkerArtifact, output.Artifacts[0].Kind)
}

func TestServiceRunInjectManifestBundlesThenInjects(t *testing.T) {
	t.Parallel()

	opts := injectOptions(t)
	opts.VitePlugins = options.PluginNames("replace")
	engine := &stubEngine{}
	session := &stubSession{}
	bundler := &stubBundler{session: session}
	results := &recordingResults{}
	service := &Service{
		Engine:  LazyEngine(func() precache.Engine { return engine }),
		Bundler: bundler,
		Results: results,
	}
	hc := host.Context{Sourcemap: host.SourcemapHidden, Plugins: namedPlugins("alias", "define", "replace")}

	output, err := service.Run(context.Background(), opts, hc)
	require.NoError(t, err)

	require.Len(t, bundler.requests, 1)
	request := bundler.requests[0]
	assert.Equal(t, opts.SwSrc, request.Entry)
	assert.Equal(t, opts.InjectManifest.SwDest, request.Outfile)
	assert.Equal(t, host.SourcemapHidden, request.Sourcemap)
	assert.Equal(t, []string{"replace"}, pluginNames(request.Plugins))
	assert.Equal(t, 1, session.closes)

	require.Len(t, engine.injected, 1)
	assert.Equal(t, opts.InjectManifest.SwDest, engine.injected[0].SwSrc)
	assert.NotContains(t, engine.injected[0].Extra, "mode")
	assert.Empty(t, engine.generated)
	assert.Equal(t, []string{OpInjectManifest}, results.ops)
	assert.Equal(t, options.StrategyInjectManifest, output.Strategy)
}

func TestServiceRunBundleFailureSkipsEngine(t *testing.T) {
	t.Parallel()

	opts := injectOptions(t)
	loads := 0
	session := &stubSession{writeErr: errors.New("transform failed")}
	service := &Service{
		Engine: LazyEngine(func() precache.Engine {
			loads++
			return &stubEngine{}
		}),
		Bundler: &stubBundler{session: session},
		Results: &recordingResults{},
	}

	_, err := service.Run(context.Background(), opts, host.Context{})

	assert.True(t, errors.Is(err, ErrBundle))
	assert.Equal(t, 1, session.closes)
	assert.Equal(t, 0, loads)
}

func TestServiceRunHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := injectOptions(t)
	bundler := &stubBundler{session: &stubSession{}}
	service := &Service{
		Engine:  LazyEngine(func() precache.Engine { return &stubEngine{} }),
		Bundler: bundler,
	}

	_, err := service.Run(ctx, opts, host.Context{})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, bundler.requests)
}
