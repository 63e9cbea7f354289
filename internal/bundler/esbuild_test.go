package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cochaviz/pwakit/internal/build"
	"github.com/cochaviz/pwakit/internal/host"
	"github.com/cochaviz/pwakit/internal/options"
	"github.com/cochaviz/pwakit/internal/precache"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func fixtureProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"dist/index.html":    "<!doctype html>",
		"dist/assets/app.js": "console.log('app')",
		"dist/style.css":     "body{}",
		"dist/robots.txt":    "User-agent: *",
		"src/helper.js":      "export const version = '__VERSION__';\n",
		"src/lazy.js":        "export default function lazy() { return 'lazy'; }\n",
		"src/sw.js": `import { version } from "./helper.js";
export const unused = "should not be exported";
const manifest = self.__WB_MANIFEST;
self.addEventListener("install", () => {
  console.log(version, manifest.length);
  import("./lazy.js").then((m) => m.default());
});
`,
	})
	return root
}

func TestEsbuildBundleThenInject(t *testing.T) {
	t.Parallel()

	root := fixtureProject(t)
	hc, err := host.New(host.Config{
		Root:    root,
		Replace: map[string]string{"__VERSION__": "1.2.3"},
	}, "production", nil)
	require.NoError(t, err)

	opts, err := options.Resolve(options.Config{SwSrc: "src/sw.js", Filename: "sw.js"}, hc)
	require.NoError(t, err)
	require.Equal(t, options.StrategyInjectManifest, opts.Strategy)

	service := &build.Service{
		Engine:  build.LazyEngine(func() precache.Engine { return precache.NewBuilder(nil) }),
		Bundler: Esbuild{},
	}

	output, err := service.Run(context.Background(), opts, hc)
	require.NoError(t, err)

	// index.html, assets/app.js and style.css; sw.js itself is excluded.
	assert.Equal(t, 3, output.Result.Count)

	bundled, err := os.ReadFile(filepath.Join(root, "dist", "sw.js"))
	require.NoError(t, err)
	content := string(bundled)

	assert.NotContains(t, content, precache.DefaultInjectionPoint)
	assert.Contains(t, content, `"url":"index.html"`)
	assert.Contains(t, content, "1.2.3")
	assert.Contains(t, content, "lazy")
	assert.NotContains(t, content, "export {")
	assert.NotContains(t, content, "export const")

	matches, err := filepath.Glob(filepath.Join(root, "dist", "*.js"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "dist", "sw.js")}, matches)
}

func TestEsbuildHiddenSourcemap(t *testing.T) {
	t.Parallel()

	root := fixtureProject(t)
	outfile := filepath.Join(root, "out", "sw.js")

	err := build.Bundle(context.Background(), Esbuild{}, build.BundleRequest{
		Entry:     filepath.Join(root, "src", "sw.js"),
		Outfile:   outfile,
		Sourcemap: host.SourcemapHidden,
	})
	require.NoError(t, err)

	content, err := os.ReadFile(outfile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "sourceMappingURL")
	assert.FileExists(t, outfile+".map")
}

func TestEsbuildResolutionFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/sw.js": "import './missing.js';\n",
	})

	err := build.Bundle(context.Background(), Esbuild{}, build.BundleRequest{
		Entry:   filepath.Join(root, "src", "sw.js"),
		Outfile: filepath.Join(root, "dist", "sw.js"),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, build.ErrBundle))
	var bundleErr *build.BundleError
	require.True(t, errors.As(err, &bundleErr))
	require.NotEmpty(t, bundleErr.Messages)
	assert.True(t, strings.Contains(bundleErr.Messages[0], "missing.js"), bundleErr.Messages[0])
	assert.NoFileExists(t, filepath.Join(root, "dist", "sw.js"))
}

func TestSessionCloseIsReported(t *testing.T) {
	t.Parallel()

	root := fixtureProject(t)
	session, err := Esbuild{}.Open(context.Background(), build.BundleRequest{
		Entry:   filepath.Join(root, "src", "sw.js"),
		Outfile: filepath.Join(root, "dist", "sw.js"),
	})
	require.NoError(t, err)

	assert.NoError(t, session.Close())
	assert.Error(t, session.Close())
}

func TestSourcemapMode(t *testing.T) {
	t.Parallel()

	for setting, want := range map[host.Sourcemap]api.SourceMap{
		host.SourcemapOff:    api.SourceMapNone,
		host.SourcemapOn:     api.SourceMapLinked,
		host.SourcemapInline: api.SourceMapInline,
		host.SourcemapHidden: api.SourceMapExternal,
		"":                   api.SourceMapNone,
	} {
		assert.Equal(t, want, sourcemapMode(setting), string(setting))
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	summary, err := Summarize(`{
  "inputs": {"src/sw.js": {"bytes": 120, "imports": []}, "src/helper.js": {"bytes": 40, "imports": []}},
  "outputs": {"dist/sw.js": {"bytes": 300, "exports": [], "inputs": {"src/sw.js": {"bytesInOutput": 100}, "src/helper.js": {"bytesInOutput": 30}}}}
}`)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.InputCount)
	assert.Equal(t, 300, summary.OutputBytes)
	assert.Equal(t, "src/sw.js", summary.LargestInput)
	assert.Empty(t, summary.Exports)

	_, err = Summarize("")
	assert.Error(t, err)
}
