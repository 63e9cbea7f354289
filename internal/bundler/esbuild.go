// Package bundler adapts esbuild to the pipeline's bundle sessions.
package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/cochaviz/pwakit/internal/build"
	"github.com/cochaviz/pwakit/internal/host"
	"github.com/cochaviz/pwakit/internal/logging"
)

// Esbuild opens esbuild build contexts. Each session bundles one service
// worker into a single ES module file.
type Esbuild struct {
	Logger *slog.Logger
	// Target defaults to es2020.
	Target api.Target
	Minify bool
}

// Open creates the esbuild context for request without building anything.
func (e Esbuild) Open(ctx context.Context, request build.BundleRequest) (build.BundleSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := filepath.Abs(request.Entry)
	if err != nil {
		return nil, fmt.Errorf("resolve entry: %w", err)
	}

	buildCtx, ctxErr := api.Context(e.options(entry, request))
	if ctxErr != nil {
		return nil, &build.BundleError{Entry: request.Entry, Messages: formatMessages(ctxErr.Errors)}
	}

	return &session{
		entry:   request.Entry,
		outfile: request.Outfile,
		esbuild: buildCtx,
		logger:  logging.Ensure(e.Logger).With("component", "bundler"),
	}, nil
}

func (e Esbuild) options(entry string, request build.BundleRequest) api.BuildOptions {
	target := e.Target
	if target == api.DefaultTarget {
		target = api.ES2020
	}

	return api.BuildOptions{
		// The synthetic entry only imports the source for its side effects,
		// so none of its exports survive in the output.
		Stdin: &api.StdinOptions{
			Contents:   fmt.Sprintf("import %s;\n", jsString("./"+filepath.Base(entry))),
			ResolveDir: filepath.Dir(entry),
			Sourcefile: "pwakit-entry.js",
			Loader:     api.LoaderJS,
		},
		Bundle:            true,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Target:            target,
		Splitting:         false,
		Outfile:           request.Outfile,
		Write:             true,
		Metafile:          true,
		Sourcemap:         sourcemapMode(request.Sourcemap),
		MinifyWhitespace:  e.Minify,
		MinifyIdentifiers: e.Minify,
		MinifySyntax:      e.Minify,
		LogLevel:          api.LogLevelSilent,
		Plugins:           append([]api.Plugin(nil), request.Plugins...),
	}
}

type session struct {
	entry   string
	outfile string
	esbuild api.BuildContext
	logger  *slog.Logger
}

// Write runs the build. Cancelling ctx cancels the in-flight build.
func (s *session) Write(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, s.esbuild.Cancel)
	defer stop()

	result := s.esbuild.Rebuild()
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, warning := range formatMessages(result.Warnings) {
		s.logger.Warn(warning, "entry", s.entry)
	}
	if len(result.Errors) > 0 {
		return &build.BundleError{Entry: s.entry, Messages: formatMessages(result.Errors)}
	}

	if summary, err := Summarize(result.Metafile); err != nil {
		s.logger.Debug("metafile unreadable", "error", err)
	} else {
		s.logger.Debug("bundle written",
			"outfile", s.outfile,
			"inputs", summary.InputCount,
			"bytes", summary.OutputBytes,
			"largest", summary.LargestInput,
		)
	}
	return nil
}

// Close disposes the esbuild context and its plugins.
func (s *session) Close() error {
	if s.esbuild == nil {
		return fmt.Errorf("bundle session for %s already released", s.entry)
	}
	s.esbuild.Dispose()
	s.esbuild = nil
	return nil
}

// sourcemapMode mirrors the host setting: "true" links the map, "hidden"
// writes it without a reference comment.
func sourcemapMode(setting host.Sourcemap) api.SourceMap {
	switch setting {
	case host.SourcemapOn:
		return api.SourceMapLinked
	case host.SourcemapInline:
		return api.SourceMapInline
	case host.SourcemapHidden:
		return api.SourceMapExternal
	default:
		return api.SourceMapNone
	}
}

func formatMessages(messages []api.Message) []string {
	formatted := make([]string, 0, len(messages))
	for _, message := range messages {
		var b strings.Builder
		if message.Location != nil {
			fmt.Fprintf(&b, "%s:%d:%d: ", message.Location.File, message.Location.Line, message.Location.Column)
		}
		b.WriteString(message.Text)
		if message.PluginName != "" {
			fmt.Fprintf(&b, " [plugin %s]", message.PluginName)
		}
		formatted = append(formatted, b.String())
	}
	return formatted
}

func jsString(value string) string {
	encoded, _ := json.Marshal(filepath.ToSlash(value))
	return string(encoded)
}
