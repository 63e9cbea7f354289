package host

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Host plugin names.
const (
	PluginAlias   = "alias"
	PluginDefine  = "define"
	PluginReplace = "replace"
	PluginReport  = "pwakit:report"
)

var replaceableSource = regexp.MustCompile(`\.(m?[jt]s|[jt]sx)$`)

// AliasPlugin rewrites import specifiers that start with a configured alias.
// Relative targets are anchored at root.
func AliasPlugin(aliases map[string]string, root string) api.Plugin {
	keys := sortedKeys(aliases)
	return api.Plugin{
		Name: PluginAlias,
		Setup: func(build api.PluginBuild) {
			if len(keys) == 0 {
				return
			}
			quoted := make([]string, len(keys))
			for i, key := range keys {
				quoted[i] = regexp.QuoteMeta(key)
			}
			filter := fmt.Sprintf(`^(%s)(/.*)?$`, strings.Join(quoted, "|"))

			build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				for _, key := range keys {
					if args.Path != key && !strings.HasPrefix(args.Path, key+"/") {
						continue
					}
					target := aliases[key] + strings.TrimPrefix(args.Path, key)
					if !filepath.IsAbs(target) {
						target = filepath.Join(root, target)
					}
					resolved := build.Resolve(target, api.ResolveOptions{
						Kind:       args.Kind,
						Importer:   args.Importer,
						ResolveDir: args.ResolveDir,
					})
					if len(resolved.Errors) > 0 {
						return api.OnResolveResult{Errors: resolved.Errors}, nil
					}
					return api.OnResolveResult{
						Path:      resolved.Path,
						Namespace: resolved.Namespace,
						External:  resolved.External,
					}, nil
				}
				return api.OnResolveResult{}, nil
			})
		},
	}
}

// DefinePlugin adds global constant replacements to the build.
func DefinePlugin(defines map[string]string) api.Plugin {
	return api.Plugin{
		Name: PluginDefine,
		Setup: func(build api.PluginBuild) {
			if len(defines) == 0 {
				return
			}
			if build.InitialOptions.Define == nil {
				build.InitialOptions.Define = make(map[string]string, len(defines))
			}
			for k, v := range defines {
				if _, ok := build.InitialOptions.Define[k]; !ok {
					build.InitialOptions.Define[k] = v
				}
			}
		},
	}
}

// ReplacePlugin performs literal text replacement on script sources as they
// are loaded. Longer keys win over their prefixes.
func ReplacePlugin(values map[string]string) api.Plugin {
	keys := sortedKeys(values)
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, key, values[key])
	}
	replacer := strings.NewReplacer(pairs...)

	return api.Plugin{
		Name: PluginReplace,
		Setup: func(build api.PluginBuild) {
			if len(keys) == 0 {
				return
			}
			build.OnLoad(api.OnLoadOptions{Filter: replaceableSource.String(), Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				source, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				replaced := replacer.Replace(string(source))
				if replaced == string(source) {
					return api.OnLoadResult{}, nil
				}
				return api.OnLoadResult{
					Contents:   &replaced,
					ResolveDir: filepath.Dir(args.Path),
					Loader:     loaderFor(args.Path),
				}, nil
			})
		},
	}
}

// ReportPlugin logs bundle completion and session disposal.
func ReportPlugin(logger *slog.Logger) api.Plugin {
	return api.Plugin{
		Name: PluginReport,
		Setup: func(build api.PluginBuild) {
			outfile := build.InitialOptions.Outfile
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				logger.Debug("bundle finished",
					"outfile", outfile,
					"errors", len(result.Errors),
					"warnings", len(result.Warnings),
				)
				return api.OnEndResult{}, nil
			})
			build.OnDispose(func() {
				logger.Debug("bundle session disposed", "outfile", outfile)
			})
		},
	}
}

func loaderFor(path string) api.Loader {
	switch filepath.Ext(path) {
	case ".ts", ".mts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}

// sortedKeys orders keys longest first so that prefixes never shadow longer
// matches.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func quote(value string) string {
	return strconv.Quote(value)
}
