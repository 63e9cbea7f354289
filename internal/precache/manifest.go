package precache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var defaultGlobIgnores = []string{"**/node_modules/**"}

type manifestFile struct {
	url  string
	size int64
	hash string
}

// buildManifest walks the glob directory and produces sorted entries. The
// service worker at swDest and its source map are never listed.
func buildManifest(ctx context.Context, opts GlobOptions, swDest string) ([]ManifestEntry, BuildResult, error) {
	var result BuildResult

	if len(opts.GlobPatterns) == 0 {
		entries := append([]ManifestEntry(nil), opts.AdditionalManifestEntries...)
		result.Count = len(entries)
		return entries, result, nil
	}

	root, err := filepath.Abs(opts.GlobDirectory)
	if err != nil {
		return nil, result, fmt.Errorf("resolve glob directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, result, fmt.Errorf("glob directory %s: %w", opts.GlobDirectory, err)
	}
	if !info.IsDir() {
		return nil, result, &ValidationError{Field: "globDirectory", Reason: "must be a directory"}
	}

	var cacheBust *regexp.Regexp
	if opts.DontCacheBustURLsMatching != "" {
		cacheBust, err = regexp.Compile(opts.DontCacheBustURLsMatching)
		if err != nil {
			return nil, result, &ValidationError{Field: "dontCacheBustURLsMatching", Reason: err.Error()}
		}
	}

	ignores := append([]string(nil), defaultGlobIgnores...)
	ignores = append(ignores, opts.GlobIgnores...)
	if rel, ok := relativeTo(root, swDest); ok {
		ignores = append(ignores, rel, rel+".map")
	}

	maxSize := opts.MaximumFileSizeToCacheInBytes
	if maxSize <= 0 {
		maxSize = DefaultMaximumFileSize
	}

	fsys := os.DirFS(root)
	seen := make(map[string]manifestFile)
	for _, pattern := range opts.GlobPatterns {
		if err := ctx.Err(); err != nil {
			return nil, result, err
		}
		if !doublestar.ValidatePattern(pattern) {
			result.Errors = append(result.Errors, fmt.Sprintf("the glob pattern %q is invalid and was skipped", pattern))
			continue
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, result, fmt.Errorf("glob %q: %w", pattern, err)
		}

		matched := 0
		for _, match := range matches {
			if ignored(ignores, match) {
				continue
			}
			matched++
			if _, ok := seen[match]; ok {
				continue
			}

			file, tooLarge, err := describeFile(fsys, match, maxSize)
			if err != nil {
				return nil, result, err
			}
			if tooLarge {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"%s is %d B, and won't be precached. Configure maximumFileSizeToCacheInBytes to change this limit.",
					match, file.size,
				))
				continue
			}
			seen[match] = file
		}
		if matched == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("the glob pattern %q did not match any files", pattern))
		}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	entries := make([]ManifestEntry, 0, len(paths)+len(opts.AdditionalManifestEntries))
	for _, path := range paths {
		file := seen[path]
		url := modifyURLPrefix(file.url, opts.ModifyURLPrefix)

		entry := ManifestEntry{URL: url}
		if cacheBust == nil || !cacheBust.MatchString(url) {
			revision := file.hash
			entry.Revision = &revision
		}
		entries = append(entries, entry)
		result.Size += file.size
	}
	entries = append(entries, opts.AdditionalManifestEntries...)

	result.Count = len(entries)
	return entries, result, nil
}

func describeFile(fsys fs.FS, name string, maxSize int64) (manifestFile, bool, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return manifestFile{}, false, fmt.Errorf("stat %s: %w", name, err)
	}
	file := manifestFile{url: name, size: info.Size()}
	if file.size > maxSize {
		return file, true, nil
	}

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return manifestFile{}, false, fmt.Errorf("read %s: %w", name, err)
	}
	sum := md5.Sum(content)
	file.hash = hex.EncodeToString(sum[:])
	return file, false, nil
}

func ignored(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// modifyURLPrefix applies the longest matching prefix rewrite.
func modifyURLPrefix(url string, prefixes map[string]string) string {
	if len(prefixes) == 0 {
		return url
	}
	keys := make([]string, 0, len(prefixes))
	for k := range prefixes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, prefix := range keys {
		if strings.HasPrefix(url, prefix) {
			return prefixes[prefix] + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

func relativeTo(root, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
