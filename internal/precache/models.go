package precache

// DefaultInjectionPoint is the symbol replaced with the manifest when no
// injection point is configured.
const DefaultInjectionPoint = "self.__WB_MANIFEST"

// DefaultMaximumFileSize is the largest file, in bytes, added to a manifest
// unless MaximumFileSizeToCacheInBytes overrides it.
const DefaultMaximumFileSize int64 = 2 * 1024 * 1024

// ManifestEntry identifies a single precached URL. A nil Revision means the
// URL already carries its own versioning.
type ManifestEntry struct {
	Revision *string `json:"revision" yaml:"revision"`
	URL      string  `json:"url" yaml:"url"`
}

// GlobOptions controls which files under GlobDirectory become manifest entries.
type GlobOptions struct {
	GlobDirectory                 string            `yaml:"globDirectory"`
	GlobPatterns                  []string          `yaml:"globPatterns"`
	GlobIgnores                   []string          `yaml:"globIgnores"`
	MaximumFileSizeToCacheInBytes int64             `yaml:"maximumFileSizeToCacheInBytes"`
	DontCacheBustURLsMatching     string            `yaml:"dontCacheBustURLsMatching"`
	ModifyURLPrefix               map[string]string `yaml:"modifyURLPrefix"`
	AdditionalManifestEntries     []ManifestEntry   `yaml:"additionalManifestEntries"`
}

// GenerateSWOptions configures whole service-worker synthesis.
type GenerateSWOptions struct {
	GlobOptions `yaml:",inline"`

	SwDest                   string   `yaml:"swDest"`
	Mode                     string   `yaml:"mode"`
	CacheID                  string   `yaml:"cacheId"`
	SkipWaiting              bool     `yaml:"skipWaiting"`
	ClientsClaim             bool     `yaml:"clientsClaim"`
	CleanupOutdatedCaches    bool     `yaml:"cleanupOutdatedCaches"`
	NavigateFallback         string   `yaml:"navigateFallback"`
	NavigateFallbackDenylist []string `yaml:"navigateFallbackDenylist"`
	ImportScripts            []string `yaml:"importScripts"`
}

// InjectManifestOptions configures manifest injection into an existing
// service worker. Keys the engine does not recognise are collected in Extra
// and rejected during validation.
type InjectManifestOptions struct {
	GlobOptions `yaml:",inline"`

	SwSrc          string `yaml:"swSrc"`
	SwDest         string `yaml:"swDest"`
	InjectionPoint string `yaml:"injectionPoint"`

	Extra map[string]any `yaml:",inline"`
}

// Clone returns a copy that shares no mutable state with o.
func (o InjectManifestOptions) Clone() InjectManifestOptions {
	cloned := o
	cloned.GlobOptions = o.GlobOptions.clone()
	if o.Extra != nil {
		cloned.Extra = make(map[string]any, len(o.Extra))
		for k, v := range o.Extra {
			cloned.Extra[k] = v
		}
	}
	return cloned
}

// Clone returns a copy that shares no mutable state with o.
func (o GenerateSWOptions) Clone() GenerateSWOptions {
	cloned := o
	cloned.GlobOptions = o.GlobOptions.clone()
	cloned.NavigateFallbackDenylist = append([]string(nil), o.NavigateFallbackDenylist...)
	cloned.ImportScripts = append([]string(nil), o.ImportScripts...)
	return cloned
}

func (o GlobOptions) clone() GlobOptions {
	cloned := o
	cloned.GlobPatterns = append([]string(nil), o.GlobPatterns...)
	cloned.GlobIgnores = append([]string(nil), o.GlobIgnores...)
	cloned.AdditionalManifestEntries = append([]ManifestEntry(nil), o.AdditionalManifestEntries...)
	if o.ModifyURLPrefix != nil {
		cloned.ModifyURLPrefix = make(map[string]string, len(o.ModifyURLPrefix))
		for k, v := range o.ModifyURLPrefix {
			cloned.ModifyURLPrefix[k] = v
		}
	}
	return cloned
}

// BuildResult summarises one engine run.
type BuildResult struct {
	Count     int
	Size      int64
	Warnings  []string
	Errors    []string
	FilePaths []string
	Manifest  []ManifestEntry
}
