package register

import (
	"fmt"

	"github.com/cochaviz/pwakit/internal/artifacts"
	"github.com/cochaviz/pwakit/internal/options"
)

// Write renders the requested template and stores it as ScriptName.
func Write(store artifacts.ArtifactStore, opts options.ResolvedOptions, mode Mode, source string) (artifacts.Artifact, error) {
	script, err := Render(opts, mode, source)
	if err != nil {
		return artifacts.Artifact{}, err
	}
	if source == "" {
		source = DefaultSource
	}

	artifact, err := store.WriteArtifact(ScriptName, artifacts.RegisterScriptArtifact, []byte(script), map[string]any{
		"mode":   string(mode),
		"source": source,
		"sw":     opts.ServiceWorkerURL(),
		"scope":  opts.Scope,
	})
	if err != nil {
		return artifacts.Artifact{}, fmt.Errorf("write %s: %w", ScriptName, err)
	}
	return artifact, nil
}
