package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cochaviz/pwakit/internal/artifacts"
)

// LocalArtifactStore writes artifacts under BaseDir. When MetadataDir is set,
// every stored artifact is also recorded there as <id>.json.
type LocalArtifactStore struct {
	BaseDir     string
	MetadataDir string
}

// StoreArtifact describes an existing file and records its metadata.
func (store *LocalArtifactStore) StoreArtifact(artifactPath string, kind artifacts.ArtifactKind, metadata map[string]any) (artifacts.Artifact, error) {
	if artifactPath == "" {
		return artifacts.Artifact{}, errors.New("artifact path is required")
	}

	artifact, err := artifacts.Describe(artifactPath, kind, metadata)
	if err != nil {
		return artifacts.Artifact{}, err
	}

	if err := store.writeMetadata(artifact); err != nil {
		return artifacts.Artifact{}, err
	}
	return artifact, nil
}

// WriteArtifact writes content to BaseDir/name and stores the result.
func (store *LocalArtifactStore) WriteArtifact(name string, kind artifacts.ArtifactKind, content []byte, metadata map[string]any) (artifacts.Artifact, error) {
	if store.BaseDir == "" {
		return artifacts.Artifact{}, errors.New("base directory is not configured")
	}
	if name == "" || filepath.IsAbs(name) || !filepath.IsLocal(name) {
		return artifacts.Artifact{}, fmt.Errorf("artifact name %q must be a relative path inside the base directory", name)
	}

	destPath := filepath.Join(store.BaseDir, name)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return artifacts.Artifact{}, err
	}
	if err := os.WriteFile(destPath, content, 0o644); err != nil {
		return artifacts.Artifact{}, err
	}

	return store.StoreArtifact(destPath, kind, metadata)
}

// RemoveArtifact deletes the artifact file and its metadata document.
func (store *LocalArtifactStore) RemoveArtifact(artifact artifacts.Artifact) error {
	path, err := artifacts.PathFromURI(artifact.URI)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if store.MetadataDir == "" {
		return nil
	}
	if err := os.Remove(store.metadataPath(artifact)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (store *LocalArtifactStore) writeMetadata(artifact artifacts.Artifact) error {
	if store.MetadataDir == "" {
		return nil
	}
	if err := os.MkdirAll(store.MetadataDir, 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(store.metadataPath(artifact), payload, 0o644)
}

func (store *LocalArtifactStore) metadataPath(artifact artifacts.Artifact) string {
	return filepath.Join(store.MetadataDir, artifact.ID+".json")
}
