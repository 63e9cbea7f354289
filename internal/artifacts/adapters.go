package artifacts

// ArtifactStore records files produced by a pipeline run.
type ArtifactStore interface {
	// StoreArtifact describes a file that already exists at artifactPath.
	StoreArtifact(artifactPath string, kind ArtifactKind, metadata map[string]any) (Artifact, error)
	// WriteArtifact writes content under name and describes the result.
	WriteArtifact(name string, kind ArtifactKind, content []byte, metadata map[string]any) (Artifact, error)
	RemoveArtifact(artifact Artifact) error
}
