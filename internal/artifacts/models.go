package artifacts

type ArtifactKind string

const (
	ServiceWorkerArtifact  ArtifactKind = "service-worker"  // Generated or injected service worker
	SourceMapArtifact      ArtifactKind = "sourcemap"       // Sourcemap emitted next to a bundle
	RegisterScriptArtifact ArtifactKind = "register-script" // Client registration script
)

type Artifact struct {
	ID   string       `json:"id"`
	Kind ArtifactKind `json:"kind"`
	URI  string       `json:"uri"`

	Checksum    *string        `json:"checksum,omitempty"`
	Size        int64          `json:"size"`
	ContentType string         `json:"contentType"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
