package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const fileScheme = "file://"

func FileURI(path string) string {
	return fileScheme + path
}

func PathFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, fileScheme) {
		return "", errors.New("not a file:// URI")
	}
	return strings.TrimPrefix(uri, fileScheme), nil
}

// KindFor guesses the artifact kind of a generated file from its name.
func KindFor(path string) ArtifactKind {
	if strings.HasSuffix(path, ".map") {
		return SourceMapArtifact
	}
	return ServiceWorkerArtifact
}

// Describe reads the file at path and returns an artifact with a fresh ID and
// a sha256 checksum.
func Describe(path string, kind ArtifactKind, metadata map[string]any) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, f)
	if err != nil {
		return Artifact{}, fmt.Errorf("hash artifact: %w", err)
	}
	checksum := "sha256:" + hex.EncodeToString(hash.Sum(nil))

	abs, err := filepath.Abs(path)
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		ID:          uuid.NewString(),
		Kind:        kind,
		URI:         FileURI(abs),
		Checksum:    &checksum,
		Size:        size,
		ContentType: ContentType(path),
		Metadata:    cloneMetadata(metadata),
	}, nil
}

func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs":
		return "text/javascript"
	case ".json", ".map":
		return "application/json"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	cloned := make(map[string]any, len(metadata))
	for k, v := range metadata {
		cloned[k] = v
	}
	return cloned
}
