package options

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cochaviz/pwakit/internal/host"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "pwa.yaml"

// File is the full configuration document: host build settings at the top
// level and the service-worker settings under "pwa".
type File struct {
	Host host.Config `yaml:",inline"`
	PWA  Config      `yaml:"pwa"`
}

// Load reads and decodes a configuration file. Unknown top-level keys are
// rejected; relative roots are taken relative to the file.
func Load(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	file, err := Parse(content)
	if err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	file.Host.Root = anchor(dirOf(path), withDefault(file.Host.Root, "."))
	return file, nil
}

// Parse decodes a configuration document.
func Parse(content []byte) (File, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return File{}, err
	}
	return file, nil
}
