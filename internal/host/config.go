package host

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sourcemap mirrors the host build's sourcemap setting.
type Sourcemap string

const (
	SourcemapOff    Sourcemap = "false"
	SourcemapOn     Sourcemap = "true"
	SourcemapInline Sourcemap = "inline"
	SourcemapHidden Sourcemap = "hidden"
)

// UnmarshalYAML accepts either a boolean or one of "inline" and "hidden".
func (s *Sourcemap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: sourcemap must be a boolean, \"inline\" or \"hidden\"", node.Line)
	}
	parsed, err := ParseSourcemap(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = parsed
	return nil
}

// ParseSourcemap converts a textual setting into a Sourcemap.
func ParseSourcemap(value string) (Sourcemap, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "false", "off":
		return SourcemapOff, nil
	case "true", "on":
		return SourcemapOn, nil
	case "inline":
		return SourcemapInline, nil
	case "hidden":
		return SourcemapHidden, nil
	default:
		return SourcemapOff, fmt.Errorf("unknown sourcemap setting %q", value)
	}
}

// Config is the host build section of the configuration file.
type Config struct {
	Root    string            `yaml:"root"`
	Build   BuildConfig       `yaml:"build"`
	Resolve ResolveConfig     `yaml:"resolve"`
	Define  map[string]string `yaml:"define"`
	Replace map[string]string `yaml:"replace"`
}

type BuildConfig struct {
	OutDir    string    `yaml:"outDir"`
	Sourcemap Sourcemap `yaml:"sourcemap"`
}

type ResolveConfig struct {
	Alias map[string]string `yaml:"alias"`
}
