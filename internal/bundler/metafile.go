package bundler

import (
	"encoding/json"
	"errors"
)

// Metafile is the subset of the esbuild metafile read after a build.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
}

type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

type MetafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Summary condenses a metafile for logging.
type Summary struct {
	InputCount  int
	OutputBytes int
	// LargestInput is the input contributing the most bytes to the output.
	LargestInput string
	Exports      []string
}

// Summarize parses raw metafile JSON.
func Summarize(raw string) (Summary, error) {
	if raw == "" {
		return Summary{}, errors.New("empty metafile")
	}
	var meta Metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return Summary{}, err
	}

	summary := Summary{InputCount: len(meta.Inputs)}
	largest := -1
	for _, output := range meta.Outputs {
		summary.OutputBytes += output.Bytes
		summary.Exports = append(summary.Exports, output.Exports...)
		for path, contrib := range output.Inputs {
			if contrib.BytesInOutput > largest || (contrib.BytesInOutput == largest && path < summary.LargestInput) {
				largest = contrib.BytesInOutput
				summary.LargestInput = path
			}
		}
	}
	return summary, nil
}
