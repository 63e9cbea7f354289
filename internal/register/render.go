// Package register renders the client-side script that registers the
// generated service worker with the browser.
package register

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/cochaviz/pwakit/internal/options"
)

//go:embed templates
var templates embed.FS

// Mode selects the template family.
type Mode string

const (
	ModeBuild Mode = "build"
	ModeDev   Mode = "dev"
)

// DefaultSource is the template variant used when none is requested.
const DefaultSource = "register"

// ScriptName is the file name of a rendered registration script.
const ScriptName = "registerSW.js"

// Markers replaced in every template.
const (
	markerServiceWorker = "__SW__"
	markerScope         = "__SCOPE__"
	markerAutoUpdate    = "__SW_AUTO_UPDATE__"
	markerType          = "__TYPE__"
)

var ErrTemplateNotFound = errors.New("registration template not found")

type TemplateNotFoundError struct {
	Mode   Mode
	Source string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s/%s", ErrTemplateNotFound, e.Mode, e.Source)
}

func (e *TemplateNotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}

// Variant names one shipped template.
type Variant struct {
	Mode   Mode
	Source string
}

func (v Variant) String() string {
	return string(v.Mode) + "/" + v.Source
}

// Render loads templates/<mode>/<source>.js and substitutes the registration
// markers from opts. Only the first occurrence of each marker is replaced and
// unrecognised text is passed through.
func Render(opts options.ResolvedOptions, mode Mode, source string) (string, error) {
	if source == "" {
		source = DefaultSource
	}

	content, err := templates.ReadFile(templatePath(mode, source))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &TemplateNotFoundError{Mode: mode, Source: source}
		}
		return "", fmt.Errorf("read registration template %s/%s: %w", mode, source, err)
	}

	workerType := options.WorkerClassic
	if opts.DevOptions.Enabled {
		workerType = opts.DevOptions.Type
	}

	script := string(content)
	for _, substitution := range [][2]string{
		{markerServiceWorker, opts.ServiceWorkerURL()},
		{markerScope, opts.Scope},
		{markerAutoUpdate, strconv.FormatBool(opts.AutoUpdate())},
		{markerType, string(workerType)},
	} {
		script = strings.Replace(script, substitution[0], substitution[1], 1)
	}
	return script, nil
}

// Variants lists every shipped template, sorted by mode then source.
func Variants() ([]Variant, error) {
	var variants []Variant
	err := fs.WalkDir(templates, "templates", func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || path.Ext(name) != ".js" {
			return nil
		}
		rel := strings.TrimPrefix(name, "templates/")
		mode, file, ok := strings.Cut(rel, "/")
		if !ok {
			return nil
		}
		variants = append(variants, Variant{Mode: Mode(mode), Source: strings.TrimSuffix(file, ".js")})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list registration templates: %w", err)
	}

	sort.Slice(variants, func(i, j int) bool {
		return variants[i].String() < variants[j].String()
	})
	return variants, nil
}

func templatePath(mode Mode, source string) string {
	return path.Join("templates", string(mode), source+".js")
}
