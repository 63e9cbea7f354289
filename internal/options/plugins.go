package options

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PluginSelection chooses which host plugins take part in bundling custom
// service-worker source. It is either an explicit ordered list of names or a
// selector invoked with every available plugin name.
type PluginSelection struct {
	names    []string
	selector func(available []string) []string
}

// PluginNames selects plugins by explicit name, in the given order.
func PluginNames(names ...string) PluginSelection {
	return PluginSelection{names: append([]string(nil), names...)}
}

// PluginSelector defers the choice to fn, which receives all host plugin
// names in host order.
func PluginSelector(fn func(available []string) []string) PluginSelection {
	return PluginSelection{selector: fn}
}

// IsSelector reports whether the selection is computed by a function.
func (s PluginSelection) IsSelector() bool {
	return s.selector != nil
}

// Select applies the selection to the available names. The result is taken
// verbatim: no deduplication and no fallback.
func (s PluginSelection) Select(available []string) []string {
	if s.selector != nil {
		return s.selector(append([]string(nil), available...))
	}
	return append([]string(nil), s.names...)
}

// UnmarshalYAML reads an explicit list of names.
func (s *PluginSelection) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	if err := node.Decode(&names); err != nil {
		return fmt.Errorf("line %d: vitePlugins must be a list of plugin names", node.Line)
	}
	*s = PluginNames(names...)
	return nil
}
