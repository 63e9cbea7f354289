package build

import (
	"github.com/evanw/esbuild/pkg/api"

	"github.com/cochaviz/pwakit/internal/options"
)

// DefaultPluginSubset names the host plugins used when the selection yields
// nothing. Names absent from the host are ignored by FilterPlugins.
var DefaultPluginSubset = []string{"alias", "define", "replace", "resolve", "json"}

// ResolvePluginSubset computes the plugin names that take part in bundling.
// A selector result or explicit list is used verbatim; an empty result falls
// back to DefaultPluginSubset.
func ResolvePluginSubset(selection options.PluginSelection, allNames []string) []string {
	names := selection.Select(allNames)
	if len(names) == 0 {
		return append([]string(nil), DefaultPluginSubset...)
	}
	return names
}

// FilterPlugins keeps the host plugins whose name is in names, in host order.
func FilterPlugins(plugins []api.Plugin, names []string) []api.Plugin {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	var filtered []api.Plugin
	for _, plugin := range plugins {
		if _, ok := wanted[plugin.Name]; ok {
			filtered = append(filtered, plugin)
		}
	}
	return filtered
}
