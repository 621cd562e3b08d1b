// Package deps merges a package's explicit and inferred dependencies.
package deps

import (
	"sort"

	"github.com/git-pkgs/typespub/internal/core"
)

// Catalog reports whether declarations exist for a dependency.
type Catalog interface {
	HasTypingFor(dep core.TypingDependency) bool
}

// Resolve merges explicit dependencies with inferred ones and returns them
// sorted by name. Explicit entries always win: an inferred dependency on
// "foo" is dropped when "foo" or "@types/foo" is declared explicitly, and
// when the catalog has no declarations for it.
func Resolve(explicit []core.PackageJSONDependency, inferred []core.TypingDependency, catalog Catalog) core.OrderedMap {
	ranges := make(map[string]string, len(explicit)+len(inferred))
	declared := make(map[string]bool, len(explicit))
	for _, d := range explicit {
		ranges[d.Name] = d.Version
		declared[d.Name] = true
	}

	for _, d := range inferred {
		typesName := core.FullNpmName(d.Name)
		if declared[d.Name] || declared[typesName] {
			continue
		}
		if catalog == nil || !catalog.HasTypingFor(d) {
			continue
		}
		ranges[typesName] = d.Version.Range()
	}

	names := make([]string, 0, len(ranges))
	for name := range ranges {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(core.OrderedMap, len(names))
	for i, name := range names {
		out[i] = core.Field{Key: name, Value: ranges[name]}
	}
	return out
}

// ForPackage resolves the dependencies of pkg against catalog.
func ForPackage(pkg *core.Package, catalog Catalog) core.OrderedMap {
	return Resolve(pkg.PackageJSONDependencies, pkg.Dependencies, catalog)
}
