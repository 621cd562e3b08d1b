package catalog

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/git-pkgs/typespub/internal/core"
)

// ChangedTyping is a typed package due for publishing at Version.
type ChangedTyping struct {
	Package *core.Package
	Version string
}

// Changes is the set of packages that changed since the last run.
type Changes struct {
	Typings   []ChangedTyping
	NotNeeded []*core.StubPackage
}

// Len returns the number of changed packages.
func (c Changes) Len() int {
	return len(c.Typings) + len(c.NotNeeded)
}

type changesFile struct {
	ChangedTypings []struct {
		Name    string `json:"name"`
		Major   *int   `json:"major"`
		Version string `json:"version"`
	} `json:"changedTypings"`
	ChangedNotNeeded []string `json:"changedNotNeeded"`
}

// LoadChanges reads a changed-set file and resolves every entry against c.
func LoadChanges(path string, c *Catalog) (Changes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Changes{}, fmt.Errorf("reading changes: %w", err)
	}
	return ParseChanges(data, c)
}

// ParseChanges decodes changed-set bytes and resolves every entry against c.
// A typing without a major refers to the latest one.
func ParseChanges(data []byte, c *Catalog) (Changes, error) {
	var f changesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Changes{}, fmt.Errorf("decoding changes: %w", err)
	}

	var changes Changes
	for _, e := range f.ChangedTypings {
		var (
			pkg *core.Package
			err error
		)
		if e.Major == nil {
			pkg, err = c.Latest(e.Name)
		} else {
			pkg, err = c.Typing(e.Name, *e.Major)
		}
		if err != nil {
			return Changes{}, fmt.Errorf("changed typing: %w", err)
		}

		version := e.Version
		if version == "" {
			version = fmt.Sprintf("%d.%d.0", pkg.Major, pkg.Minor)
		}
		changes.Typings = append(changes.Typings, ChangedTyping{Package: pkg, Version: version})
	}
	for _, name := range f.ChangedNotNeeded {
		stub, err := c.Stub(name)
		if err != nil {
			return Changes{}, fmt.Errorf("changed stub: %w", err)
		}
		changes.NotNeeded = append(changes.NotNeeded, stub)
	}
	return changes, nil
}
