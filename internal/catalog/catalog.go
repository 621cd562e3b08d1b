// Package catalog loads the package catalog and the changed-package set
// produced by the upstream catalog builder.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/git-pkgs/typespub/internal/core"
)

type file struct {
	Typings   []typingEntry `json:"typings"`
	NotNeeded []stubEntry   `json:"notNeeded"`
}

type typingEntry struct {
	Name                    string             `json:"name"`
	LibraryName             string             `json:"libraryName"`
	ProjectName             string             `json:"projectName"`
	License                 string             `json:"license"`
	Major                   int                `json:"major"`
	Minor                   int                `json:"minor"`
	Latest                  bool               `json:"latest"`
	Contributors            []core.Contributor `json:"contributors"`
	PackageJSONDependencies map[string]string  `json:"packageJsonDependencies"`
	Dependencies            map[string]string  `json:"dependencies"`
	MinTypeScriptVersion    string             `json:"minTypeScriptVersion"`
	TypesVersions           []string           `json:"typesVersions"`
	ContentHash             string             `json:"contentHash"`
	Files                   []string           `json:"files"`
	Globals                 []string           `json:"globals"`
}

type stubEntry struct {
	Name          string `json:"name"`
	LibraryName   string `json:"libraryName"`
	UnescapedName string `json:"unescapedName"`
	AsOfVersion   string `json:"asOfVersion"`
	SourceRepoURL string `json:"sourceRepoURL"`
	License       string `json:"license"`
}

// Catalog is the read-only set of known packages.
type Catalog struct {
	typings []*core.Package
	stubs   []*core.StubPackage
	byName  map[string][]*core.Package
	stubIdx map[string]*core.StubPackage
}

// Load reads and validates a YAML or JSON catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes catalog bytes.
func Parse(data []byte) (*Catalog, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c := &Catalog{
		byName:  make(map[string][]*core.Package),
		stubIdx: make(map[string]*core.StubPackage),
	}
	for _, e := range f.Typings {
		pkg, err := e.toPackage()
		if err != nil {
			return nil, fmt.Errorf("typing %s: %w", e.Name, err)
		}
		if _, dup := c.lookup(pkg.Name, pkg.Major); dup {
			return nil, fmt.Errorf("typing %s v%d listed twice", pkg.Name, pkg.Major)
		}
		c.typings = append(c.typings, pkg)
		c.byName[pkg.Name] = append(c.byName[pkg.Name], pkg)
	}
	for _, e := range f.NotNeeded {
		stub, err := e.toStub()
		if err != nil {
			return nil, fmt.Errorf("stub %s: %w", e.Name, err)
		}
		if _, dup := c.stubIdx[stub.Name]; dup {
			return nil, fmt.Errorf("stub %s listed twice", stub.Name)
		}
		c.stubs = append(c.stubs, stub)
		c.stubIdx[stub.Name] = stub
	}
	if err := c.markLatest(); err != nil {
		return nil, err
	}
	return c, nil
}

// markLatest makes sure every name has exactly one latest major. When none
// is flagged the highest major wins.
func (c *Catalog) markLatest() error {
	for name, pkgs := range c.byName {
		var latest *core.Package
		for _, pkg := range pkgs {
			if !pkg.IsLatest {
				continue
			}
			if latest != nil {
				return fmt.Errorf("typing %s has more than one latest major", name)
			}
			latest = pkg
		}
		if latest != nil {
			continue
		}
		latest = pkgs[0]
		for _, pkg := range pkgs[1:] {
			if pkg.Major > latest.Major {
				latest = pkg
			}
		}
		latest.IsLatest = true
	}
	return nil
}

func (e typingEntry) toPackage() (*core.Package, error) {
	license, err := core.ParseLicense(e.License)
	if err != nil {
		return nil, err
	}

	pkg := &core.Package{
		Name:                 e.Name,
		LibraryName:          e.LibraryName,
		ProjectName:          e.ProjectName,
		License:              license,
		Contributors:         e.Contributors,
		MinTypeScriptVersion: e.MinTypeScriptVersion,
		TypesVersions:        e.TypesVersions,
		ContentHash:          e.ContentHash,
		Files:                e.Files,
		Globals:              e.Globals,
		Major:                e.Major,
		Minor:                e.Minor,
		IsLatest:             e.Latest,
	}
	if pkg.MinTypeScriptVersion == "" {
		pkg.MinTypeScriptVersion = "2.0"
	}

	for _, name := range sortedKeys(e.PackageJSONDependencies) {
		pkg.PackageJSONDependencies = append(pkg.PackageJSONDependencies, core.PackageJSONDependency{
			Name:    name,
			Version: e.PackageJSONDependencies[name],
		})
	}
	for _, name := range sortedKeys(e.Dependencies) {
		v, err := core.ParseDependencyVersion(e.Dependencies[name])
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", name, err)
		}
		pkg.Dependencies = append(pkg.Dependencies, core.TypingDependency{Name: name, Version: v})
	}
	return pkg, nil
}

func (e stubEntry) toStub() (*core.StubPackage, error) {
	license, err := core.ParseLicense(e.License)
	if err != nil {
		return nil, err
	}
	stub := &core.StubPackage{
		Name:          e.Name,
		LibraryName:   e.LibraryName,
		UnescapedName: e.UnescapedName,
		Version:       e.AsOfVersion,
		SourceRepoURL: e.SourceRepoURL,
		License:       license,
	}
	if stub.UnescapedName == "" {
		stub.UnescapedName = e.Name
	}
	return stub, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Typings returns every typed package in catalog order.
func (c *Catalog) Typings() []*core.Package {
	return c.typings
}

// Stubs returns every stub package in catalog order.
func (c *Catalog) Stubs() []*core.StubPackage {
	return c.stubs
}

// HasTypingFor reports whether declarations exist for dep. A wildcard
// matches any major.
func (c *Catalog) HasTypingFor(dep core.TypingDependency) bool {
	if dep.Version.Wildcard {
		return len(c.byName[dep.Name]) > 0
	}
	_, ok := c.lookup(dep.Name, dep.Version.Major)
	return ok
}

// Typing returns the typed package for name at major.
func (c *Catalog) Typing(name string, major int) (*core.Package, error) {
	if pkg, ok := c.lookup(name, major); ok {
		return pkg, nil
	}
	return nil, &core.NotFoundError{Name: name, Major: major}
}

// Latest returns the latest major of name.
func (c *Catalog) Latest(name string) (*core.Package, error) {
	for _, pkg := range c.byName[name] {
		if pkg.IsLatest {
			return pkg, nil
		}
	}
	return nil, &core.NotFoundError{Name: name}
}

// Stub returns the stub package for name.
func (c *Catalog) Stub(name string) (*core.StubPackage, error) {
	if stub, ok := c.stubIdx[name]; ok {
		return stub, nil
	}
	return nil, &core.NotFoundError{Name: name}
}

func (c *Catalog) lookup(name string, major int) (*core.Package, bool) {
	for _, pkg := range c.byName[name] {
		if pkg.Major == major {
			return pkg, true
		}
	}
	return nil, false
}
