// Package core provides the data model shared by the artifact builders.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Scope is the npm scope every typed package is published under.
	Scope = "@types"

	// DefinitelyTypedURL is the canonical source repository.
	DefinitelyTypedURL = "https://github.com/DefinitelyTyped/DefinitelyTyped"
)

// Contributor is a person credited for a package's declarations.
type Contributor struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	GithubUsername string `json:"githubUsername,omitempty"`
}

// PackageJSONDependency is a dependency declared explicitly by the package
// author, carried into the manifest verbatim.
type PackageJSONDependency struct {
	Name    string
	Version string
}

// TypingDependency is a dependency inferred from a cross-package type
// reference.
type TypingDependency struct {
	Name    string
	Version DependencyVersion
}

// DependencyVersion is either the wildcard or a concrete major version.
type DependencyVersion struct {
	Major    int
	Wildcard bool
}

// AnyVersion is the wildcard constraint.
var AnyVersion = DependencyVersion{Wildcard: true}

// MajorVersion constrains a dependency to major version n.
func MajorVersion(n int) DependencyVersion {
	return DependencyVersion{Major: n}
}

// ParseDependencyVersion parses "*" or a bare major number.
func ParseDependencyVersion(s string) (DependencyVersion, error) {
	if s == "*" {
		return AnyVersion, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return DependencyVersion{}, fmt.Errorf("invalid dependency version %q", s)
	}
	return MajorVersion(n), nil
}

// Range renders the constraint as it appears in a manifest: "*" or "^N".
func (v DependencyVersion) Range() string {
	if v.Wildcard {
		return "*"
	}
	return "^" + strconv.Itoa(v.Major)
}

func (v DependencyVersion) String() string {
	if v.Wildcard {
		return "*"
	}
	return strconv.Itoa(v.Major)
}

// Package is a normal typed package in the catalog.
type Package struct {
	Name                    string
	LibraryName             string
	ProjectName             string
	License                 License
	Contributors            []Contributor
	PackageJSONDependencies []PackageJSONDependency
	Dependencies            []TypingDependency
	MinTypeScriptVersion    string
	TypesVersions           []string
	ContentHash             string
	Files                   []string
	Globals                 []string
	Major                   int
	Minor                   int
	IsLatest                bool
}

// FullNpmName returns the scoped publish name, e.g. "@types/left-pad".
func (p *Package) FullNpmName() string {
	return FullNpmName(p.Name)
}

// TypesDirectoryName returns the mangled name used for directories.
func (p *Package) TypesDirectoryName() string {
	return MangleScopedName(p.Name)
}

// OutputDirectoryName is the directory the package is generated into. Pinned
// majors get their own directory so several majors can be generated at once.
func (p *Package) OutputDirectoryName() string {
	if p.IsLatest {
		return p.TypesDirectoryName()
	}
	return fmt.Sprintf("%s-v%d", p.TypesDirectoryName(), p.Major)
}

// SubDirectoryPath is the package's path below the types/ tree. Pinned
// majors live in a v<major> subfolder.
func (p *Package) SubDirectoryPath() string {
	if p.IsLatest {
		return p.Name
	}
	return fmt.Sprintf("%s/v%d", p.Name, p.Major)
}

// StubPackage is a placeholder that redirects consumers to a library
// shipping its own declarations.
type StubPackage struct {
	Name              string
	LibraryName       string
	UnescapedName     string
	Version           string
	SourceRepoURL     string
	License           License
	AlreadyDeprecated bool
}

// FullNpmName returns the scoped publish name of the stub.
func (s *StubPackage) FullNpmName() string {
	return FullNpmName(s.Name)
}

// TypesDirectoryName returns the mangled name used for directories.
func (s *StubPackage) TypesDirectoryName() string {
	return MangleScopedName(s.Name)
}

// OutputDirectoryName is the directory the stub is generated into.
func (s *StubPackage) OutputDirectoryName() string {
	return s.TypesDirectoryName()
}

// WithDeprecation returns a copy of s with AlreadyDeprecated set.
func (s StubPackage) WithDeprecation(deprecated bool) StubPackage {
	s.AlreadyDeprecated = deprecated
	return s
}

// FullNpmName maps a package name onto its scoped publish name.
func FullNpmName(name string) string {
	return Scope + "/" + MangleScopedName(name)
}

// MangleScopedName turns "@scope/pkg" into "scope__pkg". Unscoped names are
// returned unchanged.
func MangleScopedName(name string) string {
	if strings.HasPrefix(name, "@") {
		if scope, pkg, ok := strings.Cut(name[1:], "/"); ok {
			return scope + "__" + pkg
		}
	}
	return name
}

// Publishable is implemented by both package kinds.
type Publishable interface {
	FullNpmName() string
	TypesDirectoryName() string
	OutputDirectoryName() string
}
