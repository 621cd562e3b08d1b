package manifest

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/typespub/internal/core"
)

// StubManifest is the package.json of a stub redirect package.
type StubManifest struct {
	Name          string              `json:"name"`
	Version       string              `json:"version"`
	Typings       *string             `json:"typings"`
	Description   string              `json:"description"`
	Main          string              `json:"main"`
	Scripts       map[string]string   `json:"scripts"`
	Author        string              `json:"author"`
	Repository    string              `json:"repository"`
	License       core.License        `json:"license"`
	Dependencies  core.OrderedMap     `json:"dependencies"`
	PublishConfig *core.PublishConfig `json:"publishConfig,omitempty"`
}

// ForStub builds the manifest of a stub package for registry. The stub
// carries no declarations and depends on its target at any version.
func ForStub(stub *core.StubPackage, registry core.Registry) (*StubManifest, error) {
	if _, err := semver.NewVersion(stub.Version); err != nil {
		return nil, fmt.Errorf("%s: invalid version %q: %w", stub.Name, stub.Version, err)
	}

	return &StubManifest{
		Name:        stub.FullNpmName(),
		Version:     stub.Version,
		Typings:     nil,
		Description: fmt.Sprintf("Stub TypeScript definitions entry for %s, which provides its own types definitions", stub.LibraryName),
		Main:        "",
		Scripts:     map[string]string{},
		Author:      "",
		Repository:  registry.RepositoryURL(stub.SourceRepoURL),
		License:     stub.License,
		Dependencies: core.OrderedMap{
			{Key: stub.UnescapedName, Value: "*"},
		},
		PublishConfig: registry.PublishConfig(),
	}, nil
}
