// Package manifest builds the package.json of generated packages.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/typespub/internal/core"
	"github.com/git-pkgs/typespub/internal/deps"
)

// Repository is the repository descriptor of a typed package.
type Repository struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Directory string `json:"directory"`
}

// Manifest is the package.json of a typed package. Field order is the order
// keys are written in.
type Manifest struct {
	Name                      string              `json:"name"`
	Version                   string              `json:"version"`
	Description               string              `json:"description"`
	License                   core.License        `json:"license"`
	Contributors              []core.Contributor  `json:"contributors"`
	Main                      string              `json:"main"`
	Types                     string              `json:"types"`
	TypesVersions             core.OrderedMap     `json:"typesVersions,omitempty"`
	Repository                Repository          `json:"repository"`
	Scripts                   map[string]string   `json:"scripts"`
	Dependencies              core.OrderedMap     `json:"dependencies"`
	TypesPublisherContentHash string              `json:"typesPublisherContentHash"`
	TypeScriptVersion         string              `json:"typeScriptVersion"`
	PublishConfig             *core.PublishConfig `json:"publishConfig,omitempty"`
}

// Options configures manifest generation.
type Options struct {
	// SourceRepoURL is the canonical repository written on npm. Defaults to
	// the DefinitelyTyped git URL.
	SourceRepoURL string
}

func (o Options) sourceRepoURL() string {
	if o.SourceRepoURL != "" {
		return o.SourceRepoURL
	}
	return core.DefinitelyTypedURL + ".git"
}

// ForPackage builds the manifest of pkg at version for registry.
func ForPackage(pkg *core.Package, version string, registry core.Registry, catalog deps.Catalog, opts Options) (*Manifest, error) {
	typesVersions, err := TypesVersions(pkg.TypesVersions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pkg.Name, err)
	}

	contributors := pkg.Contributors
	if contributors == nil {
		contributors = []core.Contributor{}
	}

	return &Manifest{
		Name:          pkg.FullNpmName(),
		Version:       version,
		Description:   "TypeScript definitions for " + pkg.LibraryName,
		License:       pkg.License,
		Contributors:  contributors,
		Main:          "",
		Types:         "index.d.ts",
		TypesVersions: typesVersions,
		Repository: Repository{
			Type:      "git",
			URL:       registry.RepositoryURL(opts.sourceRepoURL()),
			Directory: "types/" + pkg.SubDirectoryPath(),
		},
		Scripts:                   map[string]string{},
		Dependencies:              deps.ForPackage(pkg, catalog),
		TypesPublisherContentHash: pkg.ContentHash,
		TypeScriptVersion:         pkg.MinTypeScriptVersion,
		PublishConfig:             registry.PublishConfig(),
	}, nil
}

// TypesVersions maps each TypeScript version with its own declaration folder
// to a redirect into that folder, lowest version first.
func TypesVersions(versions []string) (core.OrderedMap, error) {
	if len(versions) == 0 {
		return nil, nil
	}

	parsed := make([]*semver.Version, len(versions))
	for i, v := range versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			return nil, fmt.Errorf("invalid typesVersions entry %q: %w", v, err)
		}
		parsed[i] = sv
	}
	order := make([]int, len(versions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return parsed[order[a]].LessThan(parsed[order[b]])
	})

	out := make(core.OrderedMap, 0, len(versions))
	for _, i := range order {
		v := versions[i]
		out = append(out, core.Field{
			Key:   fmt.Sprintf(">=%s.0-0", v),
			Value: map[string][]string{"*": {"ts" + v + "/*"}},
		})
	}
	return out, nil
}

// Marshal renders a manifest with four-space indentation.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
