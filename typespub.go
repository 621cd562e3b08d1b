// Package typespub generates publishable @types packages from a declaration
// catalog.
//
// Given the catalog and the set of packages that changed since the last run,
// it writes one directory per package per registry holding package.json,
// README.md, LICENSE and the declaration files, ready for npm and for the
// GitHub Packages mirror.
//
// Basic usage:
//
//	report, err := typespub.Generate(context.Background(), typespub.Options{
//		CatalogPath: "catalog.yaml",
//		ChangesPath: "changes.yaml",
//		SourceRoot:  "DefinitelyTyped",
//		OutputRoot:  "output",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(report.LibraryNames())
package typespub

import (
	"context"

	"github.com/git-pkgs/purl"
	"go.uber.org/zap"

	"github.com/git-pkgs/typespub/client"
	"github.com/git-pkgs/typespub/internal/catalog"
	"github.com/git-pkgs/typespub/internal/core"
	"github.com/git-pkgs/typespub/internal/npm"
	"github.com/git-pkgs/typespub/internal/pipeline"
)

// Re-export types from internal/core
type (
	// Package is a normal typed package.
	Package = core.Package

	// StubPackage redirects to a library that ships its own declarations.
	StubPackage = core.StubPackage

	// Contributor is a person credited for a package.
	Contributor = core.Contributor

	// TypingDependency is a dependency inferred from a type reference.
	TypingDependency = core.TypingDependency

	// PackageJSONDependency is a dependency declared by the package author.
	PackageJSONDependency = core.PackageJSONDependency

	// DependencyVersion is a wildcard or a concrete major.
	DependencyVersion = core.DependencyVersion

	// License is a supported package license.
	License = core.License

	// Registry is a publish target.
	Registry = core.Registry

	// PackageError attributes a failure to a package.
	PackageError = core.PackageError
)

// Re-export catalog and pipeline types
type (
	// Catalog is the read-only set of known packages.
	Catalog = catalog.Catalog

	// Changes is the set of packages to generate.
	Changes = catalog.Changes

	// Generator writes output for a set of changes.
	Generator = pipeline.Generator

	// Checker reports whether a stub is already deprecated.
	Checker = pipeline.Checker

	// Report lists the generated packages.
	Report = pipeline.Report
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for registry APIs.
	Client = client.Client

	// Option configures a Client.
	Option = client.Option
)

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// Re-export constants
const (
	MIT      = core.MIT
	Apache20 = core.Apache20

	NPM    = core.NPM
	Github = core.Github
)

// Re-export errors
var (
	ErrUnknownLicense = core.ErrUnknownLicense
	ErrNotFound       = core.ErrNotFound
)

// LoadCatalog reads and validates a YAML or JSON catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	return catalog.Load(path)
}

// LoadChanges reads a changed-set file and resolves it against c.
func LoadChanges(path string, c *Catalog) (Changes, error) {
	return catalog.LoadChanges(path, c)
}

// Options configures Generate.
type Options struct {
	CatalogPath string
	ChangesPath string
	SourceRoot  string
	OutputRoot  string
	// LogDir receives the run report. Empty skips writing it.
	LogDir string
	// Archive packs each npm output directory into a .tgz.
	Archive bool

	// RegistryURL is used for stub deprecation lookups. Defaults to the
	// public npm registry.
	RegistryURL string
	// Client defaults to DefaultClient().
	Client *Client
	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Generate loads the catalog and changed set named in opts and generates
// every changed package.
func Generate(ctx context.Context, opts Options) (*Report, error) {
	cat, err := catalog.Load(opts.CatalogPath)
	if err != nil {
		return nil, err
	}
	changes, err := catalog.LoadChanges(opts.ChangesPath, cat)
	if err != nil {
		return nil, err
	}

	g := &pipeline.Generator{
		Catalog:    cat,
		Checker:    npm.New(opts.RegistryURL, opts.Client),
		SourceRoot: opts.SourceRoot,
		OutputRoot: opts.OutputRoot,
		LogDir:     opts.LogDir,
		Archive:    opts.Archive,
		Logger:     opts.Logger,
	}
	return g.Run(ctx, changes)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// FullNpmName maps a package name onto its @types publish name.
func FullNpmName(name string) string {
	return core.FullNpmName(name)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}
