// Package pipeline generates publishable packages for every changed entry
// of the catalog.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/typespub/internal/catalog"
	"github.com/git-pkgs/typespub/internal/core"
	"github.com/git-pkgs/typespub/internal/deps"
	"github.com/git-pkgs/typespub/internal/license"
	"github.com/git-pkgs/typespub/internal/manifest"
	"github.com/git-pkgs/typespub/internal/output"
	"github.com/git-pkgs/typespub/internal/readme"
)

// Checker reports whether a published package is already deprecated.
type Checker interface {
	IsDeprecated(ctx context.Context, name string) (bool, error)
}

// breakerReporter is implemented by checkers that track upstream health.
type breakerReporter interface {
	BreakerState() map[string]string
}

// Generator writes one output directory per package per registry.
type Generator struct {
	// Catalog answers whether inferred dependencies have declarations.
	Catalog deps.Catalog
	// Checker looks up stub deprecation. Nil skips the lookup.
	Checker Checker

	// SourceRoot holds the types/ tree declaration files are copied from.
	SourceRoot string
	// OutputRoot is emptied and then filled with generated packages.
	OutputRoot string
	// LogDir receives the run report. Empty skips writing it.
	LogDir string
	// Archive additionally packs each primary registry directory into a .tgz.
	Archive bool

	Registries []core.Registry
	Manifest   manifest.Options
	Readme     readme.Options

	Now      func() time.Time
	Logger   *zap.SugaredLogger
	Progress func(name string)
}

func (g *Generator) withDefaults() *Generator {
	out := *g
	if out.Registries == nil {
		out.Registries = core.Registries()
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop().Sugar()
	}
	if out.Progress == nil {
		out.Progress = func(string) {}
	}
	return &out
}

// Run empties the output root and generates every changed package
// concurrently. The first failure aborts the run.
func (g *Generator) Run(ctx context.Context, changes catalog.Changes) (*Report, error) {
	g = g.withDefaults()
	if g.OutputRoot == "" {
		return nil, fmt.Errorf("no output root configured")
	}

	if err := output.Empty(g.OutputRoot); err != nil {
		return nil, err
	}

	now := g.Now().UTC()
	eg, ctx := errgroup.WithContext(ctx)
	for _, ct := range changes.Typings {
		eg.Go(func() error {
			if err := g.generateTyping(ctx, ct, now); err != nil {
				return err
			}
			g.Progress(ct.Package.LibraryName)
			return nil
		})
	}
	for _, stub := range changes.NotNeeded {
		eg.Go(func() error {
			if err := g.generateStub(ctx, stub, now); err != nil {
				return err
			}
			g.Progress(stub.LibraryName)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report, err := NewReport(changes)
	if err != nil {
		return nil, err
	}
	if g.LogDir != "" {
		if err := report.Write(g.LogDir); err != nil {
			return nil, err
		}
		g.Logger.Infow("wrote run report", "path", filepath.Join(g.LogDir, ReportFile))
	}
	return report, nil
}

func (g *Generator) generateTyping(ctx context.Context, ct catalog.ChangedTyping, now time.Time) error {
	pkg := ct.Package
	fail := func(registry core.Registry, err error) error {
		return &core.PackageError{Name: pkg.FullNpmName(), Registry: registry, Err: err}
	}

	licenseText, err := license.Text(pkg.License, pkg.Contributors, now)
	if err != nil {
		return fail("", err)
	}
	src := filepath.Join(g.SourceRoot, "types", filepath.FromSlash(pkg.SubDirectoryPath()))

	var primary string
	for _, registry := range g.Registries {
		m, err := manifest.ForPackage(pkg, ct.Version, registry, g.Catalog, g.Manifest)
		if err != nil {
			return fail(registry, err)
		}
		data, err := manifest.Marshal(m)
		if err != nil {
			return fail(registry, err)
		}

		dir := output.Dir(g.OutputRoot, pkg, registry)
		if primary == "" {
			primary = dir
		}
		files := map[string][]byte{
			"package.json": data,
			"README.md":    []byte(readme.ForPackage(pkg, m.Dependencies.Keys(), now, g.Readme)),
			"LICENSE":      []byte(licenseText),
		}
		if err := output.Write(ctx, dir, files); err != nil {
			return fail(registry, err)
		}
		if err := output.Copy(ctx, src, dir, pkg.Files); err != nil {
			return fail(registry, err)
		}
	}

	if g.Archive && primary != "" {
		if err := output.Archive(primary, primary+".tgz"); err != nil {
			return fail("", err)
		}
	}

	g.Logger.Infow("generated package",
		"package", pkg.FullNpmName(),
		"version", ct.Version,
		"source", src)
	return nil
}

func (g *Generator) generateStub(ctx context.Context, entry *core.StubPackage, now time.Time) error {
	name := entry.FullNpmName()
	deprecated := false
	if g.Checker == nil {
		g.Logger.Warnw("no registry client configured, assuming stub is not deprecated", "package", name)
	} else {
		ok, err := g.Checker.IsDeprecated(ctx, name)
		switch {
		case err != nil:
			fields := []any{"package", name, "error", err}
			if br, ok := g.Checker.(breakerReporter); ok {
				fields = append(fields, "breakers", br.BreakerState())
			}
			g.Logger.Warnw("deprecation lookup failed, assuming not deprecated", fields...)
		case ok:
			deprecated = true
		default:
			g.Logger.Warnw("stub is not deprecated on the registry yet", "package", name)
		}
	}
	stub := entry.WithDeprecation(deprecated)

	licenseText, err := license.Text(stub.License, nil, now)
	if err != nil {
		return &core.PackageError{Name: name, Err: err}
	}
	readmeText := readme.ForStub(&stub)

	for _, registry := range g.Registries {
		m, err := manifest.ForStub(&stub, registry)
		if err != nil {
			return &core.PackageError{Name: name, Registry: registry, Err: err}
		}
		data, err := manifest.Marshal(m)
		if err != nil {
			return &core.PackageError{Name: name, Registry: registry, Err: err}
		}
		files := map[string][]byte{
			"package.json": data,
			"README.md":    []byte(readmeText),
			"LICENSE":      []byte(licenseText),
		}
		if err := output.Write(ctx, output.Dir(g.OutputRoot, &stub, registry), files); err != nil {
			return &core.PackageError{Name: name, Registry: registry, Err: err}
		}
	}

	g.Logger.Infow("generated stub",
		"package", name,
		"redirect", stub.UnescapedName,
		"alreadyDeprecated", stub.AlreadyDeprecated)
	return nil
}
