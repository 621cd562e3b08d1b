// Package readme renders the README.md of generated packages.
package readme

import (
	"fmt"
	"strings"
	"time"

	"github.com/git-pkgs/typespub/internal/core"
	"github.com/git-pkgs/typespub/internal/npm"
)

// TimeFormat is the layout of the "Last updated" line.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

const newline = "\r\n"

// Options configures README generation.
type Options struct {
	// SourceRepoURL is the repository the files were exported from.
	SourceRepoURL string
	// SourceBranch is the branch the files were exported from.
	SourceBranch string
}

func (o Options) withDefaults() Options {
	if o.SourceRepoURL == "" {
		o.SourceRepoURL = core.DefinitelyTypedURL
	}
	if o.SourceBranch == "" {
		o.SourceBranch = "master"
	}
	return o
}

// ForPackage renders the README of pkg. dependencies are the publish names
// of its resolved dependencies.
func ForPackage(pkg *core.Package, dependencies []string, now time.Time, opts Options) string {
	opts = opts.withDefaults()
	urls := npm.URLs{}

	var lines []string
	lines = append(lines,
		"# Installation",
		fmt.Sprintf("> `npm install --save %s`", pkg.FullNpmName()),
		"",
		"# Summary",
	)
	if pkg.ProjectName != "" {
		lines = append(lines, fmt.Sprintf("This package contains type definitions for %s (%s).", pkg.LibraryName, pkg.ProjectName))
	} else {
		lines = append(lines, fmt.Sprintf("This package contains type definitions for %s.", pkg.LibraryName))
	}
	lines = append(lines,
		"",
		"# Details",
		fmt.Sprintf("Files were exported from %s/tree/%s/types/%s.",
			strings.TrimSuffix(opts.SourceRepoURL, ".git"), opts.SourceBranch, pkg.SubDirectoryPath()),
		"",
		"### Additional Details",
		" * Last updated: "+now.UTC().Format(TimeFormat),
	)

	links := make([]string, len(dependencies))
	for i, d := range dependencies {
		links[i] = fmt.Sprintf("[%s](%s)", d, urls.Registry(d, ""))
	}
	lines = append(lines, " * Dependencies: "+joinOrNone(links))

	globals := make([]string, len(pkg.Globals))
	for i, g := range pkg.Globals {
		globals[i] = "`" + g + "`"
	}
	lines = append(lines,
		" * Global values: "+joinOrNone(globals),
		"",
		"# Credits",
		fmt.Sprintf("These definitions were written by %s.", Credits(pkg.Contributors)),
		"",
	)
	return strings.Join(lines, newline)
}

// Credits lists contributors as "Name (URL)", joining the last two with
// ", and".
func Credits(contributors []core.Contributor) string {
	parts := make([]string, len(contributors))
	for i, c := range contributors {
		if c.URL == "" {
			parts[i] = c.Name
		} else {
			parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.URL)
		}
	}
	if len(parts) < 2 {
		return strings.Join(parts, ", ")
	}
	last := len(parts) - 1
	return strings.Join(parts[:last], ", ") + ", and " + parts[last]
}

// ForStub renders the README of a stub package.
func ForStub(stub *core.StubPackage) string {
	lines := []string{
		fmt.Sprintf("This is a stub types definition for %s (%s).", stub.LibraryName, stub.SourceRepoURL),
		"",
		fmt.Sprintf("%s provides its own type definitions, so you don't need %s installed!", stub.LibraryName, stub.FullNpmName()),
		"",
	}
	return strings.Join(lines, newline)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
