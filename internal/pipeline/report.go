package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/typespub/internal/catalog"
	"github.com/git-pkgs/typespub/internal/core"
)

// ReportFile is the name of the run report inside the log directory.
const ReportFile = "package-generator.md"

// Entry is one generated package.
type Entry struct {
	LibraryName string
	PURL        string
	Stub        bool
}

// Report lists the packages a run generated, typings first, in the order
// they were requested.
type Report struct {
	Entries []Entry
}

// NewReport builds the report for changes. Every package URL must parse back
// to the publish name and version it was built from.
func NewReport(changes catalog.Changes) (*Report, error) {
	r := &Report{Entries: make([]Entry, 0, changes.Len())}
	add := func(library, fullName, version string, stub bool) error {
		p := core.NewPURL(fullName, version)
		id := p.ToString()
		parsed, err := core.ParsePURL(id)
		if err != nil {
			return fmt.Errorf("package url for %s: %w", fullName, err)
		}
		if parsed.FullName() != fullName || parsed.Version != version {
			return fmt.Errorf("package url %s does not round-trip to %s@%s", id, fullName, version)
		}
		r.Entries = append(r.Entries, Entry{LibraryName: library, PURL: id, Stub: stub})
		return nil
	}

	for _, ct := range changes.Typings {
		if err := add(ct.Package.LibraryName, ct.Package.FullNpmName(), ct.Version, false); err != nil {
			return nil, err
		}
	}
	for _, stub := range changes.NotNeeded {
		if err := add(stub.LibraryName, stub.FullNpmName(), stub.Version, true); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LibraryNames returns the processed library names.
func (r *Report) LibraryNames() []string {
	names := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		names[i] = e.LibraryName
	}
	return names
}

// Markdown renders the report as a bullet list.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Generated packages\n\n")
	for _, e := range r.Entries {
		fmt.Fprintf(&b, " * %s (%s)", e.LibraryName, e.PURL)
		if e.Stub {
			b.WriteString(" stub")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Write saves the report as ReportFile under dir.
func (r *Report) Write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	path := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(path, []byte(r.Markdown()), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
