package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/git-pkgs/typespub/internal/catalog"
	"github.com/git-pkgs/typespub/internal/core"
)

const testCatalog = `
typings:
  - name: left-pad
    libraryName: left-pad
    license: MIT
    major: 1
    contributors:
      - name: Jane Doe
        url: https://example.com/jane
    files: [index.d.ts]
  - name: foo
    libraryName: Foo
    major: 1
    contributors:
      - name: A
        url: https://a.example
    files: [index.d.ts, ts3.1/index.d.ts]
    typesVersions: ["3.1"]
  - name: foo
    libraryName: Foo
    major: 2
    latest: true
    contributors:
      - name: A
        url: https://a.example
    files: [index.d.ts]
  - name: bar
    libraryName: Bar
    major: 2
    contributors:
      - name: B
        url: https://b.example
    dependencies:
      foo: "2"
      missing: "*"
    files: [index.d.ts]
notNeeded:
  - name: moment
    libraryName: Moment.js
    asOfVersion: 2.19.0
    sourceRepoURL: https://github.com/moment/moment
  - name: dayjs
    libraryName: Day.js
    asOfVersion: 1.0.0
    sourceRepoURL: https://github.com/iamkun/dayjs
`

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type fakeChecker struct {
	deprecated map[string]bool
	err        error
}

func (f *fakeChecker) IsDeprecated(ctx context.Context, name string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.deprecated[name], nil
}

type breakerChecker struct {
	fakeChecker
	states map[string]string
}

func (b *breakerChecker) BreakerState() map[string]string {
	return b.states
}

type fixture struct {
	catalog *catalog.Catalog
	source  string
	output  string
	logs    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parsing catalog: %v", err)
	}

	root := t.TempDir()
	f := &fixture{
		catalog: c,
		source:  filepath.Join(root, "DefinitelyTyped"),
		output:  filepath.Join(root, "output"),
		logs:    filepath.Join(root, "logs"),
	}
	writeSource(t, f.source, "types/left-pad/index.d.ts", "export declare function leftPad(s: string, n: number): string;\n")
	writeSource(t, f.source, "types/foo/v1/index.d.ts", "export declare const v1: true;\n")
	writeSource(t, f.source, "types/foo/v1/ts3.1/index.d.ts", "export declare const v1: 1;\n")
	writeSource(t, f.source, "types/bar/index.d.ts", "import foo = require('foo');\n")
	return f
}

func writeSource(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) generator(checker Checker, logger *zap.SugaredLogger) *Generator {
	return &Generator{
		Catalog:    f.catalog,
		Checker:    checker,
		SourceRoot: f.source,
		OutputRoot: f.output,
		LogDir:     f.logs,
		Now:        func() time.Time { return testNow },
		Logger:     logger,
	}
}

func (f *fixture) changes(t *testing.T, data string) catalog.Changes {
	t.Helper()
	changes, err := catalog.ParseChanges([]byte(data), f.catalog)
	if err != nil {
		t.Fatalf("parsing changes: %v", err)
	}
	return changes
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return v
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestRun_LeftPad(t *testing.T) {
	f := newFixture(t)
	g := f.generator(nil, nil)

	report, err := g.Run(context.Background(), f.changes(t, "changedTypings: [{name: left-pad, version: 1.0.0}]"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	npmDir := filepath.Join(f.output, "left-pad")
	ghDir := filepath.Join(f.output, "left-pad-github")

	npmManifest := readJSON(t, filepath.Join(npmDir, "package.json"))
	if npmManifest["name"] != "@types/left-pad" {
		t.Errorf("name = %v, want %q", npmManifest["name"], "@types/left-pad")
	}
	if npmManifest["version"] != "1.0.0" {
		t.Errorf("version = %v, want %q", npmManifest["version"], "1.0.0")
	}
	if deps, ok := npmManifest["dependencies"].(map[string]any); !ok || len(deps) != 0 {
		t.Errorf("dependencies = %v, want {}", npmManifest["dependencies"])
	}

	readme := readFile(t, filepath.Join(npmDir, "README.md"))
	if !strings.Contains(readme, "These definitions were written by Jane Doe (https://example.com/jane).") {
		t.Errorf("README credits missing:\n%s", readme)
	}
	if !strings.Contains(readme, " * Last updated: Wed, 14 Oct 2026 09:30:00 GMT\r\n") {
		t.Errorf("README timestamp missing:\n%s", readme)
	}

	licenseText := readFile(t, filepath.Join(npmDir, "LICENSE"))
	if !strings.Contains(licenseText, "Copyright 2026 Jane Doe.\n") {
		t.Errorf("LICENSE copyright line missing:\n%s", licenseText)
	}

	for _, dir := range []string{npmDir, ghDir} {
		got := readFile(t, filepath.Join(dir, "index.d.ts"))
		if !strings.HasPrefix(got, "export declare function leftPad") {
			t.Errorf("%s/index.d.ts = %q", dir, got)
		}
	}

	if got := report.LibraryNames(); !reflect.DeepEqual(got, []string{"left-pad"}) {
		t.Errorf("LibraryNames = %v, want [left-pad]", got)
	}
	log := readFile(t, filepath.Join(f.logs, ReportFile))
	if !strings.Contains(log, " * left-pad (pkg:npm/") {
		t.Errorf("report missing entry:\n%s", log)
	}
}

func TestRun_RegistryManifestsDiffer(t *testing.T) {
	f := newFixture(t)
	if _, err := f.generator(nil, nil).Run(context.Background(), f.changes(t, "changedTypings: [{name: bar, version: 2.0.1}]")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	npmManifest := readJSON(t, filepath.Join(f.output, "bar", "package.json"))
	ghManifest := readJSON(t, filepath.Join(f.output, "bar-github", "package.json"))

	npmRepo := npmManifest["repository"].(map[string]any)
	ghRepo := ghManifest["repository"].(map[string]any)
	if npmRepo["url"] == ghRepo["url"] {
		t.Error("repository urls should differ between registries")
	}
	if _, ok := npmManifest["publishConfig"]; ok {
		t.Error("npm manifest should not have publishConfig")
	}
	if _, ok := ghManifest["publishConfig"]; !ok {
		t.Error("github manifest should have publishConfig")
	}

	if npmRepo["directory"] != ghRepo["directory"] {
		t.Errorf("repository.directory = %v and %v, want equal", npmRepo["directory"], ghRepo["directory"])
	}
	delete(npmManifest, "repository")
	delete(ghManifest, "repository")
	delete(ghManifest, "publishConfig")
	if !reflect.DeepEqual(npmManifest, ghManifest) {
		t.Errorf("manifests differ beyond repository url and publishConfig:\nnpm: %v\ngithub: %v", npmManifest, ghManifest)
	}

	wantDeps := map[string]any{"@types/foo": "^2"}
	if !reflect.DeepEqual(npmManifest["dependencies"], wantDeps) {
		t.Errorf("dependencies = %v, want %v", npmManifest["dependencies"], wantDeps)
	}

	readme := readFile(t, filepath.Join(f.output, "bar", "README.md"))
	if !strings.Contains(readme, " * Dependencies: [@types/foo](https://www.npmjs.com/package/@types/foo)\r\n") {
		t.Errorf("README dependencies line missing:\n%s", readme)
	}
}

func TestRun_PinnedMajor(t *testing.T) {
	f := newFixture(t)
	if _, err := f.generator(nil, nil).Run(context.Background(), f.changes(t, "changedTypings: [{name: foo, major: 1}]")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	dir := filepath.Join(f.output, "foo-v1")
	if got := readFile(t, filepath.Join(dir, "ts3.1", "index.d.ts")); got != "export declare const v1: 1;\n" {
		t.Errorf("ts3.1/index.d.ts = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "index.d.ts")); got != "export declare const v1: true;\n" {
		t.Errorf("index.d.ts = %q, want files flat in the package directory", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "v1")); !os.IsNotExist(err) {
		t.Error("output should not contain a version folder")
	}
	if _, err := os.Stat(filepath.Join(f.output, "foo-v1-github", "package.json")); err != nil {
		t.Errorf("mirror manifest missing: %v", err)
	}

	m := readJSON(t, filepath.Join(dir, "package.json"))
	if m["version"] != "1.0.0" {
		t.Errorf("version = %v, want %q", m["version"], "1.0.0")
	}
	repo := m["repository"].(map[string]any)
	if repo["directory"] != "types/foo/v1" {
		t.Errorf("repository.directory = %v, want %q", repo["directory"], "types/foo/v1")
	}
	if _, ok := m["typesVersions"]; !ok {
		t.Error("typesVersions missing")
	}
}

func TestRun_SeveralMajorsOfOnePackage(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.source, "types/foo/index.d.ts", "export declare const v2: true;\n")

	data := "changedTypings:\n  - {name: foo, major: 1, version: 1.0.5}\n  - {name: foo, major: 2, version: 2.3.0}\n"
	if _, err := f.generator(nil, nil).Run(context.Background(), f.changes(t, data)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	entries, err := os.ReadDir(f.output)
	if err != nil {
		t.Fatal(err)
	}
	var dirs []string
	for _, e := range entries {
		dirs = append(dirs, e.Name())
	}
	wantDirs := []string{"foo", "foo-github", "foo-v1", "foo-v1-github"}
	if !reflect.DeepEqual(dirs, wantDirs) {
		t.Errorf("output directories = %v, want %v", dirs, wantDirs)
	}

	tests := []struct {
		dir           string
		version       string
		typesVersions bool
	}{
		{"foo", "2.3.0", false},
		{"foo-github", "2.3.0", false},
		{"foo-v1", "1.0.5", true},
		{"foo-v1-github", "1.0.5", true},
	}
	for _, tt := range tests {
		m := readJSON(t, filepath.Join(f.output, tt.dir, "package.json"))
		if m["version"] != tt.version {
			t.Errorf("%s version = %v, want %q", tt.dir, m["version"], tt.version)
		}
		if _, ok := m["typesVersions"]; ok != tt.typesVersions {
			t.Errorf("%s typesVersions present = %v, want %v", tt.dir, ok, tt.typesVersions)
		}
	}

	if _, err := os.Stat(filepath.Join(f.output, "foo", "ts3.1")); !os.IsNotExist(err) {
		t.Error("latest output should not contain files of the pinned major")
	}
	if got := readFile(t, filepath.Join(f.output, "foo", "index.d.ts")); got != "export declare const v2: true;\n" {
		t.Errorf("foo/index.d.ts = %q, want the latest major's file", got)
	}
	if got := readFile(t, filepath.Join(f.output, "foo-v1", "index.d.ts")); got != "export declare const v1: true;\n" {
		t.Errorf("foo-v1/index.d.ts = %q, want the pinned major's file", got)
	}
}

func TestRun_EmptiesOutputRoot(t *testing.T) {
	f := newFixture(t)
	writeSource(t, f.output, "stale/package.json", "{}")

	if _, err := f.generator(nil, nil).Run(context.Background(), catalog.Changes{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.output, "stale")); !os.IsNotExist(err) {
		t.Error("stale output should have been removed")
	}
}

func TestRun_Archive(t *testing.T) {
	f := newFixture(t)
	g := f.generator(nil, nil)
	g.Archive = true

	if _, err := g.Run(context.Background(), f.changes(t, "changedTypings: [{name: left-pad}]")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.output, "left-pad.tgz")); err != nil {
		t.Errorf("primary archive missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.output, "left-pad-github.tgz")); !os.IsNotExist(err) {
		t.Error("mirror directory should not be archived")
	}
}

func TestRun_Stubs(t *testing.T) {
	f := newFixture(t)
	observed, logs := observer.New(zapcore.InfoLevel)
	checker := &fakeChecker{deprecated: map[string]bool{"@types/moment": true}}
	g := f.generator(checker, zap.New(observed).Sugar())

	report, err := g.Run(context.Background(), f.changes(t, "changedNotNeeded: [moment, dayjs]"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, dir := range []string{"moment", "moment-github", "dayjs", "dayjs-github"} {
		m := readJSON(t, filepath.Join(f.output, dir, "package.json"))
		if v, ok := m["typings"]; !ok || v != nil {
			t.Errorf("%s typings = %v, want null", dir, v)
		}
		deps := m["dependencies"].(map[string]any)
		if len(deps) != 1 {
			t.Errorf("%s dependencies = %v, want exactly one", dir, deps)
		}
		if _, err := os.Stat(filepath.Join(f.output, dir, "README.md")); err != nil {
			t.Errorf("%s/README.md missing: %v", dir, err)
		}
		if got := readFile(t, filepath.Join(f.output, dir, "LICENSE")); !strings.Contains(got, "    Copyright 2026.\n") {
			t.Errorf("%s/LICENSE copyright line missing:\n%s", dir, got)
		}
	}

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if got := warnings[0].ContextMap()["package"]; got != "@types/dayjs" {
		t.Errorf("warning package = %v, want %q", got, "@types/dayjs")
	}

	if got := report.LibraryNames(); !reflect.DeepEqual(got, []string{"Moment.js", "Day.js"}) {
		t.Errorf("LibraryNames = %v", got)
	}
	for _, e := range report.Entries {
		if !e.Stub {
			t.Errorf("entry %s should be a stub", e.LibraryName)
		}
	}
}

func TestRun_StubLookupFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	observed, logs := observer.New(zapcore.WarnLevel)
	g := f.generator(&fakeChecker{err: errors.New("registry down")}, zap.New(observed).Sugar())

	if _, err := g.Run(context.Background(), f.changes(t, "changedNotNeeded: [moment]")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.output, "moment", "package.json")); err != nil {
		t.Errorf("stub manifest missing: %v", err)
	}
	if logs.FilterMessageSnippet("lookup failed").Len() != 1 {
		t.Error("expected a lookup failure warning")
	}
}

func TestRun_StubLookupFailureLogsBreakers(t *testing.T) {
	f := newFixture(t)
	observed, logs := observer.New(zapcore.WarnLevel)
	checker := &breakerChecker{
		fakeChecker: fakeChecker{err: errors.New("registry down")},
		states:      map[string]string{"registry.npmjs.org": "open"},
	}
	g := f.generator(checker, zap.New(observed).Sugar())

	if _, err := g.Run(context.Background(), f.changes(t, "changedNotNeeded: [moment]")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	entries := logs.FilterMessageSnippet("lookup failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 lookup warning, got %d", len(entries))
	}
	breakers, ok := entries[0].ContextMap()["breakers"].(map[string]string)
	if !ok || breakers["registry.npmjs.org"] != "open" {
		t.Errorf("breakers field = %v, want registry.npmjs.org open", entries[0].ContextMap()["breakers"])
	}
}

func TestRun_MissingSourceFileAborts(t *testing.T) {
	f := newFixture(t)
	changes := catalog.Changes{Typings: []catalog.ChangedTyping{{
		Package: &core.Package{
			Name:         "ghost",
			LibraryName:  "ghost",
			License:      core.MIT,
			Contributors: []core.Contributor{{Name: "X", URL: "https://x.example"}},
			Files:        []string{"index.d.ts"},
			IsLatest:     true,
		},
		Version: "1.0.0",
	}}}

	_, err := f.generator(nil, nil).Run(context.Background(), changes)
	var pkgErr *core.PackageError
	if !errors.As(err, &pkgErr) {
		t.Fatalf("Run error = %v, want PackageError", err)
	}
	if pkgErr.Name != "@types/ghost" {
		t.Errorf("PackageError.Name = %q, want %q", pkgErr.Name, "@types/ghost")
	}
	if _, statErr := os.Stat(filepath.Join(f.logs, ReportFile)); !os.IsNotExist(statErr) {
		t.Error("report should not be written for a failed run")
	}
}

func TestRun_UnknownLicenseAborts(t *testing.T) {
	f := newFixture(t)
	changes := catalog.Changes{Typings: []catalog.ChangedTyping{{
		Package: &core.Package{Name: "gpl", LibraryName: "gpl", License: "GPL-3.0", IsLatest: true},
		Version: "1.0.0",
	}}}

	_, err := f.generator(nil, nil).Run(context.Background(), changes)
	if !errors.Is(err, core.ErrUnknownLicense) {
		t.Errorf("Run error = %v, want ErrUnknownLicense", err)
	}
}

func TestRun_RequiresOutputRoot(t *testing.T) {
	g := &Generator{}
	if _, err := g.Run(context.Background(), catalog.Changes{}); err == nil {
		t.Error("expected error without output root")
	}
}

func TestRun_Progress(t *testing.T) {
	f := newFixture(t)
	g := f.generator(nil, nil)
	done := make(chan string, 4)
	g.Progress = func(name string) { done <- name }

	if _, err := g.Run(context.Background(), f.changes(t, "changedTypings: [{name: left-pad}, {name: bar}]\nchangedNotNeeded: [moment]")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	close(done)

	seen := map[string]bool{}
	for name := range done {
		seen[name] = true
	}
	for _, want := range []string{"left-pad", "Bar", "Moment.js"} {
		if !seen[want] {
			t.Errorf("progress not reported for %s", want)
		}
	}
}
