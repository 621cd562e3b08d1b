// Package output writes generated packages to disk.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/typespub/internal/core"
)

// Dir returns the output directory of pkg for registry below root. Mirror
// output lives next to the primary output with a suffixed name; pinned majors
// are kept apart from the latest one.
func Dir(root string, pkg core.Publishable, registry core.Registry) string {
	return filepath.Join(root, pkg.OutputDirectoryName()+registry.DirSuffix())
}

// Empty removes everything below root and recreates it.
func Empty(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("emptying %s: %w", root, err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", root, err)
	}
	return nil
}

// Write creates dir and writes every file into it. Names may contain
// slash-separated subpaths; missing parents are created. Files are written
// concurrently and the first failure is returned.
func Write(ctx context.Context, dir string, files map[string][]byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for name, content := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeFile(dir, name, content)
		})
	}
	return g.Wait()
}

// Copy reads each named file below srcDir and writes it unchanged to the
// same relative path below dir.
func Copy(ctx context.Context, srcDir, dir string, names []string) error {
	files := make(map[string][]byte, len(names))
	for _, name := range names {
		src, err := safeJoin(srcDir, name)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading %s: %w", src, err)
		}
		files[name] = content
	}
	return Write(ctx, dir, files)
}

func writeFile(dir, name string, content []byte) error {
	full, err := safeJoin(dir, name)
	if err != nil {
		return err
	}
	if parent := filepath.Dir(full); parent != filepath.Clean(dir) {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", parent, err)
		}
	}
	if err := os.WriteFile(full, content, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", full, err)
	}
	return nil
}

// safeJoin joins a slash-separated relative name onto dir, rejecting names
// that would escape it.
func safeJoin(dir, name string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file %q escapes %s", name, dir)
	}
	return filepath.Join(dir, rel), nil
}
