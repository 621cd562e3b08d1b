package core

import (
	"errors"
	"fmt"
)

// ErrUnknownLicense is returned when a license falls outside the supported
// set. It indicates a catalog invariant violation.
var ErrUnknownLicense = errors.New("unknown license")

// ErrNotFound is returned when a package is missing from the catalog.
var ErrNotFound = errors.New("not found")

// NotFoundError wraps ErrNotFound with additional context.
type NotFoundError struct {
	Name  string
	Major int
}

func (e *NotFoundError) Error() string {
	if e.Major > 0 {
		return fmt.Sprintf("package %s version %d not found", e.Name, e.Major)
	}
	return fmt.Sprintf("package %s not found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// PackageError attributes a generation failure to a package.
type PackageError struct {
	Name     string
	Registry Registry
	Err      error
}

func (e *PackageError) Error() string {
	if e.Registry != "" {
		return fmt.Sprintf("%s (%s): %v", e.Name, e.Registry, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *PackageError) Unwrap() error {
	return e.Err
}
