package core

import (
	"fmt"

	"github.com/github/go-spdx/v2/spdxexp"
)

// License is the closed set of licenses a typed package may carry.
type License string

const (
	MIT      License = "MIT"
	Apache20 License = "Apache-2.0"
)

// Licenses lists every supported license.
func Licenses() []License {
	return []License{MIT, Apache20}
}

// ParseLicense validates s as an SPDX identifier and maps it onto a supported
// license.
func ParseLicense(s string) (License, error) {
	if s == "" {
		return MIT, nil
	}
	if ok, invalid := spdxexp.ValidateLicenses([]string{s}); !ok {
		return "", fmt.Errorf("%w: %v is not an SPDX identifier", ErrUnknownLicense, invalid)
	}
	for _, l := range Licenses() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownLicense, s)
}
