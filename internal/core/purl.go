package core

import (
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with publish-name helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the npm package name, e.g. "@types/node".
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	// packageurl-go keeps @ in namespace, so "@types" + "/" + "node"
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string into its components.
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// NewPURL builds the npm Package URL for a scoped publish name and version.
func NewPURL(fullName, version string) PURL {
	namespace, name := "", fullName
	if strings.HasPrefix(fullName, "@") {
		if ns, n, ok := strings.Cut(fullName, "/"); ok {
			namespace, name = ns, n
		}
	}
	return PURL{*packageurl.NewPackageURL(packageurl.TypeNPM, namespace, name, version, nil, "")}
}
