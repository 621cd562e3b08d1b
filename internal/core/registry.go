package core

// Registry selects one of the two publish destinations.
type Registry string

const (
	NPM    Registry = "npm"
	Github Registry = "github"
)

const (
	// MirrorRepositoryURL replaces the source repository on the mirror.
	MirrorRepositoryURL = "https://github.com/types/_definitelytypedmirror.git"

	// MirrorRegistryURL is the mirror's publish endpoint.
	MirrorRegistryURL = "https://npm.pkg.github.com/"
)

// PublishConfig overrides the registry a package is published to.
type PublishConfig struct {
	Registry string `json:"registry"`
}

// Registries returns both targets in output order.
func Registries() []Registry {
	return []Registry{NPM, Github}
}

// RepositoryURL returns the repository URL written into manifests for this
// registry. canonical is used on npm.
func (r Registry) RepositoryURL(canonical string) string {
	if r == Github {
		return MirrorRepositoryURL
	}
	return canonical
}

// PublishConfig returns the publishConfig field, nil on npm.
func (r Registry) PublishConfig() *PublishConfig {
	if r == Github {
		return &PublishConfig{Registry: MirrorRegistryURL}
	}
	return nil
}

// DirSuffix is appended to a package's output directory name.
func (r Registry) DirSuffix() string {
	if r == Github {
		return "-github"
	}
	return ""
}
