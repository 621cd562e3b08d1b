// Package npm provides a registry client for npmjs.com, used to find out
// whether a stub package has already been deprecated.
package npm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/git-pkgs/typespub/client"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// Registry queries an npm-compatible registry.
type Registry struct {
	baseURL string
	client  *client.Client
}

// New creates a registry client. If baseURL is empty, DefaultURL is used;
// if c is nil, client.DefaultClient() is used.
func New(baseURL string, c *client.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = client.DefaultClient()
	}
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  c,
	}
}

type packageResponse struct {
	ID       string                 `json:"_id"`
	Name     string                 `json:"name"`
	Versions map[string]versionInfo `json:"versions"`
	DistTags map[string]string      `json:"dist-tags"`
}

type versionInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Deprecated string `json:"deprecated"`
}

func (r *Registry) fetch(ctx context.Context, name string) (*packageResponse, error) {
	u := fmt.Sprintf("%s/%s", r.baseURL, url.PathEscape(name))

	var resp packageResponse
	if err := r.client.GetJSON(ctx, u, &resp); err != nil {
		var httpErr *client.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, &client.NotFoundError{Name: name}
		}
		return nil, err
	}
	return &resp, nil
}

// IsDeprecated reports whether the latest published version of name carries
// a deprecation message. A package missing from the registry is not
// deprecated.
func (r *Registry) IsDeprecated(ctx context.Context, name string) (bool, error) {
	resp, err := r.fetch(ctx, name)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	latest := resp.DistTags["latest"]
	if latest == "" {
		return false, nil
	}
	v, ok := resp.Versions[latest]
	if !ok {
		return false, nil
	}
	return v.Deprecated != "", nil
}

// BreakerState returns the circuit breaker state of every registry host the
// client has contacted.
func (r *Registry) BreakerState() map[string]string {
	return r.client.BreakerState()
}

// URLs builds web URLs for packages on npmjs.com.
type URLs struct{}

// Registry returns the package page, optionally pinned to a version.
func (URLs) Registry(name, version string) string {
	if version != "" {
		return fmt.Sprintf("https://www.npmjs.com/package/%s/v/%s", name, version)
	}
	return fmt.Sprintf("https://www.npmjs.com/package/%s", name)
}
