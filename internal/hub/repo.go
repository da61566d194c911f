package hub

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// RepoKind selects the hub namespace a repository lives in.
type RepoKind string

const (
	KindModel   RepoKind = "model"
	KindDataset RepoKind = "dataset"
	KindSpace   RepoKind = "space"
)

var repoIDPattern = regexp.MustCompile(`^([A-Za-z0-9_.\-]+/)?[A-Za-z0-9_.\-]+$`)

// urlPrefix is the path segment placed before the repo id in hub URLs.
func (k RepoKind) urlPrefix() (string, error) {
	switch k {
	case KindModel:
		return "", nil
	case KindDataset:
		return "datasets/", nil
	case KindSpace:
		return "spaces/", nil
	default:
		return "", fmt.Errorf("%w: unknown repo kind %q", ErrInvalidRequest, string(k))
	}
}

// cacheFolder names the per-repo cache directory, e.g.
// "datasets--Anthropic--EconomicIndex".
func (k RepoKind) cacheFolder(repoID string) string {
	return string(k) + "s--" + strings.ReplaceAll(repoID, "/", "--")
}

// ValidateRepoID reports whether id has the "owner/name" (or bare "name") form.
func ValidateRepoID(id string) error {
	if !repoIDPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: bad repo id %q", ErrInvalidRequest, id)
	}
	return nil
}

// validateRelative rejects empty, absolute or parent-escaping slash paths.
// Both filenames and revisions end up as directory components in the cache.
func validateRelative(what, p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return fmt.Errorf("%w: bad %s %q", ErrInvalidRequest, what, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: bad %s %q", ErrInvalidRequest, what, p)
		}
	}
	return nil
}

// resolveURL builds {endpoint}/{prefix}{repo}/resolve/{revision}/{filename}.
func resolveURL(endpoint *url.URL, kind RepoKind, repoID, revision, filename string) (string, error) {
	prefix, err := kind.urlPrefix()
	if err != nil {
		return "", err
	}

	segs := strings.Split(filename, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}

	u := *endpoint
	u.Path = path.Join("/", endpoint.Path, prefix+repoID, "resolve")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String() + "/" + url.PathEscape(revision) + "/" + strings.Join(segs, "/"), nil
}
