// Package locator converts between filesystem paths and the URI-like
// strings the image service accepts and returns.
package locator

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Scheme selects how an absolute path is encoded
type Scheme string

const (
	// File encodes paths as file:// URIs
	File Scheme = "file"
	// Path encodes paths with the path: prefix
	Path Scheme = "path"
)

const (
	filePrefix = "file://"
	pathPrefix = "path:"
)

// ParseScheme validates a scheme name from configuration
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case File, "":
		return File, nil
	case Path:
		return Path, nil
	default:
		return "", fmt.Errorf("unknown locator scheme %q (want %q or %q)", s, File, Path)
	}
}

// Encode turns an absolute path into a locator.
// file:// URIs get an extra leading slash when the path has none (drive paths).
func Encode(absPath string, scheme Scheme) (string, error) {
	if !filepath.IsAbs(absPath) {
		return "", fmt.Errorf("locator: path %q is not absolute", absPath)
	}
	switch scheme {
	case File:
		p := filepath.ToSlash(absPath)
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		u := url.URL{Scheme: string(File), Path: p}
		return u.String(), nil
	case Path:
		return pathPrefix + absPath, nil
	default:
		return "", fmt.Errorf("locator: unknown scheme %q", scheme)
	}
}

// Decode returns the filesystem path a locator refers to.
// Bare paths are returned unchanged.
func Decode(loc string) (string, error) {
	switch {
	case loc == "":
		return "", fmt.Errorf("locator: empty locator")
	case strings.HasPrefix(loc, filePrefix):
		u, err := url.Parse(loc)
		if err != nil {
			return "", fmt.Errorf("locator: invalid file URI %q: %w", loc, err)
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", fmt.Errorf("locator: file URI %q names remote host %q", loc, u.Host)
		}
		p := u.Path
		if isDrivePath(p) {
			p = p[1:]
		}
		return filepath.FromSlash(p), nil
	case strings.HasPrefix(loc, pathPrefix):
		return strings.TrimPrefix(loc, pathPrefix), nil
	default:
		return loc, nil
	}
}

// isDrivePath matches "/C:/..." as produced for Windows paths
func isDrivePath(p string) bool {
	return len(p) >= 3 && p[0] == '/' && p[2] == ':' &&
		(('a' <= p[1] && p[1] <= 'z') || ('A' <= p[1] && p[1] <= 'Z'))
}
