package common

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrEmptyProductPath = errors.New("empty product path")
	ErrNotProductURL    = errors.New("not a product url")
)

// CanonicalProductPath normalizes a product path into the form used for cache
// keys and region URLs: no query or fragment, single slashes, a leading slash,
// no trailing slash, lower case.
func CanonicalProductPath(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	segments := splitPath(p)
	if len(segments) == 0 {
		return "", ErrEmptyProductPath
	}
	return strings.ToLower("/" + strings.Join(segments, "/")), nil
}

// ProductPathFromURL extracts "/products/<slug>" from a storefront URL or
// path, e.g. "https://eu.shop.com/collections/tees/products/alpha-tee?variant=1".
// Scheme-less hosts ("eu.shop.com/products/x") are accepted.
func ProductPathFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyProductPath
	}

	if !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "/") {
		first := raw
		if i := strings.Index(first, "/"); i >= 0 {
			first = first[:i]
		}
		if strings.Contains(first, ".") {
			raw = "https://" + raw
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotProductURL, err)
	}

	segments := splitPath(u.Path)
	for i := 0; i < len(segments)-1; i++ {
		if strings.EqualFold(segments[i], "products") {
			return CanonicalProductPath(joinPath("products", segments[i+1]))
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotProductURL, raw)
}

// splitPath splits on "/" and drops empty segments, which collapses
// duplicate slashes.
func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// joinPath joins segments with single slashes and a leading slash.
func joinPath(segments ...string) string {
	var cleaned []string
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return "/" + strings.Join(cleaned, "/")
}
