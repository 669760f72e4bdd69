// Package source resolves log locations (local paths, gzip files and
// s3://bucket/key objects) to readable local files.
package source

import (
	"fmt"
	"strings"
)

// Location is a parsed input location.
type Location struct {
	// Raw is the location as given.
	Raw string

	// Scheme is "file" or "s3".
	Scheme string

	// Bucket and Key are set for s3 locations.
	Bucket string
	Key    string

	// Path is set for local locations.
	Path string
}

// ParseLocation parses a local path or an s3://bucket/key URL.
func ParseLocation(s string) (Location, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Location{}, fmt.Errorf("empty location")
	}

	if rest, ok := cutPrefixFold(raw, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", raw)
		}
		return Location{Raw: raw, Scheme: "s3", Bucket: bucket, Key: key}, nil
	}

	path := raw
	if rest, ok := cutPrefixFold(raw, "file://"); ok {
		path = rest
	}
	return Location{Raw: raw, Scheme: "file", Path: path}, nil
}

// IsRemote reports whether the location must be downloaded.
func (l Location) IsRemote() bool {
	return l.Scheme == "s3"
}

// Name returns the object or file name, used for format detection.
func (l Location) Name() string {
	if l.IsRemote() {
		return l.Key
	}
	return l.Path
}

// String returns the canonical form.
func (l Location) String() string {
	if l.IsRemote() {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
