package entities

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LogoFilename derives the local file name of a logo from its reference:
// query and fragment are dropped, only the last path segment is kept, and
// percent-escapes are decoded. It returns "" when nothing usable remains.
func LogoFilename(reference string) string {
	ref := strings.TrimSpace(reference)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.ReplaceAll(ref, `\`, "/")
	if strings.HasSuffix(ref, "/") {
		return ""
	}
	base := path.Base(ref)
	if decoded, err := url.PathUnescape(base); err == nil {
		base = decoded
	}
	// Decoding may reintroduce separators.
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = norm.NFC.String(base)
	switch base {
	case "", ".", "..", "/":
		return ""
	}
	return base
}

// Stem strips the extension from a file name.
func Stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// IsRemote reports whether reference is an http(s) URL.
func IsRemote(reference string) bool {
	u, err := url.Parse(strings.TrimSpace(reference))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NormalizeName trims and NFC-normalizes an entity name so the same name
// typed on different systems maps to the same output file.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
