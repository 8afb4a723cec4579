package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"ferrolint/internal/source"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// FingerprintKey holds the line independent parts of a finding's identity.
// Function is the qualified name of the enclosing function, empty at file
// level.
type FingerprintKey struct {
	Code     string
	Path     string
	Kind     source.Kind
	Function string
	Matched  string
}

// NewFingerprintKey normalizes path separators and the whitespace of matched.
func NewFingerprintKey(code, path string, kind source.Kind, function, matched string) FingerprintKey {
	return FingerprintKey{
		Code:     code,
		Path:     filepath.ToSlash(path),
		Kind:     kind,
		Function: function,
		Matched:  canonicalize(matched),
	}
}

// Fingerprint derives a stable identity from the key and the 0-based index
// of the finding among findings of the same file sharing that key, so it
// survives edits that only shift lines.
func (k FingerprintKey) Fingerprint(occurrence int) string {
	key := strings.Join([]string{
		k.Code,
		k.Path,
		string(k.Kind),
		k.Function,
		k.Matched,
		strconv.Itoa(occurrence),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%s", k.Code, hex.EncodeToString(sum[:8]))
}

func canonicalize(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
