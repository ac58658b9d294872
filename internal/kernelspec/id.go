package kernelspec

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Kernel IDs double as directory names, so the allowed set is restricted to
// characters that are safe on every supported filesystem.
func allowedIDChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-':
		return true
	}
	return false
}

// SanitizeKernelID maps every character outside the allowed set to an
// underscore. The result is a valid kernel ID but not guaranteed unique.
func SanitizeKernelID(raw string) string {
	return strings.Map(func(c rune) rune {
		if allowedIDChar(c) {
			return c
		}
		return '_'
	}, raw)
}

// ValidateKernelID fails when id contains characters outside [A-Za-z0-9_.-].
func ValidateKernelID(id string) error {
	var disallowed []rune
	for _, c := range id {
		if !allowedIDChar(c) {
			disallowed = append(disallowed, c)
		}
	}
	if len(disallowed) > 0 {
		return fmt.Errorf("%w: %q contains forbidden characters %q", ErrInvalidKernelID, id, string(disallowed))
	}
	return nil
}

// DeriveKernelID computes the deterministic ID for a kernel configuration:
// a sanitized form of the image reference joined with an unpadded base64url
// SHA-256 digest of the canonical metadata serialization. Identical metadata
// yields the identical ID across runs and hosts; any change to any field
// changes the digest.
func DeriveKernelID(meta *PodKernelMetadata) (string, error) {
	payload, err := json.Marshal(meta.normalized())
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(payload)
	hashtag := base64.RawURLEncoding.EncodeToString(digest[:])

	name := strings.TrimLeft(meta.ImageName, "~/")
	id := SanitizeKernelID(name + "-" + hashtag)
	if err := ValidateKernelID(id); err != nil {
		return "", err
	}
	return id, nil
}
