package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Key identifies one cached extraction result.
type Key struct {
	// Digest is the hex sha256 of the document bytes.
	Digest string

	// Service is the extraction service name.
	Service string

	// Options is the option fingerprint (see OptionsFingerprint).
	Options string
}

// String generates a deterministic cache key string.
//
// Format: grobid:service:options:digest
//
// Example:
//
//	grobid:processFulltextDocument:gids,hdr:3a7bd3...
func (k Key) String() string {
	return strings.Join([]string{"grobid", k.Service, k.Options, k.Digest}, ":")
}

// OptionsFingerprint folds an option set into a short deterministic string
// so results produced under different settings never collide.
func OptionsFingerprint(generateIDs, consolidateHeader, consolidateCitations, teiCoordinates bool, coordinateTypes string) string {
	var parts []string
	if generateIDs {
		parts = append(parts, "gids")
	}
	if consolidateHeader {
		parts = append(parts, "hdr")
	}
	if consolidateCitations {
		parts = append(parts, "cit")
	}
	if teiCoordinates {
		parts = append(parts, "coords="+coordinateTypes)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// DigestFile computes the hex sha256 of a file's contents.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for digest: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
