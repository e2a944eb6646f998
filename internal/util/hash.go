package util

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// SHA256Hex is the content hash used for index freshness checks. The same
// digest must come out of both entry points or up-to-date files would be
// re-embedded.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SHA256HexFromReader streams r through the hash, for files too large to
// hold in memory during the walk.
func SHA256HexFromReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
