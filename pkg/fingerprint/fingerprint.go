// Package fingerprint derives stable content identifiers for reference
// corpora. A fingerprint depends only on record ids and their composite
// match text, never on file paths or timestamps, so a cached similarity
// index stays valid exactly as long as the corpus content is unchanged.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Corpus computes the fingerprint of a reference corpus: a SHA256 hash over
// each record's id and composite text in corpus order.
func Corpus(c *models.Corpus) string {
	h := sha256.New()
	for _, rec := range c.Records() {
		h.Write([]byte(rec.ID()))
		h.Write([]byte{0x1f})
		h.Write([]byte(normalizers.CompositeText(rec)))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
