package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives the cache key for a validation request. It covers
// the contact, the exact document content, and the check-set identity so
// a rule change never serves stale verdicts.
func Fingerprint(contactID string, document []byte, checkIDs []string) string {
	docHash := sha256.Sum256(document)

	h := sha256.New()
	h.Write([]byte(contactID))
	h.Write([]byte{'\n'})
	h.Write([]byte(hex.EncodeToString(docHash[:])))
	h.Write([]byte{'\n'})
	h.Write([]byte(strings.Join(checkIDs, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
