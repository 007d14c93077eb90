package question

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeText trims, lower-cases and collapses whitespace runs.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// CanonicalText trims and collapses whitespace runs. Case is kept: "Let A"
// and "let a" can be different questions.
func CanonicalText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ContentHash returns the hex SHA-256 of the canonical text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(CanonicalText(text)))
	return hex.EncodeToString(sum[:])
}

// VectorID is the retrieval index id for a content hash: "Q_" plus the
// first 16 hex digits.
func VectorID(hash string) string {
	if len(hash) > 16 {
		hash = hash[:16]
	}
	return "Q_" + hash
}
