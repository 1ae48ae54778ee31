package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// TransactionRecord is one entry in the rolling payment history used for
// duplicate detection.
type TransactionRecord struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Fingerprint   string    `json:"fingerprint"`
	Name          string    `json:"name"`
	Amount        string    `json:"amount"`
	AccountNumber string    `json:"account_number"`
}

// Fingerprints holds the three granularities of a transaction fingerprint.
// The exact triple is the primary index key; the two partial fingerprints
// support "same payee+amount" and "same amount+account" matches.
type Fingerprints struct {
	Exact         string
	NameAmount    string
	AmountAccount string
}

// DuplicateMatch is the result of a successful duplicate lookup.
type DuplicateMatch struct {
	MatchedAt    time.Time
	Fingerprint  string
	MatchedRowID string
	MatchedData  MatchData
	Similarity   float64
}

// GenerateFingerprints computes the keyed digests for a (name, amount,
// account) tuple. Each field is lowercased and stripped to alphanumerics
// before hashing so formatting differences never defeat a match.
func GenerateFingerprints(name, amount, accountNumber string) Fingerprints {
	n := normalizeFingerprintField(name)
	a := normalizeFingerprintField(amount)
	acc := normalizeFingerprintField(accountNumber)

	return Fingerprints{
		Exact:         fingerprintDigest(n + "|" + a + "|" + acc),
		NameAmount:    fingerprintDigest(n + "|" + a),
		AmountAccount: fingerprintDigest(a + "|" + acc),
	}
}

// GenerateFingerprint returns only the exact-triple fingerprint.
func GenerateFingerprint(name, amount, accountNumber string) string {
	return GenerateFingerprints(name, amount, accountNumber).Exact
}

func normalizeFingerprintField(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fingerprintDigest hashes the combined tuple and keeps the first 16 hex
// characters. Collision avoidance at batch volumes is what matters here, not
// cryptographic strength.
func fingerprintDigest(combined string) string {
	sum := sha256.Sum256([]byte(combined))
	return fmt.Sprintf("%x", sum)[:16]
}
