// Package dedupe maintains a content-addressed fingerprint index over a
// rolling transaction history and answers duplicate lookups against it.
package dedupe

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rytflow/rytflow/internal/model"
)

// Index is the shared fingerprint index. Every record is bucketed under its
// exact fingerprint and both partial fingerprints, so a lookup is a direct
// bucket probe at any granularity. Buckets are append-only; all access is
// mutex-guarded.
type Index struct {
	records []model.TransactionRecord
	buckets map[string][]int
	mu      sync.RWMutex
}

// NewIndex creates an empty fingerprint index.
func NewIndex() *Index {
	return &Index{buckets: make(map[string][]int)}
}

// Add inserts a record into its fingerprint buckets. Insertion is explicit
// and separate from Check, so checking a batch against itself is always a
// deliberate caller choice.
func (idx *Index) Add(record model.TransactionRecord) {
	fps := model.GenerateFingerprints(record.Name, record.Amount, record.AccountNumber)
	if record.Fingerprint == "" {
		record.Fingerprint = fps.Exact
	}

	idx.mu.Lock()
	i := len(idx.records)
	idx.records = append(idx.records, record)
	idx.buckets[fps.Exact] = append(idx.buckets[fps.Exact], i)
	idx.buckets[fps.NameAmount] = append(idx.buckets[fps.NameAmount], i)
	idx.buckets[fps.AmountAccount] = append(idx.buckets[fps.AmountAccount], i)
	idx.mu.Unlock()

	slog.Debug("Added to transaction history",
		"fingerprint", record.Fingerprint,
		"id", record.ID)
}

// Check looks for a duplicate of the (name, amount, account) tuple. The
// second return value reports whether a check was performed at all: an
// empty name or amount short-circuits to "not checked", since an
// under-constrained fingerprint would produce false positives.
//
// An exact-triple match returns similarity 1.0. Failing that, the
// name+amount and amount+account partial fingerprints are tried and the
// first match found returns similarity 0.8; no order is defined between the
// two partial strategies, which is acceptable because both mean "needs
// review".
func (idx *Index) Check(name, amount, accountNumber, excludeID string) (*model.DuplicateMatch, bool) {
	if name == "" || amount == "" {
		return nil, false
	}

	fps := model.GenerateFingerprints(name, amount, accountNumber)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if match := idx.probe(fps.Exact, excludeID, 1.0); match != nil {
		return match, true
	}
	for _, fp := range []string{fps.NameAmount, fps.AmountAccount} {
		if match := idx.probe(fp, excludeID, 0.8); match != nil {
			return match, true
		}
	}

	return nil, true
}

// probe scans one bucket. Caller holds at least a read lock.
func (idx *Index) probe(fingerprint, excludeID string, similarity float64) *model.DuplicateMatch {
	for _, i := range idx.buckets[fingerprint] {
		record := idx.records[i]
		if excludeID != "" && record.ID == excludeID {
			continue
		}
		return &model.DuplicateMatch{
			Fingerprint:  fingerprint,
			MatchedRowID: record.ID,
			MatchedAt:    record.CreatedAt,
			MatchedData: model.MatchData{
				Name:          record.Name,
				Amount:        record.Amount,
				AccountNumber: record.AccountNumber,
			},
			Similarity: similarity,
		}
	}
	return nil
}

// Load bulk-inserts records, typically the persisted history corpus.
func (idx *Index) Load(records []model.TransactionRecord) {
	for _, r := range records {
		idx.Add(r)
	}
}

// Records returns a copy of every indexed record in insertion order.
func (idx *Index) Records() []model.TransactionRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]model.TransactionRecord, len(idx.records))
	copy(out, idx.records)
	return out
}

// Clear drops the whole index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	idx.records = nil
	idx.buckets = make(map[string][]int)
	idx.mu.Unlock()
}

// Stats reports the record and fingerprint bucket counts.
func (idx *Index) Stats() (records, fingerprints int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.records), len(idx.buckets)
}

// Seed installs a small demo history so duplicate detection has something to
// match against before any real batches have been committed.
func (idx *Index) Seed() {
	demo := []model.TransactionRecord{
		{ID: "hist-001", Name: "Tenaga Nasional", Amount: "5000.00", AccountNumber: "1234567890", CreatedAt: time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "hist-002", Name: "Ahmad Bin Abdullah", Amount: "3500.00", AccountNumber: "9876543210", CreatedAt: time.Date(2024, 10, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "hist-003", Name: "Syarikat ABC Sdn Bhd", Amount: "12500.00", AccountNumber: "5555666677", CreatedAt: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "hist-004", Name: "Telekom Malaysia", Amount: "850.00", AccountNumber: "1122334455", CreatedAt: time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tx := range demo {
		idx.Add(tx)
	}
}
