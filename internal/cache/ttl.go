package cache

import "time"

// Default freshness windows per data class
const (
	// Reference lists change rarely (index membership, exchange directories)
	TTLReferenceList = 24 * time.Hour

	// Live quotes and current info
	TTLPriceSnapshot = 20 * time.Minute

	// Price history windows
	TTLPriceHistory = 20 * time.Minute
)

// TTLs holds the freshness windows used by cache consumers.
// Zero fields fall back to the defaults above.
type TTLs struct {
	Reference time.Duration
	Snapshot  time.Duration
	History   time.Duration
}

// DefaultTTLs returns the default freshness windows
func DefaultTTLs() TTLs {
	return TTLs{
		Reference: TTLReferenceList,
		Snapshot:  TTLPriceSnapshot,
		History:   TTLPriceHistory,
	}
}

// WithDefaults fills zero fields from DefaultTTLs
func (t TTLs) WithDefaults() TTLs {
	d := DefaultTTLs()
	if t.Reference <= 0 {
		t.Reference = d.Reference
	}
	if t.Snapshot <= 0 {
		t.Snapshot = d.Snapshot
	}
	if t.History <= 0 {
		t.History = d.History
	}
	return t
}
