// Package rainfall maintains the tipping-bucket rain ledger: a
// capacity-bounded, insertion-ordered record store with trailing-window
// aggregation over it.
package rainfall

// DefaultCapacity is the default maximum number of records retained in the
// ledger. At one tip per five-minute wake interval this covers a full day.
const DefaultCapacity = 288

// maxRecordAgeSeconds is the age past which records are dropped by Prune.
const maxRecordAgeSeconds = 24 * 60 * 60

// Window lengths used for the reported aggregates, in seconds.
const (
	WindowOneHour = 60 * 60
	WindowOneDay  = 24 * 60 * 60
)

// Record is a single tip event. Timestamps come from whichever clock mode
// was active when the tip was recorded; records written in fallback mode
// during different activations do not share a timeline until a wall-clock
// sync succeeds, so ordering by insertion is authoritative, not ordering
// by timestamp.
type Record struct {
	Timestamp uint32  `msgpack:"ts"`
	AmountMm  float64 `msgpack:"mm"`
}

// Ledger holds tip records in insertion order, bounded by a fixed capacity.
// The cumulative tip counter is tracked separately in the persistent state
// and is not derived from the ledger contents.
type Ledger struct {
	capacity int
	records  []Record
}

// NewLedger creates an empty ledger. A non-positive capacity selects
// DefaultCapacity.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		capacity: capacity,
		records:  make([]Record, 0, capacity),
	}
}

// Restore replaces the ledger contents with records carried over from the
// previous activation. If more records than the capacity are supplied, only
// the newest ones are kept.
func (l *Ledger) Restore(records []Record) {
	if len(records) > l.capacity {
		records = records[len(records)-l.capacity:]
	}
	l.records = append(l.records[:0], records...)
}

// RecordTip appends a tip record timestamped at now. Non-positive amounts
// are never stored. When the ledger is at capacity the single oldest record
// is dropped first, so the count never exceeds the capacity.
func (l *Ledger) RecordTip(amountMm float64, now uint32) {
	if amountMm <= 0 {
		return
	}
	if len(l.records) >= l.capacity {
		n := copy(l.records, l.records[1:])
		l.records = l.records[:n]
	}
	l.records = append(l.records, Record{Timestamp: now, AmountMm: amountMm})
}

// Prune drops every record older than 24 hours relative to now, preserving
// the relative order of the survivors. It runs every activation, whether or
// not a tip occurred, and is idempotent for a fixed now.
func (l *Ledger) Prune(now uint32) {
	kept := l.records[:0]
	for _, r := range l.records {
		if age(now, r.Timestamp) <= maxRecordAgeSeconds {
			kept = append(kept, r)
		}
	}
	l.records = kept
}

// WindowSum returns the sum of amounts over records no older than
// windowSeconds relative to now.
func (l *Ledger) WindowSum(now uint32, windowSeconds uint32) float64 {
	var sum float64
	for _, r := range l.records {
		if age(now, r.Timestamp) <= int64(windowSeconds) {
			sum += r.AmountMm
		}
	}
	return sum
}

// Records returns the ledger contents in insertion order. The returned slice
// is the ledger's backing storage; callers persist it, they do not mutate it.
func (l *Ledger) Records() []Record {
	return l.records
}

// Len returns the number of records currently held.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Capacity returns the maximum number of records the ledger retains.
func (l *Ledger) Capacity() int {
	return l.capacity
}

// age computes now - ts in seconds. A timestamp "ahead" of now can occur
// after a fallback-to-synchronized clock transition; such records are
// treated as current rather than wrapped around.
func age(now, ts uint32) int64 {
	if ts >= now {
		return 0
	}
	return int64(now) - int64(ts)
}
