package rainfall

import (
	"math"
	"testing"
)

func TestRecordTipRejectsNonPositiveAmounts(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected int
	}{
		{name: "positive amount stored", amount: 0.25, expected: 1},
		{name: "zero amount dropped", amount: 0, expected: 0},
		{name: "negative amount dropped", amount: -0.25, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(10)
			l.RecordTip(tt.amount, 1000)
			if l.Len() != tt.expected {
				t.Errorf("expected %d records, got %d", tt.expected, l.Len())
			}
			for _, r := range l.Records() {
				if r.AmountMm <= 0 {
					t.Errorf("stored record with non-positive amount %.2f", r.AmountMm)
				}
			}
		})
	}
}

func TestRecordTipEvictsOldestAtCapacity(t *testing.T) {
	const capacity = 288

	l := NewLedger(capacity)
	for i := 0; i < capacity; i++ {
		l.RecordTip(0.25, uint32(i))
	}
	if l.Len() != capacity {
		t.Fatalf("expected %d records after fill, got %d", capacity, l.Len())
	}

	// One more tip: count stays at capacity, the single oldest record is
	// dropped, and the new record is present at the tail.
	l.RecordTip(0.25, uint32(capacity))
	if l.Len() != capacity {
		t.Fatalf("expected %d records after eviction, got %d", capacity, l.Len())
	}

	recs := l.Records()
	if recs[0].Timestamp != 1 {
		t.Errorf("expected oldest surviving timestamp 1, got %d", recs[0].Timestamp)
	}
	if recs[len(recs)-1].Timestamp != capacity {
		t.Errorf("expected newest timestamp %d, got %d", capacity, recs[len(recs)-1].Timestamp)
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Timestamp != recs[i-1].Timestamp+1 {
			t.Fatalf("eviction disturbed record order at index %d", i)
		}
	}
}

func TestPruneDropsRecordsOlderThan24Hours(t *testing.T) {
	const now = uint32(30 * 60 * 60) // 30h after the epoch of this timeline

	tests := []struct {
		name      string
		records   []Record
		survivors []uint32
	}{
		{
			name: "25h-old record dropped, 1h-old kept",
			records: []Record{
				{Timestamp: now - 25*60*60, AmountMm: 0.25},
				{Timestamp: now - 1*60*60, AmountMm: 0.25},
			},
			survivors: []uint32{now - 1*60*60},
		},
		{
			name: "exactly 24h-old record kept",
			records: []Record{
				{Timestamp: now - 24*60*60, AmountMm: 0.25},
			},
			survivors: []uint32{now - 24*60*60},
		},
		{
			name:      "empty ledger",
			records:   nil,
			survivors: nil,
		},
		{
			name: "order preserved among survivors",
			records: []Record{
				{Timestamp: now - 26*60*60, AmountMm: 0.5},
				{Timestamp: now - 3*60*60, AmountMm: 0.25},
				{Timestamp: now - 2*60*60, AmountMm: 0.25},
			},
			survivors: []uint32{now - 3*60*60, now - 2*60*60},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(10)
			l.Restore(tt.records)
			l.Prune(now)

			recs := l.Records()
			if len(recs) != len(tt.survivors) {
				t.Fatalf("expected %d survivors, got %d", len(tt.survivors), len(recs))
			}
			for i, ts := range tt.survivors {
				if recs[i].Timestamp != ts {
					t.Errorf("survivor %d: expected timestamp %d, got %d", i, ts, recs[i].Timestamp)
				}
			}
		})
	}
}

func TestPruneIsIdempotent(t *testing.T) {
	const now = uint32(48 * 60 * 60)

	l := NewLedger(10)
	l.Restore([]Record{
		{Timestamp: now - 30*60*60, AmountMm: 0.25},
		{Timestamp: now - 60, AmountMm: 0.25},
		{Timestamp: now - 30, AmountMm: 0.5},
	})

	l.Prune(now)
	first := append([]Record(nil), l.Records()...)

	l.Prune(now)
	second := l.Records()

	if len(first) != len(second) {
		t.Fatalf("second prune changed record count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("second prune changed record %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestWindowSum(t *testing.T) {
	const now = uint32(100000)

	records := []Record{
		{Timestamp: now - 23*60*60, AmountMm: 1.0},
		{Timestamp: now - 2*60*60, AmountMm: 0.5},
		{Timestamp: now - 30*60, AmountMm: 0.25},
		{Timestamp: now - 60, AmountMm: 0.25},
	}

	tests := []struct {
		name     string
		window   uint32
		expected float64
	}{
		{name: "one hour window", window: WindowOneHour, expected: 0.5},
		{name: "24 hour window covers everything", window: WindowOneDay, expected: 2.0},
		{name: "tiny window", window: 10, expected: 0},
		{name: "window at exact record age", window: 60, expected: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(10)
			l.Restore(records)
			got := l.WindowSum(now, tt.window)
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("expected %.3f, got %.3f", tt.expected, got)
			}
		})
	}
}

func TestWindowSumCoveringOldestEqualsTotal(t *testing.T) {
	const now = uint32(90000)

	l := NewLedger(10)
	l.Restore([]Record{
		{Timestamp: now - 20*60*60, AmountMm: 0.25},
		{Timestamp: now - 5*60*60, AmountMm: 0.25},
		{Timestamp: now - 10, AmountMm: 0.5},
	})
	l.Prune(now)

	var total float64
	for _, r := range l.Records() {
		total += r.AmountMm
	}

	got := l.WindowSum(now, WindowOneDay)
	if math.Abs(got-total) > 0.001 {
		t.Errorf("window covering oldest record: expected sum %.3f, got %.3f", total, got)
	}
}

func TestWindowSumTimestampAheadOfNow(t *testing.T) {
	// After a fallback-to-synchronized transition a stored timestamp can sit
	// ahead of the current clock. Such records count as current.
	const now = uint32(1000)

	l := NewLedger(10)
	l.Restore([]Record{{Timestamp: now + 5000, AmountMm: 0.25}})

	if got := l.WindowSum(now, WindowOneHour); math.Abs(got-0.25) > 0.001 {
		t.Errorf("expected ahead-of-now record counted, got sum %.3f", got)
	}
	l.Prune(now)
	if l.Len() != 1 {
		t.Errorf("prune dropped ahead-of-now record")
	}
}

func TestRestoreTruncatesToCapacity(t *testing.T) {
	l := NewLedger(3)
	l.Restore([]Record{
		{Timestamp: 1, AmountMm: 0.25},
		{Timestamp: 2, AmountMm: 0.25},
		{Timestamp: 3, AmountMm: 0.25},
		{Timestamp: 4, AmountMm: 0.25},
	})
	if l.Len() != 3 {
		t.Fatalf("expected 3 records after restore, got %d", l.Len())
	}
	if l.Records()[0].Timestamp != 2 {
		t.Errorf("expected oldest records dropped on restore, first timestamp is %d", l.Records()[0].Timestamp)
	}
}
