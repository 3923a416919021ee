// Package perf records wall-clock time and heap deltas for named
// operations. Completed records are append-only; aggregates are
// computed on demand from the full list rather than maintained as
// running statistics.
package perf

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// MemorySnapshot captures heap allocation around one operation.
type MemorySnapshot struct {
	Before uint64
	After  uint64
	Delta  int64
}

// Record is one completed measurement. Records are never mutated after
// End returns them.
type Record struct {
	Operation string
	Subject   string
	Duration  time.Duration
	Memory    MemorySnapshot
}

// Metrics aggregates all completed records at the time of the call.
type Metrics struct {
	TotalOperations     int
	AverageDuration     time.Duration
	OperationsBySubject map[string]int
	SlowestOperations   []Record
}

// slowestCount bounds the SlowestOperations aggregate.
const slowestCount = 5

type pending struct {
	subject string
	started time.Time
	heap    uint64
}

// Tracker measures operations between Start and End calls. It is safe
// for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	active    map[string]pending
	completed []Record
	now       func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[string]pending),
		now:    time.Now,
	}
}

// Start begins timing the named operation. Starting a name that is
// already active restarts its measurement.
func (t *Tracker) Start(operation, subject string) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[operation] = pending{
		subject: subject,
		started: t.now(),
		heap:    ms.HeapAlloc,
	}
}

// End finishes timing the named operation and appends the completed
// record. It fails if the name was never started.
func (t *Tracker) End(operation string) (Record, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.active[operation]
	if !ok {
		return Record{}, fmt.Errorf("no tracking started for operation %q", operation)
	}
	delete(t.active, operation)

	rec := Record{
		Operation: operation,
		Subject:   p.subject,
		Duration:  t.now().Sub(p.started),
		Memory: MemorySnapshot{
			Before: p.heap,
			After:  ms.HeapAlloc,
			Delta:  int64(ms.HeapAlloc) - int64(p.heap),
		},
	}
	t.completed = append(t.completed, rec)
	return rec, nil
}

// Track measures fn as a single operation.
func (t *Tracker) Track(operation, subject string, fn func() error) error {
	t.Start(operation, subject)
	err := fn()
	if _, endErr := t.End(operation); err == nil {
		err = endErr
	}
	return err
}

// Records returns a copy of the completed records in completion order.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.completed))
	copy(out, t.completed)
	return out
}

// Metrics computes the aggregate view of all completed records.
func (t *Tracker) Metrics() Metrics {
	records := t.Records()

	m := Metrics{
		TotalOperations:     len(records),
		OperationsBySubject: make(map[string]int),
		SlowestOperations:   []Record{},
	}
	if len(records) == 0 {
		return m
	}

	var total time.Duration
	for _, rec := range records {
		total += rec.Duration
		m.OperationsBySubject[rec.Subject]++
	}
	m.AverageDuration = total / time.Duration(len(records))

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Duration > sorted[j].Duration
	})
	if len(sorted) > slowestCount {
		sorted = sorted[:slowestCount]
	}
	m.SlowestOperations = sorted
	return m
}

// Reset discards all completed records and active measurements.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = make(map[string]pending)
	t.completed = nil
}
