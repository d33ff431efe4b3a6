package elmgauge

import "time"

// errorFifoCap bounds the set of live errors. Overflow is a soft drop:
// under sane error rates the fifo never fills, and losing the newest
// entry beats evicting something more severe.
const errorFifoCap = 16

type errorEntry struct {
	fault    TaggedFault
	received time.Time
}

func (e *errorEntry) active(now time.Time) bool {
	lifetime, expires := e.fault.Severity.Lifetime()
	if !expires {
		return true
	}
	return now.Sub(e.received) < lifetime
}

// ErrorFifo holds the errors currently worth showing. No two entries
// describe the same condition: re-occurrences refresh the existing entry
// instead of duplicating it. Entries expire after their severity-derived
// lifetime, except complete failures which stay until contradicted.
//
// ErrorFifo is not safe for concurrent use; the router owns it.
type ErrorFifo struct {
	entries []errorEntry

	// now is swappable for tests.
	now func() time.Time
}

func NewErrorFifo() *ErrorFifo {
	return &ErrorFifo{
		entries: make([]errorEntry, 0, errorFifoCap),
		now:     time.Now,
	}
}

// Add inserts a fault, or refreshes the timestamp of an entry already
// describing the same condition. When the fifo is full the fault is
// dropped.
func (f *ErrorFifo) Add(fault TaggedFault) {
	for i := range f.entries {
		if f.entries[i].fault.SameCondition(fault) {
			f.entries[i].received = f.now()
			return
		}
	}
	if len(f.entries) >= errorFifoCap {
		return
	}
	f.entries = append(f.entries, errorEntry{fault: fault, received: f.now()})
}

// ClearInactive drops every entry that has outlived its severity's
// retention time. Complete failures are never dropped here.
func (f *ErrorFifo) ClearInactive() {
	now := f.now()
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.active(now) {
			kept = append(kept, e)
		}
	}
	f.entries = kept
}

// ClearSticky removes complete-failure entries of the given condition
// class. Called when a success event contradicts the failure, e.g. a
// valid reading arriving after a sticky communication failure.
func (f *ErrorFifo) ClearSticky(class ConditionClass) {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.fault.Severity == CompleteFailure && e.fault.Fault.Kind.Class() == class {
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
}

// MostRelevant returns the single error worth displaying: highest
// severity wins, and among equals the most recently seen.
func (f *ErrorFifo) MostRelevant() (TaggedFault, bool) {
	if len(f.entries) == 0 {
		return TaggedFault{}, false
	}
	best := 0
	for i := 1; i < len(f.entries); i++ {
		e, b := &f.entries[i], &f.entries[best]
		if e.fault.Severity > b.fault.Severity ||
			(e.fault.Severity == b.fault.Severity && e.received.After(b.received)) {
			best = i
		}
	}
	return f.entries[best].fault, true
}

func (f *ErrorFifo) Len() int {
	return len(f.entries)
}
