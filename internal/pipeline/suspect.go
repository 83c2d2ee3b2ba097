package pipeline

import (
	"github.com/aegisflux/sshbreakin/internal/model"
)

// SuspectFinder implements the partitioned tumbling count window of
// spec.md §4.6: one fixed-size buffer per rhost, grounded on the
// teacher's per-host map-of-buffers pattern in
// internal/rules/window.go (WindowBuffer.hosts), but count-triggered
// rather than time-GC'd — spec.md §9 explicitly separates the two
// concerns ("No time-based expiry within the window — only
// count-based"). SuspectFinder is operator-local state: callers must
// not share one instance across goroutines (§5 concurrency model:
// "each operator is single-threaded internally over its own state").
type SuspectFinder struct {
	attempts uint32
	seconds  float64
	windows  map[string][]model.Failure
}

// NewSuspectFinder constructs a SuspectFinder with the given trigger
// count N and time bound T seconds.
func NewSuspectFinder(attempts uint32, seconds float64) *SuspectFinder {
	return &SuspectFinder{
		attempts: attempts,
		seconds:  seconds,
		windows:  make(map[string][]model.Failure),
	}
}

// Process appends f to its rhost's window. On the Nth failure for that
// partition the window triggers and resets to empty (tumbling, not
// sliding): if max(time)-min(time) < T across the N buffered failures,
// Process returns the Suspect and true; otherwise it returns
// (Suspect{}, false) with the window still reset. Partitions for
// other rhosts are untouched (spec.md §8 property 5).
func (sf *SuspectFinder) Process(f model.Failure) (model.Suspect, bool) {
	window := append(sf.windows[f.RHost], f)
	if uint32(len(window)) < sf.attempts {
		sf.windows[f.RHost] = window
		return model.Suspect{}, false
	}

	// Nth failure: trigger and reset.
	delete(sf.windows, f.RHost)

	minTime := window[0].Time
	maxTime := window[0].Time
	for _, w := range window[1:] {
		if w.Time.Before(minTime) {
			minTime = w.Time
		}
		if w.Time.After(maxTime) {
			maxTime = w.Time
		}
	}
	diff := maxTime.Sub(minTime).Seconds()
	if diff >= sf.seconds {
		return model.Suspect{}, false
	}

	return model.Suspect{
		Diff:     diff,
		Last:     maxTime,
		Attempts: sf.attempts,
		RHost:    f.RHost,
		User:     window[len(window)-1].User, // last user in the window, i.e. most recent insertion
	}, true
}

// RunSuspectFinder drives a SuspectFinder off an ordered Failure stream
// and emits every triggered Suspect to out, closing out once in is
// exhausted.
func RunSuspectFinder(in <-chan model.Numbered[model.Failure], out chan<- model.Suspect, attempts uint32, seconds float64) {
	defer close(out)
	sf := NewSuspectFinder(attempts, seconds)
	for tup := range in {
		if suspect, ok := sf.Process(tup.Payload); ok {
			out <- suspect
		}
	}
}
