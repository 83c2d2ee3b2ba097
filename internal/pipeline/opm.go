package pipeline

import "github.com/aegisflux/sshbreakin/internal/model"

// Merge re-establishes total order by Seq on a stream that was fanned
// out to P parallel parser workers. It is generic over the tuple
// payload (LogLine or Failure) since the identical algorithm runs
// twice in the pipeline — once after log-line parsing, once after
// failure parsing (spec.md §4.3, §9).
//
// Precondition: every Seq in {1, ..., K} for some K is accounted for
// exactly once, either as a tuple on in or as a seqno on dropped — the
// latter is how a fan-out stage reports a tuple it deliberately
// skipped (spec.md §7's per-line "skip" option) without leaving Merge
// waiting on it forever. in and dropped are otherwise independent and
// may close in either order; Merge treats either input as one more
// data point toward completing the next contiguous run.
func Merge[T any](in <-chan model.Numbered[T], dropped <-chan uint64, out chan<- model.Numbered[T]) {
	defer close(out)

	next := uint64(1)
	pending := make(map[uint64]model.Numbered[T])
	skipped := make(map[uint64]struct{})

	advance := func() {
		for {
			if buffered, ok := pending[next]; ok {
				out <- buffered
				delete(pending, next)
				next++
				continue
			}
			if _, ok := skipped[next]; ok {
				delete(skipped, next)
				next++
				continue
			}
			break
		}
	}

	for in != nil || dropped != nil {
		select {
		case tup, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			if tup.Seq == next {
				out <- tup
				next++
				advance()
			} else {
				pending[tup.Seq] = tup
			}
		case seq, ok := <-dropped:
			if !ok {
				dropped = nil
				continue
			}
			if seq == next {
				next++
				advance()
			} else {
				skipped[seq] = struct{}{}
			}
		}
	}

	// in and dropped together were asserted to cover every seqno in
	// {1, ..., K}; anything still buffered here means a seqno never
	// arrived on either channel, violating that contract.
	if len(pending) != 0 {
		panic("pipeline: OPM input closed with buffered gaps, violating the no-loss precondition")
	}
}
