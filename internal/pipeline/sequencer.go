package pipeline

import "github.com/aegisflux/sshbreakin/internal/model"

// Sequence reads lines from in and assigns each a 1-based, contiguous
// sequence number, writing a Numbered[string] for every line, then
// closes out (the idiomatic substitute for an explicit end-of-stream
// marker: channel close). total receives the final count exactly once,
// after the last Numbered record and before out is closed. If in is
// never closed, Sequence never closes out or total, and downstream
// stages stay quiescent — this is the expected behavior for an
// interactive run killed mid-stream (spec.md §4.1).
func Sequence(in <-chan string, out chan<- model.Numbered[string], total chan<- uint64) {
	defer close(out)
	defer close(total)

	var seq uint64
	for line := range in {
		seq++
		out <- model.Numbered[string]{Seq: seq, Payload: line}
	}
	total <- seq
}

// Renumber re-applies the Sequence algorithm to an already-Numbered
// stream, discarding the old Seq and assigning a fresh 1..F
// contiguous numbering. This is spec.md §4.5's failure re-sequencer:
// "behaves exactly like §4.1 but over the failure subsequence."
func Renumber[T any](in <-chan model.Numbered[T], out chan<- model.Numbered[T]) {
	defer close(out)

	var seq uint64
	for tup := range in {
		seq++
		out <- model.Numbered[T]{Seq: seq, Payload: tup.Payload}
	}
}
