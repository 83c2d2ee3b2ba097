package pipeline

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisflux/sshbreakin/internal/model"
)

// TestMerge_OrderingAndCompleteness is spec.md §8 properties 1 and 2:
// for every permutation of {1..K}, Merge's output is exactly 1..K in
// order and every input tuple is accounted for.
func TestMerge_OrderingAndCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, k := range []int{0, 1, 2, 5, 50, 200} {
		for trial := 0; trial < 5; trial++ {
			t.Run(fmt.Sprintf("k=%d/trial=%d", k, trial), func(t *testing.T) {
				perm := rng.Perm(k)

				in := make(chan model.Numbered[int], k)
				for _, idx := range perm {
					seq := uint64(idx + 1)
					in <- model.Numbered[int]{Seq: seq, Payload: int(seq)}
				}
				close(in)

				dropped := make(chan uint64)
				close(dropped)

				out := make(chan model.Numbered[int], k)
				Merge(in, dropped, out)

				var got []model.Numbered[int]
				for tup := range out {
					got = append(got, tup)
				}

				require.Len(t, got, k)
				for i, tup := range got {
					assert.Equal(t, uint64(i+1), tup.Seq)
					assert.Equal(t, int(tup.Seq), tup.Payload)
				}
			})
		}
	}
}

func TestMerge_InterleavedParallelChannels(t *testing.T) {
	in := make(chan model.Numbered[string])
	dropped := make(chan uint64)
	out := make(chan model.Numbered[string])

	go func() {
		defer close(in)
		// Simulate two parser workers racing to send, out of order.
		order := []uint64{3, 1, 4, 2, 5}
		for _, seq := range order {
			in <- model.Numbered[string]{Seq: seq, Payload: fmt.Sprintf("tup-%d", seq)}
		}
	}()
	close(dropped)

	go Merge(in, dropped, out)

	var got []uint64
	for tup := range out {
		got = append(got, tup.Seq)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, got)
}

// TestMerge_SkipsDroppedSeqnos is the regression case for the wiring
// defect between FanOutParse's onError path and Merge's contiguity
// assertion: a seqno reported on dropped must not make Merge wait on
// it forever, and must not appear in the output.
func TestMerge_SkipsDroppedSeqnos(t *testing.T) {
	in := make(chan model.Numbered[string], 4)
	in <- model.Numbered[string]{Seq: 1, Payload: "a"}
	in <- model.Numbered[string]{Seq: 3, Payload: "c"}
	in <- model.Numbered[string]{Seq: 4, Payload: "d"}
	in <- model.Numbered[string]{Seq: 6, Payload: "f"}
	close(in)

	dropped := make(chan uint64, 2)
	dropped <- 2
	dropped <- 5
	close(dropped)

	out := make(chan model.Numbered[string], 4)
	Merge(in, dropped, out)

	var got []model.Numbered[string]
	for tup := range out {
		got = append(got, tup)
	}

	require.Len(t, got, 4)
	assert.Equal(t, []uint64{1, 3, 4, 6}, []uint64{got[0].Seq, got[1].Seq, got[2].Seq, got[3].Seq})
}

// TestMerge_PanicsOnGenuineGap keeps the contiguity assertion honest:
// a seqno that is neither produced on in nor reported on dropped is
// still a precondition violation, not a tolerated skip.
func TestMerge_PanicsOnGenuineGap(t *testing.T) {
	in := make(chan model.Numbered[string], 2)
	in <- model.Numbered[string]{Seq: 1, Payload: "a"}
	in <- model.Numbered[string]{Seq: 3, Payload: "c"}
	close(in)

	dropped := make(chan uint64)
	close(dropped)

	out := make(chan model.Numbered[string], 2)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected Merge to panic on an unreported gap")
		}
	}()
	Merge(in, dropped, out)
}
