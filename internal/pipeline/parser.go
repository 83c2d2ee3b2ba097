package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aegisflux/sshbreakin/internal/model"
)

// DefaultLogYear is the year stamped onto every parsed timestamp, since
// syslog lines carry no year field. spec.md §9 flags this as an
// acknowledged sample-data artifact (the source hard-codes 2011); this
// implementation keeps the hard-coded default but, per the same
// design note's suggestion, makes it a Config field so a production
// deployment can derive it from file metadata instead of a recompile.
const DefaultLogYear = 2011

// ParseLogLine tokenizes one syslog line into a LogLine. Token
// positions are fixed per spec.md §6: [0]=month [1]=day
// [2]=hh:mm:ss [3]=hostname [4]=service [5..]=message. A line with
// fewer than 6 whitespace-separated tokens is malformed and returns an
// error rather than guessing (spec.md §7: tokenisation is infallible
// positional indexing — a malformed tuple must not be silently
// misattributed).
func ParseLogLine(year int, n model.Numbered[string]) (model.LogLine, error) {
	tokens := strings.Fields(n.Payload)
	if len(tokens) < 6 {
		return model.LogLine{}, fmt.Errorf("log line %d: expected at least 6 tokens, got %d", n.Seq, len(tokens))
	}

	ts, err := parseTimestamp(year, tokens[0], tokens[1], tokens[2])
	if err != nil {
		return model.LogLine{}, fmt.Errorf("log line %d: %w", n.Seq, err)
	}

	return model.LogLine{
		Seq:      n.Seq,
		Time:     ts,
		Hostname: tokens[3],
		Service:  tokens[4],
		Message:  strings.Join(tokens[5:], " "),
	}, nil
}

func parseTimestamp(year int, month, day, timeOfDay string) (time.Time, error) {
	layout := "2006 Jan 2 15:04:05"
	input := fmt.Sprintf("%d %s %s %s", year, month, day, timeOfDay)
	ts, err := time.Parse(layout, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", input, err)
	}
	return ts, nil
}

const failureMarker = "authentication failure;"

// ParseFailureMessage extracts uid/euid/tty/rhost/user from an sshd PAM
// failure message, e.g.
// "pam_unix(sshd:auth): authentication failure; logname= uid=0 euid=0
//  tty=ssh ruser= rhost=10.0.0.1  user=alice". The `user=` token is
// absent in some messages (su-style failures with no target account);
// per spec.md §4.5 this yields the empty-string sentinel rather than an
// error.
func ParseFailureMessage(n model.Numbered[model.LogLine]) (model.Failure, error) {
	line := n.Payload
	idx := strings.Index(line.Message, failureMarker)
	if idx < 0 {
		return model.Failure{}, fmt.Errorf("failure line %d: %q does not contain %q", n.Seq, line.Message, failureMarker)
	}

	fields := kvFields(line.Message[idx+len(failureMarker):])

	return model.Failure{
		Seq:   n.Seq,
		Time:  line.Time,
		UID:   fields["uid"],
		EUID:  fields["euid"],
		TTY:   fields["tty"],
		RHost: fields["rhost"],
		User:  fields["user"],
	}, nil
}

// kvFields splits a whitespace-separated run of "key=value" tokens
// (value possibly empty, as in "logname=") into a map.
func kvFields(s string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(s) {
		key, value, found := strings.Cut(tok, "=")
		if !found {
			continue
		}
		out[key] = value
	}
	return out
}

// FanOutParse runs `parallelism` worker goroutines draining in and
// calling parse on each tuple, writing successes to out. This is the
// Go-idiomatic rendering of spec.md §4.2's parser fan-out: workers
// contend on one shared input channel (work-stealing) rather than the
// source's explicit round-robin routing, but the contract is
// identical — each output tuple still carries its input Seq, and
// ordering across workers is unspecified. The last worker to finish
// closes both out and dropped.
//
// A parse error is non-fatal for the pipeline but fatal for that
// tuple (spec.md §7's "skip" option): it is reported to onError, and
// its Seq is reported on dropped so that a downstream Merge sees every
// input Seq accounted for and does not stall waiting on a tuple that
// will never arrive. dropped may be nil if the caller does not feed
// out into a Merge (e.g. no ordering guarantee is needed downstream).
func FanOutParse[In, Out any](in <-chan model.Numbered[In], out chan<- model.Numbered[Out], dropped chan<- uint64, parallelism int, parse func(model.Numbered[In]) (Out, error), onError func(model.Numbered[In], error)) {
	var wg sync.WaitGroup
	wg.Add(parallelism)

	for i := 0; i < parallelism; i++ {
		go func() {
			defer wg.Done()
			for tup := range in {
				payload, err := parse(tup)
				if err != nil {
					if onError != nil {
						onError(tup, err)
					}
					if dropped != nil {
						dropped <- tup.Seq
					}
					continue
				}
				out <- model.Numbered[Out]{Seq: tup.Seq, Payload: payload}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
		if dropped != nil {
			close(dropped)
		}
	}()
}
