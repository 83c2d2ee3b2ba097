// Package model holds the tuple types that flow through the break-in
// detection pipeline.
package model

import "time"

// Numbered wraps a payload with the sequence number assigned by a
// Sequencer or re-sequencer. Channel close is the end-of-stream marker;
// Numbered itself carries no punctuation.
type Numbered[T any] struct {
	Seq     uint64
	Payload T
}

// Total describes the final count produced by a Sequencer. Sequence
// itself reports that count as a bare uint64 on its total channel; no
// pipeline stage emits a Total value.
type Total struct {
	Count uint64
}

// LogLine is a single parsed syslog record.
type LogLine struct {
	Seq      uint64
	Time     time.Time
	Hostname string
	Service  string
	Message  string
}

// Failure is a parsed "authentication failure" sshd message. Seq is
// assigned by the failure re-sequencer (§4.5), not the original log
// line's seqno.
type Failure struct {
	Seq   uint64
	Time  time.Time
	UID   string
	EUID  string
	TTY   string
	RHost string
	User  string
}

// Success is a parsed "session opened for user" sshd message.
type Success struct {
	Time time.Time
	User string
}

// Suspect is emitted by the SuspectFinder when N failures for a host
// land within T seconds of each other.
type Suspect struct {
	Diff     float64
	Last     time.Time
	Attempts uint32
	RHost    string
	User     string
}

// Breakin is the terminal output of the Correlator: a successful login
// that followed (or preceded) a suspect burst for the same user within
// the matching window.
type Breakin struct {
	Time  time.Time
	RHost string
	User  string
}
