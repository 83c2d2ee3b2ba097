package pipeline

import (
	"strings"

	"github.com/aegisflux/sshbreakin/internal/model"
)

// IsFailureLine implements spec.md §4.4's failure predicate: service
// contains "sshd" and message contains "authentication failure".
func IsFailureLine(l model.LogLine) bool {
	return strings.Contains(l.Service, "sshd") && strings.Contains(l.Message, "authentication failure")
}

// IsSuccessLine implements spec.md §4.4's success predicate: service
// contains "sshd" and message contains "session opened for user".
func IsSuccessLine(l model.LogLine) bool {
	return strings.Contains(l.Service, "sshd") && strings.Contains(l.Message, "session opened for user")
}

// Classify reads the merged LogLine stream and fans it out onto two
// output channels, failures and successes, per the two predicates
// above. A line matching neither predicate is discarded. Both output
// channels are closed once in is exhausted.
func Classify(in <-chan model.Numbered[model.LogLine], failures chan<- model.Numbered[model.LogLine], successes chan<- model.Numbered[model.LogLine]) {
	defer close(failures)
	defer close(successes)

	for tup := range in {
		switch {
		case IsFailureLine(tup.Payload):
			failures <- tup
		case IsSuccessLine(tup.Payload):
			successes <- tup
		}
	}
}

// ParseSuccess turns a classified success LogLine directly into a
// Success tuple (spec.md §3: Success{time, user}). The username is the
// first whitespace-separated token after "for user " in "session opened
// for user X" style messages (PAM's actual format is "session opened
// for user alice by (uid=0)"; taking the first token of the remainder
// is robust to the trailing "by (uid=N)" clause).
func ParseSuccess(n model.Numbered[model.LogLine]) (model.Success, error) {
	const marker = "for user "
	idx := strings.Index(n.Payload.Message, marker)
	if idx < 0 {
		return model.Success{}, errNotASuccessMessage(n.Payload.Message)
	}
	rest := strings.TrimSpace(n.Payload.Message[idx+len(marker):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return model.Success{}, errNotASuccessMessage(n.Payload.Message)
	}
	return model.Success{Time: n.Payload.Time, User: fields[0]}, nil
}

type successParseError struct{ message string }

func (e successParseError) Error() string {
	return "success line: no username found in " + e.message
}

func errNotASuccessMessage(message string) error {
	return successParseError{message: message}
}
