package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisflux/sshbreakin/internal/model"
)

func TestIsFailureLine(t *testing.T) {
	assert.True(t, IsFailureLine(model.LogLine{Service: "sshd", Message: "pam_unix(sshd:auth): authentication failure; rhost=1.2.3.4"}))
	assert.False(t, IsFailureLine(model.LogLine{Service: "sshd", Message: "session opened for user alice by (uid=0)"}))
	assert.False(t, IsFailureLine(model.LogLine{Service: "cron", Message: "authentication failure"}))
}

func TestIsSuccessLine(t *testing.T) {
	assert.True(t, IsSuccessLine(model.LogLine{Service: "sshd", Message: "session opened for user alice by (uid=0)"}))
	assert.False(t, IsSuccessLine(model.LogLine{Service: "sshd", Message: "authentication failure; rhost=1.2.3.4"}))
}

func TestClassify_PartitionsAndDropsNeither(t *testing.T) {
	in := make(chan model.Numbered[model.LogLine], 3)
	in <- model.Numbered[model.LogLine]{Seq: 1, Payload: model.LogLine{Service: "sshd", Message: "authentication failure; rhost=1.2.3.4"}}
	in <- model.Numbered[model.LogLine]{Seq: 2, Payload: model.LogLine{Service: "sshd", Message: "session opened for user bob by (uid=0)"}}
	in <- model.Numbered[model.LogLine]{Seq: 3, Payload: model.LogLine{Service: "cron", Message: "unrelated cron message"}}
	close(in)

	failures := make(chan model.Numbered[model.LogLine], 3)
	successes := make(chan model.Numbered[model.LogLine], 3)
	Classify(in, failures, successes)

	var gotFailures, gotSuccesses []model.Numbered[model.LogLine]
	for tup := range failures {
		gotFailures = append(gotFailures, tup)
	}
	for tup := range successes {
		gotSuccesses = append(gotSuccesses, tup)
	}

	require.Len(t, gotFailures, 1)
	assert.Equal(t, uint64(1), gotFailures[0].Seq)

	require.Len(t, gotSuccesses, 1)
	assert.Equal(t, uint64(2), gotSuccesses[0].Seq)
}

func TestParseSuccess(t *testing.T) {
	n := model.Numbered[model.LogLine]{
		Seq: 1,
		Payload: model.LogLine{
			Time:    time.Date(2011, 1, 2, 3, 4, 5, 0, time.UTC),
			Service: "sshd",
			Message: "session opened for user alice by (uid=0)",
		},
	}

	success, err := ParseSuccess(n)
	require.NoError(t, err)
	assert.Equal(t, "alice", success.User)
	assert.Equal(t, n.Payload.Time, success.Time)
}

func TestParseSuccess_Malformed(t *testing.T) {
	n := model.Numbered[model.LogLine]{Payload: model.LogLine{Message: "nothing relevant here"}}
	_, err := ParseSuccess(n)
	assert.Error(t, err)
}
