package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aegisflux/sshbreakin/internal/model"
)

func secs(n int) time.Time {
	return time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Second)
}

func suspectAt(rhost, user string, last int, diff float64) model.Suspect {
	return model.Suspect{Diff: diff, Last: secs(last), Attempts: 5, RHost: rhost, User: user}
}

func successAt(user string, t int) model.Success {
	return model.Success{Time: secs(t), User: user}
}

// TestCorrelator_S1_BasicBreakin is spec.md §8's S1: a suspect followed
// by a success inside the 60s window matches.
func TestCorrelator_S1_BasicBreakin(t *testing.T) {
	c := NewCorrelator(DefaultMatchWindowSeconds, DefaultUserCap)
	bs := c.OnSuspect(suspectAt("10.0.0.1", "alice", 140, 40))
	assert.Empty(t, bs)

	bs = c.OnSuccess(successAt("alice", 150))
	assert.Equal(t, []model.Breakin{{Time: secs(150), RHost: "10.0.0.1", User: "alice"}}, bs)
}

// TestCorrelator_S2_WindowTooWide is S2: no Suspect is even produced by
// SuspectFinder when the burst spans more than T, so the Correlator
// never sees one; exercised at the Correlator level by simply never
// feeding it a Suspect before bob's success arrives.
func TestCorrelator_S2_WindowTooWide(t *testing.T) {
	c := NewCorrelator(DefaultMatchWindowSeconds, DefaultUserCap)
	bs := c.OnSuccess(successAt("bob", 170))
	assert.Empty(t, bs)
}

// TestCorrelator_S3_LateSuccessIsStalePurged is S3: a success arriving
// 100s after the suspect's last is stale and purged; a second, earlier
// success that arrives later in stream order still does not match
// because the suspect was already purged.
func TestCorrelator_S3_LateSuccessIsStalePurged(t *testing.T) {
	c := NewCorrelator(DefaultMatchWindowSeconds, DefaultUserCap)
	bs := c.OnSuspect(suspectAt("10.0.0.2", "eve", 100, 10))
	assert.Empty(t, bs)

	bs = c.OnSuccess(successAt("eve", 200))
	assert.Empty(t, bs)

	bs = c.OnSuccess(successAt("eve", 120))
	assert.Empty(t, bs)
}

// TestCorrelator_S4_SuccessBeforeSuspect is S4: the success arrives
// first and is stored; the suspect arriving afterward still matches it
// against the diff = suspect.Last - success.Time convention.
func TestCorrelator_S4_SuccessBeforeSuspect(t *testing.T) {
	c := NewCorrelator(DefaultMatchWindowSeconds, DefaultUserCap)
	bs := c.OnSuccess(successAt("carol", 50))
	assert.Empty(t, bs)

	bs = c.OnSuspect(suspectAt("10.0.0.3", "carol", 80, 20))
	assert.Equal(t, []model.Breakin{{Time: secs(50), RHost: "10.0.0.3", User: "carol"}}, bs)
}

// TestCorrelator_S5_MultipleHostsSameUser is S5: two suspect bursts for
// the same user at different hosts; the success matches the more
// recent one and stale-purges the older.
func TestCorrelator_S5_MultipleHostsSameUser(t *testing.T) {
	c := NewCorrelator(DefaultMatchWindowSeconds, DefaultUserCap)
	assert.Empty(t, c.OnSuspect(suspectAt("H1", "dave", 100, 10)))
	assert.Empty(t, c.OnSuspect(suspectAt("H2", "dave", 200, 10)))

	bs := c.OnSuccess(successAt("dave", 210))
	assert.Equal(t, []model.Breakin{{Time: secs(210), RHost: "H2", User: "dave"}}, bs)
}

// TestCorrelator_S6_EmptyUserNeverMatches is S6: a Suspect with the
// empty-user sentinel is never inserted, and an empty-user Success
// never finds anything to match.
func TestCorrelator_S6_EmptyUserNeverMatches(t *testing.T) {
	c := NewCorrelator(DefaultMatchWindowSeconds, DefaultUserCap)
	bs := c.OnSuspect(suspectAt("10.0.0.9", "", 100, 10))
	assert.Empty(t, bs)

	bs = c.OnSuccess(successAt("", 110))
	assert.Empty(t, bs)

	_, ok := c.suspects.get("")
	assert.False(t, ok, "empty-user suspect must never be inserted")
}

func TestRunCorrelator_DrivesBothStreamsToCompletion(t *testing.T) {
	suspects := make(chan model.Suspect, 1)
	successes := make(chan model.Success, 1)
	out := make(chan model.Breakin, 1)

	// Close successes immediately (empty stream) so RunCorrelator's
	// select has only one live side, keeping the processing order of
	// this single Suspect deterministic.
	close(successes)
	suspects <- suspectAt("10.0.0.1", "alice", 140, 40)
	close(suspects)

	RunCorrelator(suspects, successes, out, DefaultMatchWindowSeconds, DefaultUserCap)

	var got []model.Breakin
	for b := range out {
		got = append(got, b)
	}
	assert.Empty(t, got)
}
