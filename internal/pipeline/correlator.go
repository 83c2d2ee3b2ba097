package pipeline

import (
	"container/list"

	"github.com/aegisflux/sshbreakin/internal/model"
)

// DefaultMatchWindowSeconds is the ±T bound of spec.md §4.7 (T=60s,
// fixed by the invariant in §3: "Breakin is only emitted when a
// matching (Suspect, Success) pair exists with |success.time −
// suspect.last| ≤ 60.0s").
const DefaultMatchWindowSeconds = 60.0

// Correlator is the two-input stream join of spec.md §4.7: it matches
// a Suspect(user, rhost, last) against a Success(user, time) whenever
// the two are within matchWindow seconds of each other, regardless of
// which arrives first. Per §5's concurrency model ("must not run
// concurrently against shared state — use a single consumer task"),
// a Correlator is driven by exactly one goroutine; see RunCorrelator.
type Correlator struct {
	matchWindow float64
	suspects    *userDeques // per-user list of model.Suspect, ascending Last
	logins      *userDeques // per-user list of model.Success, ascending Time
}

// NewCorrelator constructs a Correlator with the given match window
// and per-user state cap (see DefaultUserCap).
func NewCorrelator(matchWindow float64, userCap int) *Correlator {
	return &Correlator{
		matchWindow: matchWindow,
		suspects:    newUserDeques(userCap),
		logins:      newUserDeques(userCap),
	}
}

// OnSuspect implements spec.md §4.7's "On Suspect S" rule. diff is
// computed as S.Last minus the stored Success's time, the
// "newly-arrived minus stored" convention. A stored login matches when
// |diff| <= matchWindow, whichever of the two is earlier in time. A
// stored login with diff > matchWindow is stale and purged: future
// suspects only carry a non-decreasing Last, so a stored login once too
// old only gets older relative to them. See DESIGN.md for the sign
// convention.
func (c *Correlator) OnSuspect(s model.Suspect) []model.Breakin {
	var breakins []model.Breakin
	matched := false

	if logins, ok := c.logins.get(s.User); ok && logins.Len() > 0 {
		var staleElem *list.Element
		for e := logins.Front(); e != nil; e = e.Next() {
			success := e.Value.(model.Success)
			diff := s.Last.Sub(success.Time).Seconds()
			switch {
			case diff >= -c.matchWindow && diff <= c.matchWindow:
				breakins = append(breakins, model.Breakin{Time: success.Time, RHost: s.RHost, User: s.User})
				logins.Remove(e)
				matched = true
			case diff > c.matchWindow:
				staleElem = e
			}
			if matched {
				break
			}
		}
		if staleElem != nil {
			purgeThrough(logins, staleElem)
		}
	}

	if !matched && s.User != "" {
		c.suspects.getOrCreate(s.User).PushBack(s)
	}
	return breakins
}

// OnSuccess implements spec.md §4.7's "On Success L" rule:
// diff = L.time − S.last over the stored Suspect list for L's user. A
// stored suspect matches when |diff| <= matchWindow and is stale (and
// purged) when diff > matchWindow.
func (c *Correlator) OnSuccess(l model.Success) []model.Breakin {
	var breakins []model.Breakin
	matched := false

	if suspects, ok := c.suspects.get(l.User); ok && suspects.Len() > 0 {
		var staleElem *list.Element
		for e := suspects.Front(); e != nil; e = e.Next() {
			suspect := e.Value.(model.Suspect)
			diff := l.Time.Sub(suspect.Last).Seconds()
			switch {
			case diff >= -c.matchWindow && diff <= c.matchWindow:
				breakins = append(breakins, model.Breakin{Time: l.Time, RHost: suspect.RHost, User: l.User})
				suspects.Remove(e)
				matched = true
			case diff > c.matchWindow:
				staleElem = e
			}
			if matched {
				break
			}
		}
		if staleElem != nil {
			purgeThrough(suspects, staleElem)
		}
	}

	if !matched {
		// Matches spec.md §4.7's literal fall-through: a success with
		// the empty-user sentinel is still appended to logins[""],
		// dead state that can never match (no suspect with user == ""
		// is ever inserted; see empty-user sentinel invariant).
		c.logins.getOrCreate(l.User).PushBack(l)
	}
	return breakins
}

// RunCorrelator drives a Correlator off two independently time-ordered
// input streams, selecting between them as spec.md §9 prescribes for
// languages without native multi-input dataflow, and closes out once
// both inputs are exhausted.
func RunCorrelator(suspectsIn <-chan model.Suspect, successesIn <-chan model.Success, out chan<- model.Breakin, matchWindow float64, userCap int) {
	defer close(out)
	c := NewCorrelator(matchWindow, userCap)

	for suspectsIn != nil || successesIn != nil {
		select {
		case s, ok := <-suspectsIn:
			if !ok {
				suspectsIn = nil
				continue
			}
			for _, b := range c.OnSuspect(s) {
				out <- b
			}
		case l, ok := <-successesIn:
			if !ok {
				successesIn = nil
				continue
			}
			for _, b := range c.OnSuccess(l) {
				out <- b
			}
		}
	}
}
