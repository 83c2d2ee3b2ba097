package pipeline

import (
	"container/list"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultUserCap bounds the number of distinct usernames the Correlator
// tracks pending state for. spec.md §9 notes per-user maps "grow
// indefinitely in the worst case; bound by domain knowledge (distinct
// usernames << input size)" — this implementation makes that bound
// concrete with an LRU, grounded on internal/store/memory.go's
// lru.Cache[string, bool] dedupe cache in the teacher repo. Eviction
// under this cap only happens if the run observes more distinct
// usernames than the cap, at which point the least-recently-touched
// user's pending deque is dropped; this is additive hardening beyond
// the spec, not part of its correctness contract for ordinary runs.
const DefaultUserCap = 100000

// userDeques is a capped map from username to a container/list.List
// deque, matching spec.md §9's explicit recommendation ("a double-
// ended queue suits the access pattern exactly: append-at-tail,
// match-from-head, purge-prefix").
type userDeques struct {
	cache *lru.Cache[string, *list.List]
}

func newUserDeques(cap int) *userDeques {
	c, _ := lru.New[string, *list.List](cap)
	return &userDeques{cache: c}
}

// get returns the deque for user without creating one.
func (d *userDeques) get(user string) (*list.List, bool) {
	return d.cache.Get(user)
}

// getOrCreate returns the deque for user, creating an empty one on
// first touch.
func (d *userDeques) getOrCreate(user string) *list.List {
	if l, ok := d.cache.Get(user); ok {
		return l
	}
	l := list.New()
	d.cache.Add(user, l)
	return l
}

// purgeThrough removes every element from the front of l up to and
// including through, leaving whatever (possibly empty) suffix remains.
func purgeThrough(l *list.List, through *list.Element) {
	for e := l.Front(); e != nil; {
		next := e.Next()
		l.Remove(e)
		if e == through {
			return
		}
		e = next
	}
}
