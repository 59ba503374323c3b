package game

import "sync"

// Tracker is the per-client "already shown" set for notification
// alerts. It is deliberately in-memory only: a reconnecting client
// gets a fresh tracker and replays the whole log, which is the
// accepted behavior, not a bug. Fan-out runs on whichever handler
// goroutine produced an event, so the set is mutex-guarded.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// RelevantTo encodes the asymmetric alert policy: seekers are alerted
// on curses, photos and answers; hiders learn about questions through
// the current-question slot instead and get no alerts.
func RelevantTo(viewer Role, t NoticeType) bool {
	if viewer != RoleSeeker {
		return false
	}
	switch t {
	case NoticeCurse, NoticePhoto, NoticeAnswer:
		return true
	}
	return false
}

// Fresh filters the log down to role-relevant entries this client has
// not been shown yet and marks them shown. Feeding the same log again
// yields nothing, no matter how often the subscription re-emits.
func (t *Tracker) Fresh(viewer Role, log []Notification) []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Notification
	for _, n := range log {
		if !RelevantTo(viewer, n.Type) {
			continue
		}
		if _, ok := t.seen[n.ID]; ok {
			continue
		}
		t.seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}
