package game

import (
	"sync"
	"sync/atomic"
	"testing"
)

func noticeLog() []Notification {
	return []Notification{
		{ID: "n1", Type: NoticeQuestion, Message: "Ben asked a radar question"},
		{ID: "n2", Type: NoticeAnswer, Message: "Ann answered the radar question"},
		{ID: "n3", Type: NoticeCurse, Message: "Ann used Slow Movement!"},
		{ID: "n4", Type: NoticePhoto, Message: "Ann shared a photo"},
	}
}

func TestTrackerShowsEachEntryOnce(t *testing.T) {
	tr := NewTracker()
	log := noticeLog()

	first := tr.Fresh(RoleSeeker, log)
	if len(first) != 3 {
		t.Fatalf("seeker should be alerted on answer/curse/photo, got %d", len(first))
	}

	// repeated re-subscription emits the same log again
	for i := 0; i < 5; i++ {
		if again := tr.Fresh(RoleSeeker, log); len(again) != 0 {
			t.Fatalf("replayed log must not re-alert, got %d on pass %d", len(again), i)
		}
	}

	// a new entry is alerted exactly once
	log = append(log, Notification{ID: "n5", Type: NoticeCurse, Message: "Ann used Blind Spot!"})
	fresh := tr.Fresh(RoleSeeker, log)
	if len(fresh) != 1 || fresh[0].ID != "n5" {
		t.Fatalf("expected only the new entry, got %+v", fresh)
	}
}

func TestTrackerRoleFilter(t *testing.T) {
	log := noticeLog()

	if got := NewTracker().Fresh(RoleHider, log); len(got) != 0 {
		t.Fatalf("hiders get no notification alerts, got %d", len(got))
	}
	if got := NewTracker().Fresh(RoleNone, log); len(got) != 0 {
		t.Fatalf("unassigned players get no alerts, got %d", len(got))
	}

	seen := NewTracker().Fresh(RoleSeeker, log)
	for _, n := range seen {
		if n.Type == NoticeQuestion {
			t.Fatal("seekers must not be alerted on their own questions")
		}
	}
}

func TestTrackerConcurrentFresh(t *testing.T) {
	// fan-out scans one client's tracker from whichever handler
	// goroutine produced an event, so concurrent scans must neither
	// race nor alert twice
	tr := NewTracker()
	log := noticeLog()

	var delivered int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			atomic.AddInt64(&delivered, int64(len(tr.Fresh(RoleSeeker, log))))
		}()
	}
	wg.Wait()

	if delivered != 3 {
		t.Fatalf("each relevant entry must be alerted exactly once in total, got %d", delivered)
	}
}

func TestFreshTrackerReplaysHistory(t *testing.T) {
	// the shown set is never persisted: a new tracker (fresh client
	// session) sees the whole log as new again
	log := noticeLog()
	if got := NewTracker().Fresh(RoleSeeker, log); len(got) != 3 {
		t.Fatalf("a fresh tracker should replay history, got %d", len(got))
	}
}
