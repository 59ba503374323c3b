package game

import (
	"strings"
	"testing"
)

func newTestRegistry() *Registry {
	return NewRegistry(DefaultSettings())
}

func TestCreateSession(t *testing.T) {
	reg := newTestRegistry()
	sess, host := reg.Create("Campus Run", "Ann", "device-a")

	if len(sess.Code) != 6 {
		t.Fatalf("expected 6-char code, got %q", sess.Code)
	}
	for _, r := range sess.Code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code %q contains invalid char %q", sess.Code, r)
		}
	}
	if sess.Status() != StatusWaiting {
		t.Fatalf("expected status %s, got %s", StatusWaiting, sess.Status())
	}
	if !host.IsHost {
		t.Fatal("creator should be host")
	}
	if host.Role != RoleNone {
		t.Fatalf("host role should be unset, got %q", host.Role)
	}
	if host.Coins != 0 {
		t.Fatalf("host should start with 0 coins, got %d", host.Coins)
	}

	got, err := reg.Get(sess.Code)
	if err != nil {
		t.Fatalf("should be able to retrieve created session: %v", err)
	}
	if got.Name != "Campus Run" || got.HostName != "Ann" {
		t.Fatalf("unexpected session meta: %q hosted by %q", got.Name, got.HostName)
	}
}

func TestCreateSessionCodesNeverCollide(t *testing.T) {
	reg := newTestRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		sess, _ := reg.Create("g", "h", "d")
		if seen[sess.Code] {
			t.Fatalf("duplicate code issued: %s", sess.Code)
		}
		seen[sess.Code] = true
	}
}

func TestGetUnknownSession(t *testing.T) {
	reg := newTestRegistry()
	if _, err := reg.Get("NOPE42"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestJoinIsIdempotentPerDevice(t *testing.T) {
	reg := newTestRegistry()
	sess, _ := reg.Create("g", "Ann", "device-a")

	first := sess.Join("Ben", "device-b")
	second := sess.Join("Benjamin", "device-b")

	if first.ID != second.ID {
		t.Fatal("rejoin with same device should keep the same roster entry")
	}
	players := sess.Players()
	if len(players) != 2 {
		t.Fatalf("expected 2 roster entries, got %d", len(players))
	}
	var ben Player
	for _, p := range players {
		if p.DeviceID == "device-b" {
			ben = p
		}
	}
	if ben.Name != "Benjamin" {
		t.Fatalf("rejoin should take the newest name, got %q", ben.Name)
	}
	if ben.IsHost {
		t.Fatal("joiner must not be host")
	}
}

func TestListOpenFiltersEnded(t *testing.T) {
	reg := newTestRegistry()
	open, _ := reg.Create("open", "a", "d1")
	closed, _ := reg.Create("closed", "b", "d2")
	if err := closed.SetStatus(StatusEnded); err != nil {
		t.Fatalf("should be able to end session: %v", err)
	}

	list := reg.ListOpen()
	if len(list) != 1 {
		t.Fatalf("expected 1 open session, got %d", len(list))
	}
	if list[0].Code != open.Code {
		t.Fatalf("expected %s listed, got %s", open.Code, list[0].Code)
	}
}

func TestSetStatusIsMonotonic(t *testing.T) {
	reg := newTestRegistry()
	sess, _ := reg.Create("g", "a", "d")

	if err := sess.SetStatus(StatusInProgress); err != nil {
		t.Fatalf("waiting -> in-progress should be allowed: %v", err)
	}
	if err := sess.SetStatus(StatusWaiting); err != ErrBadTransition {
		t.Fatalf("in-progress -> waiting should be rejected, got %v", err)
	}
	if err := sess.SetStatus(StatusInProgress); err != nil {
		t.Fatalf("same-status write should be allowed: %v", err)
	}
	if err := sess.SetStatus(StatusEnded); err != nil {
		t.Fatalf("in-progress -> ended should be allowed: %v", err)
	}
	if err := sess.SetStatus(StatusInProgress); err != ErrBadTransition {
		t.Fatalf("ended -> in-progress should be rejected, got %v", err)
	}
	if err := sess.SetStatus(Status("finished")); err != ErrBadTransition {
		t.Fatalf("unknown status should be rejected, got %v", err)
	}
}
