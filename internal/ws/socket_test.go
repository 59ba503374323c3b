package ws

import (
	"net"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/campushunt/server/internal/config"
	"github.com/campushunt/server/internal/game"
)

type emitted struct {
	name    string
	payload any
}

// fakeConn stands in for a socket.io connection so the fan-out paths
// can be exercised without a transport.
type fakeConn struct {
	id  string
	ctx any

	mu     sync.Mutex
	events []emitted
}

func (c *fakeConn) ID() string                { return c.id }
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) URL() url.URL              { return url.URL{} }
func (c *fakeConn) LocalAddr() net.Addr       { return nil }
func (c *fakeConn) RemoteAddr() net.Addr      { return nil }
func (c *fakeConn) RemoteHeader() http.Header { return nil }
func (c *fakeConn) Context() any              { return c.ctx }
func (c *fakeConn) SetContext(v any)          { c.ctx = v }
func (c *fakeConn) Namespace() string         { return "/" }
func (c *fakeConn) Join(room string)          {}
func (c *fakeConn) Leave(room string)         {}
func (c *fakeConn) LeaveAll()                 {}
func (c *fakeConn) Rooms() []string           { return nil }

func (c *fakeConn) Emit(name string, v ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var payload any
	if len(v) > 0 {
		payload = v[0]
	}
	c.events = append(c.events, emitted{name: name, payload: payload})
}

func (c *fakeConn) received(name string) []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []emitted
	for _, e := range c.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

// startedRound builds a two-player in-progress session with a member
// connection per player.
func startedRound(t *testing.T) (*Server, string, *fakeConn, *fakeConn) {
	t.Helper()
	reg := game.NewRegistry(game.DefaultSettings())
	sess, host := reg.Create("Campus Run", "Ann", "device-ann")
	ben := sess.Join("Ben", "device-ben")
	if err := sess.AssignRole(host.ID, host.ID, game.RoleHider); err != nil {
		t.Fatalf("assign hider: %v", err)
	}
	if err := sess.AssignRole(host.ID, ben.ID, game.RoleSeeker); err != nil {
		t.Fatalf("assign seeker: %v", err)
	}
	if _, err := sess.Start(host.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	srv := New(reg, config.Default())
	annConn := &fakeConn{id: "sid-ann", ctx: &ConnCtx{Code: sess.Code, PlayerID: host.ID, DeviceID: "device-ann", shown: game.NewTracker()}}
	benConn := &fakeConn{id: "sid-ben", ctx: &ConnCtx{Code: sess.Code, PlayerID: ben.ID, DeviceID: "device-ben", shown: game.NewTracker()}}
	srv.addMember(sess.Code, annConn)
	srv.addMember(sess.Code, benConn)
	return srv, sess.Code, annConn, benConn
}

func TestEndGameMarksOnlyInitiator(t *testing.T) {
	srv, code, annConn, benConn := startedRound(t)

	if err := srv.endGame(code, annConn); err != nil {
		t.Fatalf("end: %v", err)
	}

	if !annConn.ctx.(*ConnCtx).initiator {
		t.Fatal("the ending connection should carry the initiator flag")
	}
	if benConn.ctx.(*ConnCtx).initiator {
		t.Fatal("a passive subscriber must not carry the initiator flag")
	}

	ann := annConn.received("game:ended")
	ben := benConn.received("game:ended")
	if len(ann) != 1 || len(ben) != 1 {
		t.Fatalf("every member gets game:ended exactly once, got %d/%d", len(ann), len(ben))
	}
	if p := ann[0].payload.(map[string]any); p["initiator"] != true {
		t.Fatalf("initiator's notice should say so: %+v", p)
	}
	if p := ben[0].payload.(map[string]any); p["initiator"] != false {
		t.Fatalf("subscriber's notice must not claim initiation: %+v", p)
	}
}

func TestDuplicateEndKeepsLoserPassive(t *testing.T) {
	srv, code, annConn, benConn := startedRound(t)

	if err := srv.endGame(code, annConn); err != nil {
		t.Fatalf("first end: %v", err)
	}
	// second trigger races in through another connection after the
	// game is already over
	if err := srv.endGame(code, benConn); err != nil {
		t.Fatalf("duplicate end must be a no-op: %v", err)
	}

	if benConn.ctx.(*ConnCtx).initiator {
		t.Fatal("a losing duplicate trigger must revert to passive subscriber")
	}
	if !annConn.ctx.(*ConnCtx).initiator {
		t.Fatal("the real initiator keeps its flag")
	}
	if got := benConn.received("game:ended"); len(got) != 1 {
		t.Fatalf("duplicate trigger must not re-emit game:ended, got %d", len(got))
	}
}

func TestEndBeforeStartLeavesNoInitiatorFlag(t *testing.T) {
	reg := game.NewRegistry(game.DefaultSettings())
	sess, host := reg.Create("Campus Run", "Ann", "device-ann")
	srv := New(reg, config.Default())
	conn := &fakeConn{id: "sid-ann", ctx: &ConnCtx{Code: sess.Code, PlayerID: host.ID, DeviceID: "device-ann", shown: game.NewTracker()}}
	srv.addMember(sess.Code, conn)

	if err := srv.endGame(sess.Code, conn); err == nil {
		t.Fatal("ending a lobby that never started should fail")
	}
	if conn.ctx.(*ConnCtx).initiator {
		t.Fatal("a failed trigger must not leave the initiator flag set")
	}
}
