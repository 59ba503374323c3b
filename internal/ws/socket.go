package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/campushunt/server/internal/config"
	"github.com/campushunt/server/internal/game"
	"github.com/campushunt/server/internal/identity"
)

// ConnCtx is the per-connection state: which session and player the
// socket speaks for, plus the client-local pieces of the protocol
// that are deliberately not shared — the shown-notification tracker,
// the question cooldown and the termination initiator flag.
type ConnCtx struct {
	Code     string
	PlayerID string
	DeviceID string

	shown         *game.Tracker
	cooldownUntil time.Time
	initiator     bool
}

type Server struct {
	Reg *game.Registry
	cfg config.Config

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
	timers  map[string]context.CancelFunc       // sessionCode -> watcher teardown
}

func New(reg *game.Registry, cfg config.Config) *Server {
	return &Server{
		Reg:     reg,
		cfg:     cfg,
		members: make(map[string]map[string]socketio.Conn),
		timers:  make(map[string]context.CancelFunc),
	}
}

// Mount attaches the Socket.IO server with all game handlers to the
// given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{shown: game.NewTracker()})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// game:create
	io.OnEvent("/", "game:create", func(s socketio.Conn, payload struct {
		Name     string `json:"name"`
		HostName string `json:"hostName"`
		DeviceID string `json:"deviceId"`
	}) map[string]any {
		if payload.Name == "" || payload.HostName == "" {
			return srv.err(s, "missing_name", "Session and host name are required")
		}
		deviceID := payload.DeviceID
		if deviceID == "" {
			deviceID = identity.Synthesize()
		}
		sess, host := srv.Reg.Create(payload.Name, payload.HostName, deviceID)
		s.SetContext(&ConnCtx{Code: sess.Code, PlayerID: host.ID, DeviceID: deviceID, shown: game.NewTracker()})
		s.Join(sess.Code)
		srv.addMember(sess.Code, s)
		log.Info().Str("sid", s.ID()).Str("code", sess.Code).Msg("game:create")
		srv.emitStateTo(sess.Code)
		return map[string]any{"sessionCode": sess.Code, "playerId": host.ID, "deviceId": deviceID}
	})

	// game:join
	io.OnEvent("/", "game:join", func(s socketio.Conn, payload struct {
		SessionCode string `json:"sessionCode"`
		Name        string `json:"name"`
		DeviceID    string `json:"deviceId"`
	}) map[string]any {
		if payload.Name == "" {
			return srv.err(s, "missing_name", "A display name is required")
		}
		sess, err := srv.Reg.Get(payload.SessionCode)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if sess.Status() == game.StatusEnded {
			return srv.err(s, "session_ended", "This game has already ended")
		}
		deviceID := payload.DeviceID
		if deviceID == "" {
			deviceID = identity.Synthesize()
		}
		p := sess.Join(payload.Name, deviceID)
		s.SetContext(&ConnCtx{Code: sess.Code, PlayerID: p.ID, DeviceID: deviceID, shown: game.NewTracker()})
		s.Join(sess.Code)
		srv.addMember(sess.Code, s)
		log.Info().Str("sid", s.ID()).Str("code", sess.Code).Str("playerId", p.ID).Msg("game:join")
		srv.emitStateTo(sess.Code)
		return map[string]any{"playerId": p.ID, "deviceId": deviceID}
	})

	// game:roles:assign (host)
	io.OnEvent("/", "game:roles:assign", func(s socketio.Conn, payload struct {
		PlayerID string `json:"playerId"`
		Role     string `json:"role"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Reg.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.AssignRole(ctx.PlayerID, payload.PlayerID, game.Role(payload.Role)); err != nil {
			return srv.gameErr(s, err)
		}
		log.Info().Str("code", ctx.Code).Str("playerId", payload.PlayerID).Str("role", payload.Role).Msg("role assigned")
		srv.emitStateTo(ctx.Code)
		return map[string]any{"ok": true}
	})

	// game:roles:clear (host)
	io.OnEvent("/", "game:roles:clear", func(s socketio.Conn, payload struct {
		PlayerID string `json:"playerId"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Reg.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.ClearRole(ctx.PlayerID, payload.PlayerID); err != nil {
			return srv.gameErr(s, err)
		}
		srv.emitStateTo(ctx.Code)
		return map[string]any{"ok": true}
	})

	// game:start (host)
	io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Reg.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		timer, err := sess.Start(ctx.PlayerID)
		if err != nil {
			return srv.gameErr(s, err)
		}
		srv.watchTimer(ctx.Code, sess)
		log.Info().Str("code", ctx.Code).Int64("durationMs", timer.DurationMillis).Msg("game started")
		srv.emitStateTo(ctx.Code)
		return map[string]any{"timer": timer}
	})

	// position:update
	io.OnEvent("/", "position:update", func(s socketio.Conn, payload struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		Altitude  *float64 `json:"altitude"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Reg.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if sess.Status() == game.StatusEnded {
			return srv.err(s, "session_ended", "This game has already ended")
		}
		if _, err := sess.Publish(ctx.DeviceID, payload.Latitude, payload.Longitude, payload.Altitude); err != nil {
			return srv.gameErr(s, err)
		}
		srv.emitPositions(ctx.Code)
		return map[string]any{"ok": true}
	})

	// question:ask (seeker)
	io.OnEvent("/", "question:ask", func(s socketio.Conn, payload struct {
		Category string `json:"category"`
		Text     string `json:"text"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		now := time.Now()
		if now.Before(ctx.cooldownUntil) {
			remaining := int(ctx.cooldownUntil.Sub(now).Round(time.Second).Seconds())
			s.Emit("question:cooldown", map[string]any{"remainingSeconds": remaining})
			return srv.err(s, "cooldown_active", "You must wait before asking another question")
		}
		sess, err := srv.Reg.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		q, err := sess.AskQuestion(ctx.PlayerID, game.Category(payload.Category), payload.Text)
		if err != nil {
			return srv.gameErr(s, err)
		}
		ctx.cooldownUntil = now.Add(srv.cfg.QuestionCooldown)
		log.Info().Str("code", ctx.Code).Str("category", payload.Category).Msg("question:ask")
		srv.emitStateTo(ctx.Code)
		srv.emitNotices(ctx.Code)
		return map[string]any{"questionId": q.ID, "cooldownSeconds": int(srv.cfg.QuestionCooldown.Seconds())}
	})

	// answer:submit (hider)
	io.OnEvent("/", "answer:submit", func(s socketio.Conn, payload struct {
		Text     string `json:"text"`
		PhotoURL string `json:"photoUrl"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Reg.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		a, err := sess.SubmitAnswer(ctx.PlayerID, payload.Text, payload.PhotoURL)
		if err != nil {
			return srv.gameErr(s, err)
		}
		log.Info().Str("code", ctx.Code).Int("coins", a.CoinsEarned).Msg("answer:submit")
		srv.emitStateTo(ctx.Code)
		srv.emitNotices(ctx.Code)
		return map[string]any{"answerId": a.ID, "coinsEarned": a.CoinsEarned}
	})

	// curse:use (hider)
	io.OnEvent("/", "curse:use", func(s socketio.Conn, payload struct {
		Name string `json:"name"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Reg.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		curse, err := sess.UseCurse(ctx.PlayerID, payload.Name)
		if err != nil {
			return srv.gameErr(s, err)
		}
		log.Info().Str("code", ctx.Code).Str("curse", curse.Name).Msg("curse:use")
		srv.emitStateTo(ctx.Code)
		srv.emitNotices(ctx.Code)
		return map[string]any{"curse": curse}
	})

	// photo:share (either role, URL from a prior HTTP upload)
	io.OnEvent("/", "photo:share", func(s socketio.Conn, payload struct {
		URL string `json:"url"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Reg.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		p, err := sess.AddPhoto(ctx.PlayerID, payload.URL)
		if err != nil {
			return srv.gameErr(s, err)
		}
		srv.emitStateTo(ctx.Code)
		srv.emitNotices(ctx.Code)
		return map[string]any{"photoId": p.ID}
	})

	// game:end (any client; the round timer uses the same path)
	io.OnEvent("/", "game:end", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		if err := srv.endGame(ctx.Code, s); err != nil {
			return srv.gameErr(s, err)
		}
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
			srv.removeMember(ctx.Code, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// watchTimer arms the single authoritative countdown watcher for a
// session. Expiry ends the game with no initiating connection, so
// every client observes termination as a passive subscriber.
func (srv *Server) watchTimer(code string, sess *game.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	srv.mu.Lock()
	if old := srv.timers[code]; old != nil {
		old()
	}
	srv.timers[code] = cancel
	srv.mu.Unlock()
	go sess.WatchTimer(ctx, time.Second, func() {
		log.Info().Str("code", code).Msg("round timer expired")
		_ = srv.endGame(code, nil)
	})
}

// endGame runs the termination protocol. The triggering connection is
// flagged as initiator before the status write so its own observation
// of the ended state skips the duplicate side effects; the guard in
// Session.End makes racing triggers a no-op.
func (srv *Server) endGame(code string, initiator socketio.Conn) error {
	sess, err := srv.Reg.Get(code)
	if err != nil {
		return err
	}
	initiatorID := ""
	var initiatorCtx *ConnCtx
	if initiator != nil {
		initiatorCtx = initiator.Context().(*ConnCtx)
		initiatorCtx.initiator = true
		initiatorID = initiatorCtx.PlayerID
	}
	ended, err := sess.End(initiatorID)
	if !ended && initiatorCtx != nil {
		// a racing trigger lost; it must observe the termination as a
		// passive subscriber, not as the initiator
		initiatorCtx.initiator = false
	}
	if err != nil {
		return err
	}
	if !ended {
		return nil
	}
	srv.mu.Lock()
	if cancel := srv.timers[code]; cancel != nil {
		cancel()
		delete(srv.timers, code)
	}
	conns := srv.membersOf(code)
	srv.mu.Unlock()

	log.Info().Str("code", code).Str("endedBy", initiatorID).Msg("game ended")
	for _, c := range conns {
		ctx, _ := c.Context().(*ConnCtx)
		wasInitiator := ctx != nil && ctx.initiator
		c.Emit("game:ended", map[string]any{
			"sessionCode": code,
			"endedBy":     sess.EndedBy(),
			"initiator":   wasInitiator,
		})
	}
	return nil
}

func (srv *Server) addMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]socketio.Conn)
	}
	srv.members[code][c.ID()] = c
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
	}
}

// membersOf must be called with srv.mu held.
func (srv *Server) membersOf(code string) []socketio.Conn {
	out := make([]socketio.Conn, 0, len(srv.members[code]))
	for _, c := range srv.members[code] {
		out = append(out, c)
	}
	return out
}

// emitStateTo sends each connection in a session a personalized state
// snapshot: positions are filtered by the viewer's role before they
// leave the server.
func (srv *Server) emitStateTo(code string) {
	sess, err := srv.Reg.Get(code)
	if err != nil {
		return
	}
	players := sess.Players()
	reports := sess.Positions()
	var current any
	if q, ok := sess.CurrentQuestion(); ok {
		current = q
	}
	var timer any
	var remainingMs int64
	if t, ok := sess.Timer(); ok {
		timer = t
		remainingMs = t.Remaining(time.Now()).Milliseconds()
	}

	srv.mu.Lock()
	conns := srv.membersOf(code)
	srv.mu.Unlock()

	for _, c := range conns {
		ctx, _ := c.Context().(*ConnCtx)
		if ctx == nil {
			continue
		}
		role := game.RoleNone
		if p, err := sess.Player(ctx.PlayerID); err == nil {
			role = p.Role
		}
		payload := map[string]any{
			"sessionCode":     code,
			"name":            sess.Name,
			"host":            sess.HostName,
			"status":          sess.Status(),
			"players":         players,
			"currentQuestion": current,
			"timer":           timer,
			"remainingMs":     remainingMs,
			"positions":       game.VisibleTo(role, ctx.DeviceID, reports),
			"photos":          sess.Photos(),
			"you": map[string]any{
				"playerId": ctx.PlayerID,
				"deviceId": ctx.DeviceID,
				"role":     role,
			},
			"settings": map[string]any{
				"positionIntervalMs": srv.cfg.PositionInterval.Milliseconds(),
				"cooldownSeconds":    int(srv.cfg.QuestionCooldown.Seconds()),
			},
		}
		c.Emit("game:state", payload)
	}
}

// emitPositions pushes just the role-filtered location map, used on
// the 2s publish cadence to avoid re-sending full state.
func (srv *Server) emitPositions(code string) {
	sess, err := srv.Reg.Get(code)
	if err != nil {
		return
	}
	reports := sess.Positions()

	srv.mu.Lock()
	conns := srv.membersOf(code)
	srv.mu.Unlock()

	for _, c := range conns {
		ctx, _ := c.Context().(*ConnCtx)
		if ctx == nil {
			continue
		}
		role := game.RoleNone
		if p, err := sess.Player(ctx.PlayerID); err == nil {
			role = p.Role
		}
		c.Emit("game:positions", map[string]any{
			"sessionCode": code,
			"positions":   game.VisibleTo(role, ctx.DeviceID, reports),
		})
	}
}

// emitNotices delivers role-relevant notifications each connection has
// not seen yet, one alert per entry. The per-connection tracker makes
// delivery at-most-once per client even when the log is re-scanned.
func (srv *Server) emitNotices(code string) {
	sess, err := srv.Reg.Get(code)
	if err != nil {
		return
	}
	noticeLog := sess.Notifications()

	srv.mu.Lock()
	conns := srv.membersOf(code)
	srv.mu.Unlock()

	for _, c := range conns {
		ctx, _ := c.Context().(*ConnCtx)
		if ctx == nil || ctx.shown == nil {
			continue
		}
		role := game.RoleNone
		if p, err := sess.Player(ctx.PlayerID); err == nil {
			role = p.Role
		}
		for _, n := range ctx.shown.Fresh(role, noticeLog) {
			c.Emit("game:notice", n)
		}
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

// gameErr translates domain sentinels into wire error codes.
func (srv *Server) gameErr(s socketio.Conn, err error) map[string]any {
	code := "bad_request"
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		code = "session_not_found"
	case errors.Is(err, game.ErrPlayerNotFound):
		code = "player_not_found"
	case errors.Is(err, game.ErrNotHost):
		code = "not_host"
	case errors.Is(err, game.ErrRoleTaken):
		code = "role_taken"
	case errors.Is(err, game.ErrNotStartable):
		code = "not_startable"
	case errors.Is(err, game.ErrNotEnoughCoins):
		code = "not_enough_coins"
	case errors.Is(err, game.ErrNoCurrentQuestion):
		code = "no_current_question"
	case errors.Is(err, game.ErrGameNotActive):
		code = "game_not_active"
	case errors.Is(err, game.ErrNotSeeker), errors.Is(err, game.ErrNotHider):
		code = "wrong_role"
	}
	return srv.err(s, code, err.Error())
}
