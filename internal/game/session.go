package game

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the authoritative state of one game. All invariants the
// mobile clients used to enforce by convention are validated here
// under a single lock: role exclusivity, monotonic status, the
// single current-question slot, and coin balances.
type Session struct {
	Code      string
	Name      string
	HostName  string
	CreatedAt time.Time

	settings Settings

	mu              sync.Mutex
	status          Status
	players         map[string]*Player // playerID -> entry
	positions       map[string]*PositionReport
	timer           *RoundTimer
	currentQuestion *Question
	questions       []*Question
	answers         []*Answer
	notifications   []*Notification
	photos          []*Photo
	endedBy         string
}

// Join is idempotent per device: a second join with the same device id
// renames the existing roster entry instead of adding one.
func (s *Session) Join(name, deviceID string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.players {
		if p.DeviceID == deviceID {
			p.Name = name
			cp := *p
			return &cp
		}
	}
	p := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		DeviceID: deviceID,
		IsHost:   false,
		Role:     RoleNone,
		Coins:    0,
		JoinedAt: time.Now().UTC(),
	}
	s.players[p.ID] = p
	cp := *p
	return &cp
}

// Players returns a roster snapshot in join order.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playersLocked()
}

func (s *Session) playersLocked() []Player {
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

func (s *Session) Player(id string) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[id]
	if p == nil {
		return Player{}, ErrPlayerNotFound
	}
	return *p, nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus rejects any transition that would move the lifecycle
// backwards. waiting -> in-progress -> ended, never back.
func (s *Session) SetStatus(status Status) error {
	if _, ok := statusRank[status]; !ok {
		return ErrBadTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if statusRank[status] < statusRank[s.status] {
		return ErrBadTransition
	}
	s.status = status
	return nil
}

// AssignRole gives target one of the two exclusive roles. The conflict
// scan skips the target itself so re-assigning the same role to the
// same player stays a valid retry.
func (s *Session) AssignRole(callerID, targetID string, role Role) error {
	if role != RoleHider && role != RoleSeeker {
		return ErrBadRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	caller := s.players[callerID]
	if caller == nil || !caller.IsHost {
		return ErrNotHost
	}
	target := s.players[targetID]
	if target == nil {
		return ErrPlayerNotFound
	}
	for id, p := range s.players {
		if id != targetID && p.Role == role {
			return ErrRoleTaken
		}
	}
	target.Role = role
	return nil
}

func (s *Session) ClearRole(callerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	caller := s.players[callerID]
	if caller == nil || !caller.IsHost {
		return ErrNotHost
	}
	target := s.players[targetID]
	if target == nil {
		return ErrPlayerNotFound
	}
	target.Role = RoleNone
	return nil
}

// CanStart reports whether the start-of-game gate is satisfied: at
// least two players, exactly one hider and exactly one seeker.
func (s *Session) CanStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canStartLocked()
}

func (s *Session) canStartLocked() bool {
	if len(s.players) < 2 {
		return false
	}
	hiders, seekers := 0, 0
	for _, p := range s.players {
		switch p.Role {
		case RoleHider:
			hiders++
		case RoleSeeker:
			seekers++
		}
	}
	return hiders == 1 && seekers == 1
}

// Start flips the session to in-progress and arms the round timer in
// one step. The timer is written exactly once; a second start fails.
func (s *Session) Start(callerID string) (RoundTimer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caller := s.players[callerID]
	if caller == nil || !caller.IsHost {
		return RoundTimer{}, ErrNotHost
	}
	if s.status != StatusWaiting {
		return RoundTimer{}, ErrBadTransition
	}
	if !s.canStartLocked() {
		return RoundTimer{}, ErrNotStartable
	}
	if s.timer != nil {
		return RoundTimer{}, ErrTimerStarted
	}
	s.status = StatusInProgress
	s.timer = &RoundTimer{
		StartTime:      time.Now().UTC(),
		DurationMillis: s.settings.RoundDuration.Milliseconds(),
		Active:         true,
	}
	return *s.timer, nil
}

// Timer returns a copy of the round timer, or false while idle.
func (s *Session) Timer() (RoundTimer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return RoundTimer{}, false
	}
	return *s.timer, true
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Code:      s.Code,
		Name:      s.Name,
		Host:      s.HostName,
		Status:    s.status,
		Players:   len(s.players),
		CreatedAt: s.CreatedAt,
	}
}

func (s *Session) Settings() Settings {
	return s.settings
}
