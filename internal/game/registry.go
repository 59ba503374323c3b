package game

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNotHost           = errors.New("not host")
	ErrRoleTaken         = errors.New("role already taken")
	ErrBadRole           = errors.New("unknown role")
	ErrBadTransition     = errors.New("invalid status transition")
	ErrNotStartable      = errors.New("session not ready to start")
	ErrGameNotActive     = errors.New("game not in progress")
	ErrNotSeeker         = errors.New("only the seeker may do that")
	ErrNotHider          = errors.New("only the hider may do that")
	ErrNoCurrentQuestion = errors.New("no question is pending")
	ErrUnknownCategory   = errors.New("unknown question category")
	ErrUnknownCurse      = errors.New("unknown curse")
	ErrNotEnoughCoins    = errors.New("not enough coins")
	ErrTimerStarted      = errors.New("round timer already started")
	ErrGameOver          = errors.New("game already ended")
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registry owns every live session, keyed by join code. Ended sessions
// stay in the map and are only filtered from discovery listings.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	settings Settings
}

func NewRegistry(settings Settings) *Registry {
	if settings.RoundDuration <= 0 {
		settings = DefaultSettings()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		settings: settings,
	}
}

// Create builds a new waiting session with the host already on the
// roster. Codes are regenerated until they miss every existing
// session, so two hosts can never collide.
func (r *Registry) Create(name, hostName, hostDeviceID string) (*Session, *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := randomCode(6)
	for r.sessions[code] != nil {
		code = randomCode(6)
	}

	host := &Player{
		ID:       uuid.NewString(),
		Name:     hostName,
		DeviceID: hostDeviceID,
		IsHost:   true,
		Role:     RoleNone,
		Coins:    0,
		JoinedAt: time.Now().UTC(),
	}
	s := &Session{
		Code:      code,
		Name:      name,
		HostName:  hostName,
		CreatedAt: time.Now().UTC(),
		settings:  r.settings,
		status:    StatusWaiting,
		players:   map[string]*Player{host.ID: host},
		positions: make(map[string]*PositionReport),
	}
	r.sessions[code] = s
	return s, host
}

func (r *Registry) Get(code string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.sessions[code]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ListOpen returns every session that has not ended, newest first.
func (r *Registry) ListOpen() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.sessions))
	for _, s := range r.sessions {
		sum := s.Summary()
		if sum.Status == StatusEnded {
			continue
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Settings() Settings {
	return r.settings
}

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
