package game

import (
	"time"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in-progress"
	StatusEnded      Status = "ended"
)

// statusRank orders the session lifecycle; transitions may only move
// forward.
var statusRank = map[Status]int{
	StatusWaiting:    0,
	StatusInProgress: 1,
	StatusEnded:      2,
}

type Role string

const (
	RoleNone   Role = ""
	RoleHider  Role = "hider"
	RoleSeeker Role = "seeker"
)

type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	DeviceID string    `json:"deviceId"`
	IsHost   bool      `json:"isHost"`
	Role     Role      `json:"role"`
	Coins    int       `json:"coins"`
	JoinedAt time.Time `json:"joinedAt"`
}

// PositionReport is the single live coordinate entry per device,
// overwritten on every publish.
type PositionReport struct {
	DeviceID   string    `json:"deviceId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Altitude   *float64  `json:"altitude,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
}

// RoundTimer is written once at game start; every observer derives the
// remaining time from the same start/duration pair.
type RoundTimer struct {
	StartTime      time.Time `json:"startTime"`
	DurationMillis int64     `json:"duration"`
	Active         bool      `json:"isActive"`
}

// Remaining clamps at zero once the deadline has passed.
func (t RoundTimer) Remaining(now time.Time) time.Duration {
	d := time.Duration(t.DurationMillis)*time.Millisecond - now.Sub(t.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

type Category string

const (
	CategoryZoning   Category = "zoning"
	CategoryLocation Category = "location"
	CategoryRadar    Category = "radar"
	CategoryMedia    Category = "media"
	CategoryGemini   Category = "gemini"
)

type CategoryInfo struct {
	Name      string   `json:"name"`
	Icon      string   `json:"icon"`
	Coins     int      `json:"coins"`
	Color     string   `json:"color"`
	Questions []string `json:"questions"`
}

// Categories fixes the reward and canned question bank per category.
var Categories = map[Category]CategoryInfo{
	CategoryZoning: {
		Name:  "Zoning",
		Icon:  "🧭",
		Coins: 40,
		Color: "#3B82F6",
		Questions: []string{
			"Are you north or south of the seeker's current position?",
			"Are you east or west of the seeker's current position?",
			"Is your elevation higher or lower than the seeker's?",
		},
	},
	CategoryLocation: {
		Name:  "Location",
		Icon:  "📍",
		Coins: 30,
		Color: "#10B981",
		Questions: []string{
			"Is the library closest to you the same as mine?",
			"Is the eatery location closest to you the same as mine?",
			"Can you see a natural water formation right now?",
			"Are you above the ground floor in a building?",
		},
	},
	CategoryRadar: {
		Name:  "Radar",
		Icon:  "📡",
		Coins: 30,
		Color: "#F59E0B",
		Questions: []string{
			"Are you within 100ft of me?",
			"Are you within 500ft of me?",
			"Are you within 1000ft of me?",
			"Are you within 2000ft of me?",
		},
	},
	CategoryMedia: {
		Name:  "Media",
		Icon:  "📷",
		Coins: 15,
		Color: "#99704d",
		Questions: []string{
			"Send a picture of the tallest visible building you can see right now.",
			"Send a picture of what is directly above you at this moment.",
			"Send a picture of you touching the nearest plant.",
			"Send a picture of the nearest bus station.",
		},
	},
	CategoryGemini: {
		Name:  "Gemini",
		Icon:  "🤖",
		Coins: 20,
		Color: "#8B5CF6",
		Questions: []string{
			"Name the building you would reach first walking due north.",
			"Is the nearest campus landmark older than fifty years?",
		},
	},
}

// Reward returns the coin value of a category, defaulting to 20 for
// unknown keys the same way older clients did.
func (c Category) Reward() int {
	if info, ok := Categories[c]; ok {
		return info.Coins
	}
	return 20
}

type Curse struct {
	Name        string `json:"name"`
	Cost        int    `json:"cost"`
	Description string `json:"description"`
}

// Curses is the fixed table hiders may spend coins on.
var Curses = []Curse{
	{Name: "Slow Movement", Cost: 5, Description: "Slows down seeker movement"},
	{Name: "Blind Spot", Cost: 10, Description: "Hides your location for 30 seconds"},
	{Name: "Fake Location", Cost: 15, Description: "Shows fake location to seeker"},
	{Name: "Question Block", Cost: 8, Description: "Blocks one seeker question"},
	{Name: "Coin Steal", Cost: 12, Description: "Steals 3 coins from seeker"},
}

func CurseByName(name string) (Curse, bool) {
	for _, c := range Curses {
		if c.Name == name {
			return c, true
		}
	}
	return Curse{}, false
}

type Question struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Category  Category  `json:"category"`
	AskedBy   string    `json:"askedBy"`
	Coins     int       `json:"coins"`
	Timestamp time.Time `json:"timestamp"`
}

type AnswerType string

const (
	AnswerText  AnswerType = "text"
	AnswerPhoto AnswerType = "photo"
)

type Answer struct {
	ID          string     `json:"id"`
	Question    string     `json:"question"`
	Category    Category   `json:"category"`
	PlayerID    string     `json:"playerId"`
	PlayerName  string     `json:"playerName"`
	CoinsEarned int        `json:"coinsEarned"`
	AnswerType  AnswerType `json:"answerType"`
	Answer      string     `json:"answer,omitempty"`
	AnswerPhoto string     `json:"answerPhoto,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

type NoticeType string

const (
	NoticeQuestion NoticeType = "question"
	NoticeAnswer   NoticeType = "answer"
	NoticeCurse    NoticeType = "curse"
	NoticePhoto    NoticeType = "photo"
)

// Notification is one entry of the append-only event log. Payload
// fields vary by Type; unused ones stay empty on the wire.
type Notification struct {
	ID        string     `json:"id"`
	Type      NoticeType `json:"type"`
	Message   string     `json:"message"`
	From      string     `json:"from,omitempty"`
	Timestamp time.Time  `json:"timestamp"`

	// question
	Category Category `json:"category,omitempty"`
	Coins    int      `json:"coins,omitempty"`

	// answer
	CoinsEarned int `json:"coinsEarned,omitempty"`

	// curse
	CurseName        string `json:"curseName,omitempty"`
	CurseDescription string `json:"curseDescription,omitempty"`
	CoinsSpent       int    `json:"coinsSpent,omitempty"`

	// photo, also set on photo answers
	PhotoURL string `json:"photoUrl,omitempty"`
}

type Photo struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploadedBy"`
	PlayerID   string    `json:"playerId"`
	Role       Role      `json:"role"`
	Timestamp  time.Time `json:"timestamp"`
}

// Summary is the discovery-listing view of a session.
type Summary struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Status    Status    `json:"status"`
	Players   int       `json:"players"`
	CreatedAt time.Time `json:"createdAt"`
}

// Settings carries the tunable gameplay constants into the registry.
type Settings struct {
	RoundDuration    time.Duration
	QuestionCooldown time.Duration
	PositionInterval time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		RoundDuration:    10 * time.Minute,
		QuestionCooldown: 180 * time.Second,
		PositionInterval: 2 * time.Second,
	}
}
