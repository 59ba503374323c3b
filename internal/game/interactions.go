package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AskQuestion writes a question to the log, overwrites the single
// current-question slot and appends a question notification. Issuing
// while a question is already pending simply replaces it. The 180s
// cooldown is not checked here: it is per-client throttling owned by
// the connection layer, not a shared invariant.
func (s *Session) AskQuestion(callerID string, category Category, text string) (Question, error) {
	if _, ok := Categories[category]; !ok {
		return Question{}, ErrUnknownCategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return Question{}, ErrGameNotActive
	}
	caller := s.players[callerID]
	if caller == nil {
		return Question{}, ErrPlayerNotFound
	}
	if caller.Role != RoleSeeker {
		return Question{}, ErrNotSeeker
	}

	q := &Question{
		ID:        uuid.NewString(),
		Text:      text,
		Category:  category,
		AskedBy:   caller.Name,
		Coins:     category.Reward(),
		Timestamp: time.Now().UTC(),
	}
	s.questions = append(s.questions, q)
	s.currentQuestion = q
	s.appendNoticeLocked(&Notification{
		Type:     NoticeQuestion,
		Message:  fmt.Sprintf("%s asked a %s question", caller.Name, category),
		From:     caller.Name,
		Category: category,
		Coins:    q.Coins,
	})
	return *q, nil
}

// CurrentQuestion returns the pending question, or false when the slot
// is empty.
func (s *Session) CurrentQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentQuestion == nil {
		return Question{}, false
	}
	return *s.currentQuestion, true
}

// SubmitAnswer resolves the pending question: the hider earns the
// category reward, the answer is logged, the current-question slot is
// cleared and seekers get an answer notification. The balance update
// happens under the session lock, so concurrent submissions cannot
// lose coins.
func (s *Session) SubmitAnswer(callerID, text, photoURL string) (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return Answer{}, ErrGameNotActive
	}
	caller := s.players[callerID]
	if caller == nil {
		return Answer{}, ErrPlayerNotFound
	}
	if caller.Role != RoleHider {
		return Answer{}, ErrNotHider
	}
	if s.currentQuestion == nil {
		return Answer{}, ErrNoCurrentQuestion
	}

	q := s.currentQuestion
	caller.Coins += q.Coins

	a := &Answer{
		ID:          uuid.NewString(),
		Question:    q.Text,
		Category:    q.Category,
		PlayerID:    caller.ID,
		PlayerName:  caller.Name,
		CoinsEarned: q.Coins,
		AnswerType:  AnswerText,
		Answer:      text,
		Timestamp:   time.Now().UTC(),
	}
	if photoURL != "" {
		a.AnswerType = AnswerPhoto
		a.AnswerPhoto = photoURL
		a.Answer = ""
	}
	s.answers = append(s.answers, a)
	s.currentQuestion = nil
	s.appendNoticeLocked(&Notification{
		Type:        NoticeAnswer,
		Message:     fmt.Sprintf("%s answered the %s question", caller.Name, q.Category),
		From:        caller.Name,
		Category:    q.Category,
		CoinsEarned: q.Coins,
		PhotoURL:    a.AnswerPhoto,
	})
	return *a, nil
}

// UseCurse deducts the curse cost from the hider and notifies seekers.
// An unaffordable curse is rejected before any state changes.
func (s *Session) UseCurse(callerID, curseName string) (Curse, error) {
	curse, ok := CurseByName(curseName)
	if !ok {
		return Curse{}, ErrUnknownCurse
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return Curse{}, ErrGameNotActive
	}
	caller := s.players[callerID]
	if caller == nil {
		return Curse{}, ErrPlayerNotFound
	}
	if caller.Role != RoleHider {
		return Curse{}, ErrNotHider
	}
	if caller.Coins < curse.Cost {
		return Curse{}, ErrNotEnoughCoins
	}

	caller.Coins -= curse.Cost
	s.appendNoticeLocked(&Notification{
		Type:             NoticeCurse,
		Message:          fmt.Sprintf("%s used %s!", caller.Name, curse.Name),
		From:             caller.Name,
		CurseName:        curse.Name,
		CurseDescription: curse.Description,
		CoinsSpent:       curse.Cost,
	})
	return curse, nil
}

// AddPhoto records an already-uploaded image and announces it. Either
// role may share photos.
func (s *Session) AddPhoto(callerID, url string) (Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caller := s.players[callerID]
	if caller == nil {
		return Photo{}, ErrPlayerNotFound
	}
	p := &Photo{
		ID:         uuid.NewString(),
		URL:        url,
		UploadedBy: caller.Name,
		PlayerID:   caller.ID,
		Role:       caller.Role,
		Timestamp:  time.Now().UTC(),
	}
	s.photos = append(s.photos, p)
	s.appendNoticeLocked(&Notification{
		Type:     NoticePhoto,
		Message:  fmt.Sprintf("%s shared a photo", caller.Name),
		From:     caller.Name,
		PhotoURL: url,
	})
	return *p, nil
}

func (s *Session) Photos() []Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Photo, 0, len(s.photos))
	for _, p := range s.photos {
		out = append(out, *p)
	}
	return out
}

func (s *Session) Questions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, *q)
	}
	return out
}

func (s *Session) Answers() []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Answer, 0, len(s.answers))
	for _, a := range s.answers {
		out = append(out, *a)
	}
	return out
}

// Notifications returns the full event log, oldest first.
func (s *Session) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, *n)
	}
	return out
}

func (s *Session) appendNoticeLocked(n *Notification) {
	n.ID = uuid.NewString()
	n.Timestamp = time.Now().UTC()
	s.notifications = append(s.notifications, n)
}
