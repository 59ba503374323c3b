package game

// End moves the session to ended exactly once. The first caller wins
// and is recorded as initiator; every later call reports false and
// changes nothing, which makes racing triggers (host action and timer
// expiry in the same tick) safe.
func (s *Session) End(initiatorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusEnded {
		return false, nil
	}
	if s.status != StatusInProgress {
		return false, ErrGameNotActive
	}
	s.status = StatusEnded
	s.endedBy = initiatorID
	if s.timer != nil {
		s.timer.Active = false
	}
	return true, nil
}

// EndedBy identifies the player (or "" for the timer) that triggered
// termination.
func (s *Session) EndedBy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedBy
}
