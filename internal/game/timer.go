package game

import (
	"context"
	"time"
)

// WatchTimer polls the round timer once per tick and calls expire the
// first time the remaining time reaches zero, then returns. It returns
// without calling expire when the context is cancelled or the session
// ends some other way. Callers own exactly one watcher per session and
// must cancel it on every exit path.
func (s *Session) WatchTimer(ctx context.Context, tick time.Duration, expire func()) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			timer, ok := s.Timer()
			if !ok || !timer.Active {
				return
			}
			if s.Status() == StatusEnded {
				return
			}
			if timer.Remaining(now) == 0 {
				expire()
				return
			}
		}
	}
}
