package game

import "time"

// Publish overwrites the live position entry for a device. Reports are
// accepted from any roster device; there is one slot per device, never
// a history.
func (s *Session) Publish(deviceID string, lat, lon float64, alt *float64) (PositionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owner *Player
	for _, p := range s.players {
		if p.DeviceID == deviceID {
			owner = p
			break
		}
	}
	if owner == nil {
		return PositionReport{}, ErrPlayerNotFound
	}
	rep := &PositionReport{
		DeviceID:   deviceID,
		Latitude:   lat,
		Longitude:  lon,
		Altitude:   alt,
		Timestamp:  time.Now().UTC(),
		PlayerID:   owner.ID,
		PlayerName: owner.Name,
	}
	s.positions[deviceID] = rep
	return *rep, nil
}

// Positions returns a snapshot of every live report.
func (s *Session) Positions() []PositionReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PositionReport, 0, len(s.positions))
	for _, rep := range s.positions {
		out = append(out, *rep)
	}
	return out
}

// VisibleTo applies the per-role visibility policy to a snapshot: a
// hider sees every report, a seeker only its own. Unassigned viewers
// see everything, matching the lobby map.
func VisibleTo(viewer Role, selfDeviceID string, reports []PositionReport) []PositionReport {
	if viewer != RoleSeeker {
		return reports
	}
	out := make([]PositionReport, 0, 1)
	for _, rep := range reports {
		if rep.DeviceID == selfDeviceID {
			out = append(out, rep)
		}
	}
	return out
}
