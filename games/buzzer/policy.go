/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import "fmt"

// PhasePlay is the only phase. It starts when the room is created and never ends.
const PhasePlay = "play"

// Policy decides who may submit which move. There are no turns: every seated
// player may act at any time, concurrently.
type Policy struct {
	// HostOnlyControls restricts the lock and reset moves to the host seat.
	// With it off, any seated player may send them.
	HostOnlyControls bool
}

func (p Policy) Phase() string {
	return PhasePlay
}

// IsHostControl reports whether move is one of the host's table controls.
func IsHostControl(move string) bool {
	switch move {
	case MoveResetBuzzer, MoveResetBuzzers, MoveToggleLock:
		return true
	}
	return false
}

// Authorize checks that actor may submit move right now.
func (p Policy) Authorize(actor SeatID, move string) error {
	if p.HostOnlyControls && IsHostControl(move) && !actor.IsHost() {
		return fmt.Errorf("%w: %s", ErrHostOnly, move)
	}

	return nil
}

// Active returns the seats allowed to move: every claimed seat.
func (p Policy) Active(players []PlayerInfo) []SeatID {
	out := make([]SeatID, 0, len(players))
	for _, pl := range players {
		if pl.Name != "" {
			out = append(out, pl.ID)
		}
	}

	return out
}
