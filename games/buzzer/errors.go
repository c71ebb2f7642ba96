/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room has reached capacity")
	ErrRoomClosed     = errors.New("room is closed")
	ErrNameTaken      = errors.New("player name already taken")
	ErrSeatTaken      = errors.New("seat already taken")
	ErrHostSeat       = errors.New("host seat cannot be released")
	ErrInvalidSeat    = errors.New("invalid seat")
	ErrInvalidName    = errors.New("invalid player name")
	ErrInvalidPlayers = errors.New("invalid number of players")
	ErrAuth           = errors.New("invalid credentials")
	ErrUnknownMove    = errors.New("unknown move")
	ErrHostOnly       = errors.New("only the host can perform this move")
)

// IsValidation reports whether err was caused by malformed caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidSeat) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidPlayers) ||
		errors.Is(err, ErrUnknownMove) ||
		errors.Is(err, ErrHostOnly)
}

// IsConflict reports whether err means the requested seat or room cannot be
// taken right now; the caller may retry with different input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrRoomFull) ||
		errors.Is(err, ErrNameTaken) ||
		errors.Is(err, ErrSeatTaken) ||
		errors.Is(err, ErrHostSeat)
}

// Logger receives soft failures and lifecycle messages. A nil Logger discards.
type Logger func(format string, args ...any)

func (l Logger) printf(format string, args ...any) {
	if l == nil {
		return
	}

	l(format, args...)
}
