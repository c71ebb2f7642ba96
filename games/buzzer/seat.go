/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"fmt"
	"strconv"
	"strings"
)

// SeatID identifies a seat within a room. Seat 0 is the host seat and never
// takes part in sound assignment; every other value is a numbered player seat
// whose number drives the deterministic sound index.
type SeatID int

// HostSeat is the seat reserved for the room's host.
const HostSeat SeatID = 0

// ParseSeatID parses the decimal seat identifiers used on the wire ("0", "1", ...).
func ParseSeatID(s string) (SeatID, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeat, s)
	}

	return SeatID(n), nil
}

func (s SeatID) IsHost() bool {
	return s == HostSeat
}

func (s SeatID) String() string {
	return strconv.Itoa(int(s))
}

// MarshalText keeps seat ids as strings in JSON, both as values and as map keys.
func (s SeatID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SeatID) UnmarshalText(b []byte) error {
	id, err := ParseSeatID(string(b))
	if err != nil {
		return err
	}

	*s = id

	return nil
}
