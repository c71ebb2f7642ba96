/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"sort"
	"strings"
)

// PlayerInfo is the public view of a seat.
type PlayerInfo struct {
	ID        SeatID `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// Standing is one row of the buzz ranking.
type Standing struct {
	ID        SeatID `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Timestamp int64  `json:"timestamp"`
	DeltaMs   int64  `json:"deltaMs"`
}

// RoomInfo is what the lobby needs to pick a seat.
type RoomInfo struct {
	RoomID     string       `json:"roomID"`
	NumPlayers int          `json:"numPlayers"`
	Players    []PlayerInfo `json:"players"`
}

// Snapshot is the full replicated view of a room pushed to every client.
// Its State is a private copy and must be treated as read-only.
type Snapshot struct {
	RoomID  string       `json:"roomID"`
	Version uint64       `json:"version"`
	Phase   string       `json:"phase"`
	State   *GameState   `json:"G"`
	Players []PlayerInfo `json:"players"`
	Buzzed  []Standing   `json:"buzzed"`
	Waiting []PlayerInfo `json:"waiting"`
}

func (s Snapshot) Info() RoomInfo {
	return RoomInfo{
		RoomID:     s.RoomID,
		NumPlayers: len(s.Players),
		Players:    s.Players,
	}
}

// standings ranks the queue by timestamp and lists the claimed non-host seats
// that have not buzzed, connected players first, then by name. Queue entries
// for seats that have since been released are left out.
func standings(g *GameState, players []PlayerInfo) ([]Standing, []PlayerInfo) {
	byID := make(map[SeatID]PlayerInfo, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	buzzed := []Standing{}
	var first int64
	for i, e := range g.Ordered() {
		if i == 0 {
			first = e.Timestamp
		}
		p, ok := byID[e.ID]
		if !ok || p.Name == "" {
			continue
		}
		buzzed = append(buzzed, Standing{
			ID:        e.ID,
			Name:      p.Name,
			Connected: p.Connected,
			Timestamp: e.Timestamp,
			DeltaMs:   e.Timestamp - first,
		})
	}

	waiting := []PlayerInfo{}
	for _, p := range players {
		if p.Name == "" || p.ID.IsHost() || g.Queued(p.ID) {
			continue
		}
		waiting = append(waiting, p)
	}
	sort.SliceStable(waiting, func(i, j int) bool {
		if waiting[i].Connected != waiting[j].Connected {
			return waiting[i].Connected
		}
		return strings.ToLower(waiting[i].Name) < strings.ToLower(waiting[j].Name)
	})

	return buzzed, waiting
}
