/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"slices"
	"sort"
)

// QueueEntry records when a seat buzzed, as stamped by the room.
type QueueEntry struct {
	ID        SeatID `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// GameState is the shared state of one room. It is owned by the room loop and
// only ever mutated by moves running on that loop.
type GameState struct {
	Queue        map[SeatID]QueueEntry `json:"queue"`
	Locked       bool                  `json:"locked"`
	PlayerSounds map[SeatID]string     `json:"playerSounds"`
	UsedSounds   []string              `json:"usedSounds"`
}

func NewGameState() *GameState {
	return &GameState{
		Queue:        make(map[SeatID]QueueEntry),
		PlayerSounds: make(map[SeatID]string),
		UsedSounds:   []string{},
	}
}

// Clone returns a deep copy, safe to hand to other goroutines.
func (g *GameState) Clone() *GameState {
	c := &GameState{
		Queue:        make(map[SeatID]QueueEntry, len(g.Queue)),
		Locked:       g.Locked,
		PlayerSounds: make(map[SeatID]string, len(g.PlayerSounds)),
		UsedSounds:   slices.Clone(g.UsedSounds),
	}
	if c.UsedSounds == nil {
		c.UsedSounds = []string{}
	}

	for id, e := range g.Queue {
		c.Queue[id] = e
	}
	for id, s := range g.PlayerSounds {
		c.PlayerSounds[id] = s
	}

	return c
}

// Ordered returns the queue sorted by timestamp, earliest buzz first.
func (g *GameState) Ordered() []QueueEntry {
	out := make([]QueueEntry, 0, len(g.Queue))
	for _, e := range g.Queue {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func (g *GameState) Queued(id SeatID) bool {
	_, ok := g.Queue[id]
	return ok
}

func (g *GameState) soundUsed(sound string) bool {
	return slices.Contains(g.UsedSounds, sound)
}
