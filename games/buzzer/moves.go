/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"fmt"
	"slices"
)

const (
	MoveBuzz         = "buzz"
	MoveResetBuzzer  = "resetBuzzer"
	MoveResetBuzzers = "resetBuzzers"
	MoveToggleLock   = "toggleLock"
	MoveAssignSound  = "assignSound"
)

// Result tells the caller whether a move changed the state. Moves never fail
// on the race conditions a buzzer game produces; they report a no-op instead.
type Result struct {
	Changed bool
	Reason  string
}

var applied = Result{Changed: true}

func noop(reason string) Result {
	return Result{Reason: reason}
}

// MoveContext carries everything a move may depend on besides the state.
type MoveContext struct {
	Actor   SeatID
	Clock   *Clock
	Catalog Catalog

	// Seated reports whether a player holds the seat. Moves aimed at anyone
	// else are no-ops. Nil accepts every seat.
	Seated func(SeatID) bool
}

func (mc MoveContext) seated(id SeatID) bool {
	return mc.Seated == nil || mc.Seated(id)
}

type moveFunc func(g *GameState, mc MoveContext, args []string) Result

var moves = map[string]moveFunc{
	MoveBuzz: func(g *GameState, mc MoveContext, _ []string) Result {
		return Buzz(g, mc.Actor, mc.Clock.Stamp())
	},
	MoveResetBuzzer: func(g *GameState, mc MoveContext, args []string) Result {
		target, ok := targetArg(mc, args)
		if !ok {
			return noop("invalid target seat")
		}
		if !mc.seated(target) {
			return noop("no such seat")
		}
		return ResetBuzzer(g, target)
	},
	MoveResetBuzzers: func(g *GameState, _ MoveContext, _ []string) Result {
		return ResetBuzzers(g)
	},
	MoveToggleLock: func(g *GameState, _ MoveContext, _ []string) Result {
		return ToggleLock(g)
	},
	MoveAssignSound: func(g *GameState, mc MoveContext, args []string) Result {
		target, ok := targetArg(mc, args)
		if !ok {
			return noop("invalid target seat")
		}
		if !mc.seated(target) {
			return noop("no such seat")
		}
		_, res := AssignSound(g, mc.Catalog, target)
		return res
	},
}

// MoveNames lists the moves a room accepts, sorted.
func MoveNames() []string {
	names := make([]string, 0, len(moves))
	for name := range moves {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Apply runs the named move against g. Only an unknown move name is an error.
func Apply(g *GameState, mc MoveContext, name string, args []string) (Result, error) {
	fn, ok := moves[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMove, name)
	}

	return fn(g, mc, args), nil
}

// targetArg reads an optional seat argument, defaulting to the actor.
func targetArg(mc MoveContext, args []string) (SeatID, bool) {
	if len(args) == 0 || args[0] == "" {
		return mc.Actor, true
	}

	id, err := ParseSeatID(args[0])
	if err != nil {
		return 0, false
	}

	return id, true
}

// Buzz queues id at timestamp ts unless the buzzers are locked or id is
// already queued, in which case the existing entry is kept.
func Buzz(g *GameState, id SeatID, ts int64) Result {
	if g.Locked {
		return noop("buzzers are locked")
	}
	if g.Queued(id) {
		return noop("already buzzed")
	}

	g.Queue[id] = QueueEntry{ID: id, Timestamp: ts}

	return applied
}

func ResetBuzzer(g *GameState, target SeatID) Result {
	if !g.Queued(target) {
		return noop("seat not in queue")
	}

	delete(g.Queue, target)

	return applied
}

func ResetBuzzers(g *GameState) Result {
	if len(g.Queue) == 0 {
		return noop("queue already empty")
	}

	g.Queue = make(map[SeatID]QueueEntry)

	return applied
}

func ToggleLock(g *GameState) Result {
	g.Locked = !g.Locked

	return applied
}
