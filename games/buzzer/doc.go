/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package buzzer is the room engine behind the buzzer game: a host opens a
// room, players claim seats, and a shared queue records who buzzed first.
//
// Each Room runs its own goroutine that owns the GameState and the seat
// list, so moves for a room are applied one at a time, in arrival order, with
// timestamps assigned by the room. A Directory maps room codes to rooms.
package buzzer
