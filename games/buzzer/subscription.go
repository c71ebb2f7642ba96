/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import "sync"

// subscriptionBuffer is how many snapshots may queue up for a slow reader
// before older ones are discarded.
const subscriptionBuffer = 8

// Subscription is one client's stream of room snapshots. The channel returned
// by Updates is closed when the subscription ends, whether through Close, the
// seat being released, or the room being torn down.
type Subscription struct {
	Seat SeatID

	room      *Room
	ch        chan Snapshot
	closeOnce sync.Once
}

func newSubscription(r *Room, seat SeatID) *Subscription {
	return &Subscription{
		Seat: seat,
		room: r,
		ch:   make(chan Snapshot, subscriptionBuffer),
	}
}

func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Close detaches the subscription from its room and marks the seat
// disconnected once it has no other live subscription.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		select {
		case s.room.unsubs <- s:
		case <-s.room.quit:
		}
	})
}

// Resync asks the room to push the current snapshot to this subscription only.
func (s *Subscription) Resync() {
	select {
	case s.room.resyncs <- s:
	case <-s.room.quit:
	}
}

// deliver never blocks the room loop. Every snapshot carries the full state,
// so when the buffer is full the oldest pending one is dropped.
// Only the room loop calls deliver.
func (s *Subscription) deliver(snap Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}

	select {
	case <-s.ch:
	default:
	}

	select {
	case s.ch <- snap:
	default:
	}
}
