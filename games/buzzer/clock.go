/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import "time"

// Clock hands out buzz timestamps in milliseconds. Stamps are strictly
// increasing, so sorting a queue by timestamp reproduces the order in which
// the room applied the buzzes even when two land in the same millisecond.
//
// A Clock belongs to a single room loop and is not safe for concurrent use.
type Clock struct {
	now  func() time.Time
	last int64
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}

	return &Clock{now: now}
}

func (c *Clock) Stamp() int64 {
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms

	return ms
}
