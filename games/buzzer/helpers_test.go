/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func sequentialCredentials() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("cred-%d", n.Add(1))
	}
}

func testOptions(clock *fakeClock) Options {
	return Options{
		Catalog:        DefaultCatalog,
		Now:            clock.Now,
		NewCredentials: sequentialCredentials(),
	}
}

// newTestRoom creates a room through a directory and closes both on cleanup.
func newTestRoom(t *testing.T, opts Options, seats int) (*Directory, *Room) {
	t.Helper()

	dir := NewDirectory(opts)
	t.Cleanup(dir.Close)

	code, err := dir.Create(seats)
	require.NoError(t, err)

	room, err := dir.Get(code)
	require.NoError(t, err)

	return dir, room
}

func join(t *testing.T, room *Room, name string) JoinResult {
	t.Helper()

	res, err := room.Join(testContext(t), nil, name, "")
	require.NoError(t, err)

	return res
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func snapshot(t *testing.T, room *Room) Snapshot {
	t.Helper()

	snap, err := room.Snapshot(testContext(t))
	require.NoError(t, err)

	return snap
}

func nextSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()

	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}

	return Snapshot{}
}

// waitForSnapshot reads snapshots until cond holds.
func waitForSnapshot(t *testing.T, sub *Subscription, cond func(Snapshot) bool) Snapshot {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed")
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
			return Snapshot{}
		}
	}
}
