/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	MinPlayers = 2
	MaxPlayers = 200

	// CodeAlphabet leaves out I and O so codes read back unambiguously.
	CodeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	DefaultCodeLength = 6

	maxCodeAttempts = 64
)

// Options configures a Directory and every room it creates. Zero values
// fall back to the defaults used by the server.
type Options struct {
	// MaxPlayers caps the seat count of new rooms, and is the default seat count.
	MaxPlayers int
	Catalog    Catalog
	Policy     Policy

	// IdleTimeout is how long a room may go untouched before the reaper
	// evicts it. Zero keeps rooms until they are evicted explicitly.
	IdleTimeout time.Duration

	CodeLength     int
	NewCode        func(n int) string
	NewCredentials func() string
	Now            func() time.Time
	Logf           Logger
}

func (o Options) withDefaults() Options {
	if o.MaxPlayers < MinPlayers || o.MaxPlayers > MaxPlayers {
		o.MaxPlayers = MaxPlayers
	}
	if len(o.Catalog) == 0 {
		o.Catalog = DefaultCatalog
	}
	if o.CodeLength <= 0 {
		o.CodeLength = DefaultCodeLength
	}
	if o.NewCode == nil {
		o.NewCode = RandomCode
	}
	if o.NewCredentials == nil {
		o.NewCredentials = uuid.NewString
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}

// RandomCode returns n characters drawn uniformly from CodeAlphabet using crypto/rand.
func RandomCode(n int) string {
	const limit = byte(255 - (256 % len(CodeAlphabet)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= limit {
				out = append(out, CodeAlphabet[int(b)%len(CodeAlphabet)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// NormalizeCode makes room lookups case- and whitespace-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Directory maps room codes to live rooms.
type Directory struct {
	opts Options

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewDirectory(opts Options) *Directory {
	return &Directory{
		opts:  opts.withDefaults(),
		rooms: make(map[string]*Room),
	}
}

// Create starts a room with numPlayers seats (zero means the maximum) and
// returns its code. Codes are checked against live rooms before use.
func (d *Directory) Create(numPlayers int) (string, error) {
	if numPlayers == 0 {
		numPlayers = d.opts.MaxPlayers
	}
	if numPlayers < MinPlayers || numPlayers > d.opts.MaxPlayers {
		return "", fmt.Errorf("%w: must be between %d and %d", ErrInvalidPlayers, MinPlayers, d.opts.MaxPlayers)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	code := ""
	for n := 0; n < maxCodeAttempts; n++ {
		candidate := NormalizeCode(d.opts.NewCode(d.opts.CodeLength))
		if _, exists := d.rooms[candidate]; !exists && candidate != "" {
			code = candidate
			break
		}
	}
	if code == "" {
		return "", errors.New("unable to allocate a free room code")
	}

	room := newRoom(code, numPlayers, d.opts)
	d.rooms[code] = room
	go room.run()

	d.opts.Logf.printf("GAMES: Created room %s with %d seats", code, numPlayers)

	return code, nil
}

func (d *Directory) Get(code string) (*Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[NormalizeCode(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}

	return room, nil
}

func (d *Directory) Info(ctx context.Context, code string) (RoomInfo, error) {
	room, err := d.Get(code)
	if err != nil {
		return RoomInfo{}, err
	}

	return room.Info(ctx)
}

func (d *Directory) Join(ctx context.Context, code string, hint *SeatID, name, credentials string) (JoinResult, error) {
	room, err := d.Get(code)
	if err != nil {
		return JoinResult{}, err
	}

	return room.Join(ctx, hint, name, credentials)
}

func (d *Directory) Leave(ctx context.Context, code string, id SeatID, credentials string) error {
	room, err := d.Get(code)
	if err != nil {
		return err
	}

	return room.Leave(ctx, id, credentials)
}

// Len returns the number of live rooms.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.rooms)
}

// Evict removes a room and closes it. It reports whether the room existed.
func (d *Directory) Evict(code string) bool {
	d.mu.Lock()
	room, ok := d.rooms[NormalizeCode(code)]
	if ok {
		delete(d.rooms, room.code)
	}
	d.mu.Unlock()

	if ok {
		room.Close()
	}

	return ok
}

// Reap evicts every room idle since before cutoff and returns how many it removed.
func (d *Directory) Reap(cutoff time.Time) int {
	var stale []*Room

	d.mu.Lock()
	for code, room := range d.rooms {
		if room.LastActive().Before(cutoff) {
			delete(d.rooms, code)
			stale = append(stale, room)
		}
	}
	d.mu.Unlock()

	for _, room := range stale {
		d.opts.Logf.printf("GAMES: Reaping idle room %s", room.code)
		room.Close()
	}

	return len(stale)
}

// Run reaps idle rooms until ctx ends, then closes every remaining room.
func (d *Directory) Run(ctx context.Context) {
	defer d.Close()

	if d.opts.IdleTimeout <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(d.opts.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Reap(d.opts.Now().Add(-d.opts.IdleTimeout))
		}
	}
}

// Close evicts every room.
func (d *Directory) Close() {
	d.mu.Lock()
	rooms := make([]*Room, 0, len(d.rooms))
	for code, room := range d.rooms {
		rooms = append(rooms, room)
		delete(d.rooms, code)
	}
	d.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}
