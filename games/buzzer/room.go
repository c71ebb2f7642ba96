/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// MaxNameLength bounds player display names, in runes.
const MaxNameLength = 32

type seat struct {
	id          SeatID
	name        string
	connected   bool
	credentials string
	conns       int
}

// JoinResult is returned to a player who has claimed a seat.
type JoinResult struct {
	Seat        SeatID `json:"playerID"`
	Credentials string `json:"playerCredentials"`
}

type joinRequest struct {
	hint        *SeatID
	name        string
	credentials string
	reply       chan joinReply
}

type joinReply struct {
	res JoinResult
	err error
}

type leaveRequest struct {
	seat        SeatID
	credentials string
	reply       chan error
}

type moveRequest struct {
	seat        SeatID
	credentials string
	move        string
	args        []string
	reply       chan error
}

type subscribeRequest struct {
	sub         *Subscription
	credentials string
	reply       chan error
}

// Room is the authoritative session for one game. A single goroutine owns the
// game state and the seat list; every join, move and subscription change is a
// request on one of its channels, so mutations are applied strictly one at a
// time and in the order the room receives them. Rooms are independent of one
// another.
type Room struct {
	code    string
	catalog Catalog
	policy  Policy
	clock   *Clock
	newCred func() string
	now     func() time.Time
	logf    Logger

	state   *GameState
	seats   []seat
	subs    map[*Subscription]struct{}
	version uint64

	joins      chan joinRequest
	leaves     chan leaveRequest
	moves      chan moveRequest
	subscribes chan subscribeRequest
	unsubs     chan *Subscription
	resyncs    chan *Subscription
	snapshots  chan chan Snapshot

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

func newRoom(code string, numPlayers int, opts Options) *Room {
	now := opts.Now()

	r := &Room{
		code:    code,
		catalog: opts.Catalog,
		policy:  opts.Policy,
		clock:   NewClock(opts.Now),
		newCred: opts.NewCredentials,
		now:     opts.Now,
		logf:    opts.Logf,

		state: NewGameState(),
		seats: make([]seat, numPlayers),
		subs:  make(map[*Subscription]struct{}),

		joins:      make(chan joinRequest),
		leaves:     make(chan leaveRequest),
		moves:      make(chan moveRequest),
		subscribes: make(chan subscribeRequest),
		unsubs:     make(chan *Subscription),
		resyncs:    make(chan *Subscription),
		snapshots:  make(chan chan Snapshot),

		quit: make(chan struct{}),
		done: make(chan struct{}),

		createdAt:  now,
		lastActive: now,
	}

	for i := range r.seats {
		r.seats[i].id = SeatID(i)
	}

	return r
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) NumPlayers() int {
	return len(r.seats)
}

func (r *Room) CreatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.createdAt
}

func (r *Room) LastActive() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastActive
}

func (r *Room) touch() {
	r.mu.Lock()
	r.lastActive = r.now()
	r.mu.Unlock()
}

// Close stops the room loop and ends every subscription. It is safe to call
// more than once and waits for the loop to exit.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.quit)
	})
	<-r.done
}

// Done is closed once the room loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) run() {
	defer close(r.done)

	for {
		select {
		case jr := <-r.joins:
			res, err := r.handleJoin(jr)
			jr.reply <- joinReply{res: res, err: err}

		case lr := <-r.leaves:
			lr.reply <- r.handleLeave(lr)

		case mr := <-r.moves:
			mr.reply <- r.handleMove(mr)

		case sr := <-r.subscribes:
			sr.reply <- r.handleSubscribe(sr)

		case sub := <-r.unsubs:
			r.handleUnsubscribe(sub)

		case sub := <-r.resyncs:
			if _, ok := r.subs[sub]; ok {
				sub.deliver(r.snapshot())
			}

		case reply := <-r.snapshots:
			reply <- r.snapshot()

		case <-r.quit:
			for sub := range r.subs {
				delete(r.subs, sub)
				close(sub.ch)
			}
			r.logf.printf("GAMES: Room %s closed", r.code)
			return
		}
	}
}

// request hands req to the room loop, giving up if the room closes or ctx ends first.
func request[T any](ctx context.Context, r *Room, ch chan<- T, req T) error {
	select {
	case ch <- req:
		return nil
	case <-r.quit:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await waits for the loop's answer. Once the loop has accepted a request it
// always answers, so a cancelled ctx only stops the caller from waiting: the
// request itself still takes effect.
func await[T any](ctx context.Context, reply <-chan T) (T, error) {
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Join claims a seat for name. A seat already holding that name is resumed:
// with matching credentials always, without credentials only while nobody is
// connected to it (the credentials are then rotated). Otherwise the hinted
// seat, or else the first unclaimed seat, is taken and fresh credentials are
// issued.
func (r *Room) Join(ctx context.Context, hint *SeatID, name, credentials string) (JoinResult, error) {
	req := joinRequest{
		hint:        hint,
		name:        name,
		credentials: credentials,
		reply:       make(chan joinReply, 1),
	}
	if err := request(ctx, r, r.joins, req); err != nil {
		return JoinResult{}, err
	}

	rep, err := await(ctx, req.reply)
	if err != nil {
		return JoinResult{}, err
	}

	return rep.res, rep.err
}

// Leave releases a numbered seat so someone else may claim it.
func (r *Room) Leave(ctx context.Context, id SeatID, credentials string) error {
	req := leaveRequest{seat: id, credentials: credentials, reply: make(chan error, 1)}
	if err := request(ctx, r, r.leaves, req); err != nil {
		return err
	}

	err, werr := await(ctx, req.reply)
	if werr != nil {
		return werr
	}

	return err
}

// Submit applies move on behalf of seat id. Moves that lose a race (buzzing
// while locked, buzzing twice, resetting an empty slot) succeed without
// changing anything; only bad credentials, a forbidden or unknown move are errors.
func (r *Room) Submit(ctx context.Context, id SeatID, credentials, move string, args ...string) error {
	req := moveRequest{
		seat:        id,
		credentials: credentials,
		move:        move,
		args:        args,
		reply:       make(chan error, 1),
	}
	if err := request(ctx, r, r.moves, req); err != nil {
		return err
	}

	err, werr := await(ctx, req.reply)
	if werr != nil {
		return werr
	}

	return err
}

// Subscribe opens a snapshot stream for an authenticated seat and marks it
// connected. The current snapshot is delivered straight away.
func (r *Room) Subscribe(ctx context.Context, id SeatID, credentials string) (*Subscription, error) {
	req := subscribeRequest{
		sub:         newSubscription(r, id),
		credentials: credentials,
		reply:       make(chan error, 1),
	}
	if err := request(ctx, r, r.subscribes, req); err != nil {
		return nil, err
	}

	err, werr := await(ctx, req.reply)
	if werr != nil {
		// The loop may still register the subscription; detach it.
		go req.sub.Close()
		return nil, werr
	}
	if err != nil {
		return nil, err
	}

	return req.sub, nil
}

// Snapshot returns the current state of the room.
func (r *Room) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := request(ctx, r, r.snapshots, reply); err != nil {
		return Snapshot{}, err
	}

	return await(ctx, reply)
}

func (r *Room) Info(ctx context.Context) (RoomInfo, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return RoomInfo{}, err
	}

	return snap.Info(), nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, MaxNameLength)
	}

	return name, nil
}

func sameSecret(a, b string) bool {
	return a != "" && b != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (r *Room) seatByName(name string) *seat {
	for i := range r.seats {
		if r.seats[i].name == name {
			return &r.seats[i]
		}
	}
	return nil
}

func (r *Room) firstFree() *seat {
	for i := range r.seats {
		if r.seats[i].name == "" {
			return &r.seats[i]
		}
	}
	return nil
}

// seated reports whether id is a seat of this room that a player holds.
func (r *Room) seated(id SeatID) bool {
	s, err := r.seatAt(id)
	return err == nil && s.name != ""
}

func (r *Room) seatAt(id SeatID) (*seat, error) {
	if id < 0 || int(id) >= len(r.seats) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeat, id)
	}
	return &r.seats[id], nil
}

// authenticate resolves a claimed seat whose credentials match.
func (r *Room) authenticate(id SeatID, credentials string) (*seat, error) {
	s, err := r.seatAt(id)
	if err != nil {
		return nil, err
	}
	if s.name == "" || !sameSecret(s.credentials, credentials) {
		return nil, ErrAuth
	}
	return s, nil
}

func (r *Room) handleJoin(jr joinRequest) (JoinResult, error) {
	name, err := normalizeName(jr.name)
	if err != nil {
		return JoinResult{}, err
	}

	r.touch()

	if s := r.seatByName(name); s != nil {
		switch {
		case sameSecret(s.credentials, jr.credentials):
		case s.connected:
			return JoinResult{}, ErrNameTaken
		case jr.credentials != "":
			return JoinResult{}, ErrAuth
		default:
			s.credentials = r.newCred()
		}

		s.connected = true
		r.logf.printf("GAMES: Player %q rejoined %s as seat %s", name, r.code, s.id)
		r.broadcast()

		return JoinResult{Seat: s.id, Credentials: s.credentials}, nil
	}

	s := r.firstFree()
	if s == nil {
		return JoinResult{}, ErrRoomFull
	}

	if jr.hint != nil {
		hinted, err := r.seatAt(*jr.hint)
		if err != nil {
			return JoinResult{}, err
		}
		if hinted.name != "" {
			return JoinResult{}, fmt.Errorf("%w: %s", ErrSeatTaken, hinted.id)
		}
		s = hinted
	}

	s.name = name
	s.credentials = r.newCred()
	s.connected = true
	r.logf.printf("GAMES: Player %q joined %s as seat %s", name, r.code, s.id)
	r.broadcast()

	return JoinResult{Seat: s.id, Credentials: s.credentials}, nil
}

func (r *Room) handleLeave(lr leaveRequest) error {
	s, err := r.authenticate(lr.seat, lr.credentials)
	if err != nil {
		return err
	}
	if s.id.IsHost() {
		return ErrHostSeat
	}

	r.touch()
	r.logf.printf("GAMES: Player %q left %s", s.name, r.code)

	s.name = ""
	s.credentials = ""
	s.connected = false
	s.conns = 0
	delete(r.state.Queue, s.id)

	for sub := range r.subs {
		if sub.Seat == s.id {
			delete(r.subs, sub)
			close(sub.ch)
		}
	}

	r.broadcast()

	return nil
}

func (r *Room) handleMove(mr moveRequest) error {
	s, err := r.authenticate(mr.seat, mr.credentials)
	if err != nil {
		return err
	}
	if err := r.policy.Authorize(s.id, mr.move); err != nil {
		return err
	}

	r.touch()

	res, err := Apply(r.state, MoveContext{
		Actor:   s.id,
		Clock:   r.clock,
		Catalog: r.catalog,
		Seated:  r.seated,
	}, mr.move, mr.args)
	if err != nil {
		return err
	}

	if !res.Changed {
		r.logf.printf("MOVES: %s by seat %s in %s ignored: %s", mr.move, s.id, r.code, res.Reason)
		return nil
	}

	r.broadcast()

	return nil
}

func (r *Room) handleSubscribe(sr subscribeRequest) error {
	s, err := r.authenticate(sr.sub.Seat, sr.credentials)
	if err != nil {
		return err
	}

	r.touch()

	r.subs[sr.sub] = struct{}{}
	s.conns++

	if !s.connected {
		s.connected = true
		r.broadcast()
		return nil
	}

	sr.sub.deliver(r.snapshot())

	return nil
}

func (r *Room) handleUnsubscribe(sub *Subscription) {
	if _, ok := r.subs[sub]; !ok {
		return
	}

	delete(r.subs, sub)
	close(sub.ch)

	r.touch()

	s := &r.seats[sub.Seat]
	if s.conns > 0 {
		s.conns--
	}
	if s.conns == 0 && s.connected {
		s.connected = false
		r.broadcast()
	}
}

func (r *Room) players() []PlayerInfo {
	out := make([]PlayerInfo, len(r.seats))
	for i, s := range r.seats {
		out[i] = PlayerInfo{ID: s.id, Name: s.name, Connected: s.connected}
	}
	return out
}

func (r *Room) snapshot() Snapshot {
	players := r.players()
	buzzed, waiting := standings(r.state, players)

	return Snapshot{
		RoomID:  r.code,
		Version: r.version,
		Phase:   r.policy.Phase(),
		State:   r.state.Clone(),
		Players: players,
		Buzzed:  buzzed,
		Waiting: waiting,
	}
}

// broadcast bumps the version and pushes the new snapshot to every subscriber.
func (r *Room) broadcast() {
	r.version++

	snap := r.snapshot()
	for sub := range r.subs {
		sub.deliver(snap)
	}
}
