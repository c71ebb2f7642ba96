/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/buzzbox/games/buzzer"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type table struct {
	code  string
	host  seatResponse
	alice seatResponse
	bob   seatResponse
}

func newTable(t *testing.T, cfg *Config) (*table, func(seatResponse) *websocket.Conn) {
	t.Helper()

	ts, _ := newTestServer(t, cfg)

	tb := &table{code: createRoom(t, ts, 4)}
	tb.host = joinRoom(t, ts, tb.code, map[string]any{"playerName": "Host"})
	tb.alice = joinRoom(t, ts, tb.code, map[string]any{"playerName": "Alice"})
	tb.bob = joinRoom(t, ts, tb.code, map[string]any{"playerName": "Bob"})

	return tb, func(seat seatResponse) *websocket.Conn {
		return dial(t, ts, tb.code, seat)
	}
}

func sendMove(t *testing.T, conn *websocket.Conn, move string, args ...any) {
	t.Helper()

	if args == nil {
		args = []any{}
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "move", "move": move, "args": args}))
}

func TestWebSocketDeliversInitialState(t *testing.T) {
	tb, connect := newTable(t, testConfig())

	conn := connect(tb.alice)

	msg := readUntil(t, conn, isState)
	assert.Equal(t, tb.code, msg.RoomID)
	assert.Equal(t, buzzer.PhasePlay, msg.Phase)
	require.NotNil(t, msg.State)
	assert.False(t, msg.State.Locked)
	assert.Empty(t, msg.State.Queue)
	assert.Len(t, msg.Players, 4)
}

func TestWebSocketBuzzReachesEveryone(t *testing.T) {
	tb, connect := newTable(t, testConfig())

	host := connect(tb.host)
	alice := connect(tb.alice)
	bob := connect(tb.bob)

	for _, conn := range []*websocket.Conn{host, alice, bob} {
		readUntil(t, conn, isState)
	}

	sendMove(t, bob, buzzer.MoveBuzz)

	queued := func(msg serverMessage) bool {
		return isState(msg) && len(msg.Buzzed) == 1
	}

	for _, conn := range []*websocket.Conn{host, alice, bob} {
		msg := readUntil(t, conn, queued)
		assert.Equal(t, buzzer.SeatID(2), msg.Buzzed[0].ID)
		assert.Equal(t, "Bob", msg.Buzzed[0].Name)
		assert.Zero(t, msg.Buzzed[0].DeltaMs)
		assert.Contains(t, msg.State.Queue, buzzer.SeatID(2))
	}

	sendMove(t, alice, buzzer.MoveBuzz)

	msg := readUntil(t, host, func(msg serverMessage) bool {
		return isState(msg) && len(msg.Buzzed) == 2
	})
	assert.Equal(t, []buzzer.SeatID{2, 1}, []buzzer.SeatID{msg.Buzzed[0].ID, msg.Buzzed[1].ID})
	assert.Less(t, msg.State.Queue[2].Timestamp, msg.State.Queue[1].Timestamp)
	assert.Positive(t, msg.Buzzed[1].DeltaMs)
}

func TestWebSocketHostControls(t *testing.T) {
	tb, connect := newTable(t, testConfig())

	host := connect(tb.host)
	alice := connect(tb.alice)
	readUntil(t, host, isState)
	readUntil(t, alice, isState)

	sendMove(t, alice, buzzer.MoveToggleLock)

	msg := readUntil(t, alice, func(msg serverMessage) bool { return msg.Type == "error" })
	assert.Equal(t, buzzer.MoveToggleLock, msg.Move)
	assert.Contains(t, msg.Error, "host")

	sendMove(t, host, buzzer.MoveToggleLock)

	msg = readUntil(t, alice, func(msg serverMessage) bool {
		return isState(msg) && msg.State.Locked
	})
	assert.True(t, msg.State.Locked)

	sendMove(t, alice, buzzer.MoveBuzz)
	sendMove(t, alice, buzzer.MoveAssignSound)

	msg = readUntil(t, alice, func(msg serverMessage) bool {
		return isState(msg) && msg.State.PlayerSounds[1] != ""
	})
	assert.Empty(t, msg.State.Queue, "buzzing while locked is ignored")
}

func TestWebSocketResetBuzzerAcceptsNumericArgs(t *testing.T) {
	tb, connect := newTable(t, testConfig())

	host := connect(tb.host)
	alice := connect(tb.alice)
	readUntil(t, host, isState)
	readUntil(t, alice, isState)

	sendMove(t, alice, buzzer.MoveBuzz)
	readUntil(t, host, func(msg serverMessage) bool { return isState(msg) && len(msg.Buzzed) == 1 })

	sendMove(t, host, buzzer.MoveResetBuzzer, 1)

	msg := readUntil(t, host, func(msg serverMessage) bool { return isState(msg) && len(msg.Buzzed) == 0 })
	assert.Empty(t, msg.State.Queue)
}

func TestWebSocketUnknownMessages(t *testing.T) {
	tb, connect := newTable(t, testConfig())

	alice := connect(tb.alice)
	readUntil(t, alice, isState)

	sendMove(t, alice, "explode")
	msg := readUntil(t, alice, func(msg serverMessage) bool { return msg.Type == "error" })
	assert.Equal(t, "explode", msg.Move)
	assert.Contains(t, msg.Error, "unknown move")

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "dance"}))
	msg = readUntil(t, alice, func(msg serverMessage) bool { return msg.Type == "error" })
	assert.Contains(t, msg.Error, "dance")
}

func TestWebSocketSync(t *testing.T) {
	tb, connect := newTable(t, testConfig())

	alice := connect(tb.alice)
	first := readUntil(t, alice, isState)

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "sync"}))

	again := readUntil(t, alice, isState)
	assert.Equal(t, first.Version, again.Version)
}

func TestWebSocketDisconnectIsBroadcast(t *testing.T) {
	tb, connect := newTable(t, testConfig())

	host := connect(tb.host)
	alice := connect(tb.alice)
	readUntil(t, host, isState)
	readUntil(t, alice, isState)

	require.NoError(t, alice.Close())

	msg := readUntil(t, host, func(msg serverMessage) bool {
		return isState(msg) && !msg.Players[1].Connected
	})
	assert.Equal(t, "Alice", msg.Players[1].Name)

	waiting := make(map[string]bool)
	for _, p := range msg.Waiting {
		waiting[p.Name] = p.Connected
	}
	assert.Equal(t, map[string]bool{"Alice": false, "Bob": true}, waiting)
}

func TestWebSocketClosedWhenSeatReleased(t *testing.T) {
	cfg := testConfig()
	ts, _ := newTestServer(t, cfg)

	code := createRoom(t, ts, 3)
	joinRoom(t, ts, code, map[string]any{"playerName": "Host"})
	alice := joinRoom(t, ts, code, map[string]any{"playerName": "Alice"})

	conn := dial(t, ts, code, alice)
	readUntil(t, conn, isState)

	status := doJSON(t, http.MethodPost, ts.URL+"/games/buzzer/"+code+"/leave",
		map[string]any{"playerID": alice.PlayerID, "credentials": alice.PlayerCredentials}, nil)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}

		var closeErr *websocket.CloseError
		require.True(t, errors.As(err, &closeErr), "unexpected error: %v", err)
		assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)

		break
	}
}

func TestWebSocketRejectsHandshake(t *testing.T) {
	cfg := testConfig()
	ts, _ := newTestServer(t, cfg)

	code := createRoom(t, ts, 3)
	alice := joinRoom(t, ts, code, map[string]any{"playerName": "Alice"})

	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/buzzer/"

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"unknown room", base + "ZZZZZZ/ws?playerID=0&credentials=x", http.StatusNotFound},
		{"bad credentials", base + code + "/ws?playerID=" + alice.PlayerID + "&credentials=nope", http.StatusForbidden},
		{"unclaimed seat", base + code + "/ws?playerID=2&credentials=", http.StatusForbidden},
		{"malformed seat", base + code + "/ws?playerID=abc&credentials=x", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(tt.url, nil)
			if conn != nil {
				conn.Close()
			}

			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMoveArgs(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`"3"`),
		json.RawMessage(`4`),
		json.RawMessage(`true`),
	}

	assert.Equal(t, []string{"3", "4", "true"}, moveArgs(raw))
	assert.Empty(t, moveArgs(nil))
}
