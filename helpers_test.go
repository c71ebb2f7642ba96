/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/buzzbox/games/buzzer"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:             "127.0.0.1",
		codeLength:       buzzer.DefaultCodeLength,
		hostOnlyControls: true,
		maxPlayers:       buzzer.MaxPlayers,
		port:             4001,
		rateWindow:       time.Minute,
		sessionTimeout:   time.Hour,
		sounds:           buzzer.DefaultCatalog,
	}
}

func newTestServer(t *testing.T, cfg *Config) (*httptest.Server, *buzzer.Directory) {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	dir := buzzer.NewDirectory(cfg.directoryOptions())

	errs := make(chan error, 64)
	go drainErrors(cfg, errs)

	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: newHandler(ctx, cfg, dir, errs)},
	}
	ts.Start()

	t.Cleanup(func() {
		cancel()
		dir.Close()
		ts.Close()
	})

	return ts, dir
}

// doJSON sends body as JSON and decodes the reply into out when out is non-nil.
func doJSON(t *testing.T, method, url string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func createRoom(t *testing.T, ts *httptest.Server, numPlayers int) string {
	t.Helper()

	var res createResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/games/buzzer", createRequest{NumPlayers: numPlayers}, &res)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, res.RoomID)

	return res.RoomID
}

type seatResponse struct {
	PlayerID          string `json:"playerID"`
	PlayerCredentials string `json:"playerCredentials"`
}

func joinRoom(t *testing.T, ts *httptest.Server, code string, body map[string]any) seatResponse {
	t.Helper()

	var res seatResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/games/buzzer/"+code+"/join", body, &res)
	require.Equal(t, http.StatusOK, status)

	return res
}

// serverMessage decodes either kind of frame the server sends.
type serverMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Move  string `json:"move"`
	buzzer.Snapshot
}

func dial(t *testing.T, ts *httptest.Server, code string, seat seatResponse) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/buzzer/" + code +
		"/ws?playerID=" + seat.PlayerID + "&credentials=" + seat.PlayerCredentials

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	t.Cleanup(func() { conn.Close() })

	return conn
}

// readUntil returns the first message matching ok, failing after two seconds.
func readUntil(t *testing.T, conn *websocket.Conn, ok func(serverMessage) bool) serverMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	defer conn.SetReadDeadline(time.Time{})

	for {
		var msg serverMessage
		require.NoError(t, conn.ReadJSON(&msg))

		if ok(msg) {
			return msg
		}
	}
}

func isState(msg serverMessage) bool {
	return msg.Type == "state"
}
