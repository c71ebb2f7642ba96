/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Seednode/buzzbox/games/buzzer"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	moveTimeout    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientMessage is what browsers send over the socket.
type ClientMessage struct {
	Type string            `json:"type"`
	Move string            `json:"move,omitempty"`
	Args []json.RawMessage `json:"args,omitempty"`
}

type StateMessage struct {
	Type string `json:"type"`
	buzzer.Snapshot
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Move  string `json:"move,omitempty"`
}

// wsClient pairs one socket with one room subscription. writePump is the
// only goroutine that writes to conn.
type wsClient struct {
	cfg         *Config
	conn        *websocket.Conn
	room        *buzzer.Room
	sub         *buzzer.Subscription
	credentials string
	failures    chan ErrorMessage
}

// moveArgs accepts both ["2"] and [2] from clients.
func moveArgs(raw []json.RawMessage) []string {
	args := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			args = append(args, s)
			continue
		}

		var n json.Number
		if err := json.Unmarshal(r, &n); err == nil {
			args = append(args, n.String())
			continue
		}

		args = append(args, string(r))
	}

	return args
}

func serveWS(cfg *Config, dir *buzzer.Directory, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, err := dir.Get(p.ByName("room"))
		if err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		q := r.URL.Query()

		id, err := buzzer.ParseSeatID(q.Get("playerID"))
		if err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		credentials := q.Get("credentials")

		sub, err := room.Subscribe(r.Context(), id, credentials)
		if err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			sub.Close()

			errs <- err

			return
		}

		logf(cfg, "SERVE: Player %s connected to room %s from %s", id, room.Code(), realIP(r))

		c := &wsClient{
			cfg:         cfg,
			conn:        conn,
			room:        room,
			sub:         sub,
			credentials: credentials,
			failures:    make(chan ErrorMessage, 4),
		}

		go c.writePump()
		c.readPump(r.Context())

		logf(cfg, "SERVE: Player %s disconnected from room %s", id, room.Code())
	}
}

// report queues an error for the writer, dropping it if the writer is behind.
func (c *wsClient) report(msg ErrorMessage) {
	select {
	case c.failures <- msg:
	default:
	}
}

func (c *wsClient) readPump(ctx context.Context) {
	defer func() {
		c.sub.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "move":
			moveCtx, cancel := context.WithTimeout(ctx, moveTimeout)
			err := c.room.Submit(moveCtx, c.sub.Seat, c.credentials, msg.Move, moveArgs(msg.Args)...)
			cancel()

			switch {
			case err == nil:
			case errors.Is(err, buzzer.ErrRoomClosed), errors.Is(err, buzzer.ErrAuth):
				return
			default:
				logf(c.cfg, "MOVES: Rejected %s from player %s in room %s: %v", msg.Move, c.sub.Seat, c.room.Code(), err)
				c.report(ErrorMessage{Type: "error", Error: err.Error(), Move: msg.Move})
			}
		case "sync":
			c.sub.Resync()
		default:
			c.report(ErrorMessage{Type: "error", Error: "unknown message type " + strconv.Quote(msg.Type)})
		}
	}
}

func (c *wsClient) write(v any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return c.conn.WriteJSON(v)
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	updates := c.sub.Updates()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))

				return
			}

			if err := c.write(StateMessage{Type: "state", Snapshot: snap}); err != nil {
				return
			}
		case msg := <-c.failures:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
