/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Seednode/buzzbox/games/buzzer"
	"github.com/julienschmidt/httprouter"
)

const maxBodyBytes = 4096

type createRequest struct {
	NumPlayers int `json:"numPlayers"`
}

type createResponse struct {
	RoomID string `json:"roomID"`
}

type joinBody struct {
	PlayerID    *buzzer.SeatID `json:"playerID"`
	PlayerName  string         `json:"playerName"`
	Credentials string         `json:"credentials"`
}

type leaveBody struct {
	PlayerID    *buzzer.SeatID `json:"playerID"`
	Credentials string         `json:"credentials"`
}

// decodeBody reads a small JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	return nil
}

func respond(cfg *Config, w http.ResponseWriter, errs chan<- error, status int, v any) int {
	securityHeaders(cfg, w)
	w.Header().Set("Cache-Control", "no-store")

	written, err := writeJSON(w, status, v)
	if err != nil {
		errs <- err
	}

	return written
}

func fail(cfg *Config, w http.ResponseWriter, r *http.Request, errs chan<- error, err error) {
	logf(cfg, "SERVE: %s %s from %s failed: %v", r.Method, r.URL.Path, realIP(r), err)

	securityHeaders(cfg, w)
	w.Header().Set("Cache-Control", "no-store")

	if _, werr := writeError(w, err); werr != nil {
		errs <- werr
	}
}

func serveCreate(cfg *Config, dir *buzzer.Directory, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var body createRequest
		if err := decodeBody(w, r, &body); err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		code, err := dir.Create(body.NumPlayers)
		if err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		written := respond(cfg, w, errs, http.StatusOK, createResponse{RoomID: code})

		logf(cfg, "SERVE: Created room %s (%s) for %s in %s",
			code,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveRoomInfo(cfg *Config, dir *buzzer.Directory, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		info, err := dir.Info(r.Context(), p.ByName("room"))
		if err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		written := respond(cfg, w, errs, http.StatusOK, info)

		logf(cfg, "SERVE: Room %s info (%s) to %s in %s",
			info.RoomID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveJoin(cfg *Config, dir *buzzer.Directory, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		var body joinBody
		if err := decodeBody(w, r, &body); err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		res, err := dir.Join(r.Context(), p.ByName("room"), body.PlayerID, body.PlayerName, body.Credentials)
		if err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		respond(cfg, w, errs, http.StatusOK, res)

		logf(cfg, "SERVE: Seated %q as player %s in room %s for %s in %s",
			body.PlayerName,
			res.Seat,
			buzzer.NormalizeCode(p.ByName("room")),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveLeave(cfg *Config, dir *buzzer.Directory, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		var body leaveBody
		if err := decodeBody(w, r, &body); err != nil {
			fail(cfg, w, r, errs, err)

			return
		}
		if body.PlayerID == nil {
			fail(cfg, w, r, errs, fmt.Errorf("%w: playerID is required", buzzer.ErrInvalidSeat))

			return
		}

		if err := dir.Leave(r.Context(), p.ByName("room"), *body.PlayerID, body.Credentials); err != nil {
			fail(cfg, w, r, errs, err)

			return
		}

		respond(cfg, w, errs, http.StatusOK, struct{}{})

		logf(cfg, "SERVE: Released player %s in room %s for %s in %s",
			*body.PlayerID,
			buzzer.NormalizeCode(p.ByName("room")),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// registerBuzzerGame sets up routes so that:
//   - POST $path              creates a room
//   - GET  $path/:room        describes a room
//   - POST $path/:room/join   claims a seat
//   - POST $path/:room/leave  releases a seat
//   - GET  $path/:room/ws     streams snapshots and accepts moves
//   - GET  $path/:room/qr     PNG QR code for the room page
//   - GET  /room/:room        client page for the room
func registerBuzzerGame(cfg *Config, path string, mux *httprouter.Router, dir *buzzer.Directory, errs chan<- error) {
	base := cfg.prefix + path

	mux.POST(base, serveCreate(cfg, dir, errs))
	mux.GET(base+"/:room", serveRoomInfo(cfg, dir, errs))
	mux.POST(base+"/:room/join", serveJoin(cfg, dir, errs))
	mux.POST(base+"/:room/leave", serveLeave(cfg, dir, errs))
	mux.GET(base+"/:room/ws", serveWS(cfg, dir, errs))
	mux.GET(base+"/:room/qr", serveQR(cfg, dir, errs))

	mux.GET(cfg.prefix+"/room/:room", serveIndex(cfg, errs))
}
