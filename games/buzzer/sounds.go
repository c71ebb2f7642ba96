/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"errors"
	"fmt"
	"strings"
)

// Catalog is the fixed, ordered list of buzzer sounds a room hands out.
type Catalog []string

// DefaultCatalog mirrors the sound files shipped with the client.
var DefaultCatalog = Catalog{"sch", "girou", "laurent", "mbappe"}

// Validate rejects empty catalogs, blank entries and duplicates.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.New("sound catalog is empty")
	}

	seen := make(map[string]bool, len(c))
	for _, s := range c {
		if strings.TrimSpace(s) == "" {
			return errors.New("sound catalog contains a blank entry")
		}
		if seen[s] {
			return fmt.Errorf("sound catalog contains %q twice", s)
		}
		seen[s] = true
	}

	return nil
}

// available lists catalog entries not yet marked used, in catalog order.
func (c Catalog) available(g *GameState) []string {
	out := make([]string, 0, len(c))
	for _, s := range c {
		if !g.soundUsed(s) {
			out = append(out, s)
		}
	}

	return out
}

// AssignSound gives target a sound from the catalog. The choice is
// deterministic: the seat number modulo the count of sounds still free.
// Assignments are never overwritten; once every sound is in use the used set
// is cleared and sounds start being shared.
func AssignSound(g *GameState, catalog Catalog, target SeatID) (string, Result) {
	if target.IsHost() {
		return "", noop("host seat has no sound")
	}

	if existing, ok := g.PlayerSounds[target]; ok {
		return existing, noop("sound already assigned")
	}

	if len(g.UsedSounds) >= len(catalog) {
		g.UsedSounds = []string{}
	}

	free := catalog.available(g)
	if len(free) == 0 {
		return "", noop("no sounds available")
	}

	sound := free[int(target)%len(free)]
	g.PlayerSounds[target] = sound
	g.UsedSounds = append(g.UsedSounds, sound)

	return sound, applied
}
