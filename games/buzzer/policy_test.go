/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buzzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyPhaseIsAlwaysPlay(t *testing.T) {
	assert.Equal(t, PhasePlay, Policy{}.Phase())
	assert.Equal(t, PhasePlay, Policy{HostOnlyControls: true}.Phase())
}

func TestPolicyOpenControls(t *testing.T) {
	p := Policy{}

	for _, move := range MoveNames() {
		assert.NoError(t, p.Authorize(3, move), move)
		assert.NoError(t, p.Authorize(HostSeat, move), move)
	}
}

func TestPolicyHostOnlyControls(t *testing.T) {
	p := Policy{HostOnlyControls: true}

	for _, move := range []string{MoveResetBuzzer, MoveResetBuzzers, MoveToggleLock} {
		assert.ErrorIs(t, p.Authorize(3, move), ErrHostOnly, move)
		assert.NoError(t, p.Authorize(HostSeat, move), move)
	}

	assert.NoError(t, p.Authorize(3, MoveBuzz))
	assert.NoError(t, p.Authorize(3, MoveAssignSound))
}

func TestPolicyActiveIsEveryClaimedSeat(t *testing.T) {
	players := []PlayerInfo{
		{ID: 0, Name: "Host", Connected: true},
		{ID: 1, Name: "Ada"},
		{ID: 2},
		{ID: 3, Name: "Bob", Connected: true},
	}

	assert.Equal(t, []SeatID{0, 1, 3}, Policy{}.Active(players))
}
