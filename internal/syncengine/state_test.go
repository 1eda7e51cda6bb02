package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateOutOfSync, StateAwaitingSyncStart, true},
		{StateOutOfSync, StateSynchronized, true},
		{StateAwaitingSyncStart, StateAwaitingSync1Ack, true},
		{StateAwaitingSync1Ack, StateAwaitingSync2Ack, true},
		{StateAwaitingSync2Ack, StateSynchronized, true},
		{StateSynchronized, StateAwaitingSyncStart, true},
		{StateAwaitingSync1Ack, StateOutOfSync, true},
		{StateSynchronized, StateSynchronized, true},

		{StateOutOfSync, StateAwaitingSync1Ack, false},
		{StateOutOfSync, StateAwaitingSync2Ack, false},
		{StateAwaitingSyncStart, StateSynchronized, false},
		{StateAwaitingSync1Ack, StateSynchronized, false},
		{StateSynchronized, StateAwaitingSync2Ack, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, canTransition(tt.from, tt.to))
		})
	}
}

func TestIllegalTransitionPanics(t *testing.T) {
	assert.Panics(t, func() { mustTransition(StateOutOfSync, StateAwaitingSync2Ack) })
	assert.NotPanics(t, func() { mustTransition(StateAwaitingSync2Ack, StateSynchronized) })
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "synchronized", StateSynchronized.String())
	assert.Equal(t, "awaiting_sync_1_ack", StateAwaitingSync1Ack.String())
	assert.Equal(t, "unknown", State(42).String())
}
