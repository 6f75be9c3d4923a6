package models

import (
	"encoding/json"
	"testing"
)

func TestSessionStateTransitions(t *testing.T) {
	allowed := []struct{ from, to SessionState }{
		{StateLobby, StateRoleAssignment},
		{StateLobby, StateFinished},
		{StateRoleAssignment, StateDescribing},
		{StateDescribing, StateVoting},
		{StateVoting, StateResolving},
		{StateResolving, StateEndgameGuess},
		{StateResolving, StateDescribing},
		{StateEndgameGuess, StateEndgameGuess},
		{StateEndgameGuess, StateFinished},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to SessionState }{
		{StateLobby, StateVoting},
		{StateDescribing, StateLobby},
		{StateVoting, StateDescribing},
		{StateFinished, StateLobby},
		{StateFinished, StateFinished},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestUnknownValuesAreRejected(t *testing.T) {
	var p Player
	if err := json.Unmarshal([]byte(`{"id":"p1","role":"werewolf"}`), &p); err == nil {
		t.Fatal("expected an unknown role to be rejected")
	}
	if err := json.Unmarshal([]byte(`{"id":"p1","role":"mr_white"}`), &p); err != nil || p.Role != MrWhite {
		t.Fatalf("expected mr_white to decode, got %q (%v)", p.Role, err)
	}

	var state SessionState
	if err := json.Unmarshal([]byte(`"sleeping"`), &state); err == nil {
		t.Fatal("expected an unknown state to be rejected")
	}
}

func TestSettingsHelpers(t *testing.T) {
	if !DefaultSettings().AutoDistribution() {
		t.Fatal("expected the defaults to allocate automatically")
	}
	if (Settings{MrWhiteCount: 1}).AutoDistribution() {
		t.Fatal("a fixed count should turn off full auto allocation")
	}
	if got := (Distribution{Civilians: 3, Undercover: 1, MrWhites: 1}).Total(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}
