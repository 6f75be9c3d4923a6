package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/qianlnk/undercover/models"
)

func TestSnapshotRoundTripContinuesIdentically(t *testing.T) {
	s := newStarted(t, 6, models.DefaultSettings(), nil)
	if err := s.RecordDescription("p1", "sweet"); err != nil {
		t.Fatalf("describe: %v", err)
	}

	data := snapshotOf(t, s)
	restored, err := RestoreSession(data, &scriptedRandom{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := snapshotOf(t, restored); !bytes.Equal(data, got) {
		t.Fatalf("expected identical snapshot after restore\nwant: %s\ngot:  %s", data, got)
	}

	s.SetRandom(&scriptedRandom{})
	for _, session := range []*Session{s, restored} {
		if err := session.AdvanceTurn(); err != nil {
			t.Fatalf("advance: %v", err)
		}
		voteOut(t, session, "p2")
	}
	if !bytes.Equal(snapshotOf(t, s), snapshotOf(t, restored)) {
		t.Fatal("expected the live and the restored session to stay in step")
	}
}

func TestRestoreSessionRejectsBadSnapshots(t *testing.T) {
	cases := map[string]string{
		"not json":     `{`,
		"no chat":      `{"state":"lobby"}`,
		"bad state":    `{"chat_id":"c","state":"sleeping"}`,
		"missing role": `{"chat_id":"c","state":"voting","players":[{"id":"p1"}]}`,
		"unknown role": `{"chat_id":"c","state":"voting","players":[{"id":"p1","role":"werewolf"}]}`,
	}
	for name, data := range cases {
		if _, err := RestoreSession([]byte(data), nil); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}

	s, err := RestoreSession([]byte(`{"chat_id":"c","state":"lobby"}`), nil)
	if err != nil {
		t.Fatalf("restore lobby: %v", err)
	}
	if s.Votes == nil || s.Players == nil {
		t.Fatal("expected empty collections to be initialized")
	}
}

func TestPublicStatusHidesLivingRoles(t *testing.T) {
	s := newStarted(t, 5, models.DefaultSettings(), nil)
	voteOut(t, s, "p4")

	status := s.PublicStatus()
	if status.State != models.StateDescribing || status.Round != 2 {
		t.Fatalf("unexpected status: %s round %d", status.State, status.Round)
	}
	for _, p := range status.Players {
		switch {
		case p.ID == "p4" && p.Role != models.Undercover:
			t.Fatalf("expected the eliminated undercover to be revealed, got %q", p.Role)
		case p.ID != "p4" && p.Role != "":
			t.Fatalf("role of living player %s leaked: %s", p.ID, p.Role)
		}
	}
	if status.CurrentTurn != "p5" {
		t.Fatalf("expected p5's turn, got %q", status.CurrentTurn)
	}
	if len(status.Actions) == 0 {
		t.Fatal("expected available actions in the status")
	}

	if err := s.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	for _, p := range s.PublicStatus().Players {
		if p.Role == "" {
			t.Fatalf("expected every role revealed after the game, %s is hidden", p.ID)
		}
	}
}

func TestCluesFollowTurnOrder(t *testing.T) {
	s := newLobby(t, 4, models.DefaultSettings(), nil)
	if _, err := s.Clues(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState in the lobby, got %v", err)
	}
	if err := s.Start(testWords(t), DefaultAutoPolicy()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.RecordDescription("p1", "red"); err != nil {
		t.Fatalf("describe: %v", err)
	}
	if err := s.AdvanceTurn(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if err := s.RecordDescription("p3", "crunchy"); err != nil {
		t.Fatalf("describe: %v", err)
	}

	clues, err := s.Clues()
	if err != nil {
		t.Fatalf("clues: %v", err)
	}
	if len(clues) != 2 || clues[0].PlayerID != "p1" || clues[1].PlayerID != "p3" {
		t.Fatalf("expected clues from p1 and p3, got %+v", clues)
	}

	text := CluesText(s.Round, clues)
	if !strings.Contains(text, "red") || !strings.Contains(text, "crunchy") {
		t.Fatalf("expected both clues in %q", text)
	}
}
