package storage

import (
	"context"
	"testing"

	"github.com/qianlnk/undercover/models"
)

func TestMemorySettings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.LoadSettings(ctx, "chat-1"); err != nil || ok {
		t.Fatalf("expected no settings yet, got ok=%v err=%v", ok, err)
	}
	want := models.Settings{TieBreaker: models.TieBreakNone, UndercoverCount: 2}
	if err := m.SaveSettings(ctx, "chat-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := m.LoadSettings(ctx, "chat-1")
	if err != nil || !ok {
		t.Fatalf("expected stored settings, got ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestMemorySnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	payload := []byte(`{"chat_id":"b"}`)
	if err := m.SaveSnapshot(ctx, "b", models.StateLobby, 0, payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := m.SaveSnapshot(ctx, "a", models.StateVoting, 2, []byte(`{"chat_id":"a"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[2] = 'X'

	snapshots, err := m.LoadSnapshots(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snapshots) != 2 || string(snapshots[0]) != `{"chat_id":"a"}` || string(snapshots[1]) != `{"chat_id":"b"}` {
		t.Fatalf("expected copies ordered by chat id, got %q", snapshots)
	}

	if err := m.DeleteSnapshot(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if m.HasSnapshot("a") || !m.HasSnapshot("b") {
		t.Fatal("expected only chat b to keep its snapshot")
	}
}
