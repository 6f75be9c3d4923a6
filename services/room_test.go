package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/qianlnk/undercover/models"
)

func TestRegistryOneSessionPerChat(t *testing.T) {
	r := NewSessionRegistry()
	if err := r.Create(NewSession("chat-1", "p1", models.DefaultSettings(), nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Create(NewSession("chat-1", "p2", models.DefaultSettings(), nil)); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	if err := r.Create(NewSession("chat-0", "p2", models.DefaultSettings(), nil)); err != nil {
		t.Fatalf("create in another chat: %v", err)
	}
	if ids := r.ChatIDs(); len(ids) != 2 || ids[0] != "chat-0" || ids[1] != "chat-1" {
		t.Fatalf("expected sorted chat ids, got %v", ids)
	}
	if err := r.View("missing", func(*Session) error { return nil }); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistrySerializesUpdates(t *testing.T) {
	r := NewSessionRegistry()
	if err := r.Create(NewSession("chat-1", "p0", models.DefaultSettings(), nil)); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := r.Update("chat-1", func(s *Session) error {
				return s.Join(fmt.Sprintf("p%d", i), "")
			})
			if err != nil {
				t.Errorf("join %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	err := r.View("chat-1", func(s *Session) error {
		if len(s.Players) != 50 {
			return fmt.Errorf("expected 50 players, got %d", len(s.Players))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRegistryDropsFinishedSessions(t *testing.T) {
	r := NewSessionRegistry()
	if err := r.Create(NewSession("chat-1", "p1", models.DefaultSettings(), nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Update("chat-1", func(s *Session) error { return s.End() }); err != nil {
		t.Fatalf("end: %v", err)
	}
	if ids := r.ChatIDs(); len(ids) != 0 {
		t.Fatalf("expected the finished session to be dropped, got %v", ids)
	}
	if err := r.Update("chat-1", func(*Session) error { return nil }); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := r.Create(NewSession("chat-1", "p2", models.DefaultSettings(), nil)); err != nil {
		t.Fatalf("expected a new game to be allowed, got %v", err)
	}
}

func TestRegistryRejectedUpdateKeepsSession(t *testing.T) {
	r := NewSessionRegistry()
	if err := r.Create(NewSession("chat-1", "p1", models.DefaultSettings(), nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	boom := errors.New("boom")
	if err := r.Update("chat-1", func(*Session) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if len(r.ChatIDs()) != 1 {
		t.Fatal("a failed update should not drop the session")
	}
}

func TestRegistryRestoreReplaces(t *testing.T) {
	r := NewSessionRegistry()
	first := NewSession("chat-1", "p1", models.DefaultSettings(), nil)
	if err := r.Create(first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := NewSession("chat-1", "p2", models.DefaultSettings(), nil)
	r.Restore(second)
	err := r.View("chat-1", func(s *Session) error {
		if s != second {
			return errors.New("expected the restored session")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if ids := r.ChatIDs(); len(ids) != 1 || ids[0] != "chat-1" {
		t.Fatalf("expected a single chat after restore, got %v", ids)
	}
}
