package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/qianlnk/undercover/models"
)

// Memory is the storage used when no database is configured. Nothing survives a restart.
type Memory struct {
	mu        sync.Mutex
	settings  map[string]models.Settings
	snapshots map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		settings:  make(map[string]models.Settings),
		snapshots: make(map[string][]byte),
	}
}

func (m *Memory) LoadSettings(_ context.Context, chatID string) (models.Settings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings, ok := m.settings[chatID]
	return settings, ok, nil
}

func (m *Memory) SaveSettings(_ context.Context, chatID string, settings models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[chatID] = settings
	return nil
}

func (m *Memory) SaveSnapshot(_ context.Context, chatID string, _ models.SessionState, _ int, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[chatID] = append([]byte(nil), payload...)
	return nil
}

func (m *Memory) DeleteSnapshot(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, chatID)
	return nil
}

func (m *Memory) LoadSnapshots(_ context.Context) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chatIDs := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		chatIDs = append(chatIDs, id)
	}
	sort.Strings(chatIDs)
	payloads := make([][]byte, 0, len(chatIDs))
	for _, id := range chatIDs {
		payloads = append(payloads, append([]byte(nil), m.snapshots[id]...))
	}
	return payloads, nil
}

// HasSnapshot reports whether a snapshot is stored for the chat.
func (m *Memory) HasSnapshot(chatID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.snapshots[chatID]
	return ok
}
