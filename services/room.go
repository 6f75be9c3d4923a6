package services

import (
	"sort"
	"sync"

	"github.com/qianlnk/undercover/models"
)

// sessionEntry 每个群聊一个锁，不同群聊互不阻塞
type sessionEntry struct {
	mu      sync.Mutex
	session *Session
	removed bool
}

// SessionRegistry 群聊到进行中会话的映射
type SessionRegistry struct {
	entries map[string]*sessionEntry
	mutex   sync.RWMutex
}

// NewSessionRegistry 创建会话注册表
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		entries: make(map[string]*sessionEntry),
	}
}

// Create 登记新会话，一个群聊同时只能有一局
func (r *SessionRegistry) Create(session *Session) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.entries[session.ChatID]; exists {
		return ErrSessionExists
	}
	r.entries[session.ChatID] = &sessionEntry{session: session}
	return nil
}

// Restore 放入从存储恢复的会话，覆盖已有记录
func (r *SessionRegistry) Restore(session *Session) {
	r.mutex.Lock()
	old, exists := r.entries[session.ChatID]
	r.entries[session.ChatID] = &sessionEntry{session: session}
	r.mutex.Unlock()

	if exists {
		old.mu.Lock()
		old.removed = true
		old.mu.Unlock()
	}
}

func (r *SessionRegistry) entry(chatID string) (*sessionEntry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	e, exists := r.entries[chatID]
	return e, exists
}

// Update 在群聊锁内执行 fn；会话结束后自动移除
func (r *SessionRegistry) Update(chatID string, fn func(*Session) error) error {
	e, exists := r.entry(chatID)
	if !exists {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// 等锁期间会话可能已经结束
	if e.removed {
		return ErrSessionNotFound
	}
	err := fn(e.session)
	if e.session.State == models.StateFinished {
		e.removed = true
		r.mutex.Lock()
		if r.entries[chatID] == e {
			delete(r.entries, chatID)
		}
		r.mutex.Unlock()
	}
	return err
}

// View 在群聊锁内只读访问会话
func (r *SessionRegistry) View(chatID string, fn func(*Session) error) error {
	e, exists := r.entry(chatID)
	if !exists {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return ErrSessionNotFound
	}
	return fn(e.session)
}

// ChatIDs 所有有进行中会话的群聊，按字典序
func (r *SessionRegistry) ChatIDs() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
