package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qianlnk/undercover/models"
)

// Session 一个群聊中的一局游戏
// 同一群聊的操作由 SessionRegistry 串行化，Session 本身不加锁
type Session struct {
	ID             string               `json:"id"`
	ChatID         string               `json:"chat_id"`
	CreatorID      string               `json:"creator_id"`
	State          models.SessionState  `json:"state"`
	Players        []models.Player      `json:"players"`
	TurnOrder      []string             `json:"turn_order"`
	Turn           int                  `json:"turn"`
	Settings       models.Settings      `json:"settings"`
	Distribution   models.Distribution  `json:"distribution"`
	Words          models.WordPair      `json:"words"`
	Votes          map[string]string    `json:"votes"`
	Round          int                  `json:"round"`
	GuesserID      string               `json:"guesser_id,omitempty"`
	LastEliminated string               `json:"last_eliminated,omitempty"`
	Winner         models.Role          `json:"winner,omitempty"`
	Terminated     bool                 `json:"terminated,omitempty"`
	History        []models.RoundRecord `json:"history,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`

	rng    Randomizer
	events []Event
}

// NewSession 创建处于大厅状态的新会话
func NewSession(chatID, creatorID string, settings models.Settings, rng Randomizer) *Session {
	if rng == nil {
		rng = NewRandom()
	}
	return &Session{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		CreatorID: creatorID,
		State:     models.StateLobby,
		Players:   make([]models.Player, 0),
		Settings:  settings,
		Votes:     make(map[string]string),
		CreatedAt: time.Now().UTC(),
		rng:       rng,
	}
}

// SetRandom 替换随机源（恢复快照后必须调用）
func (s *Session) SetRandom(rng Randomizer) {
	s.rng = rng
}

// Snapshot 序列化完整会话
func (s *Session) Snapshot() ([]byte, error) {
	return json.Marshal(s)
}

// RestoreSession 从快照恢复会话
func RestoreSession(data []byte, rng Randomizer) (*Session, error) {
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	if session.ChatID == "" {
		return nil, errors.New("decode session snapshot: chat id is missing")
	}
	if session.Votes == nil {
		session.Votes = make(map[string]string)
	}
	if session.Players == nil {
		session.Players = make([]models.Player, 0)
	}
	if session.State != models.StateLobby {
		for _, player := range session.Players {
			if !player.Role.Valid() {
				return nil, fmt.Errorf("decode session snapshot: player %s has no role", player.ID)
			}
		}
	}
	if rng == nil {
		rng = NewRandom()
	}
	session.rng = rng
	return &session, nil
}

// player 按 ID 查找玩家
func (s *Session) player(id string) *models.Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Player 返回玩家副本
func (s *Session) Player(id string) (models.Player, bool) {
	if p := s.player(id); p != nil {
		return *p, true
	}
	return models.Player{}, false
}

// CurrentPlayerID 当前应该描述的玩家
func (s *Session) CurrentPlayerID() string {
	if s.State != models.StateDescribing || s.Turn < 0 || s.Turn >= len(s.TurnOrder) {
		return ""
	}
	return s.TurnOrder[s.Turn]
}

// AlivePlayers 存活玩家，按出场顺序
func (s *Session) AlivePlayers() []models.Player {
	alive := make([]models.Player, 0, len(s.Players))
	for _, id := range s.orderedIDs() {
		if p := s.player(id); p != nil && p.Alive {
			alive = append(alive, *p)
		}
	}
	return alive
}

// orderedIDs 开局后按发言顺序，大厅中按加入顺序
func (s *Session) orderedIDs() []string {
	if len(s.TurnOrder) > 0 {
		return s.TurnOrder
	}
	ids := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

func (s *Session) countAlive() (civilians, undercover, mrWhites int) {
	for _, p := range s.Players {
		if !p.Alive {
			continue
		}
		switch p.Role {
		case models.Civilian:
			civilians++
		case models.Undercover:
			undercover++
		case models.MrWhite:
			mrWhites++
		}
	}
	return civilians, undercover, mrWhites
}

// Clues 本回合的描述，按发言顺序
func (s *Session) Clues() ([]models.Clue, error) {
	if s.State == models.StateLobby {
		return nil, fmt.Errorf("%w: game hasn't started yet", ErrInvalidState)
	}
	clues := make([]models.Clue, 0, len(s.TurnOrder))
	for _, id := range s.TurnOrder {
		p := s.player(id)
		if p == nil || !p.Spoken || p.Description == "" {
			continue
		}
		clues = append(clues, models.Clue{PlayerID: p.ID, Name: p.Name, Description: p.Description})
	}
	return clues, nil
}

// PublicStatus 公开视图：隐藏存活玩家的角色和词
func (s *Session) PublicStatus() models.GameStatus {
	players := make([]models.PublicPlayer, 0, len(s.Players))
	for _, id := range s.orderedIDs() {
		p := s.player(id)
		if p == nil {
			continue
		}
		public := models.PublicPlayer{
			ID:          p.ID,
			Name:        p.Name,
			Alive:       p.Alive,
			Spoken:      p.Spoken,
			Description: p.Description,
		}
		_, public.Voted = s.Votes[p.ID]
		if !p.Alive && s.State != models.StateLobby {
			public.Role = p.Role
		}
		if s.State == models.StateFinished {
			public.Role = p.Role
		}
		players = append(players, public)
	}
	return models.GameStatus{
		SessionID:   s.ID,
		ChatID:      s.ChatID,
		CreatorID:   s.CreatorID,
		State:       s.State,
		Round:       s.Round,
		Players:     players,
		CurrentTurn: s.CurrentPlayerID(),
		GuesserID:   s.GuesserID,
		Settings:    s.Settings,
		Winner:      s.Winner,
		Terminated:  s.Terminated,
		Actions:     availableActions(s.State),
		CreatedAt:   s.CreatedAt,
	}
}

// DrainEvents 取出并清空上次操作产生的事件
func (s *Session) DrainEvents() []Event {
	events := s.events
	s.events = nil
	return events
}

func (s *Session) emit(event Event) {
	event.Round = s.Round
	s.events = append(s.events, event)
}
