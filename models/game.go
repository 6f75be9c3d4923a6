package models

import (
	"fmt"
	"time"
)

// Role 玩家身份
type Role string

const (
	Civilian   Role = "civilian"   // 平民：拿到平民词
	Undercover Role = "undercover" // 卧底：拿到卧底词
	MrWhite    Role = "mr_white"   // 白板：没有词，出局时可以猜词
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case Civilian, Undercover, MrWhite:
		return true
	}
	return false
}

// UnmarshalText 拒绝未知角色；大厅中的玩家角色为空
func (r *Role) UnmarshalText(text []byte) error {
	role := Role(text)
	if role != "" && !role.Valid() {
		return fmt.Errorf("unknown role %q", string(text))
	}
	*r = role
	return nil
}

// SessionState 游戏状态
type SessionState string

const (
	StateLobby          SessionState = "lobby"
	StateRoleAssignment SessionState = "role_assignment"
	StateDescribing     SessionState = "describing"
	StateVoting         SessionState = "voting"
	StateResolving      SessionState = "resolving"
	StateEndgameGuess   SessionState = "endgame_guess"
	StateFinished       SessionState = "finished"
)

var stateTransitions = map[SessionState][]SessionState{
	StateLobby:          {StateRoleAssignment, StateFinished},
	StateRoleAssignment: {StateDescribing},
	StateDescribing:     {StateVoting, StateFinished},
	StateVoting:         {StateResolving, StateFinished},
	StateResolving:      {StateEndgameGuess, StateDescribing, StateFinished},
	StateEndgameGuess:   {StateDescribing, StateEndgameGuess, StateFinished},
}

// Valid 是否为已知状态
func (s SessionState) Valid() bool {
	if s == StateFinished {
		return true
	}
	_, ok := stateTransitions[s]
	return ok
}

// CanTransitionTo 检查状态转换是否合法
func (s SessionState) CanTransitionTo(target SessionState) bool {
	for _, next := range stateTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// UnmarshalText 拒绝未知状态
func (s *SessionState) UnmarshalText(text []byte) error {
	state := SessionState(text)
	if !state.Valid() {
		return fmt.Errorf("unknown session state %q", string(text))
	}
	*s = state
	return nil
}

// TieBreaker 平票处理方式
type TieBreaker string

const (
	TieBreakRandom TieBreaker = "random"
	TieBreakNone   TieBreaker = "none"
)

// Settings 每个群聊的游戏设置，0 表示自动分配
type Settings struct {
	MrWhiteStart    bool       `json:"mr_white_start"`
	TieBreaker      TieBreaker `json:"tiebreaker"`
	CivilianCount   int        `json:"civilian_count"`
	UndercoverCount int        `json:"undercover_count"`
	MrWhiteCount    int        `json:"mr_white_count"`
}

// DefaultSettings 默认设置
func DefaultSettings() Settings {
	return Settings{
		MrWhiteStart: false,
		TieBreaker:   TieBreakRandom,
	}
}

// AutoDistribution 是否全部角色数量自动分配
func (s Settings) AutoDistribution() bool {
	return s.CivilianCount == 0 && s.UndercoverCount == 0 && s.MrWhiteCount == 0
}

// Distribution 角色分配结果
type Distribution struct {
	Civilians  int `json:"civilians"`
	Undercover int `json:"undercover"`
	MrWhites   int `json:"mr_whites"`
}

// Total 角色总数
func (d Distribution) Total() int {
	return d.Civilians + d.Undercover + d.MrWhites
}

// WordPair 词组：平民词与卧底词
type WordPair struct {
	Civilian   string `json:"civilian"`
	Undercover string `json:"undercover"`
}

// Player 玩家信息
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        Role   `json:"role,omitempty"`
	Word        string `json:"word,omitempty"`
	HasWord     bool   `json:"has_word"`
	Alive       bool   `json:"alive"`
	Spoken      bool   `json:"spoken"`
	Description string `json:"description,omitempty"`
}

// RoundRecord 已结束回合的记录
type RoundRecord struct {
	Number       int               `json:"number"`
	Descriptions map[string]string `json:"descriptions"`
	Votes        map[string]string `json:"votes"`
	EliminatedID string            `json:"eliminated_id,omitempty"`
}

// GameAction 游戏动作
type GameAction struct {
	Type      string `json:"type"`
	ChatID    string `json:"chat_id"`
	PlayerID  string `json:"player_id"`
	Name      string `json:"name,omitempty"`
	TargetID  string `json:"target_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsAdmin   bool   `json:"is_admin,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// PublicPlayer 公开的玩家信息
type PublicPlayer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Alive       bool   `json:"alive"`
	Spoken      bool   `json:"spoken"`
	Voted       bool   `json:"voted"`
	Description string `json:"description,omitempty"`
	Role        Role   `json:"role,omitempty"` // 出局后公开
}

// GameStatus 游戏状态（公开视图）
type GameStatus struct {
	SessionID   string         `json:"session_id"`
	ChatID      string         `json:"chat_id"`
	CreatorID   string         `json:"creator_id"`
	State       SessionState   `json:"state"`
	Round       int            `json:"round"`
	Players     []PublicPlayer `json:"players"`
	CurrentTurn string         `json:"current_turn,omitempty"`
	GuesserID   string         `json:"guesser_id,omitempty"`
	Settings    Settings       `json:"settings"`
	Winner      Role           `json:"winner,omitempty"`
	Terminated  bool           `json:"terminated,omitempty"`
	Actions     []string       `json:"actions"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Clue 本回合的一条描述
type Clue struct {
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
