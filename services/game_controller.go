package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/qianlnk/undercover/models"
)

// SettingsStore 按群聊保存设置
type SettingsStore interface {
	LoadSettings(ctx context.Context, chatID string) (models.Settings, bool, error)
	SaveSettings(ctx context.Context, chatID string, settings models.Settings) error
}

// SnapshotStore 保存进行中会话的快照，重启后恢复
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, chatID string, state models.SessionState, round int, payload []byte) error
	DeleteSnapshot(ctx context.Context, chatID string) error
	LoadSnapshots(ctx context.Context) ([][]byte, error)
}

// Notifier 向群聊广播或向单个玩家私信
type Notifier interface {
	BroadcastToChat(chatID string, message interface{})
	SendToPlayer(chatID, playerID string, message interface{})
}

type noopNotifier struct{}

func (noopNotifier) BroadcastToChat(string, interface{})      {}
func (noopNotifier) SendToPlayer(string, string, interface{}) {}

// GameController 游戏流程控制器，所有群聊共用一个实例
type GameController struct {
	registry  *SessionRegistry
	settings  SettingsStore
	snapshots SnapshotStore
	words     *WordRepository
	policy    AutoPolicy
	notifier  Notifier
	newRandom func() Randomizer
}

// ControllerOption 可选配置
type ControllerOption func(*GameController)

// WithNotifier 设置通知通道
func WithNotifier(n Notifier) ControllerOption {
	return func(gc *GameController) {
		if n != nil {
			gc.notifier = n
		}
	}
}

// WithRandom 设置每局游戏的随机源
func WithRandom(fn func() Randomizer) ControllerOption {
	return func(gc *GameController) {
		if fn != nil {
			gc.newRandom = fn
		}
	}
}

// NewGameController 创建游戏控制器实例
func NewGameController(registry *SessionRegistry, words *WordRepository, policy AutoPolicy, settings SettingsStore, snapshots SnapshotStore, opts ...ControllerOption) *GameController {
	gc := &GameController{
		registry:  registry,
		settings:  settings,
		snapshots: snapshots,
		words:     words,
		policy:    policy,
		notifier:  noopNotifier{},
		newRandom: NewRandom,
	}
	for _, opt := range opts {
		opt(gc)
	}
	return gc
}

// SetNotifier 在控制器创建后接入通知通道（websocket 管理器依赖控制器）
func (gc *GameController) SetNotifier(n Notifier) {
	if n != nil {
		gc.notifier = n
	}
}

// CreateSession 在群聊中开一局，创建者自动加入
func (gc *GameController) CreateSession(ctx context.Context, chatID, creatorID, name string) (models.GameStatus, error) {
	chatID = strings.TrimSpace(chatID)
	creatorID = strings.TrimSpace(creatorID)
	if chatID == "" || creatorID == "" {
		return models.GameStatus{}, fmt.Errorf("%w: chat and creator are required", ErrMalformedIdentity)
	}

	settings, err := gc.loadSettings(ctx, chatID)
	if err != nil {
		return models.GameStatus{}, err
	}

	session := NewSession(chatID, creatorID, settings, gc.newRandom())
	if err := session.Join(creatorID, name); err != nil {
		return models.GameStatus{}, err
	}
	if err := gc.registry.Create(session); err != nil {
		return models.GameStatus{}, err
	}
	log.Printf("[controller] chat %s: session %s created by %s", chatID, session.ID, creatorID)

	// 新会话刚登记，同一群聊的后续操作都要经过注册表的锁
	var status models.GameStatus
	err = gc.registry.View(chatID, func(s *Session) error {
		s.DrainEvents()
		gc.notifier.BroadcastToChat(chatID, map[string]interface{}{
			"type":       "session_created",
			"session_id": s.ID,
			"creator_id": creatorID,
			"message":    fmt.Sprintf("%s started a new game. Join now!", s.displayName(creatorID)),
		})
		status = s.PublicStatus()
		return gc.persist(ctx, s)
	})
	return status, err
}

// Join 加入大厅
func (gc *GameController) Join(ctx context.Context, chatID, playerID, name string) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		return s.Join(playerID, name)
	})
}

// Leave 离开大厅
func (gc *GameController) Leave(ctx context.Context, chatID, playerID string) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		return s.Leave(playerID)
	})
}

// Start 开始游戏（房主）
func (gc *GameController) Start(ctx context.Context, chatID, playerID string, isAdmin bool) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		if err := requireCreator(s, playerID, isAdmin); err != nil {
			return err
		}
		return s.Start(gc.words, gc.policy)
	})
}

// RecordDescription 当前玩家提交描述
func (gc *GameController) RecordDescription(ctx context.Context, chatID, playerID, text string) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		return s.RecordDescription(playerID, text)
	})
}

// AdvanceTurn 跳过当前玩家（房主）
func (gc *GameController) AdvanceTurn(ctx context.Context, chatID, playerID string, isAdmin bool) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		if err := requireCreator(s, playerID, isAdmin); err != nil {
			return err
		}
		return s.AdvanceTurn()
	})
}

// ForceVoting 直接进入投票（房主）
func (gc *GameController) ForceVoting(ctx context.Context, chatID, playerID string, isAdmin bool) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		if err := requireCreator(s, playerID, isAdmin); err != nil {
			return err
		}
		return s.ForceVoting()
	})
}

// CastVote 投票
func (gc *GameController) CastVote(ctx context.Context, chatID, voterID, targetID string) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		return s.CastVote(voterID, targetID)
	})
}

// CloseVoting 按已投的票结算（房主）
func (gc *GameController) CloseVoting(ctx context.Context, chatID, playerID string, isAdmin bool) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		if err := requireCreator(s, playerID, isAdmin); err != nil {
			return err
		}
		return s.CloseVoting()
	})
}

// SubmitGuess 白板猜词
func (gc *GameController) SubmitGuess(ctx context.Context, chatID, playerID, text string) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		return s.SubmitGuess(playerID, text)
	})
}

// EndSession 强制结束（房主或群管理员）
func (gc *GameController) EndSession(ctx context.Context, chatID, playerID string, isAdmin bool) (models.GameStatus, error) {
	return gc.mutate(ctx, chatID, func(s *Session) error {
		if err := requireCreator(s, playerID, isAdmin); err != nil {
			return err
		}
		return s.End()
	})
}

// Status 公开的游戏状态
func (gc *GameController) Status(chatID string) (models.GameStatus, error) {
	var status models.GameStatus
	err := gc.registry.View(chatID, func(s *Session) error {
		status = s.PublicStatus()
		return nil
	})
	return status, err
}

// Clues 本回合的描述
func (gc *GameController) Clues(chatID string) (int, []models.Clue, error) {
	var (
		round int
		clues []models.Clue
	)
	err := gc.registry.View(chatID, func(s *Session) error {
		var err error
		round = s.Round
		clues, err = s.Clues()
		return err
	})
	return round, clues, err
}

// GetSettings 群聊设置，大厅中附带人数提示
func (gc *GameController) GetSettings(ctx context.Context, chatID string) (models.Settings, []string, error) {
	settings, err := gc.loadSettings(ctx, chatID)
	if err != nil {
		return models.Settings{}, nil, err
	}
	var warnings []string
	_ = gc.registry.View(chatID, func(s *Session) error {
		if s.State == models.StateLobby {
			warnings = ValidateSettings(settings, len(s.Players))
		}
		return nil
	})
	return settings, warnings, nil
}

// ApplySetting 修改一项设置
// 有会话时只有房主能改，且只能在开局前改；没有会话时修改下一局的设置
func (gc *GameController) ApplySetting(ctx context.Context, chatID, playerID, key, value string, isAdmin bool) (models.Settings, []string, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return models.Settings{}, nil, fmt.Errorf("%w: chat id is empty", ErrMalformedIdentity)
	}

	var (
		next     models.Settings
		warnings []string
	)
	apply := func() error {
		current, err := gc.loadSettings(ctx, chatID)
		if err != nil {
			return err
		}
		next, err = ApplySetting(current, key, value)
		if err != nil {
			return err
		}
		if err := gc.settings.SaveSettings(ctx, chatID, next); err != nil {
			log.Printf("[controller] chat %s: save settings failed: %v", chatID, err)
			return fmt.Errorf("save settings: %w", err)
		}
		return nil
	}

	err := gc.registry.Update(chatID, func(s *Session) error {
		if err := requireCreator(s, playerID, isAdmin); err != nil {
			return err
		}
		if s.State != models.StateLobby {
			return fmt.Errorf("%w: settings can only be changed before the game starts", ErrGameAlreadyStarted)
		}
		if err := apply(); err != nil {
			return err
		}
		if err := s.UpdateSettings(next); err != nil {
			return err
		}
		warnings = ValidateSettings(next, len(s.Players))
		gc.notifier.BroadcastToChat(chatID, map[string]interface{}{
			"type":     "settings_changed",
			"settings": next,
			"warnings": warnings,
		})
		return gc.persist(ctx, s)
	})
	if errors.Is(err, ErrSessionNotFound) {
		err = apply()
	}
	if err != nil {
		return models.Settings{}, nil, err
	}
	log.Printf("[controller] chat %s: setting %s=%s", chatID, key, value)
	return next, warnings, nil
}

// RestoreSessions 启动时从存储恢复进行中的会话
func (gc *GameController) RestoreSessions(ctx context.Context) (int, error) {
	payloads, err := gc.snapshots.LoadSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshots: %w", err)
	}
	restored := 0
	for _, payload := range payloads {
		session, err := RestoreSession(payload, gc.newRandom())
		if err != nil {
			log.Printf("[controller] skipping snapshot: %v", err)
			continue
		}
		if session.State == models.StateFinished {
			continue
		}
		gc.registry.Restore(session)
		restored++
	}
	log.Printf("[controller] restored %d sessions, active chats: %v", restored, gc.registry.ChatIDs())
	return restored, nil
}

// mutate 在群聊锁内执行一次操作：成功后通知并持久化
func (gc *GameController) mutate(ctx context.Context, chatID string, fn func(*Session) error) (models.GameStatus, error) {
	var status models.GameStatus
	err := gc.registry.Update(chatID, func(s *Session) error {
		if err := fn(s); err != nil {
			return err
		}
		gc.notify(s, s.DrainEvents())
		status = s.PublicStatus()
		return gc.persist(ctx, s)
	})
	if err != nil && KindOf(err) != KindUnknown {
		log.Printf("[controller] chat %s: rejected: %v", chatID, err)
	}
	return status, err
}

// persist 保存快照；结束的会话删除快照
func (gc *GameController) persist(ctx context.Context, s *Session) error {
	if s.State == models.StateFinished {
		if err := gc.snapshots.DeleteSnapshot(ctx, s.ChatID); err != nil {
			log.Printf("[controller] chat %s: delete snapshot failed: %v", s.ChatID, err)
			return fmt.Errorf("delete snapshot: %w", err)
		}
		return nil
	}
	payload, err := s.Snapshot()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := gc.snapshots.SaveSnapshot(ctx, s.ChatID, s.State, s.Round, payload); err != nil {
		log.Printf("[controller] chat %s: save snapshot failed: %v", s.ChatID, err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (gc *GameController) loadSettings(ctx context.Context, chatID string) (models.Settings, error) {
	settings, ok, err := gc.settings.LoadSettings(ctx, chatID)
	if err != nil {
		log.Printf("[controller] chat %s: load settings failed: %v", chatID, err)
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return models.DefaultSettings(), nil
	}
	return settings, nil
}

func requireCreator(s *Session, playerID string, isAdmin bool) error {
	if isAdmin || playerID == s.CreatorID {
		return nil
	}
	return ErrNotCreator
}

// notify 把状态机事件翻译成群聊广播和私信
func (gc *GameController) notify(s *Session, events []Event) {
	chatID := s.ChatID
	for _, event := range events {
		msg := map[string]interface{}{
			"type":  event.Type,
			"round": event.Round,
		}
		switch event.Type {
		case EventPlayerJoined:
			msg["player_id"] = event.PlayerID
			msg["message"] = fmt.Sprintf("%s joined (%d players).", event.Text, len(s.Players))
		case EventPlayerLeft:
			msg["player_id"] = event.PlayerID
			msg["message"] = fmt.Sprintf("%s left the game.", event.PlayerID)
		case EventGameStarted:
			for _, p := range s.Players {
				gc.notifier.SendToPlayer(chatID, p.ID, map[string]interface{}{
					"type":     "role_assigned",
					"has_word": p.HasWord,
					"word":     p.Word,
					"message":  roleText(p),
				})
			}
			msg["turn_order"] = s.TurnOrder
			msg["message"] = s.startText()
		case EventTurn:
			msg["player_id"] = event.PlayerID
			msg["message"] = fmt.Sprintf("Next up: %s", s.displayName(event.PlayerID))
		case EventDescribed:
			msg["player_id"] = event.PlayerID
			msg["description"] = event.Text
			msg["message"] = s.describedText(event.PlayerID, event.Text)
		case EventVotingStarted:
			msg["message"] = "Time to vote. Pick who you think is the undercover or Mr. White."
		case EventVoteCast:
			msg["player_id"] = event.PlayerID
			msg["target_id"] = event.TargetID
			msg["message"] = fmt.Sprintf("%s voted.", s.displayName(event.PlayerID))
		case EventEliminated:
			msg["player_id"] = event.PlayerID
			msg["role"] = event.Role
			msg["message"] = s.eliminatedText(event.PlayerID)
		case EventNoElimination:
			msg["message"] = "Nobody was voted out this round."
		case EventGuessRequested:
			gc.notifier.SendToPlayer(chatID, event.PlayerID, map[string]interface{}{
				"type":    "guess_prompt",
				"final":   event.Final,
				"message": guessPromptText(event.Final),
			})
			msg["player_id"] = event.PlayerID
			msg["final"] = event.Final
			msg["message"] = fmt.Sprintf("%s is Mr. White and gets one guess.", s.displayName(event.PlayerID))
		case EventGuessResult:
			msg["player_id"] = event.PlayerID
			msg["correct"] = event.Correct
			msg["message"] = s.guessResultText(event.PlayerID, event.Text, event.Correct)
		case EventRoundStarted:
			msg["message"] = fmt.Sprintf("Round %d begins.", event.Round)
		case EventGameOver, EventGameEnded:
			msg["winner"] = s.Winner
			msg["words"] = s.Words
			msg["history"] = s.History
			msg["message"] = s.summaryText()
			log.Printf("[controller] chat %s: session %s over, winner=%q terminated=%v", chatID, s.ID, s.Winner, s.Terminated)
		}
		gc.notifier.BroadcastToChat(chatID, msg)
	}
}
