package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/qianlnk/undercover/models"
)

// 游戏动作类型
const (
	ActionCreate      = "create"
	ActionJoin        = "join"
	ActionLeave       = "leave"
	ActionStart       = "start"
	ActionDescribe    = "describe"
	ActionNext        = "next"      // 房主跳过当前玩家
	ActionAllSpoken   = "allspoken" // 房主直接进入投票
	ActionVote        = "vote"
	ActionCloseVoting = "close_voting"
	ActionGuess       = "guess"
	ActionEnd         = "end"
)

// availableActions 各状态下可以执行的动作
func availableActions(state models.SessionState) []string {
	switch state {
	case models.StateLobby:
		return []string{ActionJoin, ActionLeave, ActionStart, ActionEnd}
	case models.StateDescribing:
		return []string{ActionDescribe, ActionNext, ActionAllSpoken, ActionEnd}
	case models.StateVoting:
		return []string{ActionVote, ActionCloseVoting, ActionEnd}
	case models.StateEndgameGuess:
		return []string{ActionGuess, ActionEnd}
	default:
		return []string{}
	}
}

// ProcessAction 分发聊天适配层传来的动作
func (gc *GameController) ProcessAction(ctx context.Context, action models.GameAction) (models.GameStatus, error) {
	chatID := strings.TrimSpace(action.ChatID)
	if chatID == "" {
		return models.GameStatus{}, fmt.Errorf("%w: chat id is empty", ErrMalformedIdentity)
	}
	if strings.TrimSpace(action.PlayerID) == "" {
		return models.GameStatus{}, fmt.Errorf("%w: player id is empty", ErrMalformedIdentity)
	}

	switch strings.ToLower(action.Type) {
	case ActionCreate:
		return gc.CreateSession(ctx, chatID, action.PlayerID, action.Name)
	case ActionJoin:
		return gc.Join(ctx, chatID, action.PlayerID, action.Name)
	case ActionLeave:
		return gc.Leave(ctx, chatID, action.PlayerID)
	case ActionStart:
		return gc.Start(ctx, chatID, action.PlayerID, action.IsAdmin)
	case ActionDescribe:
		return gc.RecordDescription(ctx, chatID, action.PlayerID, action.Content)
	case ActionNext:
		return gc.AdvanceTurn(ctx, chatID, action.PlayerID, action.IsAdmin)
	case ActionAllSpoken:
		return gc.ForceVoting(ctx, chatID, action.PlayerID, action.IsAdmin)
	case ActionVote:
		return gc.CastVote(ctx, chatID, action.PlayerID, action.TargetID)
	case ActionCloseVoting:
		return gc.CloseVoting(ctx, chatID, action.PlayerID, action.IsAdmin)
	case ActionGuess:
		return gc.SubmitGuess(ctx, chatID, action.PlayerID, action.Content)
	case ActionEnd:
		return gc.EndSession(ctx, chatID, action.PlayerID, action.IsAdmin)
	default:
		return models.GameStatus{}, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}
