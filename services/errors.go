package services

import "errors"

// ErrorKind 错误类别
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindStateViolation
	KindInputValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindStateViolation:
		return "state_violation"
	case KindInputValidation:
		return "input_validation"
	default:
		return "unknown"
	}
}

// GameError 带类别的游戏错误，所有被拒绝的操作都不会修改会话
type GameError struct {
	Kind ErrorKind
	msg  string
}

func (e *GameError) Error() string { return e.msg }

func newError(kind ErrorKind, msg string) *GameError {
	return &GameError{Kind: kind, msg: msg}
}

var (
	// 配置错误
	ErrInvalidConfiguration = newError(KindConfiguration, "invalid role configuration")
	ErrEmptyRepository      = newError(KindConfiguration, "word pair repository is empty")
	ErrUnknownSetting       = newError(KindConfiguration, "unknown setting")
	ErrInvalidValue         = newError(KindConfiguration, "invalid setting value")

	// 状态错误
	ErrInsufficientPlayers = newError(KindStateViolation, "not enough players")
	ErrGameAlreadyStarted  = newError(KindStateViolation, "game already started")
	ErrInvalidState        = newError(KindStateViolation, "action not allowed in the current state")
	ErrNotYourTurn         = newError(KindStateViolation, "not your turn")
	ErrNotAlive            = newError(KindStateViolation, "player is not alive")
	ErrNotCreator          = newError(KindStateViolation, "only the game creator can do that")
	ErrSessionExists       = newError(KindStateViolation, "a game is already in progress in this chat")
	ErrSessionNotFound     = newError(KindStateViolation, "no game in progress")

	// 输入错误
	ErrMalformedIdentity = newError(KindInputValidation, "player id is required")
	ErrDuplicateJoin     = newError(KindInputValidation, "player already joined")
	ErrSelfVote          = newError(KindInputValidation, "players cannot vote for themselves")
	ErrUnknownPlayer     = newError(KindInputValidation, "player is not in this game")
	ErrUnknownAction     = newError(KindInputValidation, "unknown action")
)

// KindOf 返回错误类别，支持 fmt.Errorf("%w") 包装过的错误
func KindOf(err error) ErrorKind {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Kind
	}
	return KindUnknown
}
