package services

import (
	"fmt"
	"strings"

	"github.com/qianlnk/undercover/models"
)

// 状态机产生的事件类型
const (
	EventPlayerJoined   = "player_joined"
	EventPlayerLeft     = "player_left"
	EventGameStarted    = "game_started"
	EventTurn           = "turn"
	EventDescribed      = "described"
	EventVotingStarted  = "voting_started"
	EventVoteCast       = "vote_cast"
	EventEliminated     = "eliminated"
	EventNoElimination  = "no_elimination"
	EventGuessRequested = "guess_requested"
	EventGuessResult    = "guess_result"
	EventRoundStarted   = "round_started"
	EventGameOver       = "game_over"
	EventGameEnded      = "game_ended"
)

// Event 一次操作引起的可通知变化
type Event struct {
	Type     string
	PlayerID string
	TargetID string
	Round    int
	Role     models.Role
	Winner   models.Role
	Correct  bool
	Final    bool
	Text     string
}

// Join 玩家加入大厅
func (s *Session) Join(playerID, name string) error {
	if s.State != models.StateLobby {
		return ErrGameAlreadyStarted
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("%w: player id is empty", ErrMalformedIdentity)
	}
	if s.player(playerID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateJoin, playerID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = playerID
	}

	s.Players = append(s.Players, models.Player{ID: playerID, Name: name})
	s.emit(Event{Type: EventPlayerJoined, PlayerID: playerID, Text: name})
	return nil
}

// Leave 玩家离开大厅，房主不能离开
func (s *Session) Leave(playerID string) error {
	if s.State != models.StateLobby {
		return ErrGameAlreadyStarted
	}
	if s.player(playerID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if playerID == s.CreatorID {
		return fmt.Errorf("%w: the creator cannot leave, end the game instead", ErrInvalidState)
	}

	for i := range s.Players {
		if s.Players[i].ID == playerID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			break
		}
	}
	s.emit(Event{Type: EventPlayerLeft, PlayerID: playerID})
	return nil
}

// UpdateSettings 大厅中的会话跟随群聊设置变化
func (s *Session) UpdateSettings(settings models.Settings) error {
	if s.State != models.StateLobby {
		return ErrGameAlreadyStarted
	}
	s.Settings = settings
	return nil
}

// Start 分配角色和词，进入描述阶段
func (s *Session) Start(words *WordRepository, policy AutoPolicy) error {
	if s.State != models.StateLobby {
		return ErrGameAlreadyStarted
	}
	if words == nil || words.Len() == 0 {
		return ErrEmptyRepository
	}
	dist, err := AllocateRoles(len(s.Players), s.Settings, policy)
	if err != nil {
		return err
	}

	s.State = models.StateRoleAssignment
	s.Distribution = dist
	s.Words = words.Pick(s.rng)

	roles := make([]models.Role, 0, dist.Total())
	for i := 0; i < dist.Civilians; i++ {
		roles = append(roles, models.Civilian)
	}
	for i := 0; i < dist.Undercover; i++ {
		roles = append(roles, models.Undercover)
	}
	for i := 0; i < dist.MrWhites; i++ {
		roles = append(roles, models.MrWhite)
	}
	s.rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	order := make([]string, len(s.Players))
	for i := range s.Players {
		p := &s.Players[i]
		p.Role = roles[i]
		p.Alive = true
		p.Spoken = false
		p.Description = ""
		switch p.Role {
		case models.Civilian:
			p.Word, p.HasWord = s.Words.Civilian, true
		case models.Undercover:
			p.Word, p.HasWord = s.Words.Undercover, true
		default:
			p.Word, p.HasWord = "", false
		}
		order[i] = p.ID
	}
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	// 白板默认不能第一个发言
	if !s.Settings.MrWhiteStart && s.player(order[0]).Role == models.MrWhite {
		for j := 1; j < len(order); j++ {
			if s.player(order[j]).Role != models.MrWhite {
				order[0], order[j] = order[j], order[0]
				break
			}
		}
	}

	s.TurnOrder = order
	s.Votes = make(map[string]string)
	s.Round = 1
	s.State = models.StateDescribing
	s.Turn = s.nextSpeaker(0)

	s.emit(Event{Type: EventGameStarted})
	s.emit(Event{Type: EventTurn, PlayerID: s.CurrentPlayerID()})
	return nil
}

// RecordDescription 当前玩家提交描述
func (s *Session) RecordDescription(playerID, text string) error {
	if s.State != models.StateDescribing {
		return fmt.Errorf("%w: not in the description phase", ErrInvalidState)
	}
	p := s.player(playerID)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if s.CurrentPlayerID() != playerID {
		return ErrNotYourTurn
	}

	p.Description = strings.TrimSpace(text)
	s.emit(Event{Type: EventDescribed, PlayerID: playerID, Text: p.Description})
	s.finishTurn()
	return nil
}

// AdvanceTurn 跳过当前玩家
func (s *Session) AdvanceTurn() error {
	if s.State != models.StateDescribing {
		return fmt.Errorf("%w: not in the description phase", ErrInvalidState)
	}
	s.finishTurn()
	return nil
}

// ForceVoting 不等剩余玩家描述，直接投票
func (s *Session) ForceVoting() error {
	if s.State != models.StateDescribing {
		return fmt.Errorf("%w: not in the description phase", ErrInvalidState)
	}
	s.startVoting()
	return nil
}

// CastVote 投票，重复投票覆盖之前的选择
func (s *Session) CastVote(voterID, targetID string) error {
	if s.State != models.StateVoting {
		return fmt.Errorf("%w: voting is not open", ErrInvalidState)
	}
	voter := s.player(voterID)
	if voter == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, voterID)
	}
	target := s.player(targetID)
	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, targetID)
	}
	if voterID == targetID {
		return ErrSelfVote
	}
	if !voter.Alive {
		return fmt.Errorf("%w: %s is out", ErrNotAlive, voterID)
	}
	if !target.Alive {
		return fmt.Errorf("%w: %s is out", ErrNotAlive, targetID)
	}

	s.Votes[voterID] = targetID
	s.emit(Event{Type: EventVoteCast, PlayerID: voterID, TargetID: targetID})

	for _, p := range s.Players {
		if _, voted := s.Votes[p.ID]; p.Alive && !voted {
			return nil
		}
	}
	s.resolve()
	return nil
}

// CloseVoting 以已有票数结算
func (s *Session) CloseVoting() error {
	if s.State != models.StateVoting {
		return fmt.Errorf("%w: voting is not open", ErrInvalidState)
	}
	s.resolve()
	return nil
}

// SubmitGuess 出局的白板猜平民词
func (s *Session) SubmitGuess(playerID, text string) error {
	if s.State != models.StateEndgameGuess {
		return fmt.Errorf("%w: no guess is expected", ErrInvalidState)
	}
	if playerID != s.GuesserID {
		return fmt.Errorf("%w: only %s may guess", ErrInvalidState, s.GuesserID)
	}

	correct := normalizeGuess(text) == normalizeGuess(s.Words.Civilian)
	s.emit(Event{Type: EventGuessResult, PlayerID: playerID, Text: strings.TrimSpace(text), Correct: correct})
	if correct {
		s.GuesserID = ""
		s.finish(models.MrWhite)
		return nil
	}

	if p := s.player(playerID); p.Alive {
		p.Alive = false
		s.LastEliminated = playerID
		s.emit(Event{Type: EventEliminated, PlayerID: playerID, Role: p.Role})
	}
	s.GuesserID = ""
	s.checkWinner()
	return nil
}

// End 强制结束游戏
func (s *Session) End() error {
	if !s.State.CanTransitionTo(models.StateFinished) {
		return fmt.Errorf("%w: game is already over", ErrInvalidState)
	}
	s.Terminated = true
	s.GuesserID = ""
	s.State = models.StateFinished
	s.emit(Event{Type: EventGameEnded})
	return nil
}

// finishTurn 标记当前玩家已发言，轮到下一位或进入投票
func (s *Session) finishTurn() {
	s.player(s.TurnOrder[s.Turn]).Spoken = true

	n := len(s.TurnOrder)
	for step := 1; step <= n; step++ {
		idx := (s.Turn + step) % n
		if p := s.player(s.TurnOrder[idx]); p.Alive && !p.Spoken {
			s.Turn = idx
			s.emit(Event{Type: EventTurn, PlayerID: p.ID})
			return
		}
	}
	s.startVoting()
}

// nextSpeaker 从 start 开始第一个存活且未发言的玩家
func (s *Session) nextSpeaker(start int) int {
	n := len(s.TurnOrder)
	for step := 0; step < n; step++ {
		idx := (start + step) % n
		if p := s.player(s.TurnOrder[idx]); p.Alive && !p.Spoken {
			return idx
		}
	}
	return 0
}

func (s *Session) startVoting() {
	s.State = models.StateVoting
	s.Votes = make(map[string]string)
	s.emit(Event{Type: EventVotingStarted})
}

// resolve 计票并处理出局
func (s *Session) resolve() {
	s.State = models.StateResolving

	tally := make(map[string]int)
	most := 0
	for _, target := range s.Votes {
		tally[target]++
		if tally[target] > most {
			most = tally[target]
		}
	}
	var leaders []string
	if most > 0 {
		for _, id := range s.TurnOrder {
			if tally[id] == most {
				leaders = append(leaders, id)
			}
		}
	}

	var eliminated string
	switch {
	case len(leaders) == 1:
		eliminated = leaders[0]
	case len(leaders) > 1 && s.Settings.TieBreaker != models.TieBreakNone:
		eliminated = leaders[s.rng.Intn(len(leaders))]
	}

	s.recordRound(eliminated)
	s.LastEliminated = eliminated
	if eliminated == "" {
		s.emit(Event{Type: EventNoElimination, Text: strings.Join(leaders, ",")})
		s.checkWinner()
		return
	}

	p := s.player(eliminated)
	p.Alive = false
	s.emit(Event{Type: EventEliminated, PlayerID: eliminated, Role: p.Role})
	if p.Role == models.MrWhite {
		s.GuesserID = eliminated
		s.State = models.StateEndgameGuess
		s.emit(Event{Type: EventGuessRequested, PlayerID: eliminated})
		return
	}
	s.checkWinner()
}

func (s *Session) recordRound(eliminated string) {
	record := models.RoundRecord{
		Number:       s.Round,
		Descriptions: make(map[string]string),
		Votes:        make(map[string]string, len(s.Votes)),
		EliminatedID: eliminated,
	}
	for _, p := range s.Players {
		if p.Spoken {
			record.Descriptions[p.ID] = p.Description
		}
	}
	for voter, target := range s.Votes {
		record.Votes[voter] = target
	}
	s.History = append(s.History, record)
}

// checkWinner 判定胜负，未分胜负时开始下一回合
func (s *Session) checkWinner() {
	civilians, undercover, mrWhites := s.countAlive()

	// 只剩两人且其中一人是白板：白板最后猜一次
	if civilians+undercover+mrWhites == 2 && mrWhites == 1 {
		for _, p := range s.Players {
			if p.Alive && p.Role == models.MrWhite {
				s.GuesserID = p.ID
			}
		}
		s.State = models.StateEndgameGuess
		s.emit(Event{Type: EventGuessRequested, PlayerID: s.GuesserID, Final: true})
		return
	}

	switch {
	case undercover == 0 && mrWhites == 0:
		s.finish(models.Civilian)
	case undercover == 0 && civilians == 0:
		// 只剩白板
		s.finish(models.MrWhite)
	case undercover >= civilians:
		s.finish(models.Undercover)
	default:
		s.nextRound()
	}
}

func (s *Session) finish(winner models.Role) {
	s.Winner = winner
	s.State = models.StateFinished
	s.emit(Event{Type: EventGameOver, Winner: winner})
}

func (s *Session) nextRound() {
	s.Round++
	s.Votes = make(map[string]string)
	s.GuesserID = ""
	for i := range s.Players {
		s.Players[i].Spoken = false
		s.Players[i].Description = ""
	}

	start := 0
	if s.LastEliminated != "" {
		for i, id := range s.TurnOrder {
			if id == s.LastEliminated {
				start = i + 1
				break
			}
		}
	}
	s.State = models.StateDescribing
	s.Turn = s.nextSpeaker(start)
	s.emit(Event{Type: EventRoundStarted})
	s.emit(Event{Type: EventTurn, PlayerID: s.CurrentPlayerID()})
}

func normalizeGuess(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
