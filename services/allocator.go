package services

import (
	"fmt"

	"github.com/qianlnk/undercover/models"
)

// AutoPolicy 自动分配角色数量的规则
type AutoPolicy struct {
	MinPlayers           int `json:"min_players"`
	PlayersPerUndercover int `json:"players_per_undercover"`
	MrWhiteMinPlayers    int `json:"mr_white_min_players"`
	MaxMrWhites          int `json:"max_mr_whites"`
}

// DefaultAutoPolicy 默认规则：每 4 人一个卧底，4 人及以上一个白板
func DefaultAutoPolicy() AutoPolicy {
	return AutoPolicy{
		MinPlayers:           3,
		PlayersPerUndercover: 4,
		MrWhiteMinPlayers:    4,
		MaxMrWhites:          1,
	}
}

func (p AutoPolicy) undercoverFor(players int) int {
	per := p.PlayersPerUndercover
	if per <= 0 {
		per = 4
	}
	if n := players / per; n > 1 {
		return n
	}
	return 1
}

func (p AutoPolicy) mrWhitesFor(players int) int {
	if players < p.MrWhiteMinPlayers || p.MaxMrWhites <= 0 {
		return 0
	}
	return p.MaxMrWhites
}

// AllocateRoles 根据玩家人数和设置计算角色数量
// 相同输入总是得到相同结果，随机性只体现在谁拿到哪个角色
func AllocateRoles(playerCount int, settings models.Settings, policy AutoPolicy) (models.Distribution, error) {
	minPlayers := policy.MinPlayers
	if minPlayers < 3 {
		minPlayers = 3
	}
	if playerCount < minPlayers {
		return models.Distribution{}, fmt.Errorf("%w: need at least %d, have %d", ErrInsufficientPlayers, minPlayers, playerCount)
	}
	if settings.CivilianCount < 0 || settings.UndercoverCount < 0 || settings.MrWhiteCount < 0 {
		return models.Distribution{}, fmt.Errorf("%w: role counts must not be negative", ErrInvalidConfiguration)
	}

	civAuto := settings.CivilianCount == 0
	ucAuto := settings.UndercoverCount == 0
	mwAuto := settings.MrWhiteCount == 0
	fixed := settings.CivilianCount + settings.UndercoverCount + settings.MrWhiteCount

	// 全部手动配置：必须正好等于玩家人数
	if !civAuto && !ucAuto && !mwAuto {
		if fixed != playerCount {
			return models.Distribution{}, fmt.Errorf("%w: total roles (%d) don't match player count (%d)", ErrInvalidConfiguration, fixed, playerCount)
		}
		dist := models.Distribution{
			Civilians:  settings.CivilianCount,
			Undercover: settings.UndercoverCount,
			MrWhites:   settings.MrWhiteCount,
		}
		return dist, checkDistribution(dist)
	}

	if fixed > playerCount-1 {
		return models.Distribution{}, fmt.Errorf("%w: fixed roles (%d) leave no room in a game of %d", ErrInvalidConfiguration, fixed, playerCount)
	}

	dist := models.Distribution{
		Civilians:  settings.CivilianCount,
		Undercover: settings.UndercoverCount,
		MrWhites:   settings.MrWhiteCount,
	}
	if ucAuto {
		dist.Undercover = policy.undercoverFor(playerCount)
	}
	if mwAuto {
		dist.MrWhites = policy.mrWhitesFor(playerCount)
	}

	if civAuto {
		// 平民吸收剩余人数，必要时减少自动分配的白板和卧底
		for {
			dist.Civilians = playerCount - dist.Undercover - dist.MrWhites
			if dist.Civilians > dist.Undercover+dist.MrWhites {
				break
			}
			if !trimAuto(&dist, ucAuto, mwAuto) {
				break
			}
		}
	} else {
		// 平民数量固定：剩余名额分给自动分配的角色
		rest := playerCount - dist.Civilians
		switch {
		case ucAuto && mwAuto:
			dist.MrWhites = min(dist.MrWhites, max(rest-1, 0))
			dist.Undercover = rest - dist.MrWhites
		case ucAuto:
			dist.Undercover = rest - dist.MrWhites
		case mwAuto:
			dist.MrWhites = rest - dist.Undercover
		}
	}

	if dist.Undercover < 0 || dist.MrWhites < 0 || dist.Total() != playerCount {
		return models.Distribution{}, fmt.Errorf("%w: cannot fit roles into %d players", ErrInvalidConfiguration, playerCount)
	}
	if dist.Civilians <= dist.Undercover+dist.MrWhites {
		return models.Distribution{}, fmt.Errorf("%w: civilians (%d) must outnumber undercover and mr. white (%d)", ErrInvalidConfiguration, dist.Civilians, dist.Undercover+dist.MrWhites)
	}
	return dist, checkDistribution(dist)
}

// trimAuto 先减白板再减卧底，至少保留一个坏人
func trimAuto(dist *models.Distribution, ucAuto, mwAuto bool) bool {
	if mwAuto && dist.MrWhites > 0 && dist.Undercover+dist.MrWhites > 1 {
		dist.MrWhites--
		return true
	}
	if ucAuto && dist.Undercover > 0 && dist.Undercover+dist.MrWhites > 1 {
		dist.Undercover--
		return true
	}
	return false
}

func checkDistribution(dist models.Distribution) error {
	if dist.Civilians < 1 {
		return fmt.Errorf("%w: there must be at least one civilian", ErrInvalidConfiguration)
	}
	if dist.Undercover+dist.MrWhites < 1 {
		return fmt.Errorf("%w: there must be at least one undercover or mr. white", ErrInvalidConfiguration)
	}
	if dist.Civilians <= dist.Undercover {
		return fmt.Errorf("%w: civilians (%d) should outnumber undercover players (%d)", ErrInvalidConfiguration, dist.Civilians, dist.Undercover)
	}
	return nil
}
