package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qianlnk/undercover/models"
)

// 设置项
const (
	SettingMrWhiteStart = "mrwhitestart"
	SettingTieBreaker   = "tiebreaker"
	SettingCivilians    = "civilians"
	SettingUndercover   = "undercover"
	SettingMrWhite      = "mrwhite"
)

// SettingKeys 所有可用设置项
var SettingKeys = []string{SettingMrWhiteStart, SettingTieBreaker, SettingCivilians, SettingUndercover, SettingMrWhite}

// ApplySetting 校验并应用一项设置，返回新的设置，原设置不变
func ApplySetting(current models.Settings, key, value string) (models.Settings, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.ToLower(strings.TrimSpace(value))
	next := current

	switch key {
	case SettingMrWhiteStart:
		switch value {
		case "on", "true", "yes", "1":
			next.MrWhiteStart = true
		case "off", "false", "no", "0":
			next.MrWhiteStart = false
		default:
			return current, fmt.Errorf("%w: %s expects on or off, got %q", ErrInvalidValue, key, value)
		}
	case SettingTieBreaker:
		switch models.TieBreaker(value) {
		case models.TieBreakRandom, models.TieBreakNone:
			next.TieBreaker = models.TieBreaker(value)
		default:
			return current, fmt.Errorf("%w: %s expects random or none, got %q", ErrInvalidValue, key, value)
		}
	case SettingCivilians, SettingUndercover, SettingMrWhite:
		count, err := strconv.Atoi(value)
		if err != nil || count < 0 {
			return current, fmt.Errorf("%w: %s expects a non-negative number, got %q", ErrInvalidValue, key, value)
		}
		switch key {
		case SettingCivilians:
			next.CivilianCount = count
		case SettingUndercover:
			next.UndercoverCount = count
		default:
			next.MrWhiteCount = count
		}
	default:
		return current, fmt.Errorf("%w: %q (available: %s)", ErrUnknownSetting, key, strings.Join(SettingKeys, ", "))
	}
	return next, nil
}

// ValidateSettings 按当前人数检查手动配置，只返回提示，不拒绝
func ValidateSettings(settings models.Settings, playerCount int) []string {
	if settings.AutoDistribution() {
		return nil
	}
	var warnings []string
	total := settings.CivilianCount + settings.UndercoverCount + settings.MrWhiteCount
	manual := settings.CivilianCount > 0 && settings.UndercoverCount > 0 && settings.MrWhiteCount > 0
	if manual && total != playerCount {
		warnings = append(warnings, fmt.Sprintf("Total roles (%d) don't match player count (%d).", total, playerCount))
	}
	if settings.CivilianCount > 0 && settings.CivilianCount <= settings.UndercoverCount {
		warnings = append(warnings, fmt.Sprintf("Civilians (%d) should outnumber Undercover players (%d).", settings.CivilianCount, settings.UndercoverCount))
	}
	if !manual && total > playerCount-1 {
		warnings = append(warnings, fmt.Sprintf("Fixed roles (%d) leave no room for the others with %d players.", total, playerCount))
	}
	return warnings
}
