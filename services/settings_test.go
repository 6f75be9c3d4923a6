package services

import (
	"errors"
	"testing"

	"github.com/qianlnk/undercover/models"
)

func TestApplySetting(t *testing.T) {
	base := models.DefaultSettings()
	cases := []struct {
		key   string
		value string
		check func(models.Settings) bool
	}{
		{"mrwhitestart", "on", func(s models.Settings) bool { return s.MrWhiteStart }},
		{" MrWhiteStart ", "TRUE", func(s models.Settings) bool { return s.MrWhiteStart }},
		{"tiebreaker", "none", func(s models.Settings) bool { return s.TieBreaker == models.TieBreakNone }},
		{"civilians", "5", func(s models.Settings) bool { return s.CivilianCount == 5 }},
		{"undercover", "2", func(s models.Settings) bool { return s.UndercoverCount == 2 }},
		{"mrwhite", "0", func(s models.Settings) bool { return s.MrWhiteCount == 0 }},
	}
	for _, tc := range cases {
		got, err := ApplySetting(base, tc.key, tc.value)
		if err != nil {
			t.Fatalf("%s=%s: %v", tc.key, tc.value, err)
		}
		if !tc.check(got) {
			t.Fatalf("%s=%s: unexpected settings %+v", tc.key, tc.value, got)
		}
	}
}

func TestApplySettingRejectsBadInput(t *testing.T) {
	base := models.DefaultSettings()
	cases := []struct {
		key   string
		value string
		want  error
	}{
		{"mrwhitestart", "maybe", ErrInvalidValue},
		{"tiebreaker", "coin", ErrInvalidValue},
		{"undercover", "-1", ErrInvalidValue},
		{"civilians", "many", ErrInvalidValue},
		{"werewolves", "2", ErrUnknownSetting},
	}
	for _, tc := range cases {
		got, err := ApplySetting(base, tc.key, tc.value)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s=%s: expected %v, got %v", tc.key, tc.value, tc.want, err)
		}
		if got != base {
			t.Fatalf("%s=%s: settings changed on error: %+v", tc.key, tc.value, got)
		}
		if KindOf(err) != KindConfiguration {
			t.Fatalf("%s=%s: expected a configuration error, got %s", tc.key, tc.value, KindOf(err))
		}
	}
}

func TestValidateSettingsWarnings(t *testing.T) {
	if warnings := ValidateSettings(models.DefaultSettings(), 5); len(warnings) != 0 {
		t.Fatalf("expected no warnings for auto settings, got %v", warnings)
	}
	full := models.Settings{CivilianCount: 3, UndercoverCount: 1, MrWhiteCount: 1}
	if warnings := ValidateSettings(full, 5); len(warnings) != 0 {
		t.Fatalf("expected a matching configuration to pass, got %v", warnings)
	}
	if warnings := ValidateSettings(full, 6); len(warnings) != 1 {
		t.Fatalf("expected a total mismatch warning, got %v", warnings)
	}
	outnumbered := models.Settings{CivilianCount: 2, UndercoverCount: 2}
	if warnings := ValidateSettings(outnumbered, 8); len(warnings) != 1 {
		t.Fatalf("expected an outnumbered warning, got %v", warnings)
	}
	crowded := models.Settings{UndercoverCount: 4}
	if warnings := ValidateSettings(crowded, 4); len(warnings) != 1 {
		t.Fatalf("expected a no-room warning, got %v", warnings)
	}
}
