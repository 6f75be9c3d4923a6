package storage

import (
	"time"

	"gorm.io/datatypes"

	"github.com/qianlnk/undercover/models"
)

type ChatSettings struct {
	ChatID          string    `gorm:"primaryKey;size:64"`
	MrWhiteStart    bool      `gorm:"not null;default:false"`
	TieBreaker      string    `gorm:"size:16;not null;default:random"`
	CivilianCount   int       `gorm:"not null;default:0"`
	UndercoverCount int       `gorm:"not null;default:0"`
	MrWhiteCount    int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (ChatSettings) TableName() string { return "chat_settings" }

func (c ChatSettings) toModel() models.Settings {
	settings := models.Settings{
		MrWhiteStart:    c.MrWhiteStart,
		TieBreaker:      models.TieBreaker(c.TieBreaker),
		CivilianCount:   c.CivilianCount,
		UndercoverCount: c.UndercoverCount,
		MrWhiteCount:    c.MrWhiteCount,
	}
	if settings.TieBreaker != models.TieBreakNone {
		settings.TieBreaker = models.TieBreakRandom
	}
	return settings
}

func chatSettingsFrom(chatID string, s models.Settings) ChatSettings {
	return ChatSettings{
		ChatID:          chatID,
		MrWhiteStart:    s.MrWhiteStart,
		TieBreaker:      string(s.TieBreaker),
		CivilianCount:   s.CivilianCount,
		UndercoverCount: s.UndercoverCount,
		MrWhiteCount:    s.MrWhiteCount,
	}
}

// SessionSnapshot holds the encoded session of one chat while a game is running.
type SessionSnapshot struct {
	ChatID    string         `gorm:"primaryKey;size:64"`
	State     string         `gorm:"size:32;not null"`
	Round     int            `gorm:"not null;default:0"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (SessionSnapshot) TableName() string { return "session_snapshots" }

type WordPair struct {
	ID         uint      `gorm:"primaryKey"`
	Civilian   string    `gorm:"size:128;not null;uniqueIndex:idx_word_pairs_civilian_undercover"`
	Undercover string    `gorm:"size:128;not null;uniqueIndex:idx_word_pairs_civilian_undercover"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (WordPair) TableName() string { return "word_pairs" }
