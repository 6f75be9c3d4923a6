package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qianlnk/undercover/models"
)

// Postgres keeps chat settings, session snapshots and the word library in Postgres.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(conn *gorm.DB) *Postgres {
	return &Postgres{db: conn}
}

func (p *Postgres) LoadSettings(ctx context.Context, chatID string) (models.Settings, bool, error) {
	var record ChatSettings
	err := p.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Settings{}, false, nil
	}
	if err != nil {
		return models.Settings{}, false, err
	}
	return record.toModel(), true, nil
}

func (p *Postgres) SaveSettings(ctx context.Context, chatID string, settings models.Settings) error {
	record := chatSettingsFrom(chatID, settings)
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mr_white_start", "tie_breaker", "civilian_count", "undercover_count", "mr_white_count", "updated_at"}),
	}).Create(&record).Error
}

func (p *Postgres) SaveSnapshot(ctx context.Context, chatID string, state models.SessionState, round int, payload []byte) error {
	record := SessionSnapshot{
		ChatID:  chatID,
		State:   string(state),
		Round:   round,
		Payload: datatypes.JSON(payload),
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "round", "payload", "updated_at"}),
	}).Create(&record).Error
}

func (p *Postgres) DeleteSnapshot(ctx context.Context, chatID string) error {
	return p.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&SessionSnapshot{}).Error
}

func (p *Postgres) LoadSnapshots(ctx context.Context) ([][]byte, error) {
	var records []SessionSnapshot
	if err := p.db.WithContext(ctx).Order("updated_at").Find(&records).Error; err != nil {
		return nil, err
	}
	payloads := make([][]byte, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, []byte(record.Payload))
	}
	return payloads, nil
}

// LoadWordPairs returns the whole word library.
func (p *Postgres) LoadWordPairs(ctx context.Context) ([]models.WordPair, error) {
	var records []WordPair
	if err := p.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	pairs := make([]models.WordPair, 0, len(records))
	for _, record := range records {
		pairs = append(pairs, models.WordPair{Civilian: record.Civilian, Undercover: record.Undercover})
	}
	return pairs, nil
}

// ImportWordPairs inserts new pairs and skips the ones already stored.
func (p *Postgres) ImportWordPairs(ctx context.Context, pairs []models.WordPair) (inserted, skipped int, err error) {
	for _, pair := range pairs {
		record := WordPair{Civilian: pair.Civilian, Undercover: pair.Undercover}
		if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
			if isUniqueViolation(err) {
				skipped++
				continue
			}
			return inserted, skipped, fmt.Errorf("insert %s/%s: %w", pair.Civilian, pair.Undercover, err)
		}
		inserted++
	}
	log.Printf("[storage] word import: inserted=%d skipped=%d", inserted, skipped)
	return inserted, skipped, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
