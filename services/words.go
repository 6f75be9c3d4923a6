package services

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/qianlnk/undercover/models"
)

// WordRepository 只读词库
type WordRepository struct {
	pairs []models.WordPair
}

// NewWordRepository 创建词库，空词库属于配置错误
func NewWordRepository(pairs []models.WordPair) (*WordRepository, error) {
	cleaned := make([]models.WordPair, 0, len(pairs))
	for _, pair := range pairs {
		civilian := strings.TrimSpace(pair.Civilian)
		undercover := strings.TrimSpace(pair.Undercover)
		if civilian == "" || undercover == "" {
			continue
		}
		cleaned = append(cleaned, models.WordPair{Civilian: civilian, Undercover: undercover})
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyRepository
	}
	return &WordRepository{pairs: cleaned}, nil
}

// LoadWordPairsFile 读取 JSON 词库文件：[{"civilian": "...", "undercover": "..."}]
func LoadWordPairsFile(path string) ([]models.WordPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var pairs []models.WordPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pairs, nil
}

// Pick 随机选一组词
func (r *WordRepository) Pick(rng Randomizer) models.WordPair {
	return r.pairs[rng.Intn(len(r.pairs))]
}

// Len 词组数量
func (r *WordRepository) Len() int {
	return len(r.pairs)
}

// Pairs 返回词组副本
func (r *WordRepository) Pairs() []models.WordPair {
	return append([]models.WordPair(nil), r.pairs...)
}
