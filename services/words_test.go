package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/qianlnk/undercover/models"
)

func TestNewWordRepositoryCleansPairs(t *testing.T) {
	words, err := NewWordRepository([]models.WordPair{
		{Civilian: " Messi ", Undercover: "Ronaldo"},
		{Civilian: "", Undercover: "Kane"},
		{Civilian: "Salah", Undercover: "   "},
	})
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	if words.Len() != 1 {
		t.Fatalf("expected 1 usable pair, got %d", words.Len())
	}
	pairs := words.Pairs()
	if pairs[0].Civilian != "Messi" {
		t.Fatalf("expected trimmed word, got %q", pairs[0].Civilian)
	}
	pairs[0].Civilian = "changed"
	if words.Pairs()[0].Civilian != "Messi" {
		t.Fatal("Pairs should return a copy")
	}
}

func TestNewWordRepositoryEmpty(t *testing.T) {
	if _, err := NewWordRepository(nil); !errors.Is(err, ErrEmptyRepository) {
		t.Fatalf("expected ErrEmptyRepository, got %v", err)
	}
	if _, err := NewWordRepository([]models.WordPair{{Civilian: " "}}); !errors.Is(err, ErrEmptyRepository) {
		t.Fatalf("expected ErrEmptyRepository, got %v", err)
	}
}

func TestPickUsesRandomizer(t *testing.T) {
	words, err := NewWordRepository([]models.WordPair{
		{Civilian: "a", Undercover: "b"},
		{Civilian: "c", Undercover: "d"},
	})
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	if got := words.Pick(&scriptedRandom{ints: []int{1}}); got.Civilian != "c" {
		t.Fatalf("expected the second pair, got %+v", got)
	}
}

func TestLoadWordPairsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.json")
	if err := os.WriteFile(path, []byte(`[{"civilian":"Messi","undercover":"Ronaldo"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	pairs, err := LoadWordPairsFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Undercover != "Ronaldo" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}

	if _, err := LoadWordPairsFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWordPairsFile(bad); err == nil {
		t.Fatal("expected an error for malformed json")
	}
}

func TestBundledWordPairs(t *testing.T) {
	pairs, err := LoadWordPairsFile(filepath.Join("..", "data", "word_pairs.json"))
	if err != nil {
		t.Fatalf("load bundled pairs: %v", err)
	}
	words, err := NewWordRepository(pairs)
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	if words.Len() < 10 {
		t.Fatalf("expected a usable bundled list, got %d pairs", words.Len())
	}
}
