package main

import (
	"context"
	"flag"
	"log"

	"github.com/qianlnk/undercover/config"
	"github.com/qianlnk/undercover/services"
	"github.com/qianlnk/undercover/storage"
)

func main() {
	filePath := flag.String("file", "data/word_pairs.json", "path to the word pairs json")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	pairs, err := services.LoadWordPairsFile(*filePath)
	if err != nil {
		log.Fatalf("failed to read word pairs: %v", err)
	}
	// 与服务启动时相同的清洗规则
	repo, err := services.NewWordRepository(pairs)
	if err != nil {
		log.Fatalf("no usable word pairs in %s: %v", *filePath, err)
	}

	inserted, skipped, err := storage.NewPostgres(conn).ImportWordPairs(context.Background(), repo.Pairs())
	if err != nil {
		log.Fatalf("failed to import word pairs: %v", err)
	}
	log.Printf("loaded %d word pairs (%d already present)", inserted, skipped)
}
