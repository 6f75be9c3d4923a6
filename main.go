package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/qianlnk/undercover/config"
	"github.com/qianlnk/undercover/models"
	"github.com/qianlnk/undercover/services"
	"github.com/qianlnk/undercover/storage"
)

// store 同时保存群聊设置和会话快照
type store interface {
	services.SettingsStore
	services.SnapshotStore
}

func main() {
	// 设置日志格式，包含文件名和行号
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	var (
		st       store
		postgres *storage.Postgres
	)
	if cfg.DatabaseURL != "" {
		conn, err := storage.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		if err := storage.Migrate(conn); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		postgres = storage.NewPostgres(conn)
		st = postgres
	} else {
		log.Printf("no database configured, sessions are kept in memory only")
		st = storage.NewMemory()
	}

	words, err := loadWords(ctx, cfg, postgres)
	if err != nil {
		log.Fatalf("word library: %v", err)
	}
	log.Printf("loaded %d word pairs from %s", words.Len(), cfg.WordSource)

	policy := services.AutoPolicy{
		MinPlayers:           cfg.MinPlayers,
		PlayersPerUndercover: cfg.PlayersPerUndercover,
		MrWhiteMinPlayers:    cfg.MrWhiteMinPlayers,
		MaxMrWhites:          cfg.MaxMrWhites,
	}
	controller := services.NewGameController(services.NewSessionRegistry(), words, policy, st, st)
	webSocketMgr := services.NewWebSocketManager(controller)
	controller.SetNotifier(webSocketMgr)

	if _, err := controller.RestoreSessions(ctx); err != nil {
		log.Printf("restoring sessions failed: %v", err)
	}

	srv := newServer(controller, webSocketMgr)
	log.Printf("服务器启动在 %s", cfg.Addr)
	if err := srv.router().Run(cfg.Addr); err != nil {
		log.Fatal("服务器启动失败:", err)
	}
}

// loadWords 词库为空时拒绝启动
func loadWords(ctx context.Context, cfg config.Config, postgres *storage.Postgres) (*services.WordRepository, error) {
	var (
		pairs []models.WordPair
		err   error
	)
	switch cfg.WordSource {
	case config.WordSourceDatabase:
		pairs, err = postgres.LoadWordPairs(ctx)
	default:
		pairs, err = services.LoadWordPairsFile(cfg.WordPairsPath)
	}
	if err != nil {
		return nil, err
	}
	return services.NewWordRepository(pairs)
}
