package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 服务配置
type Config struct {
	Addr                 string `mapstructure:"addr"`
	DatabaseURL          string `mapstructure:"database_url"`
	WordSource           string `mapstructure:"word_source"`
	WordPairsPath        string `mapstructure:"word_pairs_path"`
	MinPlayers           int    `mapstructure:"min_players"`
	PlayersPerUndercover int    `mapstructure:"players_per_undercover"`
	MrWhiteMinPlayers    int    `mapstructure:"mr_white_min_players"`
	MaxMrWhites          int    `mapstructure:"max_mr_whites"`
	GinMode              string `mapstructure:"gin_mode"`
}

// 词库来源
const (
	WordSourceFile     = "file"
	WordSourceDatabase = "database"
)

// LoadDotEnv 读取 .env 文件，已有的环境变量不会被覆盖
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("word_source", WordSourceFile)
	v.SetDefault("word_pairs_path", "data/word_pairs.json")
	v.SetDefault("min_players", 3)
	v.SetDefault("players_per_undercover", 4)
	v.SetDefault("mr_white_min_players", 4)
	v.SetDefault("max_mr_whites", 1)
	v.SetDefault("gin_mode", "release")
}

// Load 依次读取默认值、配置文件（UNDERCOVER_CONFIG）和 UNDERCOVER_* 环境变量
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("undercover")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("UNDERCOVER_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查配置是否可用
func (c Config) Validate() error {
	switch c.WordSource {
	case WordSourceFile:
		if c.WordPairsPath == "" {
			return fmt.Errorf("word_pairs_path is required when word_source is %q", WordSourceFile)
		}
	case WordSourceDatabase:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when word_source is %q", WordSourceDatabase)
		}
	default:
		return fmt.Errorf("unknown word_source %q", c.WordSource)
	}
	if c.MinPlayers < 3 {
		return fmt.Errorf("min_players must be at least 3, got %d", c.MinPlayers)
	}
	if c.PlayersPerUndercover < 1 {
		return fmt.Errorf("players_per_undercover must be positive, got %d", c.PlayersPerUndercover)
	}
	if c.MaxMrWhites < 0 {
		return fmt.Errorf("max_mr_whites must not be negative, got %d", c.MaxMrWhites)
	}
	return nil
}
