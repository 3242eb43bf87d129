// Package config loads server configuration from a YAML file with
// environment overrides (prefix DUEL_).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the duel server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the WebSocket transport.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
	ResyncInterval  time.Duration `mapstructure:"resync_interval"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
	RateLimitBudget int           `mapstructure:"rate_limit_budget"`
	ShutdownGrace   time.Duration `mapstructure:"shutdown_grace"`
}

// GameConfig holds the tunable rule constants.
type GameConfig struct {
	MaxMana         int           `mapstructure:"max_mana"`
	HeroHP          int           `mapstructure:"hero_hp"`
	OpeningHandSize int           `mapstructure:"opening_hand_size"`
	PerTurnDraw     int           `mapstructure:"per_turn_draw"`
	// HandLimit is declared for the client contract but not yet enforced
	// by the reducer.
	HandLimit       int           `mapstructure:"hand_limit"`
	DeckSize        int           `mapstructure:"deck_size"`
	NonceHistory    int           `mapstructure:"nonce_history"`
	MulliganTimeout time.Duration `mapstructure:"mulligan_timeout"`
	TurnTimeout     time.Duration `mapstructure:"turn_timeout"`
}

// DatabaseConfig configures the optional match audit store. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration used when no file is present
// and by tests.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			AllowedOrigin:   "",
			ResyncInterval:  5 * time.Second,
			RateLimitWindow: time.Second,
			RateLimitBudget: 20,
			ShutdownGrace:   10 * time.Second,
		},
		Game: GameConfig{
			MaxMana:         10,
			HeroHP:          30,
			OpeningHandSize: 4,
			PerTurnDraw:     1,
			HandLimit:       10,
			DeckSize:        20,
			NonceHistory:    32,
			MulliganTimeout: 45 * time.Second,
			TurnTimeout:     75 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from path, falling back to defaults for any
// unset key. Environment variables such as DUEL_SERVER_ADDRESS override
// file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file is fine: defaults plus env apply.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("server.address", def.Server.Address)
	v.SetDefault("server.allowed_origin", def.Server.AllowedOrigin)
	v.SetDefault("server.resync_interval", def.Server.ResyncInterval)
	v.SetDefault("server.rate_limit_window", def.Server.RateLimitWindow)
	v.SetDefault("server.rate_limit_budget", def.Server.RateLimitBudget)
	v.SetDefault("server.shutdown_grace", def.Server.ShutdownGrace)
	v.SetDefault("game.max_mana", def.Game.MaxMana)
	v.SetDefault("game.hero_hp", def.Game.HeroHP)
	v.SetDefault("game.opening_hand_size", def.Game.OpeningHandSize)
	v.SetDefault("game.per_turn_draw", def.Game.PerTurnDraw)
	v.SetDefault("game.hand_limit", def.Game.HandLimit)
	v.SetDefault("game.deck_size", def.Game.DeckSize)
	v.SetDefault("game.nonce_history", def.Game.NonceHistory)
	v.SetDefault("game.mulligan_timeout", def.Game.MulliganTimeout)
	v.SetDefault("game.turn_timeout", def.Game.TurnTimeout)
	v.SetDefault("database.url", "")
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
}

func (c *Config) validate() error {
	if c.Game.MaxMana <= 0 {
		return fmt.Errorf("config: game.max_mana must be positive, got %d", c.Game.MaxMana)
	}
	if c.Game.HeroHP <= 0 {
		return fmt.Errorf("config: game.hero_hp must be positive, got %d", c.Game.HeroHP)
	}
	if c.Game.OpeningHandSize < 0 || c.Game.OpeningHandSize > c.Game.DeckSize {
		return fmt.Errorf("config: game.opening_hand_size %d out of range", c.Game.OpeningHandSize)
	}
	if c.Game.NonceHistory <= 0 {
		return fmt.Errorf("config: game.nonce_history must be positive, got %d", c.Game.NonceHistory)
	}
	return nil
}
