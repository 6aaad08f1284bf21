package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = ":8080"
	DefaultBotUserID        = "bot_self"
	DefaultBotDisplayName   = "cmdbridge"
	DefaultForwardThreshold = 1500
	DefaultRebuildSchedule  = "@every 5m"
)

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Bridge BridgeConfig `toml:"bridge"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	JWTSecret string `toml:"jwt_secret"`
}

// BridgeConfig is the policy and delivery configuration consumed read-only
// by the bridge core.
type BridgeConfig struct {
	Enabled            bool     `toml:"enabled"`
	Whitelist          []string `toml:"whitelist"`
	Blacklist          []string `toml:"blacklist"`
	AllowAdminCommands bool     `toml:"allow_admin_commands"`
	AdminUsers         []string `toml:"admin_users"`
	BotUserID          string   `toml:"bot_user_id" validate:"required"`
	BotDisplayName     string   `toml:"bot_display_name"`
	EnableForward      bool     `toml:"enable_forward"`
	ForwardThreshold   int      `toml:"forward_threshold" validate:"gte=0"`
	SkipExtensions     []string `toml:"skip_extensions"`
	RebuildSchedule    string   `toml:"rebuild_schedule"`
}

// Load reads the TOML config at path, seeding defaults first. A missing file
// is not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Bridge: BridgeConfig{
			Enabled:          true,
			BotUserID:        DefaultBotUserID,
			BotDisplayName:   DefaultBotDisplayName,
			EnableForward:    true,
			ForwardThreshold: DefaultForwardThreshold,
			RebuildSchedule:  DefaultRebuildSchedule,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the struct-tag constraints on the whole config tree.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
