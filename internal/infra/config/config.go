package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required"`
	// opcional: si está, los comandos se registran sólo en ese guild (aparecen al instante)
	DiscordGuild string   `env:"DISCORD_GUILD_ID"`
	AdminRoleIDs []string `env:"ADMIN_ROLE_IDS" envSeparator:","`
	DatabaseURL  string   `env:"DATABASE_URL,required"`
	HTTPAddr     string   `env:"HTTP_ADDR" envDefault:":8080"`

	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`
	// PLAYER_BUTTON_EMOJIS="skip:<:skip:123>,stop:⏹️"
	ButtonEmojis string `env:"PLAYER_BUTTON_EMOJIS"`

	Lavalink      LavalinkConfig      `envPrefix:"LAVALINK_"`
	Redis         RedisConfig         `envPrefix:"REDIS_"`
	Log           LogConfig           `envPrefix:"LOG_"`
	Session       SessionConfig       `envPrefix:"SESSION_"`
	PlayerMessage PlayerMessageConfig `envPrefix:"PLAYER_MESSAGE_"`
}

type LavalinkConfig struct {
	Name           string        `env:"NAME" envDefault:"main"`
	Address        string        `env:"ADDRESS" envDefault:"localhost:2333"`
	Password       string        `env:"PASSWORD" envDefault:"youshallnotpass"`
	Secure         bool          `env:"SECURE"`
	SearchPrefix   string        `env:"SEARCH_PREFIX" envDefault:"ytsearch"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	SearchTimeout  time.Duration `env:"SEARCH_TIMEOUT" envDefault:"8s"`
}

// RedisConfig: sin ADDR no hay cache de búsquedas.
type RedisConfig struct {
	Addr     string        `env:"ADDR"`
	User     string        `env:"USER"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Pretty bool   `env:"PRETTY"`
	// File vacío = sólo stdout
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"14"`
}

type SessionConfig struct {
	TTL           time.Duration `env:"TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	PageSize      int           `env:"PAGE_SIZE" envDefault:"5"`
}

type PlayerMessageConfig struct {
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"5s"`
	MaxRecords    int           `env:"MAX" envDefault:"1000"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
}

// Load lee .env (si existe) y después el entorno.
func Load() (Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// FromMap es Load pero con un entorno explícito (tests, lambda).
func FromMap(m map[string]string) (Config, error) {
	return parse(env.Options{Environment: m})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.DiscordToken = strings.TrimSpace(c.DiscordToken)
	if !strings.HasPrefix(strings.ToLower(c.DiscordToken), "bot ") {
		c.DiscordToken = "Bot " + c.DiscordToken
	}

	roles := c.AdminRoleIDs[:0]
	for _, r := range c.AdminRoleIDs {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	c.AdminRoleIDs = roles

	c.DefaultLocale = strings.ToLower(strings.TrimSpace(c.DefaultLocale))
	if c.Session.PageSize < 1 || c.Session.PageSize > 25 {
		return fmt.Errorf("config: SESSION_PAGE_SIZE must be between 1 and 25, got %d", c.Session.PageSize)
	}
	if c.PlayerMessage.MaxRecords < 1 {
		return fmt.Errorf("config: PLAYER_MESSAGE_MAX must be > 0, got %d", c.PlayerMessage.MaxRecords)
	}
	return nil
}
