package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	discordrouter "github.com/jose-valero/lavamusic-bot/internal/adapters/discord"
	"github.com/jose-valero/lavamusic-bot/internal/adapters/httpstatus"
	"github.com/jose-valero/lavamusic-bot/internal/adapters/lavalink"
	"github.com/jose-valero/lavamusic-bot/internal/app/service"
	"github.com/jose-valero/lavamusic-bot/internal/i18n"
	"github.com/jose-valero/lavamusic-bot/internal/infra/cache"
	"github.com/jose-valero/lavamusic-bot/internal/infra/config"
	"github.com/jose-valero/lavamusic-bot/internal/infra/logger"
	"github.com/jose-valero/lavamusic-bot/internal/infra/storage"
	"github.com/jose-valero/lavamusic-bot/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Conecta el bot a Discord y Lavalink",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runServe(cmd.Context()) },
	}
	root := &cobra.Command{
		Use:          "lavamusic",
		Short:        "Bot de música para Discord sobre Lavalink",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones y sale",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runMigrate(cmd.Context()) },
	})
	return root
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func openDB(ctx context.Context, cfg config.Config, log *zap.Logger) (*sql.DB, error) {
	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready")
	return db, nil
}

func runMigrate(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	db, err := openDB(ctx, cfg, log)
	if err != nil {
		log.Error("migrate failed", zap.Error(err))
		return err
	}
	return db.Close()
}

func runServe(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// DB
	db, err := openDB(ctx, cfg, log)
	if err != nil {
		log.Error("database", zap.Error(err))
		return err
	}
	defer db.Close()
	settingsRepo := storage.NewSettingsRepo(db)
	playerMsgRepo := storage.NewPlayerMessageRepo(db)

	tr, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	reg := metrics.NewRegistry()
	settingsSvc := service.NewSettingsService(settingsRepo, tr.Supported, log)

	// Discord session
	s, err := discordgo.New(cfg.DiscordToken)
	if err != nil {
		return err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMessages
	if err := s.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer s.Close()
	log.Info("connected to discord", zap.String("user", s.State.User.Username), zap.String("id", s.State.User.ID))

	// Lavalink
	lava, err := lavalink.New(s.State.User.ID,
		lavalink.WithSearchPrefix(cfg.Lavalink.SearchPrefix),
		lavalink.WithLogger(log),
		lavalink.WithVoiceJoiner(func(guildID, channelID string) error {
			return s.ChannelVoiceJoinManual(guildID, channelID, false, true)
		}),
	)
	if err != nil {
		return err
	}
	defer lava.Close()

	playerSvc := service.NewPlayerService(lava, settingsSvc, cfg.Lavalink.ConnectTimeout, 0, log, reg)
	lava.SetEventHandler(playerSvc)
	go connectNode(ctx, lava, cfg.Lavalink, log)

	// cache opcional
	var searchCache service.SearchCache
	var redisPing httpstatus.Check
	if cfg.Redis.Addr != "" {
		rc, err := cache.Connect(ctx, cache.ConnectOptions{
			Addr:     cfg.Redis.Addr,
			User:     cfg.Redis.User,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, search cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			sc := cache.NewSearchCache(rc, cfg.Redis.CacheTTL)
			searchCache = sc
			redisPing = sc.Ping
		}
	}

	sessions := service.NewSessionStore(cfg.Session.PageSize, cfg.Session.TTL, log, reg)
	searchSvc := service.NewSearchService(lava, sessions, playerSvc, searchCache, cfg.Lavalink.SearchTimeout, log, reg)

	messages := discordrouter.NewPlayerMessageRegistry(discordrouter.NewSessionMessages(s), playerMsgRepo,
		cfg.PlayerMessage.Timeout, cfg.PlayerMessage.MaxRecords, log)

	// Router
	r := discordrouter.NewRouter(s, discordrouter.Options{
		GuildID:       cfg.DiscordGuild,
		AdminRoleIDs:  cfg.AdminRoleIDs,
		DefaultLocale: cfg.DefaultLocale,
		ButtonEmojis:  cfg.ButtonEmojis,
		Player:        playerSvc,
		Search:        searchSvc,
		Settings:      settingsSvc,
		Messages:      messages,
		Voice:         lava,
		Translator:    tr,
		Metrics:       reg,
		Log:           log,
	})
	playerSvc.SetListener(r)
	r.Handlers()
	if err := r.Register(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	if n := messages.Restore(ctx); n > 0 {
		log.Info("removed player messages from previous run", zap.Int("count", n))
	}

	// background
	go sessions.Run(ctx, cfg.Session.SweepInterval, cfg.Session.TTL)
	go messages.Run(ctx, cfg.PlayerMessage.SweepInterval, r.KnownChannel)
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.PruneLimiter(10 * time.Minute)
				reg.Set("players_active", float64(len(playerSvc.Guilds())))
				reg.Set("search_sessions", float64(sessions.Len()))
				reg.Set("player_messages", float64(messages.Len()))
			}
		}
	}()

	// status
	checks := map[string]httpstatus.Check{
		"database": db.PingContext,
		"lavalink": func(context.Context) error {
			if !lava.Available() {
				return errors.New("no lavalink node connected")
			}
			return nil
		},
	}
	if redisPing != nil {
		checks["redis"] = redisPing
	}
	status := httpstatus.New(cfg.HTTPAddr, checks, reg.Handler(), log)
	go func() {
		if err := status.Start(); err != nil {
			log.Error("status server", zap.Error(err))
		}
	}()

	log.Info("bot ready")
	<-ctx.Done()
	log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, g := range playerSvc.Guilds() {
		_ = playerSvc.Destroy(sctx, g)
	}
	_ = status.Stop(sctx)
	return nil
}

// connectNode reintenta hasta que el nodo acepte la conexión.
func connectNode(ctx context.Context, lava *lavalink.Client, cfg config.LavalinkConfig, log *zap.Logger) {
	wait := 2 * time.Second
	for {
		actx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		err := lava.AddNode(actx, lavalink.NodeConfig{
			Name:     cfg.Name,
			Address:  cfg.Address,
			Password: cfg.Password,
			Secure:   cfg.Secure,
		})
		cancel()
		if err == nil {
			return
		}
		log.Warn("lavalink node not reachable, retrying", zap.Duration("in", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait < time.Minute {
			wait *= 2
		}
	}
}
