package discord

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/app/service"
)

const (
	handlerTimeout  = 12 * time.Second
	refreshDebounce = 750 * time.Millisecond
	clickEvery      = 400 * time.Millisecond
	clickBurst      = 4
	dedupeTTL       = time.Minute
)

// Options agrupa las dependencias del router.
type Options struct {
	// GuildID vacío = comandos globales
	GuildID       string
	AdminRoleIDs  []string
	DefaultLocale string
	// formato de PLAYER_BUTTON_EMOJIS
	ButtonEmojis string

	Player     *service.PlayerService
	Search     *service.SearchService
	Settings   *service.SettingsService
	Messages   *PlayerMessageRegistry
	Voice      VoiceForwarder
	Translator Translator
	Metrics    service.Metrics
	Log        *zap.Logger

	// Interactions nil = REST de la sesión
	Interactions InteractionAPI
}

type Router struct {
	s             *discordgo.Session
	api           InteractionAPI
	guildID       string
	adminRoleIDs  []string
	defaultLocale string

	player   *service.PlayerService
	search   *service.SearchService
	settings *service.SettingsService
	messages *PlayerMessageRegistry
	voice    VoiceForwarder
	tr       Translator
	metrics  service.Metrics
	log      *zap.Logger

	clicks *userLimiter
	emojis map[string]*discordgo.ComponentEmoji

	refreshMu     sync.Mutex
	refreshTimers map[string]*time.Timer

	seenMu sync.Mutex
	seen   map[string]time.Time
}

func NewRouter(s *discordgo.Session, o Options) *Router {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := o.Metrics
	if m == nil {
		m = nopMetrics{}
	}
	locale := o.DefaultLocale
	if locale == "" {
		locale = "en"
	}
	api := o.Interactions
	if api == nil {
		api = sessionInteractions{s: s}
	}
	emojis, bad := parseEmojiOverrides(o.ButtonEmojis)
	for _, b := range bad {
		log.Warn("ignoring button emoji override", zap.String("entry", b))
	}
	return &Router{
		s:             s,
		api:           api,
		guildID:       o.GuildID,
		adminRoleIDs:  o.AdminRoleIDs,
		defaultLocale: locale,
		player:        o.Player,
		search:        o.Search,
		settings:      o.Settings,
		messages:      o.Messages,
		voice:         o.Voice,
		tr:            o.Translator,
		metrics:       m,
		log:           log.Named("discord"),
		clicks:        newUserLimiter(clickEvery, clickBurst),
		emojis:        emojis,
		refreshTimers: map[string]*time.Timer{},
		seen:          map[string]time.Time{},
	}
}

type nopMetrics struct{}

func (nopMetrics) Inc(string, ...string)              {}
func (nopMetrics) Observe(string, float64, ...string) {}
func (nopMetrics) Set(string, float64, ...string)     {}

// Register crea los slash commands (en el guild de DISCORD_GUILD_ID o globales).
func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	r.log.Info("commands registered", zap.Int("count", len(Commands)), zap.String("guild", r.guildID))
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(r.onInteraction)
	r.s.AddHandler(r.onVoiceState)
	r.s.AddHandler(r.onVoiceServer)

	// el bot salió del guild (no cuenta si el guild quedó unavailable por un outage)
	r.s.AddHandler(func(s *discordgo.Session, e *discordgo.GuildDelete) {
		if e.Guild == nil || e.Unavailable {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if r.player.Has(e.ID) {
			_ = r.player.Destroy(ctx, e.ID)
		}
		r.settings.Forget(e.ID)
		r.log.Info("left guild", zap.String("guild", e.ID))
	})

	r.s.AddHandler(func(s *discordgo.Session, e *discordgo.ChannelDelete) {
		if e.Channel != nil && r.messages.ForgetChannel(e.GuildID, e.ID) {
			r.log.Debug("player message channel deleted", zap.String("guild", e.GuildID), zap.String("channel", e.ID))
		}
	})

	r.s.AddHandler(func(s *discordgo.Session, e *discordgo.MessageDelete) {
		if e.Message != nil && r.messages.ForgetMessage(e.GuildID, e.ID) {
			r.log.Debug("player message deleted externally", zap.String("guild", e.GuildID))
		}
	})
}

func (r *Router) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.GuildID == "" {
		// sólo funcionamos dentro de guilds
		return
	}
	if r.duplicate(ic.ID) {
		r.log.Debug("duplicate interaction", zap.String("id", ic.ID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	c := r.newCtx(ctx, ic)

	defer func() {
		if rec := recover(); rec != nil {
			c.Log.Error("panic in interaction handler", zap.Any("panic", rec), zap.Stack("stack"))
			r.metrics.Inc("interaction_panics_total")
			r.replyEphemeral(ic, r.t(c, "error.generic"))
		}
	}()

	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		r.metrics.Inc("interactions_total", "type", "command")
		r.handleSlashCommand(ctx, c)
	case discordgo.InteractionMessageComponent:
		r.metrics.Inc("interactions_total", "type", "component")
		r.handleMessageComponent(ctx, c)
	}
}

// duplicate marca el id como visto; true si ya lo habíamos procesado (reintentos del gateway).
func (r *Router) duplicate(id string) bool {
	now := time.Now()
	r.seenMu.Lock()
	defer r.seenMu.Unlock()
	if _, ok := r.seen[id]; ok {
		return true
	}
	if len(r.seen) > 512 {
		for k, t := range r.seen {
			if now.Sub(t) > dedupeTTL {
				delete(r.seen, k)
			}
		}
	}
	r.seen[id] = now
	return false
}

// sólo nos interesan los estados de voz del propio bot
func (r *Router) onVoiceState(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if e.VoiceState == nil || s.State.User == nil || e.UserID != s.State.User.ID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if r.voice != nil {
		r.voice.OnVoiceStateUpdate(ctx, e.GuildID, e.ChannelID, e.SessionID)
	}
	r.player.OnVoiceMoved(ctx, e.GuildID, e.ChannelID)
}

func (r *Router) onVoiceServer(s *discordgo.Session, e *discordgo.VoiceServerUpdate) {
	if r.voice == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	r.voice.OnVoiceServerUpdate(ctx, e.GuildID, e.Token, e.Endpoint)
}

// KnownChannel lo usa el sweep del registry: el canal sigue existiendo en el state.
func (r *Router) KnownChannel(guildID, channelID string) bool {
	if _, err := r.s.State.Guild(guildID); err != nil {
		return false
	}
	ch, err := r.s.State.Channel(channelID)
	return err == nil && ch.GuildID == guildID
}

// PruneLimiter limpia los buckets de usuarios inactivos.
func (r *Router) PruneLimiter(idle time.Duration) int { return r.clicks.Prune(idle) }

// ---- service.PlayerListener ----

func (r *Router) PlayerUpdated(guildID string) { r.scheduleRefresh(guildID) }

func (r *Router) PlaybackEnded(guildID string) { r.scheduleRefresh(guildID) }

func (r *Router) PlayerDestroyed(guildID string) {
	r.refreshMu.Lock()
	if t, ok := r.refreshTimers[guildID]; ok {
		t.Stop()
		delete(r.refreshTimers, guildID)
	}
	r.refreshMu.Unlock()

	go func() {
		if n := r.search.ExpireGuild(guildID); n > 0 {
			r.log.Debug("expired search sessions", zap.String("guild", guildID), zap.Int("count", n))
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		r.messages.Delete(ctx, guildID)
	}()
}

// scheduleRefresh junta ráfagas de cambios en una sola edición del mensaje del player.
func (r *Router) scheduleRefresh(guildID string) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	if _, pending := r.refreshTimers[guildID]; pending {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(refreshDebounce, func() {
		r.refreshMu.Lock()
		if r.refreshTimers[guildID] == t {
			delete(r.refreshTimers, guildID)
		}
		r.refreshMu.Unlock()
		r.syncPlayerMessage(guildID)
	})
	r.refreshTimers[guildID] = t
}

// syncPlayerMessage deja el mensaje del player igual al estado actual.
func (r *Router) syncPlayerMessage(guildID string) {
	defer r.step("player.sync")()
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	snap, ok := r.player.Snapshot(guildID)
	if !ok || snap.Current == nil {
		r.messages.Delete(ctx, guildID)
		return
	}
	locale := r.settings.Locale(ctx, guildID)
	if locale == "" {
		locale = r.defaultLocale
	}
	render := func() (View, error) {
		// re-lectura: el estado pudo cambiar mientras esperábamos a Discord
		cur, ok := r.player.Snapshot(guildID)
		if !ok || cur.Current == nil {
			return View{}, errPlayerGone
		}
		return r.playerView(guildID, locale, cur), nil
	}

	updated, err := r.messages.Update(ctx, guildID, render)
	if err != nil {
		if !errors.Is(err, errPlayerGone) {
			r.log.Warn("render player message", zap.String("guild", guildID), zap.Error(err))
		}
		return
	}
	if updated || snap.TextChannelID == "" {
		return
	}
	if _, err := r.messages.Send(ctx, guildID, snap.TextChannelID, render); err != nil && !errors.Is(err, errPlayerGone) {
		r.log.Warn("send player message", zap.String("guild", guildID), zap.String("channel", snap.TextChannelID), zap.Error(err))
	}
}
