package lavalink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	lava "github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

const defaultSearchPrefix = "ytsearch"

// EventHandler lo implementa service.PlayerService.
type EventHandler interface {
	OnTrackStart(guildID, encoded string)
	OnTrackEnd(ctx context.Context, guildID string, mayStartNext bool)
	OnTrackException(guildID, message string)
	OnTrackStuck(ctx context.Context, guildID string)
	OnSocketClosed(ctx context.Context, guildID string, code int, byRemote bool)
}

// NodeConfig describe un nodo Lavalink.
type NodeConfig struct {
	Name     string
	Address  string
	Password string
	Secure   bool
}

// Client adapta disgolink al puerto service.Engine.
type Client struct {
	link         disgolink.Client
	searchPrefix string
	join         func(guildID, channelID string) error
	log          *zap.Logger

	mu     sync.Mutex
	events EventHandler
	// voiceReady: Connect espera acá a que llegue el VOICE_SERVER_UPDATE del guild
	voiceReady map[snowflake.ID]chan struct{}
}

func New(botUserID string, opts ...Option) (*Client, error) {
	uid, err := snowflake.Parse(botUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: bot user id %q", ErrBadID, botUserID)
	}
	c := &Client{
		searchPrefix: defaultSearchPrefix,
		log:          zap.NewNop(),
		voiceReady:   map[snowflake.ID]chan struct{}{},
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("lavalink")
	c.link = disgolink.New(uid,
		disgolink.WithListenerFunc(c.onTrackStart),
		disgolink.WithListenerFunc(c.onTrackEnd),
		disgolink.WithListenerFunc(c.onTrackException),
		disgolink.WithListenerFunc(c.onTrackStuck),
		disgolink.WithListenerFunc(c.onWebSocketClosed),
	)
	return c, nil
}

// SetEventHandler se llama una vez antes de conectar nodos.
func (c *Client) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	c.events = h
	c.mu.Unlock()
}

// AddNode conecta un nodo; con varios nodos disgolink elige el de menor carga.
func (c *Client) AddNode(ctx context.Context, cfg NodeConfig) error {
	if cfg.Name == "" {
		cfg.Name = "main"
	}
	if _, err := c.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     cfg.Name,
		Address:  cfg.Address,
		Password: cfg.Password,
		Secure:   cfg.Secure,
	}); err != nil {
		return fmt.Errorf("lavalink add node %s: %w", cfg.Name, err)
	}
	c.log.Info("node connected", zap.String("node", cfg.Name), zap.String("address", cfg.Address))
	return nil
}

func (c *Client) Close() { c.link.Close() }

func (c *Client) Available() bool {
	node := c.link.BestNode()
	return node != nil && node.Status() == disgolink.StatusConnected
}

// Search acepta URLs directas o texto libre (se le agrega el prefijo de búsqueda).
func (c *Client) Search(ctx context.Context, query string) ([]domain.Track, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, ErrNoNode
	}

	var (
		out     []domain.Track
		loadErr error
	)
	node.LoadTracksHandler(ctx, Identifier(c.searchPrefix, query), disgolink.NewResultHandler(
		func(track lava.Track) {
			out = []domain.Track{toDomain(track)}
		},
		func(playlist lava.Playlist) {
			out = toDomainList(playlist.Tracks)
		},
		func(tracks []lava.Track) {
			out = toDomainList(tracks)
		},
		func() {
			out = nil
		},
		func(err error) {
			loadErr = &LoadError{Message: err.Error(), Severity: "unknown"}
		},
	))
	if loadErr != nil {
		return nil, loadErr
	}
	return out, nil
}

// Connect pide al gateway entrar al canal y espera a que el nodo reciba la sesión de voz.
func (c *Client) Connect(ctx context.Context, guildID, channelID string) error {
	if c.join == nil {
		return ErrNoJoiner
	}
	gID, err := snowflake.Parse(guildID)
	if err != nil {
		return fmt.Errorf("%w: guild %q", ErrBadID, guildID)
	}
	if c.link.BestNode() == nil {
		return ErrNoNode
	}

	ready := make(chan struct{})
	c.mu.Lock()
	c.voiceReady[gID] = ready
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.voiceReady[gID] == ready {
			delete(c.voiceReady, gID)
		}
		c.mu.Unlock()
	}()

	_ = c.link.Player(gID)
	if err := c.join(guildID, channelID); err != nil {
		return fmt.Errorf("voice join: %w", err)
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for voice server update: %w", ctx.Err())
	}
}

func (c *Client) Play(ctx context.Context, guildID string, track domain.Track, volume int) error {
	player, err := c.existing(guildID)
	if err != nil {
		return err
	}
	return player.Update(ctx, lava.WithEncodedTrack(track.Encoded), lava.WithVolume(volume), lava.WithPaused(false))
}

func (c *Client) Pause(ctx context.Context, guildID string, paused bool) error {
	player, err := c.existing(guildID)
	if err != nil {
		return err
	}
	return player.Update(ctx, lava.WithPaused(paused))
}

func (c *Client) Stop(ctx context.Context, guildID string) error {
	player, err := c.existing(guildID)
	if err != nil {
		return err
	}
	return player.Update(ctx, lava.WithNullTrack())
}

// Destroy borra el player del nodo y saca al bot de voz. Siempre intenta las dos cosas.
func (c *Client) Destroy(ctx context.Context, guildID string) error {
	gID, err := snowflake.Parse(guildID)
	if err != nil {
		return fmt.Errorf("%w: guild %q", ErrBadID, guildID)
	}
	var destroyErr error
	if player := c.link.ExistingPlayer(gID); player != nil {
		destroyErr = player.Destroy(ctx)
		c.link.RemovePlayer(gID)
	}
	if c.join != nil {
		if err := c.join(guildID, ""); err != nil && destroyErr == nil {
			destroyErr = fmt.Errorf("voice leave: %w", err)
		}
	}
	return destroyErr
}

func (c *Client) existing(guildID string) (disgolink.Player, error) {
	gID, err := snowflake.Parse(guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: guild %q", ErrBadID, guildID)
	}
	player := c.link.ExistingPlayer(gID)
	if player == nil {
		return nil, fmt.Errorf("no player for guild %s", guildID)
	}
	return player, nil
}

// ---------- voz (los eventos llegan por discordgo) ----------

// OnVoiceStateUpdate se llama sólo con el voice state del propio bot.
func (c *Client) OnVoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string) {
	gID, err := snowflake.Parse(guildID)
	if err != nil {
		return
	}
	var chID *snowflake.ID
	if channelID != "" {
		if id, err := snowflake.Parse(channelID); err == nil {
			chID = &id
		}
	}
	c.link.OnVoiceStateUpdate(ctx, gID, chID, sessionID)
}

func (c *Client) OnVoiceServerUpdate(ctx context.Context, guildID, token, endpoint string) {
	gID, err := snowflake.Parse(guildID)
	if err != nil {
		return
	}
	c.link.OnVoiceServerUpdate(ctx, gID, token, endpoint)

	c.mu.Lock()
	if ready, ok := c.voiceReady[gID]; ok {
		close(ready)
		delete(c.voiceReady, gID)
	}
	c.mu.Unlock()
}

// ---------- eventos del nodo ----------

func (c *Client) handler() EventHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

func (c *Client) onTrackStart(p disgolink.Player, e lava.TrackStartEvent) {
	if h := c.handler(); h != nil {
		h.OnTrackStart(p.GuildID().String(), e.Track.Encoded)
	}
}

func (c *Client) onTrackEnd(p disgolink.Player, e lava.TrackEndEvent) {
	c.log.Debug("track end", zap.String("guild", p.GuildID().String()), zap.String("reason", string(e.Reason)))
	if h := c.handler(); h != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.OnTrackEnd(ctx, p.GuildID().String(), e.Reason.MayStartNext())
	}
}

func (c *Client) onTrackException(p disgolink.Player, e lava.TrackExceptionEvent) {
	if h := c.handler(); h != nil {
		h.OnTrackException(p.GuildID().String(), e.Exception.Message)
	}
}

func (c *Client) onTrackStuck(p disgolink.Player, e lava.TrackStuckEvent) {
	if h := c.handler(); h != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.OnTrackStuck(ctx, p.GuildID().String())
	}
}

func (c *Client) onWebSocketClosed(p disgolink.Player, e lava.WebSocketClosedEvent) {
	if h := c.handler(); h != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.OnSocketClosed(ctx, p.GuildID().String(), e.Code, e.ByRemote)
	}
}

// Identifier arma lo que se manda a /loadtracks: URLs tal cual, texto con prefijo.
func Identifier(prefix, query string) string {
	q := strings.TrimSpace(query)
	if strings.HasPrefix(q, "http://") || strings.HasPrefix(q, "https://") {
		return q
	}
	if prefix == "" {
		prefix = defaultSearchPrefix
	}
	return prefix + ":" + q
}
