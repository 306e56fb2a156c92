package service

import (
	"context"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
	"github.com/jose-valero/lavamusic-bot/internal/infra/storage"
)

// Lo implementa internal/adapters/lavalink.Client
type Engine interface {
	// Available es false si no hay ningún nodo conectado.
	Available() bool
	Search(ctx context.Context, query string) ([]domain.Track, error)
	// Connect une al bot al canal de voz y espera a que el nodo tenga la sesión de voz.
	Connect(ctx context.Context, guildID, channelID string) error
	Play(ctx context.Context, guildID string, track domain.Track, volume int) error
	Pause(ctx context.Context, guildID string, paused bool) error
	Stop(ctx context.Context, guildID string) error
	// Destroy borra el player del nodo y saca al bot de voz.
	Destroy(ctx context.Context, guildID string) error
}

// Lo implementa internal/infra/storage.SettingsRepo
type SettingsRepo interface {
	Get(ctx context.Context, guildID string) (storage.GuildSettings, error)
	Upsert(ctx context.Context, gs storage.GuildSettings) error
}

// Lo implementa internal/infra/cache.SearchCache. ok=false es un miss.
type SearchCache interface {
	Get(ctx context.Context, query string) (tracks []domain.Track, ok bool, err error)
	Set(ctx context.Context, query string, tracks []domain.Track) error
}

// Lo implementa internal/metrics.Registry. Fire-and-forget: nunca devuelve error.
type Metrics interface {
	Inc(name string, labels ...string)
	Observe(name string, value float64, labels ...string)
	Set(name string, value float64, labels ...string)
}

// PlayerListener recibe los cambios de estado del player (lo implementa el router de Discord).
type PlayerListener interface {
	PlayerUpdated(guildID string)
	PlaybackEnded(guildID string)
	PlayerDestroyed(guildID string)
}

type nopMetrics struct{}

func (nopMetrics) Inc(string, ...string)              {}
func (nopMetrics) Observe(string, float64, ...string) {}
func (nopMetrics) Set(string, float64, ...string)     {}

type nopListener struct{}

func (nopListener) PlayerUpdated(string)   {}
func (nopListener) PlaybackEnded(string)   {}
func (nopListener) PlayerDestroyed(string) {}
