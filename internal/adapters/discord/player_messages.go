package discord

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
	"github.com/jose-valero/lavamusic-bot/internal/infra/storage"
)

const (
	DefaultMessageTimeout    = 5 * time.Second
	DefaultMaxPlayerMessages = 1000
)

// View es lo que se manda o se edita en el mensaje del player.
type View struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// RenderFunc arma la vista en el momento del envío/edición.
type RenderFunc func() (View, error)

// MessageAPI es el subconjunto de REST que usa el registry (fake en tests).
type MessageAPI interface {
	SendMessage(ctx context.Context, channelID string, v View) (string, error)
	FetchMessage(ctx context.Context, channelID, messageID string) error
	EditMessage(ctx context.Context, channelID, messageID string, v View) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// MessageStore persiste los records para limpiar huérfanos tras un reinicio. Puede ser nil.
type MessageStore interface {
	Upsert(ctx context.Context, m storage.PlayerMessage) error
	Delete(ctx context.Context, guildID string) error
	List(ctx context.Context) ([]storage.PlayerMessage, error)
}

// PlayerMessageRegistry lleva el mensaje "now playing" de cada guild. Ninguna llamada remota se
// hace con el lock tomado; después de cada una se vuelve a mirar el map.
type PlayerMessageRegistry struct {
	api     MessageAPI
	store   MessageStore
	log     *zap.Logger
	timeout time.Duration
	max     int
	now     func() time.Time

	mu      sync.Mutex
	records map[string]domain.PlayerMessageRecord
}

func NewPlayerMessageRegistry(api MessageAPI, store MessageStore, timeout time.Duration, max int, log *zap.Logger) *PlayerMessageRegistry {
	if timeout <= 0 {
		timeout = DefaultMessageTimeout
	}
	if max <= 0 {
		max = DefaultMaxPlayerMessages
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PlayerMessageRegistry{
		api:     api,
		store:   store,
		log:     log.Named("player_messages"),
		timeout: timeout,
		max:     max,
		now:     time.Now,
		records: map[string]domain.PlayerMessageRecord{},
	}
}

func (r *PlayerMessageRegistry) Get(guildID string) (domain.PlayerMessageRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[guildID]
	return rec, ok
}

func (r *PlayerMessageRegistry) Has(guildID string) bool {
	_, ok := r.Get(guildID)
	return ok
}

func (r *PlayerMessageRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Send publica un mensaje nuevo. Si ya había uno para el guild, el viejo se borra antes.
func (r *PlayerMessageRegistry) Send(ctx context.Context, guildID, channelID string, render RenderFunc) (domain.PlayerMessageRecord, error) {
	v, err := render()
	if err != nil {
		return domain.PlayerMessageRecord{}, err
	}

	r.mu.Lock()
	old, had := r.records[guildID]
	delete(r.records, guildID)
	r.mu.Unlock()
	if had {
		r.deleteRemote(ctx, old)
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	msgID, err := r.api.SendMessage(cctx, channelID, v)
	cancel()
	if err != nil {
		if had {
			r.persistDelete(guildID)
		}
		return domain.PlayerMessageRecord{}, err
	}

	now := r.now()
	rec := domain.PlayerMessageRecord{GuildID: guildID, ChannelID: channelID, MessageID: msgID, CreatedAt: now, UpdatedAt: now}

	r.mu.Lock()
	// otro Send pudo ganar mientras esperábamos: el último en llegar se queda, el otro se borra
	stale, raced := r.records[guildID]
	r.records[guildID] = rec
	evicted := r.evictLocked()
	r.mu.Unlock()

	if raced && stale.MessageID != msgID {
		r.deleteRemote(ctx, stale)
	}
	for _, e := range evicted {
		r.persistDelete(e.GuildID)
	}
	r.persistUpsert(rec)
	return rec, nil
}

// Update re-renderiza y edita el mensaje del guild. Devuelve false (sin error) si no había
// record o si el mensaje ya no existe; en ese caso el record se descarta.
func (r *PlayerMessageRegistry) Update(ctx context.Context, guildID string, render RenderFunc) (bool, error) {
	rec, ok := r.Get(guildID)
	if !ok {
		return false, nil
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	err := r.api.FetchMessage(cctx, rec.ChannelID, rec.MessageID)
	cancel()
	if err != nil {
		r.log.Debug("player message gone", zap.String("guild", guildID), zap.Error(err))
		r.drop(rec)
		return false, nil
	}

	v, err := render()
	if err != nil {
		return false, err
	}

	cctx, cancel = context.WithTimeout(ctx, r.timeout)
	err = r.api.EditMessage(cctx, rec.ChannelID, rec.MessageID, v)
	cancel()
	if err != nil {
		r.log.Debug("player message edit failed", zap.String("guild", guildID), zap.Error(err))
		r.drop(rec)
		return false, nil
	}

	r.mu.Lock()
	cur, ok := r.records[guildID]
	same := ok && cur.MessageID == rec.MessageID
	if same {
		cur.UpdatedAt = r.now()
		r.records[guildID] = cur
	}
	r.mu.Unlock()
	if same {
		// el janitor poda por updated_at: cada edición cuenta como actividad
		r.persistUpsert(cur)
	}
	return same, nil
}

// Delete borra el mensaje (best effort) y siempre limpia el record.
func (r *PlayerMessageRegistry) Delete(ctx context.Context, guildID string) {
	r.mu.Lock()
	rec, ok := r.records[guildID]
	delete(r.records, guildID)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.deleteRemote(ctx, rec)
	r.persistDelete(guildID)
}

// Sweep descarta records cuyo guild/canal ya no conocemos y aplica el tope.
func (r *PlayerMessageRegistry) Sweep(known func(guildID, channelID string) bool) int {
	r.mu.Lock()
	var dropped []string
	for g, rec := range r.records {
		if known != nil && !known(rec.GuildID, rec.ChannelID) {
			delete(r.records, g)
			dropped = append(dropped, g)
		}
	}
	for _, e := range r.evictLocked() {
		dropped = append(dropped, e.GuildID)
	}
	r.mu.Unlock()

	for _, g := range dropped {
		r.persistDelete(g)
	}
	if len(dropped) > 0 {
		r.log.Info("player messages swept", zap.Int("dropped", len(dropped)))
	}
	return len(dropped)
}

// Run corre Sweep cada interval hasta que ctx termine.
func (r *PlayerMessageRegistry) Run(ctx context.Context, interval time.Duration, known func(guildID, channelID string) bool) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(known)
		}
	}
}

// Restore borra los mensajes que dejó un proceso anterior: su player ya no existe.
func (r *PlayerMessageRegistry) Restore(ctx context.Context) int {
	if r.store == nil {
		return 0
	}
	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	rows, err := r.store.List(lctx)
	cancel()
	if err != nil {
		r.log.Warn("list persisted player messages", zap.Error(err))
		return 0
	}
	for _, m := range rows {
		r.deleteRemote(ctx, domain.PlayerMessageRecord{GuildID: m.GuildID, ChannelID: m.ChannelID, MessageID: m.MessageID})
		r.persistDelete(m.GuildID)
	}
	return len(rows)
}

// drop quita el record sólo si sigue siendo el mismo mensaje.
func (r *PlayerMessageRegistry) drop(rec domain.PlayerMessageRecord) {
	r.mu.Lock()
	cur, ok := r.records[rec.GuildID]
	same := ok && cur.MessageID == rec.MessageID
	if same {
		delete(r.records, rec.GuildID)
	}
	r.mu.Unlock()
	if same {
		r.persistDelete(rec.GuildID)
	}
}

// evictLocked aplica el tope sacando los más viejos (por UpdatedAt).
func (r *PlayerMessageRegistry) evictLocked() []domain.PlayerMessageRecord {
	over := len(r.records) - r.max
	if over <= 0 {
		return nil
	}
	all := make([]domain.PlayerMessageRecord, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.Before(all[j].UpdatedAt) })
	out := all[:over]
	for _, rec := range out {
		delete(r.records, rec.GuildID)
	}
	return out
}

func (r *PlayerMessageRegistry) deleteRemote(ctx context.Context, rec domain.PlayerMessageRecord) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.api.DeleteMessage(cctx, rec.ChannelID, rec.MessageID); err != nil {
		r.log.Debug("delete player message", zap.String("guild", rec.GuildID), zap.String("message", rec.MessageID), zap.Error(err))
	}
}

func (r *PlayerMessageRegistry) persistUpsert(rec domain.PlayerMessageRecord) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Upsert(ctx, storage.PlayerMessage{GuildID: rec.GuildID, ChannelID: rec.ChannelID, MessageID: rec.MessageID}); err != nil {
		r.log.Warn("persist player message", zap.String("guild", rec.GuildID), zap.Error(err))
	}
}

func (r *PlayerMessageRegistry) persistDelete(guildID string) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Delete(ctx, guildID); err != nil {
		r.log.Warn("unpersist player message", zap.String("guild", guildID), zap.Error(err))
	}
}

// ---------- MessageAPI sobre discordgo ----------

type sessionMessages struct{ s *discordgo.Session }

// NewSessionMessages adapta una sesión de discordgo a MessageAPI.
func NewSessionMessages(s *discordgo.Session) MessageAPI { return sessionMessages{s: s} }

func (m sessionMessages) SendMessage(ctx context.Context, channelID string, v View) (string, error) {
	msg, err := m.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    v.Content,
		Embeds:     v.Embeds,
		Components: v.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (m sessionMessages) FetchMessage(ctx context.Context, channelID, messageID string) error {
	_, err := m.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	return err
}

func (m sessionMessages) EditMessage(ctx context.Context, channelID, messageID string, v View) error {
	content := v.Content
	embeds := v.Embeds
	comps := v.Components
	_, err := m.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Content:    &content,
		Embeds:     &embeds,
		Components: &comps,
	}, discordgo.WithContext(ctx))
	return err
}

func (m sessionMessages) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return m.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

// ForgetMessage descarta el record si apunta a messageID (el mensaje ya no existe).
func (r *PlayerMessageRegistry) ForgetMessage(guildID, messageID string) bool {
	return r.forgetIf(guildID, func(rec domain.PlayerMessageRecord) bool { return rec.MessageID == messageID })
}

// ForgetChannel descarta el record si vive en channelID.
func (r *PlayerMessageRegistry) ForgetChannel(guildID, channelID string) bool {
	return r.forgetIf(guildID, func(rec domain.PlayerMessageRecord) bool { return rec.ChannelID == channelID })
}

func (r *PlayerMessageRegistry) forgetIf(guildID string, match func(domain.PlayerMessageRecord) bool) bool {
	r.mu.Lock()
	rec, ok := r.records[guildID]
	hit := ok && match(rec)
	if hit {
		delete(r.records, guildID)
	}
	r.mu.Unlock()
	if hit {
		r.persistDelete(guildID)
	}
	return hit
}
