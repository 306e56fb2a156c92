package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

const (
	MaxSearchResults     = 25
	DefaultSearchTimeout = 8 * time.Second
)

// SearchRequest viene de /search o /play.
type SearchRequest struct {
	GuildID        string
	UserID         string
	Query          string
	TextChannelID  string
	VoiceChannelID string
	Locale         string
}

// SearchService implementa la búsqueda y la máquina de estados de la sesión: Browsing →
// {Committed | Cancelled | Expired}.
type SearchService struct {
	engine   Engine
	sessions *SessionStore
	player   *PlayerService
	cache    SearchCache
	log      *zap.Logger
	metrics  Metrics

	timeout    time.Duration
	maxResults int
}

func NewSearchService(engine Engine, sessions *SessionStore, player *PlayerService, cache SearchCache, timeout time.Duration, log *zap.Logger, m Metrics) *SearchService {
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &SearchService{
		engine:     engine,
		sessions:   sessions,
		player:     player,
		cache:      cache,
		log:        log.Named("search"),
		metrics:    m,
		timeout:    timeout,
		maxResults: MaxSearchResults,
	}
}

// Tracks sanitiza la query y devuelve los resultados (cache primero).
func (s *SearchService) Tracks(ctx context.Context, raw string) ([]domain.Track, error) {
	query, err := domain.SanitizeQuery(raw)
	if err != nil {
		return nil, err
	}
	if !s.engine.Available() {
		return nil, domain.NewError(domain.KindServiceUnavailable, "no lavalink node available", nil)
	}

	if s.cache != nil {
		tracks, ok, err := s.cache.Get(ctx, query)
		if err != nil {
			s.log.Debug("search cache get", zap.Error(err))
		}
		if ok && len(tracks) > 0 {
			s.metrics.Inc("search_cache_hits_total")
			return tracks, nil
		}
	}

	start := time.Now()
	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	tracks, err := s.engine.Search(sctx, query)
	cancel()
	s.metrics.Observe("search_seconds", time.Since(start).Seconds())
	if err != nil {
		s.metrics.Inc("search_failures_total")
		return nil, domain.WrapError(domain.KindServiceUnavailable, err, "search")
	}
	if len(tracks) == 0 {
		return nil, domain.NewError(domain.KindNoResults, "no tracks found", map[string]any{"query": query})
	}
	if len(tracks) > s.maxResults {
		tracks = tracks[:s.maxResults]
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, query, tracks); err != nil {
			s.log.Debug("search cache set", zap.Error(err))
		}
	}
	return tracks, nil
}

// Search busca y abre una sesión para el usuario.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (domain.SearchSession, error) {
	tracks, err := s.Tracks(ctx, req.Query)
	if err != nil {
		return domain.SearchSession{}, err
	}
	query, _ := domain.SanitizeQuery(req.Query)

	id, err := s.sessions.Create(req.UserID, req.GuildID, query, tracks, map[string]string{
		domain.ExtraTextChannel:  req.TextChannelID,
		domain.ExtraVoiceChannel: req.VoiceChannelID,
		domain.ExtraLocale:       req.Locale,
	})
	if err != nil {
		s.log.Error("create session", zap.String("guild", req.GuildID), zap.Error(err))
		return domain.SearchSession{}, err
	}
	return s.sessions.Get(id)
}

// Authorize devuelve la sesión si userID es el dueño. Nunca muta.
func (s *SearchService) Authorize(sessionID, userID string) (domain.SearchSession, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return domain.SearchSession{}, err
	}
	if sess.OwnerUserID != userID {
		return domain.SearchSession{}, domain.NewError(domain.KindInvalidUser, "session belongs to another user",
			map[string]any{"session": sessionID, "owner": sess.OwnerUserID, "user": userID})
	}
	return sess, nil
}

// Navigate mueve la página delta posiciones (saturando).
func (s *SearchService) Navigate(sessionID, userID string, delta int) (domain.SearchSession, error) {
	sess, err := s.Authorize(sessionID, userID)
	if err != nil {
		return domain.SearchSession{}, err
	}
	if !s.sessions.UpdatePage(sessionID, sess.CurrentPage+delta) {
		return domain.SearchSession{}, domain.NewError(domain.KindSessionExpired, "session closed while navigating", nil)
	}
	return s.sessions.Get(sessionID)
}

// Toggle agrega o saca el track index de la cola del guild.
func (s *SearchService) Toggle(ctx context.Context, sessionID, userID string, index int) (domain.SearchSession, error) {
	sess, err := s.Authorize(sessionID, userID)
	if err != nil {
		return domain.SearchSession{}, err
	}
	if err := domain.ValidateTrackIndex(index, len(sess.Tracks)); err != nil {
		return domain.SearchSession{}, err
	}

	selected, ok := s.sessions.ToggleSelection(sessionID, index)
	if !ok {
		return domain.SearchSession{}, domain.NewError(domain.KindSessionExpired, "session closed while toggling", nil)
	}

	track := sess.Tracks[index]
	if selected {
		_, err := s.player.Enqueue(ctx, EnqueueRequest{
			GuildID:        sess.GuildID,
			VoiceChannelID: sess.Extra[domain.ExtraVoiceChannel],
			TextChannelID:  sess.Extra[domain.ExtraTextChannel],
			RequesterID:    userID,
			Track:          track,
		})
		if err != nil {
			// deshacemos la selección: el track no quedó en la cola
			s.sessions.ToggleSelection(sessionID, index)
			return domain.SearchSession{}, err
		}
		s.sessions.MarkQueued(sessionID, index)
	} else if sess.IsQueued(index) {
		s.player.RemoveQueued(sess.GuildID, track.Encoded, userID)
		s.sessions.UnmarkQueued(sessionID, index)
	}

	// re-lectura: la sesión pudo cerrarse mientras hablábamos con Lavalink
	return s.sessions.Get(sessionID)
}

// Select aplica la selección de un dropdown: values son índices absolutos de la página actual.
// Lo que está en values y no estaba seleccionado se agrega; lo seleccionado de la página que no
// está en values se saca.
func (s *SearchService) Select(ctx context.Context, sessionID, userID string, values []string) (domain.SearchSession, error) {
	sess, err := s.Authorize(sessionID, userID)
	if err != nil {
		return domain.SearchSession{}, err
	}

	page := sess.Page()
	want := make(map[int]struct{}, len(values))
	for _, v := range values {
		idx, err := domain.ParseTrackIndex(v, len(sess.Tracks))
		if err != nil {
			return domain.SearchSession{}, err
		}
		if idx < page.StartIndex || idx >= page.EndIndex {
			return domain.SearchSession{}, domain.NewError(domain.KindInvalidTrackIndex, "index is not on the current page",
				map[string]any{"index": idx, "page": page.CurrentPage})
		}
		want[idx] = struct{}{}
	}

	var diff []int
	for i := page.StartIndex; i < page.EndIndex; i++ {
		_, w := want[i]
		if w != sess.IsSelected(i) {
			diff = append(diff, i)
		}
	}
	sort.Ints(diff)

	out := sess
	for _, i := range diff {
		out, err = s.Toggle(ctx, sessionID, userID, i)
		if err != nil {
			return domain.SearchSession{}, err
		}
	}
	return out, nil
}

// Commit cierra la sesión dejando en la cola lo seleccionado. Devuelve el último estado.
func (s *SearchService) Commit(sessionID, userID string) (domain.SearchSession, error) {
	sess, err := s.Authorize(sessionID, userID)
	if err != nil {
		return domain.SearchSession{}, err
	}
	if !s.sessions.Finish(sessionID, domain.SessionCommitted) {
		return domain.SearchSession{}, domain.NewError(domain.KindSessionExpired, "session already closed", nil)
	}
	sess.State = domain.SessionCommitted
	s.metrics.Inc("search_commits_total")
	return sess, nil
}

// Cancel cierra la sesión y saca de la cola los tracks que agregó y que todavía no sonaron.
func (s *SearchService) Cancel(sessionID, userID string) (domain.SearchSession, error) {
	sess, err := s.Authorize(sessionID, userID)
	if err != nil {
		return domain.SearchSession{}, err
	}
	if !s.sessions.Finish(sessionID, domain.SessionCancelled) {
		return domain.SearchSession{}, domain.NewError(domain.KindSessionExpired, "session already closed", nil)
	}
	for _, i := range sess.QueuedIndices() {
		s.player.RemoveQueued(sess.GuildID, sess.Tracks[i].Encoded, userID)
	}
	sess.State = domain.SessionCancelled
	return sess, nil
}

// ExpireGuild cierra las sesiones de un guild cuyo player se destruyó.
func (s *SearchService) ExpireGuild(guildID string) int {
	return s.sessions.ExpireGuild(guildID)
}
