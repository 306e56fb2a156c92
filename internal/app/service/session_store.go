package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

const (
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
	DefaultPageSize      = 5

	idAttempts = 3
)

type retiredSession struct {
	state domain.SessionState
	at    time.Time
}

// SessionStore guarda las sesiones de búsqueda en memoria. Cada método es una sola sección
// crítica: nunca se llama a Discord ni a Lavalink con el lock tomado.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.SearchSession
	// ids ya usados: nunca se reemiten y permiten distinguir expirada de inexistente
	retired map[string]retiredSession

	pageSize  int
	retention time.Duration

	newID   func() (string, error)
	now     func() time.Time
	log     *zap.Logger
	metrics Metrics
}

func NewSessionStore(pageSize int, retention time.Duration, log *zap.Logger, m Metrics) *SessionStore {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if retention <= 0 {
		retention = DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &SessionStore{
		sessions:  map[string]*domain.SearchSession{},
		retired:   map[string]retiredSession{},
		pageSize:  pageSize,
		retention: retention,
		newID:     randomID,
		now:       time.Now,
		log:       log.Named("sessions"),
		metrics:   m,
	}
}

// randomID: uuid v4 (122 bits de crypto/rand) sin guiones, 32 chars.
func randomID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(u.String(), "-", ""), nil
}

// Create registra una sesión nueva y devuelve su id.
func (st *SessionStore) Create(owner, guildID, query string, tracks []domain.Track, extra map[string]string) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var lastErr error
	for i := 0; i < idAttempts; i++ {
		id, err := st.newID()
		if err != nil {
			lastErr = err
			continue
		}
		if st.knownLocked(id) {
			st.log.Warn("session id collision", zap.Int("attempt", i+1))
			continue
		}

		ex := make(map[string]string, len(extra))
		for k, v := range extra {
			ex[k] = v
		}
		st.sessions[id] = &domain.SearchSession{
			ID:          id,
			OwnerUserID: owner,
			GuildID:     guildID,
			Query:       query,
			Tracks:      append([]domain.Track(nil), tracks...),
			Selected:    map[int]struct{}{},
			Queued:      map[int]struct{}{},
			CurrentPage: 1,
			PageSize:    st.pageSize,
			CreatedAt:   st.now(),
			Extra:       ex,
			State:       domain.SessionBrowsing,
		}
		st.metrics.Inc("sessions_created_total")
		st.metrics.Set("sessions_active", float64(len(st.sessions)))
		return id, nil
	}

	e := domain.NewError(domain.KindSessionCreationFailed, "could not allocate a unique session id",
		map[string]any{"attempts": idAttempts})
	e.Err = lastErr
	return "", e
}

func (st *SessionStore) knownLocked(id string) bool {
	if _, ok := st.sessions[id]; ok {
		return true
	}
	_, ok := st.retired[id]
	return ok
}

// Get devuelve una copia de la sesión.
func (st *SessionStore) Get(id string) (domain.SearchSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s.Clone(), nil
	}
	if r, ok := st.retired[id]; ok {
		return domain.SearchSession{}, domain.NewError(domain.KindSessionExpired, "session is closed",
			map[string]any{"state": r.state.String()})
	}
	return domain.SearchSession{}, domain.NewError(domain.KindSessionNotFound, "unknown session", nil)
}

// UpdatePage satura la página a [1, totalPages]. false si la sesión no existe.
func (st *SessionStore) UpdatePage(id string, page int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return false
	}
	s.CurrentPage = domain.ClampPage(page, s.TotalPages())
	return true
}

// ToggleSelection invierte la selección de index. Fuera de rango no cambia nada (ok=false).
func (st *SessionStore) ToggleSelection(id string, index int) (selected bool, ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, exists := st.sessions[id]
	if !exists || index < 0 || index >= len(s.Tracks) {
		return false, false
	}
	if _, on := s.Selected[index]; on {
		delete(s.Selected, index)
		return false, true
	}
	s.Selected[index] = struct{}{}
	return true, true
}

func (st *SessionStore) MarkQueued(id string, index int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok || index < 0 || index >= len(s.Tracks) {
		return false
	}
	s.Queued[index] = struct{}{}
	return true
}

func (st *SessionStore) UnmarkQueued(id string, index int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return false
	}
	if _, q := s.Queued[index]; !q {
		return false
	}
	delete(s.Queued, index)
	return true
}

// Delete borra la sesión y retira su id.
func (st *SessionStore) Delete(id string) bool {
	return st.Finish(id, domain.SessionCancelled)
}

// Finish cierra la sesión con un estado terminal.
func (st *SessionStore) Finish(id string, state domain.SessionState) bool {
	if !state.Terminal() {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	st.retireLocked(id, state)
	st.metrics.Inc("sessions_closed_total", "state", state.String())
	st.metrics.Set("sessions_active", float64(len(st.sessions)))
	return true
}

// ExpireGuild cierra todas las sesiones de un guild (el player fue destruido).
func (st *SessionStore) ExpireGuild(guildID string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if s.GuildID == guildID {
			st.retireLocked(id, domain.SessionExpired)
			n++
		}
	}
	if n > 0 {
		st.metrics.Inc("sessions_closed_total", "state", domain.SessionExpired.String())
		st.metrics.Set("sessions_active", float64(len(st.sessions)))
	}
	return n
}

func (st *SessionStore) retireLocked(id string, state domain.SessionState) {
	delete(st.sessions, id)
	st.retired[id] = retiredSession{state: state, at: st.now()}
}

// SweepExpired borra las sesiones con edad >= maxAge y devuelve cuántas. También olvida los ids
// retirados hace más de la retención.
func (st *SessionStore) SweepExpired(maxAge time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	n := 0
	for id, s := range st.sessions {
		if now.Sub(s.CreatedAt) >= maxAge {
			st.retireLocked(id, domain.SessionExpired)
			n++
		}
	}
	for id, r := range st.retired {
		if now.Sub(r.at) > st.retention {
			delete(st.retired, id)
		}
	}
	st.metrics.Set("sessions_active", float64(len(st.sessions)))
	return n
}

// Len devuelve las sesiones vivas.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Run barre cada interval hasta que ctx se cancele.
func (st *SessionStore) Run(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.SweepExpired(maxAge); n > 0 {
				st.log.Info("swept expired sessions", zap.Int("count", n))
			}
		}
	}
}
