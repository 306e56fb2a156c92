package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
	"github.com/jose-valero/lavamusic-bot/internal/infra/storage"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	engineCallTimeout     = 5 * time.Second

	// AnyVoiceChannel saltea el chequeo de co-presencia (guilds con voice_required=false).
	AnyVoiceChannel = "*"
)

// VolumeSource lo implementa SettingsService.
type VolumeSource interface {
	DefaultVolume(ctx context.Context, guildID string) int
}

type guildPlayer struct {
	queue          *domain.Queue
	voiceChannelID string
	textChannelID  string
	volume         int
	paused         bool
	// connecting != nil mientras el primer Enqueue conecta al nodo; se cierra al terminar
	connecting chan struct{}
	createdAt  time.Time
}

// PlayerSnapshot es una copia del estado para renderizar sin lock.
type PlayerSnapshot struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
	Current        *domain.QueueItem
	Upcoming       []domain.QueueItem
	HistoryLen     int
	Loop           domain.LoopMode
	Paused         bool
	Volume         int
}

// EnqueueRequest: VoiceChannelID es el canal del usuario que pide el track.
type EnqueueRequest struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
	RequesterID    string
	Track          domain.Track
}

type EnqueueResult struct {
	// Position en Upcoming; -1 si empezó a sonar directo.
	Position int
	Started  bool
}

// PlayerService es dueño de la cola de cada guild. Las transiciones de la cola se hacen con mu
// tomado; las llamadas a Lavalink siempre fuera del lock.
type PlayerService struct {
	mu      sync.Mutex
	players map[string]*guildPlayer

	engine   Engine
	volumes  VolumeSource
	listener PlayerListener
	log      *zap.Logger
	metrics  Metrics

	connectTimeout time.Duration
	historySize    int
	shuffle        func(n int, swap func(i, j int))
}

func NewPlayerService(engine Engine, volumes VolumeSource, connectTimeout time.Duration, historySize int, log *zap.Logger, m Metrics) *PlayerService {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if historySize <= 0 {
		historySize = domain.DefaultHistorySize
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &PlayerService{
		players:        map[string]*guildPlayer{},
		engine:         engine,
		volumes:        volumes,
		listener:       nopListener{},
		log:            log.Named("player"),
		metrics:        m,
		connectTimeout: connectTimeout,
		historySize:    historySize,
		shuffle:        rand.Shuffle,
	}
}

// SetListener se llama una vez al arrancar, antes de recibir eventos.
func (s *PlayerService) SetListener(l PlayerListener) {
	if l == nil {
		l = nopListener{}
	}
	s.listener = l
}

func (s *PlayerService) Available() bool { return s.engine.Available() }

// Has dice si el guild tiene un player vivo (conectado o conectando).
func (s *PlayerService) Has(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[guildID]
	return ok
}

// Guilds devuelve los guilds con player.
func (s *PlayerService) Guilds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.players))
	for g := range s.players {
		out = append(out, g)
	}
	return out
}

// CheckVoice valida que haya player y que el usuario esté en el mismo canal de voz.
func (s *PlayerService) CheckVoice(guildID, userVoiceChannelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.checkLocked(guildID, userVoiceChannelID)
	return err
}

func (s *PlayerService) checkLocked(guildID, userVoiceChannelID string) (*guildPlayer, error) {
	gp, ok := s.players[guildID]
	if !ok || gp.connecting != nil {
		return nil, domain.NewError(domain.KindPlayerNotFound, "no player in guild", map[string]any{"guild": guildID})
	}
	if userVoiceChannelID == AnyVoiceChannel {
		return gp, nil
	}
	if userVoiceChannelID == "" {
		return nil, domain.NewError(domain.KindNotInVoice, "user is not in a voice channel", nil)
	}
	if gp.voiceChannelID != userVoiceChannelID {
		return nil, domain.NewError(domain.KindVoiceChannelMismatch, "user is in another voice channel",
			map[string]any{"player": gp.voiceChannelID, "user": userVoiceChannelID})
	}
	return gp, nil
}

// Enqueue agrega un track; si el guild no tiene player lo crea y conecta (conexión diferida).
func (s *PlayerService) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	if !s.engine.Available() {
		return EnqueueResult{}, domain.NewError(domain.KindServiceUnavailable, "no lavalink node available", nil)
	}
	if req.VoiceChannelID == "" {
		return EnqueueResult{}, domain.NewError(domain.KindNotInVoice, "user is not in a voice channel", nil)
	}

	gp, created, err := s.acquire(ctx, req)
	if err != nil {
		return EnqueueResult{}, err
	}
	if created {
		if err := s.connect(ctx, req.GuildID, req.VoiceChannelID, gp); err != nil {
			return EnqueueResult{}, err
		}
	}

	item := domain.QueueItem{Track: req.Track, RequesterID: req.RequesterID}

	s.mu.Lock()
	if s.players[req.GuildID] != gp {
		s.mu.Unlock()
		return EnqueueResult{}, domain.NewError(domain.KindPlayerNotFound, "player was destroyed", nil)
	}
	pos := gp.queue.Add(item, -1)
	var start *domain.QueueItem
	if gp.queue.Current == nil {
		// normalmente es item; puede ser otro si un play anterior falló sin nodo
		start = copyItem(gp.queue.Skip())
	}
	volume := gp.volume
	s.mu.Unlock()

	s.metrics.Inc("tracks_enqueued_total")
	res := EnqueueResult{Position: pos}
	if start != nil {
		own := *start == item
		if own {
			res = EnqueueResult{Position: -1, Started: true}
		} else {
			res.Position--
		}
		if err := s.playOrRecover(ctx, req.GuildID, *start, volume); err != nil && own {
			return EnqueueResult{}, err
		}
	}
	s.listener.PlayerUpdated(req.GuildID)
	return res, nil
}

// acquire devuelve el player del guild o crea uno nuevo (created=true). Si otro Enqueue está
// conectando, espera a que termine.
func (s *PlayerService) acquire(ctx context.Context, req EnqueueRequest) (*guildPlayer, bool, error) {
	s.mu.Lock()
	gp, ok := s.players[req.GuildID]
	if !ok {
		gp = &guildPlayer{
			queue:          domain.NewQueue(),
			voiceChannelID: req.VoiceChannelID,
			textChannelID:  req.TextChannelID,
			connecting:     make(chan struct{}),
			createdAt:      time.Now(),
		}
		gp.queue.HistorySize = s.historySize
		s.players[req.GuildID] = gp
		s.mu.Unlock()
		return gp, true, nil
	}
	if gp.voiceChannelID != req.VoiceChannelID {
		s.mu.Unlock()
		return nil, false, domain.NewError(domain.KindVoiceChannelMismatch, "player is in another voice channel",
			map[string]any{"player": gp.voiceChannelID, "user": req.VoiceChannelID})
	}
	wait := gp.connecting
	s.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, false, domain.WrapError(domain.KindPlayerCreationFailed, ctx.Err(), "waiting for player connection")
		}
		s.mu.Lock()
		alive := s.players[req.GuildID] == gp
		s.mu.Unlock()
		if !alive {
			return nil, false, domain.NewError(domain.KindPlayerCreationFailed, "player connection failed", nil)
		}
	}
	return gp, false, nil
}

// connect conecta un player recién creado. Si falla, limpia todo lo creado para este intento.
func (s *PlayerService) connect(ctx context.Context, guildID, channelID string, gp *guildPlayer) error {
	start := time.Now()
	volume := storage.DefaultVolume
	if s.volumes != nil {
		volume = s.volumes.DefaultVolume(ctx, guildID)
	}

	cctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	err := s.engine.Connect(cctx, guildID, channelID)
	cancel()
	s.metrics.Observe("player_connect_seconds", time.Since(start).Seconds())

	s.mu.Lock()
	if err != nil {
		if s.players[guildID] == gp {
			delete(s.players, guildID)
		}
	} else {
		gp.volume = volume
	}
	close(gp.connecting)
	gp.connecting = nil
	s.mu.Unlock()

	if err != nil {
		s.metrics.Inc("player_connect_failures_total")
		s.log.Warn("player connect failed", zap.String("guild", guildID), zap.String("channel", channelID), zap.Error(err))
		dctx, dcancel := context.WithTimeout(context.Background(), engineCallTimeout)
		defer dcancel()
		if derr := s.engine.Destroy(dctx, guildID); derr != nil {
			s.log.Debug("cleanup after failed connect", zap.String("guild", guildID), zap.Error(derr))
		}
		return domain.WrapError(domain.KindPlayerCreationFailed, err, "connect to voice")
	}
	s.log.Info("player connected", zap.String("guild", guildID), zap.String("channel", channelID))
	return nil
}

func (s *PlayerService) play(ctx context.Context, guildID string, item domain.QueueItem, volume int) error {
	pctx, cancel := context.WithTimeout(ctx, engineCallTimeout)
	defer cancel()
	if err := s.engine.Play(pctx, guildID, item.Track, volume); err != nil {
		s.log.Error("play failed", zap.String("guild", guildID), zap.String("track", item.Track.Title), zap.Error(err))
		return domain.WrapError(domain.KindServiceUnavailable, err, "play track")
	}
	s.mu.Lock()
	if gp, ok := s.players[guildID]; ok {
		gp.paused = false
	}
	s.mu.Unlock()
	return nil
}

// playOrRecover reproduce item; si el nodo lo rechaza lo saca de Current (nunca empezó, no va a
// llegar un trackEnd) y sigue con lo que quede en la cola.
func (s *PlayerService) playOrRecover(ctx context.Context, guildID string, item domain.QueueItem, volume int) error {
	err := s.play(ctx, guildID, item, volume)
	if err == nil {
		return nil
	}
	if !s.abandon(guildID, item) {
		return err
	}
	if s.engine.Available() {
		s.advance(ctx, guildID, true)
	} else {
		// sin nodo la cola queda intacta; el próximo Enqueue arranca desde la cabeza
		s.listener.PlayerUpdated(guildID)
	}
	return err
}

// abandon limpia Current si sigue siendo item. false si otro handler ya cambió la cola.
func (s *PlayerService) abandon(guildID string, item domain.QueueItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	gp, ok := s.players[guildID]
	if !ok || gp.queue.Current == nil || *gp.queue.Current != item {
		return false
	}
	gp.queue.Current = nil
	s.metrics.Inc("tracks_failed_total")
	return true
}

// RemoveQueued saca de la cola un track que todavía no empezó. false si ya no estaba.
func (s *PlayerService) RemoveQueued(guildID, encoded, requesterID string) bool {
	s.mu.Lock()
	gp, ok := s.players[guildID]
	removed := ok && gp.queue.RemoveTrack(encoded, requesterID)
	s.mu.Unlock()
	if removed {
		s.listener.PlayerUpdated(guildID)
	}
	return removed
}

// Skip pasa al siguiente track ignorando loop track. nil si la cola terminó.
func (s *PlayerService) Skip(ctx context.Context, guildID, userVoiceChannelID string) (*domain.QueueItem, error) {
	s.mu.Lock()
	gp, err := s.checkLocked(guildID, userVoiceChannelID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if gp.queue.Current == nil && gp.queue.Len() == 0 {
		s.mu.Unlock()
		return nil, domain.NewError(domain.KindEmptyQueue, "nothing to skip", nil)
	}
	next := copyItem(gp.queue.Skip())
	volume := gp.volume
	s.mu.Unlock()

	s.metrics.Inc("player_actions_total", "action", domain.ActionSkip)
	if err := s.startOrStop(ctx, guildID, next, volume); err != nil {
		return nil, err
	}
	return next, nil
}

// Back vuelve al último track del historial; el actual queda primero en la cola.
func (s *PlayerService) Back(ctx context.Context, guildID, userVoiceChannelID string) (*domain.QueueItem, error) {
	s.mu.Lock()
	gp, err := s.checkLocked(guildID, userVoiceChannelID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	prev, err := gp.queue.Back()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	item := *prev
	volume := gp.volume
	s.mu.Unlock()

	s.metrics.Inc("player_actions_total", "action", domain.ActionBack)
	if err := s.playOrRecover(ctx, guildID, item, volume); err != nil {
		return nil, err
	}
	s.listener.PlayerUpdated(guildID)
	return &item, nil
}

// Jump descarta todo lo anterior a index y reproduce ese track.
func (s *PlayerService) Jump(ctx context.Context, guildID, userVoiceChannelID string, index int) (*domain.QueueItem, error) {
	s.mu.Lock()
	gp, err := s.checkLocked(guildID, userVoiceChannelID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	next, err := gp.queue.Jump(index)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	item := *next
	volume := gp.volume
	s.mu.Unlock()

	s.metrics.Inc("player_actions_total", "action", domain.ActionJump)
	if err := s.playOrRecover(ctx, guildID, item, volume); err != nil {
		return nil, err
	}
	s.listener.PlayerUpdated(guildID)
	return &item, nil
}

// Stop vacía la cola, destruye el player y saca al bot de voz.
func (s *PlayerService) Stop(ctx context.Context, guildID, userVoiceChannelID string) error {
	s.mu.Lock()
	if _, err := s.checkLocked(guildID, userVoiceChannelID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.metrics.Inc("player_actions_total", "action", domain.ActionStop)
	return s.Destroy(ctx, guildID)
}

// Destroy tira el player del guild sin chequear voz (stop, bot expulsado, guild borrado).
func (s *PlayerService) Destroy(ctx context.Context, guildID string) error {
	s.mu.Lock()
	gp, ok := s.players[guildID]
	if ok {
		gp.queue.Reset()
		delete(s.players, guildID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	dctx, cancel := context.WithTimeout(ctx, engineCallTimeout)
	defer cancel()
	err := s.engine.Destroy(dctx, guildID)
	if err != nil {
		s.log.Warn("destroy player", zap.String("guild", guildID), zap.Error(err))
	}
	s.log.Info("player destroyed", zap.String("guild", guildID))
	s.listener.PlayerDestroyed(guildID)
	return nil
}

// TogglePause alterna pausa y devuelve el estado nuevo.
func (s *PlayerService) TogglePause(ctx context.Context, guildID, userVoiceChannelID string) (bool, error) {
	s.mu.Lock()
	gp, err := s.checkLocked(guildID, userVoiceChannelID)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	want := !gp.paused
	s.mu.Unlock()
	return s.setPaused(ctx, guildID, userVoiceChannelID, want)
}

func (s *PlayerService) Pause(ctx context.Context, guildID, userVoiceChannelID string) error {
	_, err := s.setPaused(ctx, guildID, userVoiceChannelID, true)
	return err
}

func (s *PlayerService) Resume(ctx context.Context, guildID, userVoiceChannelID string) error {
	_, err := s.setPaused(ctx, guildID, userVoiceChannelID, false)
	return err
}

func (s *PlayerService) setPaused(ctx context.Context, guildID, userVoiceChannelID string, paused bool) (bool, error) {
	s.mu.Lock()
	gp, err := s.checkLocked(guildID, userVoiceChannelID)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if gp.queue.Current == nil {
		s.mu.Unlock()
		return false, domain.NewError(domain.KindEmptyQueue, "nothing is playing", nil)
	}
	s.mu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, engineCallTimeout)
	defer cancel()
	if err := s.engine.Pause(pctx, guildID, paused); err != nil {
		return false, domain.WrapError(domain.KindServiceUnavailable, err, "pause")
	}

	s.mu.Lock()
	if gp, ok := s.players[guildID]; ok {
		gp.paused = paused
	}
	s.mu.Unlock()
	s.metrics.Inc("player_actions_total", "action", domain.ActionPause)
	s.listener.PlayerUpdated(guildID)
	return paused, nil
}

// Shuffle mezcla la cola pendiente.
func (s *PlayerService) Shuffle(guildID, userVoiceChannelID string) error {
	s.mu.Lock()
	gp, err := s.checkLocked(guildID, userVoiceChannelID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if gp.queue.Len() == 0 {
		s.mu.Unlock()
		return domain.NewError(domain.KindEmptyQueue, "nothing to shuffle", nil)
	}
	gp.queue.Shuffle(s.shuffle)
	s.mu.Unlock()

	s.metrics.Inc("player_actions_total", "action", domain.ActionShuffle)
	s.listener.PlayerUpdated(guildID)
	return nil
}

// Clear vacía la cola pendiente (el track actual sigue) y devuelve cuántos sacó.
func (s *PlayerService) Clear(guildID, userVoiceChannelID string) (int, error) {
	s.mu.Lock()
	gp, err := s.checkLocked(guildID, userVoiceChannelID)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	n := gp.queue.Clear()
	s.mu.Unlock()

	s.metrics.Inc("player_actions_total", "action", domain.ActionClear)
	s.listener.PlayerUpdated(guildID)
	return n, nil
}

// CycleLoop: off → track → queue → off.
func (s *PlayerService) CycleLoop(guildID, userVoiceChannelID string) (domain.LoopMode, error) {
	s.mu.Lock()
	gp, err := s.checkLocked(guildID, userVoiceChannelID)
	if err != nil {
		s.mu.Unlock()
		return domain.LoopOff, err
	}
	gp.queue.Loop = gp.queue.Loop.Next()
	mode := gp.queue.Loop
	s.mu.Unlock()

	s.metrics.Inc("player_actions_total", "action", domain.ActionLoop)
	s.listener.PlayerUpdated(guildID)
	return mode, nil
}

// Snapshot copia el estado del guild; ok=false si no hay player.
func (s *PlayerService) Snapshot(guildID string) (PlayerSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gp, ok := s.players[guildID]
	if !ok {
		return PlayerSnapshot{}, false
	}
	return PlayerSnapshot{
		GuildID:        guildID,
		VoiceChannelID: gp.voiceChannelID,
		TextChannelID:  gp.textChannelID,
		Current:        copyItem(gp.queue.Current),
		Upcoming:       gp.queue.Tracks(),
		HistoryLen:     len(gp.queue.Previous),
		Loop:           gp.queue.Loop,
		Paused:         gp.paused,
		Volume:         gp.volume,
	}, true
}

// ---------- eventos del nodo ----------

func (s *PlayerService) OnTrackStart(guildID, encoded string) {
	s.metrics.Inc("tracks_started_total")
	s.log.Debug("track start", zap.String("guild", guildID))
	s.listener.PlayerUpdated(guildID)
}

// OnTrackEnd: sólo avanzamos si el nodo dice que el fin permite arrancar el siguiente
// (finished / loadFailed). replaced y stopped los provocamos nosotros.
func (s *PlayerService) OnTrackEnd(ctx context.Context, guildID string, mayStartNext bool) {
	if !mayStartNext {
		return
	}
	s.advance(ctx, guildID, false)
}

func (s *PlayerService) OnTrackException(guildID, message string) {
	s.metrics.Inc("track_exceptions_total")
	s.log.Warn("track exception", zap.String("guild", guildID), zap.String("message", message))
}

// OnTrackStuck saltea el track trabado.
func (s *PlayerService) OnTrackStuck(ctx context.Context, guildID string) {
	s.log.Warn("track stuck, skipping", zap.String("guild", guildID))
	s.advance(ctx, guildID, true)
}

// OnSocketClosed: si Discord cerró la conexión de voz el player ya no sirve.
func (s *PlayerService) OnSocketClosed(ctx context.Context, guildID string, code int, byRemote bool) {
	s.log.Warn("voice socket closed", zap.String("guild", guildID), zap.Int("code", code), zap.Bool("by_remote", byRemote))
	if byRemote {
		_ = s.Destroy(ctx, guildID)
	}
}

// OnVoiceMoved sigue al bot si lo movieron de canal; channelID vacío = lo desconectaron.
func (s *PlayerService) OnVoiceMoved(ctx context.Context, guildID, channelID string) {
	if channelID == "" {
		_ = s.Destroy(ctx, guildID)
		return
	}
	s.mu.Lock()
	gp, ok := s.players[guildID]
	changed := ok && gp.connecting == nil && gp.voiceChannelID != channelID
	if changed {
		gp.voiceChannelID = channelID
	}
	s.mu.Unlock()
	if changed {
		s.listener.PlayerUpdated(guildID)
	}
}

// advance pasa al siguiente track. Los que el nodo rechaza se descartan y se prueba el próximo;
// cada vuelta saca un item, así que termina aunque haya loop queue.
func (s *PlayerService) advance(ctx context.Context, guildID string, skip bool) {
	for {
		s.mu.Lock()
		gp, ok := s.players[guildID]
		if !ok {
			s.mu.Unlock()
			return
		}
		var next *domain.QueueItem
		if skip {
			next = copyItem(gp.queue.Skip())
		} else {
			next = copyItem(gp.queue.Advance())
		}
		volume := gp.volume
		s.mu.Unlock()

		if next == nil {
			s.log.Debug("queue finished", zap.String("guild", guildID))
			s.listener.PlaybackEnded(guildID)
			return
		}
		if err := s.play(ctx, guildID, *next, volume); err == nil {
			s.listener.PlayerUpdated(guildID)
			return
		}
		if !s.abandon(guildID, *next) {
			return
		}
		if !s.engine.Available() {
			s.listener.PlayerUpdated(guildID)
			return
		}
		skip = true
	}
}

// startOrStop reproduce next o, si la cola terminó, detiene el track actual.
func (s *PlayerService) startOrStop(ctx context.Context, guildID string, next *domain.QueueItem, volume int) error {
	if next != nil {
		if err := s.playOrRecover(ctx, guildID, *next, volume); err != nil {
			return err
		}
		s.listener.PlayerUpdated(guildID)
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, engineCallTimeout)
	defer cancel()
	if err := s.engine.Stop(sctx, guildID); err != nil {
		return domain.WrapError(domain.KindServiceUnavailable, err, "stop track")
	}
	s.listener.PlaybackEnded(guildID)
	return nil
}

func copyItem(it *domain.QueueItem) *domain.QueueItem {
	if it == nil {
		return nil
	}
	c := *it
	return &c
}
