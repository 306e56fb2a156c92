package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
	"github.com/jose-valero/lavamusic-bot/internal/infra/storage"
)

const MaxVolume = 150

type SettingsService struct {
	repo SettingsRepo
	// supported dice si un locale tiene traducciones cargadas
	supported func(locale string) bool
	log       *zap.Logger

	mu    sync.RWMutex
	cache map[string]storage.GuildSettings
}

func NewSettingsService(r SettingsRepo, supported func(string) bool, log *zap.Logger) *SettingsService {
	if supported == nil {
		supported = func(string) bool { return true }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SettingsService{
		repo:      r,
		supported: supported,
		log:       log.Named("settings"),
		cache:     map[string]storage.GuildSettings{},
	}
}

// SettingsPatch: sólo se aplica lo que no es nil (igual que /settings set).
type SettingsPatch struct {
	Locale        *string
	DJRoleIDs     *[]string
	DefaultVolume *int
	VoiceRequired *bool
}

func (s *SettingsService) GetSettings(ctx context.Context, guildID string) (storage.GuildSettings, error) {
	s.mu.RLock()
	gs, ok := s.cache[guildID]
	s.mu.RUnlock()
	if ok {
		return gs, nil
	}

	gs, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return storage.GuildSettings{}, err
	}
	s.mu.Lock()
	s.cache[guildID] = gs
	s.mu.Unlock()
	return gs, nil
}

func (s *SettingsService) Update(ctx context.Context, guildID string, patch SettingsPatch) (storage.GuildSettings, error) {
	cur, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return storage.GuildSettings{}, err
	}

	if patch.Locale != nil {
		loc := strings.ToLower(strings.TrimSpace(*patch.Locale))
		if !s.supported(loc) {
			return storage.GuildSettings{}, domain.NewError(domain.KindInvalidInput, "unsupported locale",
				map[string]any{"field": "locale", "value": loc})
		}
		cur.Locale = loc
	}
	if patch.DJRoleIDs != nil {
		roles := make([]string, 0, len(*patch.DJRoleIDs))
		for _, id := range *patch.DJRoleIDs {
			if !domain.IsSnowflake(id) {
				return storage.GuildSettings{}, domain.NewError(domain.KindInvalidInput, "bad role id",
					map[string]any{"field": "dj_roles", "value": id})
			}
			roles = append(roles, id)
		}
		cur.DJRoleIDs = roles
	}
	if patch.DefaultVolume != nil {
		v := *patch.DefaultVolume
		if v < 0 || v > MaxVolume {
			return storage.GuildSettings{}, domain.NewError(domain.KindInvalidInput, "volume out of range",
				map[string]any{"field": "volume", "min": 0, "max": MaxVolume})
		}
		cur.DefaultVolume = v
	}
	if patch.VoiceRequired != nil {
		cur.VoiceRequired = *patch.VoiceRequired
	}

	if err := s.repo.Upsert(ctx, cur); err != nil {
		return storage.GuildSettings{}, err
	}
	s.mu.Lock()
	s.cache[guildID] = cur
	s.mu.Unlock()
	s.log.Info("settings updated", zap.String("guild", guildID))
	return cur, nil
}

// Forget saca un guild del cache (el bot salió del guild).
func (s *SettingsService) Forget(guildID string) {
	s.mu.Lock()
	delete(s.cache, guildID)
	s.mu.Unlock()
}

// DefaultVolume nunca falla: si la DB no responde usamos el default.
func (s *SettingsService) DefaultVolume(ctx context.Context, guildID string) int {
	gs, err := s.GetSettings(ctx, guildID)
	if err != nil {
		s.log.Warn("settings unavailable, using default volume", zap.String("guild", guildID), zap.Error(err))
		return storage.DefaultVolume
	}
	return gs.DefaultVolume
}

// Locale del guild, "" si no se pudo leer (el traductor cae al default).
func (s *SettingsService) Locale(ctx context.Context, guildID string) string {
	gs, err := s.GetSettings(ctx, guildID)
	if err != nil {
		return ""
	}
	return gs.Locale
}

// VoiceRequired: por defecto true si la DB no responde.
func (s *SettingsService) VoiceRequired(ctx context.Context, guildID string) bool {
	gs, err := s.GetSettings(ctx, guildID)
	if err != nil {
		return true
	}
	return gs.VoiceRequired
}

// IsDJ: sin roles DJ configurados cualquiera puede usar las acciones destructivas.
func (s *SettingsService) IsDJ(ctx context.Context, guildID string, memberRoles []string) bool {
	gs, err := s.GetSettings(ctx, guildID)
	if err != nil || len(gs.DJRoleIDs) == 0 {
		return true
	}
	has := make(map[string]struct{}, len(memberRoles))
	for _, rid := range memberRoles {
		has[rid] = struct{}{}
	}
	for _, want := range gs.DJRoleIDs {
		if _, ok := has[want]; ok {
			return true
		}
	}
	return false
}
