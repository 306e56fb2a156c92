package storage

import (
	"context"
	"database/sql"
	"errors"

	pq "github.com/lib/pq"
)

type SettingsRepo struct{ db *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Get devuelve la config del guild; si no existe la crea con los defaults.
func (r *SettingsRepo) Get(ctx context.Context, guildID string) (GuildSettings, error) {
	var gs GuildSettings
	err := r.db.QueryRowContext(ctx, `
SELECT guild_id, locale, dj_role_ids, default_volume, voice_required, created_at, updated_at
  FROM guild_settings
 WHERE guild_id = $1
`, guildID).Scan(
		&gs.GuildID, &gs.Locale, pq.Array(&gs.DJRoleIDs), &gs.DefaultVolume, &gs.VoiceRequired, &gs.CreatedAt, &gs.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// crea default
		if _, err := r.db.ExecContext(ctx, `
INSERT INTO guild_settings (guild_id) VALUES ($1)
ON CONFLICT (guild_id) DO NOTHING
`, guildID); err != nil {
			return GuildSettings{}, err
		}
		return r.Get(ctx, guildID)
	}
	return gs, err
}

func (r *SettingsRepo) Upsert(ctx context.Context, gs GuildSettings) error {
	roles := gs.DJRoleIDs
	if roles == nil {
		roles = []string{}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO guild_settings
  (guild_id, locale, dj_role_ids, default_volume, voice_required, created_at, updated_at)
VALUES
  ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (guild_id) DO UPDATE SET
  locale          = EXCLUDED.locale,
  dj_role_ids     = EXCLUDED.dj_role_ids,
  default_volume  = EXCLUDED.default_volume,
  voice_required  = EXCLUDED.voice_required,
  updated_at      = NOW()
`, gs.GuildID, gs.Locale, pq.Array(roles), gs.DefaultVolume, gs.VoiceRequired)
	return err
}
