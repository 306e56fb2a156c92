package storage

import (
	"context"
	"database/sql"
)

type PlayerMessageRepo struct{ db *sql.DB }

func NewPlayerMessageRepo(db *sql.DB) *PlayerMessageRepo { return &PlayerMessageRepo{db: db} }

func (r *PlayerMessageRepo) Upsert(ctx context.Context, m PlayerMessage) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO player_messages (guild_id, channel_id, message_id)
VALUES ($1,$2,$3)
ON CONFLICT (guild_id) DO UPDATE SET
  channel_id = EXCLUDED.channel_id,
  message_id = EXCLUDED.message_id,
  updated_at = now()
`, m.GuildID, m.ChannelID, m.MessageID)
	return err
}

func (r *PlayerMessageRepo) Delete(ctx context.Context, guildID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM player_messages WHERE guild_id = $1`, guildID)
	return err
}

// List devuelve todos los mensajes persistidos (para limpiar huérfanos al arrancar).
func (r *PlayerMessageRepo) List(ctx context.Context) ([]PlayerMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT guild_id, channel_id, message_id, created_at, updated_at
  FROM player_messages
 ORDER BY updated_at
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerMessage
	for rows.Next() {
		var m PlayerMessage
		if err := rows.Scan(&m.GuildID, &m.ChannelID, &m.MessageID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
