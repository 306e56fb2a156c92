package domain

import "time"

// PlayerMessageRecord apunta al mensaje "now playing" vivo de un guild. Uno por guild.
type PlayerMessageRecord struct {
	GuildID   string
	ChannelID string
	MessageID string
	CreatedAt time.Time
	UpdatedAt time.Time
}
