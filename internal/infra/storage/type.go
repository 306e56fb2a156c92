package storage

import "time"

// Valores por defecto de guild_settings (deben coincidir con la migración).
const (
	DefaultLocale = "en"
	DefaultVolume = 80
)

type GuildSettings struct {
	GuildID       string
	Locale        string
	DJRoleIDs     []string
	DefaultVolume int
	VoiceRequired bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PlayerMessage es el mensaje "now playing" vivo de un guild.
type PlayerMessage struct {
	GuildID   string
	ChannelID string
	MessageID string
	CreatedAt time.Time
	UpdatedAt time.Time
}
