package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Ctx junta lo que un handler necesita de la interacción.
type Ctx struct {
	Log     *zap.Logger
	Event   *discordgo.InteractionCreate
	GuildID string
	UserID  string
	Roles   []string
	// Locale del guild (guild_settings.locale)
	Locale string
	// acked: ya mandamos defer/respuesta, los errores van por follow-up
	acked bool
}

// Translator lo implementa i18n.Translator.
type Translator interface {
	T(locale, key string, args ...any) string
}

// VoiceForwarder recibe los eventos de voz del bot (lo implementa el cliente Lavalink).
type VoiceForwarder interface {
	OnVoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string)
	OnVoiceServerUpdate(ctx context.Context, guildID, token, endpoint string)
}

func (r *Router) newCtx(ctx context.Context, ic *discordgo.InteractionCreate) *Ctx {
	c := &Ctx{Event: ic, GuildID: ic.GuildID}
	if ic.Member != nil && ic.Member.User != nil {
		c.UserID = ic.Member.User.ID
		c.Roles = ic.Member.Roles
	} else if ic.User != nil {
		c.UserID = ic.User.ID
	}
	c.Log = r.log.With(zap.String("guild", c.GuildID), zap.String("user", c.UserID), zap.String("interaction", ic.ID))
	if c.GuildID != "" {
		c.Locale = r.settings.Locale(ctx, c.GuildID)
	}
	if c.Locale == "" {
		c.Locale = r.defaultLocale
	}
	return c
}

// t traduce en el locale del guild.
func (r *Router) t(c *Ctx, key string, args ...any) string {
	return r.tr.T(c.Locale, key, args...)
}
