package discord

import (
	"context"

	"github.com/jose-valero/lavamusic-bot/internal/app/service"
	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

// userVoiceChannel devuelve el canal de voz del usuario ("" si no está en voz).
func (r *Router) userVoiceChannel(guildID, userID string) string {
	vs, err := r.s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// controlChannel es el canal contra el que se valida un control del player. Con
// voice_required=false cualquiera del guild puede controlar.
func (r *Router) controlChannel(ctx context.Context, c *Ctx) string {
	if !r.settings.VoiceRequired(ctx, c.GuildID) {
		return service.AnyVoiceChannel
	}
	return r.userVoiceChannel(c.GuildID, c.UserID)
}

// enqueueChannel es el canal al que va el track: el del usuario, o el del player si el guild
// no exige estar en voz.
func (r *Router) enqueueChannel(ctx context.Context, c *Ctx) (string, error) {
	if vc := r.userVoiceChannel(c.GuildID, c.UserID); vc != "" {
		return vc, nil
	}
	if !r.settings.VoiceRequired(ctx, c.GuildID) {
		if snap, ok := r.player.Snapshot(c.GuildID); ok && snap.VoiceChannelID != "" {
			return snap.VoiceChannelID, nil
		}
	}
	return "", domain.NewError(domain.KindNotInVoice, "user is not in a voice channel", nil)
}
