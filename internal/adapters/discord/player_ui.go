package discord

import (
	"errors"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lavamusic-bot/internal/app/service"
	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

// el player se destruyó entre el schedule y el render
var errPlayerGone = errors.New("player gone")

var (
	playerRowTop    = []string{domain.ActionBack, domain.ActionPause, domain.ActionSkip, domain.ActionStop}
	playerRowBottom = []string{domain.ActionShuffle, domain.ActionLoop, domain.ActionClear, domain.ActionQueue}
)

// playerView es el mensaje "now playing" del guild.
func (r *Router) playerView(guildID, locale string, snap service.PlayerSnapshot) View {
	cur := snap.Current.Track
	state := r.tr.T(locale, "player.playing")
	if snap.Paused {
		state = r.tr.T(locale, "player.paused")
	}

	embed := &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: state},
		Title:       domain.Truncate(cur.Title, maxEmbedTitle),
		URL:         cur.URI,
		Description: domain.Truncate(cur.Author, 200),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: r.tr.T(locale, "player.duration"), Value: domain.FormatDuration(cur.Duration, cur.IsStream), Inline: true},
			{Name: r.tr.T(locale, "player.requested_by"), Value: "<@" + snap.Current.RequesterID + ">", Inline: true},
			{Name: r.tr.T(locale, "player.loop"), Value: r.tr.T(locale, "loop."+snap.Loop.String()), Inline: true},
			{Name: r.tr.T(locale, "player.volume"), Value: strconv.Itoa(snap.Volume) + "%", Inline: true},
			{Name: r.tr.T(locale, "player.upcoming"), Value: strconv.Itoa(len(snap.Upcoming)), Inline: true},
			{Name: r.tr.T(locale, "player.channel"), Value: "<#" + snap.VoiceChannelID + ">", Inline: true},
		},
	}
	if cur.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: cur.ArtworkURL}
	}
	if len(snap.Upcoming) > 0 {
		next := snap.Upcoming[0].Track
		embed.Footer = &discordgo.MessageEmbedFooter{Text: domain.Truncate(r.tr.T(locale, "player.next", "title", next.Title), 200)}
	}

	return View{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: r.playerButtons(guildID, snap, playerRowTop)},
			discordgo.ActionsRow{Components: r.playerButtons(guildID, snap, playerRowBottom)},
		},
	}
}

func (r *Router) playerButtons(guildID string, snap service.PlayerSnapshot, actions []string) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(actions))
	for _, a := range actions {
		btn := discordgo.Button{
			CustomID: domain.NewCustomID(domain.ComponentPlayer, a, guildID),
			Style:    discordgo.SecondaryButton,
			Emoji:    r.buttonEmoji(guildID, a),
		}
		switch a {
		//--> back sin historial no hace nada
		case domain.ActionBack:
			btn.Disabled = snap.HistoryLen == 0
		case domain.ActionPause:
			if snap.Paused {
				btn.Style = discordgo.PrimaryButton
			}
		case domain.ActionLoop:
			if snap.Loop != domain.LoopOff {
				btn.Style = discordgo.PrimaryButton
			}
		case domain.ActionStop:
			btn.Style = discordgo.DangerButton
		case domain.ActionShuffle, domain.ActionClear:
			btn.Disabled = len(snap.Upcoming) == 0
		}
		out = append(out, btn)
	}
	return out
}
