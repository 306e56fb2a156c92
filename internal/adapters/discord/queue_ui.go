package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lavamusic-bot/internal/app/service"
	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

// tracks por página en /queue (el dropdown admite hasta 25)
const queuePageSize = 10

// queueView muestra la cola paginada con un dropdown para saltar a un track de la página.
// Los índices son absolutos: la posición N de la lista es el valor N-1 del dropdown.
func (r *Router) queueView(guildID, locale string, snap service.PlayerSnapshot, page int) View {
	pv := domain.Paginate(snap.Upcoming, page, queuePageSize)

	var b strings.Builder
	if snap.Current != nil {
		fmt.Fprintf(&b, "%s %s `%s`\n\n", r.tr.T(locale, "queue.now"), trackLink(snap.Current.Track, 70),
			domain.FormatDuration(snap.Current.Track.Duration, snap.Current.Track.IsStream))
	}
	if pv.TotalItems == 0 {
		b.WriteString(r.tr.T(locale, "queue.empty"))
	}
	for i, it := range pv.Items {
		fmt.Fprintf(&b, "**%d.** %s `%s` · <@%s>\n", pv.StartIndex+i+1, trackLink(it.Track, 60),
			domain.FormatDuration(it.Track.Duration, it.Track.IsStream), it.RequesterID)
	}

	embed := &discordgo.MessageEmbed{
		Title:       r.tr.T(locale, "queue.title"),
		Description: b.String(),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: r.tr.T(locale, "queue.footer", "page", pv.CurrentPage, "total", pv.TotalPages,
				"count", pv.TotalItems, "loop", r.tr.T(locale, "loop."+snap.Loop.String())),
		},
	}

	var comps []discordgo.MessageComponent
	if len(pv.Items) > 0 {
		opts := make([]discordgo.SelectMenuOption, 0, len(pv.Items))
		for i, it := range pv.Items {
			abs := pv.StartIndex + i
			opts = append(opts, discordgo.SelectMenuOption{
				Label: domain.Truncate(fmt.Sprintf("%d. %s", abs+1, it.Track.Title), maxOptionLabel),
				Value: strconv.Itoa(abs),
			})
		}
		comps = append(comps, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    domain.NewCustomID(domain.ComponentQueue, domain.ActionJump, guildID),
				Placeholder: r.tr.T(locale, "queue.jump_placeholder"),
				MaxValues:   1,
				Options:     opts,
			},
		}})
	}
	if pv.TotalPages > 1 {
		comps = append(comps, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: domain.NewCustomID(domain.ComponentQueue, domain.ActionPrev, guildID, strconv.Itoa(max(pv.CurrentPage-1, 1))),
				Emoji:    r.buttonEmoji(guildID, domain.ActionPrev),
				Style:    discordgo.SecondaryButton,
				Disabled: !pv.HasPrevious,
			},
			discordgo.Button{
				CustomID: domain.NewCustomID(domain.ComponentQueue, domain.ActionNext, guildID, strconv.Itoa(min(pv.CurrentPage+1, pv.TotalPages))),
				Emoji:    r.buttonEmoji(guildID, domain.ActionNext),
				Style:    discordgo.SecondaryButton,
				Disabled: !pv.HasNext,
			},
		}})
	}
	return View{Embeds: []*discordgo.MessageEmbed{embed}, Components: comps}
}
