package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

const (
	colorInfo    = 0x5865F2
	colorSuccess = 0x08c404

	// límites de Discord
	maxOptionLabel = 100
	maxOptionDesc  = 100
	maxEmbedTitle  = 256
)

// searchView arma la página actual de una sesión: lista, dropdown de selección y navegación.
func (r *Router) searchView(locale string, sess domain.SearchSession) View {
	page := sess.Page()

	var b strings.Builder
	for i, t := range page.Items {
		abs := page.StartIndex + i
		mark := "▫️"
		if sess.IsSelected(abs) {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s **%d.** %s · %s `%s`\n", mark, abs+1,
			trackLink(t, 70), domain.Truncate(t.Author, 40), domain.FormatDuration(t.Duration, t.IsStream))
	}

	embed := &discordgo.MessageEmbed{
		Title:       domain.Truncate(r.tr.T(locale, "search.title", "query", sess.Query), maxEmbedTitle),
		Description: b.String(),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: r.tr.T(locale, "search.footer",
				"page", page.CurrentPage, "total", page.TotalPages,
				"selected", len(sess.Selected), "count", page.TotalItems),
		},
	}

	opts := make([]discordgo.SelectMenuOption, 0, len(page.Items))
	for i, t := range page.Items {
		abs := page.StartIndex + i
		opts = append(opts, discordgo.SelectMenuOption{
			Label:       domain.Truncate(fmt.Sprintf("%d. %s", abs+1, t.Title), maxOptionLabel),
			Value:       strconv.Itoa(abs),
			Description: domain.Truncate(t.Author+" · "+domain.FormatDuration(t.Duration, t.IsStream), maxOptionDesc),
			Default:     sess.IsSelected(abs),
		})
	}

	var comps []discordgo.MessageComponent
	if len(opts) > 0 {
		zero := 0
		comps = append(comps, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    domain.NewCustomID(domain.ComponentSearch, domain.ActionSelect, sess.ID),
				Placeholder: r.tr.T(locale, "search.placeholder"),
				MinValues:   &zero,
				MaxValues:   len(opts),
				Options:     opts,
			},
		}})
	}
	comps = append(comps, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			CustomID: domain.NewCustomID(domain.ComponentSearch, domain.ActionPrev, sess.ID),
			Label:    r.tr.T(locale, "search.prev"),
			Style:    discordgo.SecondaryButton,
			Disabled: !page.HasPrevious,
		},
		discordgo.Button{
			CustomID: domain.NewCustomID(domain.ComponentSearch, domain.ActionNext, sess.ID),
			Label:    r.tr.T(locale, "search.next"),
			Style:    discordgo.SecondaryButton,
			Disabled: !page.HasNext,
		},
		discordgo.Button{
			CustomID: domain.NewCustomID(domain.ComponentSearch, domain.ActionDone, sess.ID),
			Label:    r.tr.T(locale, "search.done"),
			Style:    discordgo.SuccessButton,
		},
		discordgo.Button{
			CustomID: domain.NewCustomID(domain.ComponentSearch, domain.ActionCancel, sess.ID),
			Label:    r.tr.T(locale, "search.cancel"),
			Style:    discordgo.DangerButton,
		},
	}})

	return View{Embeds: []*discordgo.MessageEmbed{embed}, Components: comps}
}

// searchClosedView reemplaza la UI cuando la sesión terminó (sin componentes).
func (r *Router) searchClosedView(locale string, sess domain.SearchSession) View {
	switch sess.State {
	case domain.SessionCommitted:
		return View{Content: "✅ " + r.tr.T(locale, "search.committed", "count", len(sess.Queued))}
	case domain.SessionCancelled:
		return View{Content: "✖️ " + r.tr.T(locale, "search.cancelled")}
	}
	return View{Content: "⌛ " + r.tr.T(locale, "error.session_expired")}
}

// trackLink: [titulo](uri) si hay uri.
func trackLink(t domain.Track, max int) string {
	title := strings.NewReplacer("[", "(", "]", ")").Replace(domain.Truncate(t.Title, max))
	if t.URI == "" {
		return "**" + title + "**"
	}
	return "[" + title + "](" + t.URI + ")"
}
