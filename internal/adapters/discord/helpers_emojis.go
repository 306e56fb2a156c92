package discord

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

// emojis por defecto de los botones del player
var defaultButtonEmojis = map[string]string{
	domain.ActionBack:    "⏮️",
	domain.ActionPause:   "⏯️",
	domain.ActionSkip:    "⏭️",
	domain.ActionStop:    "⏹️",
	domain.ActionShuffle: "🔀",
	domain.ActionLoop:    "🔁",
	domain.ActionClear:   "🗑️",
	domain.ActionQueue:   "📜",
	domain.ActionPrev:    "◀️",
	domain.ActionNext:    "▶️",
	domain.ActionDone:    "✅",
	domain.ActionCancel:  "✖️",
}

// prefijo de los emojis custom del guild que pisan el default: lava_skip, lava_stop...
const guildEmojiPrefix = "lava_"

// Formato: PLAYER_BUTTON_EMOJIS="skip:<:skip:123>,stop:⏹️"
var emojiMarkupRe = regexp.MustCompile(`^<(a?):([a-zA-Z0-9_~]+):(\d+)>$`)

// parseEmojiOverrides devuelve los overrides válidos y las entradas que no se pudieron leer.
func parseEmojiOverrides(s string) (map[string]*discordgo.ComponentEmoji, []string) {
	out := map[string]*discordgo.ComponentEmoji{}
	var bad []string
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		colon := strings.IndexByte(p, ':')
		if colon <= 0 {
			bad = append(bad, p)
			continue
		}
		action := strings.ToLower(strings.TrimSpace(p[:colon]))
		if _, known := defaultButtonEmojis[action]; !known {
			bad = append(bad, p)
			continue
		}
		e, ok := parseEmoji(strings.TrimSpace(p[colon+1:]))
		if !ok {
			bad = append(bad, p)
			continue
		}
		out[action] = e
	}
	return out, bad
}

// parseEmoji acepta <:name:id>, <a:name:id> o un emoji unicode suelto.
func parseEmoji(v string) (*discordgo.ComponentEmoji, bool) {
	if v == "" {
		return nil, false
	}
	if m := emojiMarkupRe.FindStringSubmatch(v); len(m) == 4 {
		return &discordgo.ComponentEmoji{Name: m[2], ID: m[3], Animated: m[1] == "a"}, true
	}
	if strings.ContainsAny(v, "<>: ") {
		return nil, false
	}
	return &discordgo.ComponentEmoji{Name: v}, true
}

// buttonEmoji: ENV override → emoji del guild "lava_<accion>" → unicode por defecto.
func (r *Router) buttonEmoji(guildID, action string) *discordgo.ComponentEmoji {
	if e, ok := r.emojis[action]; ok {
		return e
	}
	if g, err := r.s.State.Guild(guildID); err == nil && g != nil {
		for _, e := range g.Emojis {
			if e != nil && strings.EqualFold(e.Name, guildEmojiPrefix+action) {
				return &discordgo.ComponentEmoji{Name: e.Name, ID: e.ID, Animated: e.Animated}
			}
		}
	}
	if v, ok := defaultButtonEmojis[action]; ok {
		return &discordgo.ComponentEmoji{Name: v}
	}
	return nil
}
