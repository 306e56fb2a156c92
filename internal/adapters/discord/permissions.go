package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

// isAdmin: owner del guild, bit de Administrator o alguno de ADMIN_ROLE_IDS.
func (r *Router) isAdmin(c *Ctx) bool {
	ic := c.Event
	// Owner
	if g, _ := r.s.State.Guild(c.GuildID); g != nil && c.UserID == g.OwnerID {
		return true
	}

	// Administrator bit (viene resuelto en la interacción)
	if ic.Member != nil && ic.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}

	// Roles explícitos del bot
	if len(r.adminRoleIDs) > 0 {
		has := make(map[string]struct{}, len(c.Roles))
		for _, rid := range c.Roles {
			has[rid] = struct{}{}
		}
		for _, want := range r.adminRoleIDs {
			if _, ok := has[want]; ok {
				return true
			}
		}
	}
	return false
}

func (r *Router) requireAdmin(c *Ctx) error {
	if r.isAdmin(c) {
		return nil
	}
	return domain.NewError(domain.KindForbidden, "admin required", map[string]any{"user": c.UserID})
}

// requireDJ: stop y clear. Admins siempre pasan; sin roles DJ configurados pasa cualquiera.
func (r *Router) requireDJ(ctx context.Context, c *Ctx) error {
	if r.isAdmin(c) || r.settings.IsDJ(ctx, c.GuildID, c.Roles) {
		return nil
	}
	return domain.NewError(domain.KindForbidden, "dj role required", map[string]any{"user": c.UserID})
}
