package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

// codigo REST de Discord cuando la interacción todavía no tiene respuesta
const unknownWebhookCode = 10015

// InteractionAPI es el REST de interacciones que usa el router.
type InteractionAPI interface {
	Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	Followup(i *discordgo.Interaction, params *discordgo.WebhookParams) error
	EditResponse(i *discordgo.Interaction, edit *discordgo.WebhookEdit) error
}

type sessionInteractions struct{ s *discordgo.Session }

func (a sessionInteractions) Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return a.s.InteractionRespond(i, resp)
}

func (a sessionInteractions) Followup(i *discordgo.Interaction, params *discordgo.WebhookParams) error {
	_, err := a.s.FollowupMessageCreate(i, true, params)
	return err
}

func (a sessionInteractions) EditResponse(i *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
	_, err := a.s.InteractionResponseEdit(i, edit)
	return err
}

func (r *Router) sendEphemeral(ic *discordgo.InteractionCreate, msg string) error {
	err := r.api.Respond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		r.log.Debug("send ephemeral", zap.Error(err))
	}
	return err
}

// Defer efímero (para trabajos >3s)
func (r *Router) deferEphemeral(ic *discordgo.InteractionCreate) error {
	err := r.api.Respond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		r.log.Debug("defer ephemeral", zap.Error(err))
	}
	return err
}

// deferUpdate: ack de un componente; después se edita el mismo mensaje.
func (r *Router) deferUpdate(ic *discordgo.InteractionCreate) error {
	err := r.api.Respond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		r.log.Debug("defer update", zap.Error(err))
	}
	return err
}

// replyEphemeral manda un follow-up; si la interacción no tenía respuesta todavía, responde directo.
func (r *Router) replyEphemeral(ic *discordgo.InteractionCreate, content string, embeds ...*discordgo.MessageEmbed) {
	err := r.api.Followup(ic.Interaction, &discordgo.WebhookParams{
		Content: content,
		Embeds:  embeds,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err == nil {
		return
	}

	var reqErr *discordgo.RESTError
	if errors.As(err, &reqErr) && reqErr.Message != nil && reqErr.Message.Code == unknownWebhookCode {
		_ = r.api.Respond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
				Embeds:  embeds,
			},
		})
		return
	}
	r.log.Warn("reply ephemeral", zap.Error(err))
}

// editOriginal reemplaza el mensaje de la interacción (el deferred o el del componente).
func (r *Router) editOriginal(ic *discordgo.InteractionCreate, v View) {
	content := v.Content
	embeds := v.Embeds
	comps := v.Components
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	if comps == nil {
		comps = []discordgo.MessageComponent{}
	}
	err := r.api.EditResponse(ic.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &comps,
	})
	if err != nil {
		r.log.Warn("edit original", zap.Error(err))
	}
}

// fail traduce el error a un mensaje para el usuario. Los errores de dominio son esperables
// (van a debug); el resto se loguea completo y el usuario ve el genérico.
func (r *Router) fail(c *Ctx, err error) {
	kind := domain.KindOf(err)
	key := "error.generic"
	label := "internal"
	if kind != "" {
		key = "error." + string(kind)
		label = string(kind)
	}
	r.metrics.Inc("interaction_errors_total", "kind", label)

	var args []any
	for k, v := range domain.DetailsOf(err) {
		args = append(args, k, fmt.Sprint(v))
	}
	msg := r.t(c, key, args...)
	if msg == key {
		msg = r.t(c, "error.generic")
	}

	if kind == "" {
		c.Log.Error("interaction failed", zap.Error(err))
	} else {
		c.Log.Debug("interaction rejected", zap.String("kind", label), zap.Error(err))
	}

	if c.acked {
		r.replyEphemeral(c.Event, "⚠️ "+msg)
		return
	}
	if r.sendEphemeral(c.Event, "⚠️ "+msg) != nil {
		r.replyEphemeral(c.Event, "⚠️ "+msg)
	}
}
