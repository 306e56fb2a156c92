// esta es la logica de InteractionApplicationCommand de discordgo
// aqui solo vamos a manejar logica de la interaccion del usuario y despachar a los servicios correspondientes
package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/app/service"
	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

func (r *Router) handleSlashCommand(ctx context.Context, c *Ctx) {
	cmd := c.Event.ApplicationCommandData()
	c.Log.Debug("cmd", zap.String("name", cmd.Name))
	defer r.step("slash." + cmd.Name)()

	_ = r.deferEphemeral(c.Event)
	c.acked = true

	var err error
	switch cmd.Name {

	//--> healthcheck manual
	case "ping":
		r.replyEphemeral(c.Event, "🏓 Pong!")

	//--> primer resultado directo a la cola
	case "play":
		err = r.cmdPlay(ctx, c)

	//--> búsqueda con sesión paginada
	case "search":
		err = r.cmdSearch(ctx, c)

	case "pause":
		err = r.simpleControl(ctx, c, "pause", func(vc string) error { return r.player.Pause(ctx, c.GuildID, vc) })
	case "resume":
		err = r.simpleControl(ctx, c, "resume", func(vc string) error { return r.player.Resume(ctx, c.GuildID, vc) })
	case "skip":
		err = r.cmdSkip(ctx, c)
	case "back":
		err = r.simpleControl(ctx, c, "back", func(vc string) error { _, err := r.player.Back(ctx, c.GuildID, vc); return err })
	case "shuffle":
		err = r.simpleControl(ctx, c, "shuffle", func(vc string) error { return r.player.Shuffle(c.GuildID, vc) })
	case "loop":
		err = r.cmdLoop(ctx, c)

	//--> acciones destructivas, piden DJ
	case "stop":
		if err = r.requireDJ(ctx, c); err == nil {
			err = r.simpleControl(ctx, c, "stop", func(vc string) error { return r.player.Stop(ctx, c.GuildID, vc) })
		}
	case "clear":
		if err = r.requireDJ(ctx, c); err == nil {
			err = r.cmdClear(ctx, c)
		}

	case "jump":
		err = r.cmdJump(ctx, c)
	case "queue":
		err = r.cmdQueue(c)
	case "nowplaying":
		err = r.cmdNowPlaying(ctx, c)

	//--> settings del guild (admins)
	case "settings":
		err = r.cmdSettings(ctx, c)

	default:
		r.replyEphemeral(c.Event, r.t(c, "common.unknown_command"))
	}
	if err != nil {
		r.fail(c, err)
	}
}

func (r *Router) cmdPlay(ctx context.Context, c *Ctx) error {
	query, _ := optStr(c.Event, "query")
	vc, err := r.enqueueChannel(ctx, c)
	if err != nil {
		return err
	}
	tracks, err := r.search.Tracks(ctx, query)
	if err != nil {
		return err
	}
	t := tracks[0]
	res, err := r.player.Enqueue(ctx, service.EnqueueRequest{
		GuildID:        c.GuildID,
		VoiceChannelID: vc,
		TextChannelID:  c.Event.ChannelID,
		RequesterID:    c.UserID,
		Track:          t,
	})
	if err != nil {
		return err
	}
	if res.Started {
		r.replyEphemeral(c.Event, "▶️ "+r.t(c, "play.started", "title", t.Title))
	} else {
		r.replyEphemeral(c.Event, "➕ "+r.t(c, "play.queued", "title", t.Title, "position", res.Position+1))
	}
	return nil
}

func (r *Router) cmdSearch(ctx context.Context, c *Ctx) error {
	query, _ := optStr(c.Event, "query")
	// el canal de voz se resuelve ahora; la conexión se difiere al primer track elegido
	vc, _ := r.enqueueChannel(ctx, c)
	sess, err := r.search.Search(ctx, service.SearchRequest{
		GuildID:        c.GuildID,
		UserID:         c.UserID,
		Query:          query,
		TextChannelID:  c.Event.ChannelID,
		VoiceChannelID: vc,
		Locale:         c.Locale,
	})
	if err != nil {
		return err
	}
	r.metrics.Inc("searches_total")
	r.editOriginal(c.Event, r.searchView(c.Locale, sess))
	return nil
}

// simpleControl: valida voz, ejecuta y confirma con "player.<key>".
func (r *Router) simpleControl(ctx context.Context, c *Ctx, key string, do func(vc string) error) error {
	vc := r.controlChannel(ctx, c)
	if err := do(vc); err != nil {
		return err
	}
	r.replyEphemeral(c.Event, r.t(c, "player."+key))
	return nil
}

func (r *Router) cmdSkip(ctx context.Context, c *Ctx) error {
	next, err := r.player.Skip(ctx, c.GuildID, r.controlChannel(ctx, c))
	if err != nil {
		return err
	}
	if next == nil {
		r.replyEphemeral(c.Event, "⏭️ "+r.t(c, "player.queue_finished"))
		return nil
	}
	r.replyEphemeral(c.Event, "⏭️ "+r.t(c, "player.skip_to", "title", next.Track.Title))
	return nil
}

func (r *Router) cmdLoop(ctx context.Context, c *Ctx) error {
	mode, err := r.player.CycleLoop(c.GuildID, r.controlChannel(ctx, c))
	if err != nil {
		return err
	}
	r.replyEphemeral(c.Event, "🔁 "+r.t(c, "player.loop_set", "mode", r.t(c, "loop."+mode.String())))
	return nil
}

func (r *Router) cmdClear(ctx context.Context, c *Ctx) error {
	n, err := r.player.Clear(c.GuildID, r.controlChannel(ctx, c))
	if err != nil {
		return err
	}
	r.replyEphemeral(c.Event, "🗑️ "+r.t(c, "player.cleared", "count", n))
	return nil
}

// /jump es 1-based como la lista de /queue
func (r *Router) cmdJump(ctx context.Context, c *Ctx) error {
	pos, _ := optInt(c.Event, "position")
	snap, ok := r.player.Snapshot(c.GuildID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if err := domain.ValidateTrackIndex(pos-1, len(snap.Upcoming)); err != nil {
		return err
	}
	item, err := r.player.Jump(ctx, c.GuildID, r.controlChannel(ctx, c), pos-1)
	if err != nil {
		return err
	}
	r.replyEphemeral(c.Event, "⏭️ "+r.t(c, "player.jumped", "title", item.Track.Title))
	return nil
}

func (r *Router) cmdQueue(c *Ctx) error {
	snap, ok := r.player.Snapshot(c.GuildID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	page, ok := optInt(c.Event, "page")
	if !ok {
		page = 1
	}
	r.editOriginal(c.Event, r.queueView(c.GuildID, c.Locale, snap, page))
	return nil
}

// /nowplaying re-publica el mensaje del player en el canal actual.
func (r *Router) cmdNowPlaying(ctx context.Context, c *Ctx) error {
	snap, ok := r.player.Snapshot(c.GuildID)
	if !ok || snap.Current == nil {
		return domain.NewError(domain.KindEmptyQueue, "nothing is playing", nil)
	}
	locale := c.Locale
	_, err := r.messages.Send(ctx, c.GuildID, c.Event.ChannelID, func() (View, error) {
		cur, ok := r.player.Snapshot(c.GuildID)
		if !ok || cur.Current == nil {
			return View{}, domain.NewError(domain.KindEmptyQueue, "playback ended", nil)
		}
		return r.playerView(c.GuildID, locale, cur), nil
	})
	if err != nil {
		if domain.KindOf(err) != "" {
			return err
		}
		return fmt.Errorf("send player message: %w", err)
	}
	r.replyEphemeral(c.Event, "📌 "+r.t(c, "player.posted"))
	return nil
}

func (r *Router) cmdSettings(ctx context.Context, c *Ctx) error {
	if err := r.requireAdmin(c); err != nil {
		return err
	}
	sub, _ := subcmdName(c.Event)
	switch sub {

	//--> mostrar
	case "show":
		gs, err := r.settings.GetSettings(ctx, c.GuildID)
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		r.replyEphemeral(c.Event, "", r.settingsEmbed(c, gs.Locale, gs.DJRoleIDs, gs.DefaultVolume, gs.VoiceRequired))

	//--> actualizar sólo lo que vino
	case "set":
		var patch service.SettingsPatch
		if v, ok := optStr(c.Event, "locale"); ok {
			patch.Locale = &v
		}
		if v, ok := optStr(c.Event, "dj_roles"); ok {
			ids := parseIDs(v)
			if strings.EqualFold(strings.TrimSpace(v), "none") {
				ids = []string{}
			} else if len(ids) == 0 {
				return domain.NewError(domain.KindInvalidInput, "no role ids", map[string]any{"field": "dj_roles"})
			}
			patch.DJRoleIDs = &ids
		}
		if v, ok := optInt(c.Event, "default_volume"); ok {
			patch.DefaultVolume = &v
		}
		if v, ok := optBool(c.Event, "voice_required"); ok {
			patch.VoiceRequired = &v
		}
		gs, err := r.settings.Update(ctx, c.GuildID, patch)
		if err != nil {
			return err
		}
		// el locale pudo cambiar: respondemos ya en el nuevo
		c.Locale = gs.Locale
		r.replyEphemeral(c.Event, "✅ "+r.t(c, "settings.updated"), r.settingsEmbed(c, gs.Locale, gs.DJRoleIDs, gs.DefaultVolume, gs.VoiceRequired))

	default:
		r.replyEphemeral(c.Event, r.t(c, "settings.usage"))
	}
	return nil
}

func (r *Router) settingsEmbed(c *Ctx, locale string, djRoles []string, volume int, voiceRequired bool) *discordgo.MessageEmbed {
	yesNo := r.t(c, "common.no")
	if voiceRequired {
		yesNo = r.t(c, "common.yes")
	}
	return &discordgo.MessageEmbed{
		Title: "⚙️ " + r.t(c, "settings.title"),
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: r.t(c, "settings.locale"), Value: locale, Inline: true},
			{Name: r.t(c, "settings.default_volume"), Value: strconv.Itoa(volume) + "%", Inline: true},
			{Name: r.t(c, "settings.voice_required"), Value: yesNo, Inline: true},
			{Name: r.t(c, "settings.dj_roles"), Value: mentionRoles(djRoles)},
		},
	}
}
