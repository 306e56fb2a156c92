package discord

import (
	"context"

	"go.uber.org/zap"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

func (r *Router) handleMessageComponent(ctx context.Context, c *Ctx) {
	data := c.Event.MessageComponentData()

	id, err := domain.ParseCustomID(data.CustomID)
	if err != nil {
		r.fail(c, err)
		return
	}
	defer r.step("component." + id.Component + "." + id.Action)()
	c.Log.Debug("component", zap.String("custom_id", data.CustomID), zap.Bool("legacy", id.Legacy))

	if !r.clicks.Allow(c.UserID) {
		_ = r.sendEphemeral(c.Event, "⏳ "+r.t(c, "common.slow_down"))
		return
	}

	switch id.Component {

	//--> paginado y selección de una búsqueda
	case domain.ComponentSearch:
		err = r.onSearchComponent(ctx, c, id, data.Values)

	//--> botones del mensaje del player
	case domain.ComponentPlayer:
		err = r.onPlayerComponent(ctx, c, id)

	//--> vista de /queue
	case domain.ComponentQueue:
		err = r.onQueueComponent(ctx, c, id, data.Values)

	default:
		err = domain.NewError(domain.KindMalformedCustomID, "unknown component", map[string]any{"component": id.Component})
	}
	if err != nil {
		r.fail(c, err)
	}
}

// onSearchComponent: sesión → dueño → Lavalink disponible → ack → acción → re-render.
func (r *Router) onSearchComponent(ctx context.Context, c *Ctx, id domain.CustomID, values []string) error {
	sid := id.ContextID
	sess, err := r.search.Authorize(sid, c.UserID)
	if err != nil {
		return err
	}
	if !r.player.Available() {
		return domain.NewError(domain.KindServiceUnavailable, "no lavalink node available", nil)
	}

	_ = r.deferUpdate(c.Event)
	c.acked = true

	switch id.Action {
	case domain.ActionPrev:
		sess, err = r.search.Navigate(sid, c.UserID, -1)
	case domain.ActionNext:
		sess, err = r.search.Navigate(sid, c.UserID, 1)
	case domain.ActionSelect:
		sess, err = r.search.Select(ctx, sid, c.UserID, values)

	//--> botones viejos: search_toggle_<sid>_<idx>
	case domain.ActionToggle:
		var idx int
		if idx, err = domain.ParseTrackIndex(id.Arg(0), len(sess.Tracks)); err == nil {
			sess, err = r.search.Toggle(ctx, sid, c.UserID, idx)
		}

	case domain.ActionDone:
		if sess, err = r.search.Commit(sid, c.UserID); err == nil {
			r.editOriginal(c.Event, r.searchClosedView(c.Locale, sess))
		}
		return err
	case domain.ActionCancel:
		if sess, err = r.search.Cancel(sid, c.UserID); err == nil {
			r.editOriginal(c.Event, r.searchClosedView(c.Locale, sess))
		}
		return err

	default:
		return domain.NewError(domain.KindMalformedCustomID, "unknown search action", map[string]any{"action": id.Action})
	}

	if err != nil {
		// la sesión pudo quedar a medias: mostramos lo que realmente quedó
		if cur, gerr := r.search.Authorize(sid, c.UserID); gerr == nil {
			r.editOriginal(c.Event, r.searchView(c.Locale, cur))
		} else if domain.KindOf(gerr) == domain.KindSessionExpired {
			r.editOriginal(c.Event, r.searchClosedView(c.Locale, domain.SearchSession{State: domain.SessionExpired}))
		}
		return err
	}
	r.editOriginal(c.Event, r.searchView(c.Locale, sess))
	return nil
}

func (r *Router) onPlayerComponent(ctx context.Context, c *Ctx, id domain.CustomID) error {
	if id.ContextID != c.GuildID {
		return domain.NewError(domain.KindMalformedCustomID, "player button from another guild", map[string]any{"context": id.ContextID})
	}

	//--> la cola se muestra efímera, no toca el player
	if id.Action == domain.ActionQueue {
		snap, ok := r.player.Snapshot(c.GuildID)
		if !ok {
			return domain.ErrPlayerNotFound
		}
		_ = r.deferEphemeral(c.Event)
		c.acked = true
		r.editOriginal(c.Event, r.queueView(c.GuildID, c.Locale, snap, 1))
		return nil
	}

	if !r.player.Available() {
		return domain.NewError(domain.KindServiceUnavailable, "no lavalink node available", nil)
	}
	vc := r.controlChannel(ctx, c)
	if err := r.player.CheckVoice(c.GuildID, vc); err != nil {
		return err
	}
	if id.Action == domain.ActionStop || id.Action == domain.ActionClear {
		if err := r.requireDJ(ctx, c); err != nil {
			return err
		}
	}

	_ = r.deferUpdate(c.Event)
	c.acked = true
	return r.playerAction(ctx, c, id.Action, vc)
}

// playerAction ejecuta un control; el mensaje del player se refresca solo vía PlayerUpdated.
func (r *Router) playerAction(ctx context.Context, c *Ctx, action, vc string) error {
	var err error
	switch action {
	case domain.ActionBack:
		_, err = r.player.Back(ctx, c.GuildID, vc)
	case domain.ActionSkip:
		_, err = r.player.Skip(ctx, c.GuildID, vc)
	case domain.ActionStop:
		err = r.player.Stop(ctx, c.GuildID, vc)
	case domain.ActionPause:
		_, err = r.player.TogglePause(ctx, c.GuildID, vc)
	case domain.ActionShuffle:
		err = r.player.Shuffle(c.GuildID, vc)
	case domain.ActionClear:
		_, err = r.player.Clear(c.GuildID, vc)
	case domain.ActionLoop:
		_, err = r.player.CycleLoop(c.GuildID, vc)
	default:
		err = domain.NewError(domain.KindMalformedCustomID, "unknown player action", map[string]any{"action": action})
	}
	if err == nil {
		r.metrics.Inc("player_buttons_total", "action", action)
	}
	return err
}

func (r *Router) onQueueComponent(ctx context.Context, c *Ctx, id domain.CustomID, values []string) error {
	if id.ContextID != c.GuildID {
		return domain.NewError(domain.KindMalformedCustomID, "queue view from another guild", map[string]any{"context": id.ContextID})
	}
	snap, ok := r.player.Snapshot(c.GuildID)
	if !ok {
		return domain.ErrPlayerNotFound
	}

	switch id.Action {
	case domain.ActionPrev, domain.ActionNext:
		_ = r.deferUpdate(c.Event)
		c.acked = true
		r.editOriginal(c.Event, r.queueView(c.GuildID, c.Locale, snap, pageArg(id.Arg(0))))
		return nil

	case domain.ActionJump:
		if len(values) != 1 {
			return domain.NewError(domain.KindInvalidInput, "expected one value", nil)
		}
		idx, err := domain.ParseTrackIndex(values[0], len(snap.Upcoming))
		if err != nil {
			return err
		}
		vc := r.controlChannel(ctx, c)
		if err := r.player.CheckVoice(c.GuildID, vc); err != nil {
			return err
		}
		_ = r.deferUpdate(c.Event)
		c.acked = true
		item, err := r.player.Jump(ctx, c.GuildID, vc, idx)
		if err != nil {
			return err
		}
		// re-lectura después del jump
		if snap, ok = r.player.Snapshot(c.GuildID); ok {
			r.editOriginal(c.Event, r.queueView(c.GuildID, c.Locale, snap, 1))
		}
		r.replyEphemeral(c.Event, "⏭️ "+r.t(c, "player.jumped", "title", item.Track.Title))
		return nil
	}
	return domain.NewError(domain.KindMalformedCustomID, "unknown queue action", map[string]any{"action": id.Action})
}
