package discord

import "github.com/bwmarrin/discordgo"

func es(s string) *map[discordgo.Locale]string {
	return &map[discordgo.Locale]string{discordgo.SpanishES: s}
}

var (
	minPosition = 1.0
	minPage     = 1.0
	minVolume   = 0.0
)

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:                     "play",
		Description:              "Play the first result for a search or URL",
		DescriptionLocalizations: es("Reproduce el primer resultado de una búsqueda o URL"),
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "query",
			Description: "Song name or URL",
			Required:    true,
			MaxLength:   200,
		}},
	},
	{
		Name:                     "search",
		Description:              "Search tracks and pick which ones to queue",
		DescriptionLocalizations: es("Busca canciones y elige cuáles agregar a la cola"),
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "query",
			Description: "What to search for",
			Required:    true,
			MaxLength:   200,
		}},
	},
	{Name: "pause", Description: "Pause playback", DescriptionLocalizations: es("Pausa la reproducción")},
	{Name: "resume", Description: "Resume playback", DescriptionLocalizations: es("Reanuda la reproducción")},
	{Name: "skip", Description: "Skip the current track", DescriptionLocalizations: es("Salta el track actual")},
	{Name: "back", Description: "Play the previous track again", DescriptionLocalizations: es("Vuelve al track anterior")},
	{Name: "stop", Description: "Stop playback and leave the voice channel", DescriptionLocalizations: es("Detiene todo y sale del canal de voz")},
	{Name: "shuffle", Description: "Shuffle the queue", DescriptionLocalizations: es("Mezcla la cola")},
	{Name: "clear", Description: "Remove every upcoming track", DescriptionLocalizations: es("Vacía la cola")},
	{Name: "loop", Description: "Cycle loop mode (off, track, queue)", DescriptionLocalizations: es("Cambia el modo loop (off, track, cola)")},
	{
		Name:                     "jump",
		Description:              "Jump to a position in the queue",
		DescriptionLocalizations: es("Salta a una posición de la cola"),
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "position",
			Description: "Position as shown by /queue",
			Required:    true,
			MinValue:    &minPosition,
		}},
	},
	{
		Name:                     "queue",
		Description:              "Show the queue",
		DescriptionLocalizations: es("Muestra la cola"),
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "page",
			Description: "Page number",
			MinValue:    &minPage,
		}},
	},
	{Name: "nowplaying", Description: "Post the player message in this channel", DescriptionLocalizations: es("Publica el mensaje del player en este canal")},
	{
		Name:                     "settings",
		Description:              "View or change the bot settings for this server (admins)",
		DescriptionLocalizations: es("Ver o cambiar la configuración del bot (admins)"),
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Show current settings"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Update settings (only what you pass)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "locale",
						Description: "Language for bot messages",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "English", Value: "en"},
							{Name: "Español", Value: "es"},
						},
					},
					{Type: discordgo.ApplicationCommandOptionString, Name: "dj_roles", Description: "Roles allowed to stop/clear (mentions or ids, \"none\" to clear)"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "default_volume", Description: "Volume for new players (0-150)", MinValue: &minVolume, MaxValue: 150},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "voice_required", Description: "Require being in the bot's voice channel to use controls"},
				},
			},
		},
	},
	{Name: "ping", Description: "Check that the bot is alive"},
}
