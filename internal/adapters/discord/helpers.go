package discord

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var reMention = regexp.MustCompile(`<@&?!?(\d+)>`)

// parseIDs acepta menciones (<@123>, <@&123>) o ids sueltos separados por espacios/comas.
func parseIDs(raw string) []string {
	ids := []string{}
	for _, tok := range strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' }) {
		if m := reMention.FindStringSubmatch(tok); len(m) == 2 {
			ids = append(ids, m[1])
			continue
		}
		allDigits := tok != ""
		for _, r := range tok {
			if r < '0' || r > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			ids = append(ids, tok)
		}
	}
	return ids
}

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	if o := findOpt(ic, name); o != nil && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue(), true
	}
	return "", false
}

func optBool(ic *discordgo.InteractionCreate, name string) (bool, bool) {
	if o := findOpt(ic, name); o != nil && o.Type == discordgo.ApplicationCommandOptionBoolean {
		return o.BoolValue(), true
	}
	return false, false
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	if o := findOpt(ic, name); o != nil && o.Type == discordgo.ApplicationCommandOptionInteger {
		return int(o.IntValue()), true
	}
	return 0, false
}

// findOpt busca la opción en el primer nivel o dentro del subcomando.
func findOpt(ic *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type != discordgo.ApplicationCommandOptionSubCommand {
			return o
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name {
					return so
				}
			}
		}
	}
	return nil
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

// pageArg lee el número de página de un custom id (default 1).
func pageArg(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func mentionRoles(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "<@&" + id + ">"
	}
	return strings.Join(out, " ")
}
