package lavalink

import "go.uber.org/zap"

type Option func(*Client)

// WithSearchPrefix: ytsearch, scsearch, spsearch... (depende de los plugins del nodo).
func WithSearchPrefix(p string) Option {
	return func(c *Client) { c.searchPrefix = p }
}

// WithVoiceJoiner recibe la función que manda el op 4 al gateway (channelID vacío = salir).
func WithVoiceJoiner(f func(guildID, channelID string) error) Option {
	return func(c *Client) { c.join = f }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}
