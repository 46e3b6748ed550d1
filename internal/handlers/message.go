// Package handlers wires Discord gateway events to the command layer and
// the per-guild players.
package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Kagura/internal/commands"
	"github.com/latoulicious/Kagura/pkg/player"
)

// Handler dispatches gateway events.
type Handler struct {
	commands *commands.Commands
	registry *player.Registry
	prefix   string
}

func New(c *commands.Commands, registry *player.Registry, prefix string) *Handler {
	return &Handler{commands: c, registry: registry, prefix: prefix}
}

// MessageCreate parses prefix commands.
func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore all messages created by the bot itself
	if m.Author.ID == s.State.User.ID {
		return
	}
	if !strings.HasPrefix(m.Content, h.prefix) {
		return
	}

	args := strings.Fields(strings.TrimPrefix(m.Content, h.prefix))
	if len(args) == 0 {
		return
	}
	command := strings.ToLower(args[0])
	args = args[1:]

	switch command {
	case "play", "p":
		h.commands.Play(s, m, args)
	case "skip", "s":
		h.commands.Skip(s, m)
	case "stop":
		h.commands.Stop(s, m)
	case "queue", "q":
		h.commands.Queue(s, m, args)
	case "shuffle":
		h.commands.Shuffle(s, m)
	case "loop":
		h.commands.Loop(s, m)
	case "volume", "vol":
		h.commands.Volume(s, m, args)
	case "nowplaying", "np":
		h.commands.NowPlaying(s, m)
	case "playlist":
		h.commands.PlaylistStatus(s, m)
	case "join":
		h.commands.Join(s, m)
	case "leave":
		h.commands.Leave(s, m)
	case "cachestats":
		h.commands.CacheStats(s, m)
	case "clearcache":
		h.commands.ClearCache(s, m)
	case "help":
		h.commands.Help(s, m)
	}
}

// VoiceStateUpdate feeds voice roster changes to the guild's player so it
// can arm or cancel the idle-disconnect timer.
func (h *Handler) VoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	// The bot's own joins and leaves are not membership changes.
	if v.UserID == s.State.User.ID {
		return
	}
	if p, ok := h.registry.Get(v.GuildID); ok {
		p.HandleVoiceMembership()
	}
}
