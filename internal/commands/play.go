package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/latoulicious/Kagura/pkg/extractor"
	"github.com/latoulicious/Kagura/pkg/player"
)

// Play resolves a URL or search query into a track (or a playlist) and
// queues it for the guild's player.
func (c *Commands) Play(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		c.sendEmbed(s, m.ChannelID, "❌ Usage Error", "Please provide a URL or search query.", colorRed)
		return
	}
	query := strings.Join(args, " ")

	p, err := c.ensurePlayer(s, m)
	if err != nil {
		c.sendEmbed(s, m.ChannelID, "❌ Voice Error", err.Error(), colorRed)
		return
	}

	if looksLikePlaylist(query) {
		if c.playPlaylist(s, m, p, query) {
			return
		}
		// Not actually a playlist; fall through to the single-track path.
	}

	ctx, cancel := c.commandContext()
	defer cancel()

	track, err := c.resolver.NewSource(ctx, query, m.Author.ID)
	if err != nil {
		var notFound *player.NotFoundError
		if errors.As(err, &notFound) {
			c.sendEmbed(s, m.ChannelID, "❌ Not Found", notFound.Error(), colorRed)
			return
		}
		c.log.Warn("play request failed", zap.Error(err))
		c.sendEmbed(s, m.ChannelID, "❌ Error", "Failed to get a playable stream for that request.", colorRed)
		return
	}

	p.Enqueue(track)
	position := p.Queue().Len()
	c.sendEmbed(s, m.ChannelID, "🎵 Song Added",
		fmt.Sprintf("✅ Added **%s** to queue (Position: %d)", track.Title, position), colorGreen)
}

// playPlaylist loads a playlist and reports the initial batch. Returns
// false when the URL turned out to be a single item.
func (c *Commands) playPlaylist(s *discordgo.Session, m *discordgo.MessageCreate, p *player.Player, url string) bool {
	ctx, cancel := c.commandContext()
	defer cancel()

	status, err := p.LoadPlaylist(ctx, url, m.Author.ID)
	if err != nil {
		if errors.Is(err, extractor.ErrNotPlaylist) {
			return false
		}
		c.log.Warn("playlist load failed", zap.Error(err))
		c.sendEmbed(s, m.ChannelID, "❌ Playlist Error", "Failed to load that playlist.", colorRed)
		return true
	}

	c.sendEmbed(s, m.ChannelID, "📜 Playlist Added",
		fmt.Sprintf("✅ Loaded **%s**: queued %d of %d tracks, the rest load as playback advances.",
			orDash(status.Title), p.Queue().Len(), status.Total), colorGreen)
	return true
}

func looksLikePlaylist(query string) bool {
	if !extractor.IsURL(query) {
		return false
	}
	return strings.Contains(query, "list=") || strings.Contains(query, "/playlist")
}
