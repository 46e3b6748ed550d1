package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Kagura/pkg/cache"
	"github.com/latoulicious/Kagura/pkg/player"
)

// PlaylistStatus reports auto-continuation progress for the active playlist.
func (c *Commands) PlaylistStatus(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok {
		c.sendEmbed(s, m.ChannelID, "📜 Playlist", "No active playlist.", colorGray)
		return
	}

	status := p.Playlist()
	if !status.Active {
		c.sendEmbed(s, m.ChannelID, "📜 Playlist", "No active playlist.", colorGray)
		return
	}

	c.sendEmbed(s, m.ChannelID, "📜 Playlist Status",
		fmt.Sprintf("**%s**\nLoaded %d of %d entries, %d currently queued.",
			orDash(status.Title), status.Loaded, status.Total, p.Queue().Len()), colorBlue)
}

// CacheStats reports hit rates and sizes for the four cache tiers.
func (c *Commands) CacheStats(s *discordgo.Session, m *discordgo.MessageCreate) {
	stats := c.cache.Stats()

	embed := &discordgo.MessageEmbed{
		Title:       "🗃️ Cache Statistics",
		Description: fmt.Sprintf("%d entries total, up %s", stats.TotalEntries, player.FormatDuration(int(stats.Uptime.Seconds()))),
		Color:       colorBlue,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			statsField("Metadata", stats.Metadata),
			statsField("Stream URLs", stats.Stream),
			statsField("Playlists", stats.Playlist),
			statsField("Searches", stats.Search),
			{
				Name:   "Persistence",
				Value:  fmt.Sprintf("%d saves / %d loads", stats.Saves, stats.Loads),
				Inline: true,
			},
		},
	}
	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}

func statsField(name string, s cache.Stats) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{
		Name: name,
		Value: fmt.Sprintf("%d/%d entries\n%.1f%% hit rate\n%d evictions",
			s.Size, s.MaxSize, s.HitRate*100, s.Evictions),
		Inline: true,
	}
}

// ClearCache wipes every cache tier.
func (c *Commands) ClearCache(s *discordgo.Session, m *discordgo.MessageCreate) {
	c.cache.ClearAll()
	c.sendEmbed(s, m.ChannelID, "🧹 Cache Cleared", "All cache tiers have been emptied.", colorGreen)
}
