package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// NowPlaying shows the current track with its metadata.
func (c *Commands) NowPlaying(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok || p.Current() == nil {
		embed := &discordgo.MessageEmbed{
			Title:       "🎵 Now Playing",
			Description: "Nothing is currently playing",
			Color:       colorGray,
			Timestamp:   time.Now().Format(time.RFC3339),
			Footer: &discordgo.MessageEmbedFooter{
				Text: "Use play to start playing music",
			},
		}
		s.ChannelMessageSendEmbed(m.ChannelID, embed)
		return
	}

	track := p.Current()
	loopState := "off"
	if p.Looping() {
		loopState = "on"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎵 Now Playing",
		Description: fmt.Sprintf("**%s**", track.Title),
		Color:       colorGreen,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uploader", Value: orDash(track.Uploader), Inline: true},
			{Name: "Duration", Value: track.DurationString(), Inline: true},
			{Name: "Requested by", Value: fmt.Sprintf("<@%s>", track.RequesterID), Inline: true},
			{Name: "Loop", Value: loopState, Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%.0f%%", p.Volume()*100), Inline: true},
			{Name: "Queued", Value: fmt.Sprintf("%d tracks", p.Queue().Len()), Inline: true},
		},
	}
	if track.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.Thumbnail}
	}
	if track.WebpageURL != "" {
		embed.URL = track.WebpageURL
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}
