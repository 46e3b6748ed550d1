// Package commands implements the text command layer: it parses user
// requests and marshals them into calls on the per-guild players and the
// shared cache.
package commands

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/latoulicious/Kagura/internal/config"
	"github.com/latoulicious/Kagura/internal/presence"
	"github.com/latoulicious/Kagura/pkg/cache"
	"github.com/latoulicious/Kagura/pkg/player"
	"github.com/latoulicious/Kagura/pkg/voice"
)

const (
	colorGreen = 0x00ff00
	colorRed   = 0xff0000
	colorGray  = 0x808080
	colorBlue  = 0x7289DA
)

// Commands bundles the dependencies every command needs.
type Commands struct {
	registry *player.Registry
	resolver *player.Resolver
	cache    *cache.Manager
	presence *presence.Manager
	cfg      *config.Config
	log      *zap.Logger
}

func New(registry *player.Registry, resolver *player.Resolver, c *cache.Manager, pm *presence.Manager, cfg *config.Config, log *zap.Logger) *Commands {
	return &Commands{
		registry: registry,
		resolver: resolver,
		cache:    c,
		presence: pm,
		cfg:      cfg,
		log:      log,
	}
}

// ensurePlayer returns the guild's player, joining the requester's voice
// channel and creating one if needed.
func (c *Commands) ensurePlayer(s *discordgo.Session, m *discordgo.MessageCreate) (*player.Player, error) {
	if p, ok := c.registry.Get(m.GuildID); ok {
		return p, nil
	}

	channelID, err := voice.FindUserVoiceChannel(s, m.GuildID, m.Author.ID)
	if err != nil {
		return nil, err
	}
	transport, err := voice.Join(s, m.GuildID, channelID, c.log)
	if err != nil {
		return nil, err
	}

	n := &notifier{
		session:   s,
		channelID: m.ChannelID,
		presence:  c.presence,
		log:       c.log,
	}
	return c.registry.Acquire(m.GuildID, transport, n), nil
}

// notifier announces playback events to the text channel the player was
// started from. Announcements run on their own goroutine so the playback
// loop never blocks on the Discord REST API.
type notifier struct {
	session   *discordgo.Session
	channelID string
	presence  *presence.Manager
	log       *zap.Logger
}

func (n *notifier) NowPlaying(t *player.Track) {
	go func() {
		embed := &discordgo.MessageEmbed{
			Title:       "🎶 Now Playing",
			Description: "**" + t.Title + "**",
			Color:       colorGreen,
			Timestamp:   time.Now().Format(time.RFC3339),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Uploader", Value: orDash(t.Uploader), Inline: true},
				{Name: "Duration", Value: t.DurationString(), Inline: true},
			},
		}
		if t.Thumbnail != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
		}
		if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
			n.log.Warn("failed to send now-playing message", zap.Error(err))
		}
		n.presence.UpdateMusic(t.Title)
	}()
}

func (c *Commands) sendEmbed(s *discordgo.Session, channelID, title, description string, color int) {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		c.log.Warn("failed to send message", zap.Error(err))
	}
}

func (c *Commands) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
