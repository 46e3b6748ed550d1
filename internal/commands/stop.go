package commands

import (
	"github.com/bwmarrin/discordgo"
)

// Stop tears the guild's player down and leaves the voice channel.
func (c *Commands) Stop(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok {
		c.sendEmbed(s, m.ChannelID, "🔇 Nothing Playing", "Nothing is playing right now.", colorGray)
		return
	}

	p.Stop()
	c.presence.ClearMusic()
	c.sendEmbed(s, m.ChannelID, "⏹️ Stopped", "Playback stopped and queue cleared.", colorGreen)
}
