package commands

import (
	"github.com/bwmarrin/discordgo"
)

// Join connects the bot to the requester's voice channel without playing
// anything yet.
func (c *Commands) Join(s *discordgo.Session, m *discordgo.MessageCreate) {
	if _, ok := c.registry.Get(m.GuildID); ok {
		c.sendEmbed(s, m.ChannelID, "🔊 Voice", "Already connected to a voice channel.", colorGray)
		return
	}

	if _, err := c.ensurePlayer(s, m); err != nil {
		c.sendEmbed(s, m.ChannelID, "❌ Voice Error", err.Error(), colorRed)
		return
	}
	c.sendEmbed(s, m.ChannelID, "🔊 Joined", "Connected to your voice channel.", colorGreen)
}

// Leave disconnects from voice, tearing the player down.
func (c *Commands) Leave(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok {
		c.sendEmbed(s, m.ChannelID, "🔇 Voice", "Not connected to a voice channel.", colorGray)
		return
	}

	p.Stop()
	c.presence.ClearMusic()
	c.sendEmbed(s, m.ChannelID, "👋 Left", "Disconnected from the voice channel.", colorGreen)
}
