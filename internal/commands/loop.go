package commands

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Loop toggles replaying the current track.
func (c *Commands) Loop(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok {
		c.sendEmbed(s, m.ChannelID, "🔇 Nothing Playing", "Nothing is playing right now.", colorGray)
		return
	}

	if p.ToggleLoop() {
		c.sendEmbed(s, m.ChannelID, "🔁 Loop On", "The current track will repeat.", colorGreen)
	} else {
		c.sendEmbed(s, m.ChannelID, "➡️ Loop Off", "Playback will advance normally.", colorGreen)
	}
}

// Volume sets the playback gain as a 0-100 percentage.
func (c *Commands) Volume(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok {
		c.sendEmbed(s, m.ChannelID, "🔇 Nothing Playing", "Nothing is playing right now.", colorGray)
		return
	}

	if len(args) < 1 {
		c.sendEmbed(s, m.ChannelID, "🔊 Volume",
			fmt.Sprintf("Current volume: %.0f%%", p.Volume()*100), colorBlue)
		return
	}

	percent, err := strconv.Atoi(args[0])
	if err != nil {
		c.sendEmbed(s, m.ChannelID, "❌ Usage Error", "Usage: `volume <0-100>`", colorRed)
		return
	}
	if err := p.SetVolume(percent); err != nil {
		c.sendEmbed(s, m.ChannelID, "❌ Error", err.Error(), colorRed)
		return
	}
	c.sendEmbed(s, m.ChannelID, "🔊 Volume", fmt.Sprintf("Volume set to %d%%.", percent), colorGreen)
}
