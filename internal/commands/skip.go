package commands

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Kagura/pkg/player"
)

// Skip registers a skip vote. The track's requester skips immediately;
// anyone else needs two more distinct voters.
func (c *Commands) Skip(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok {
		c.sendEmbed(s, m.ChannelID, "🔇 Nothing Playing", "Nothing is playing right now.", colorGray)
		return
	}

	res, err := p.Skip(m.Author.ID)
	if err != nil {
		var stateErr *player.StateError
		if errors.As(err, &stateErr) {
			c.sendEmbed(s, m.ChannelID, "🔇 Nothing Playing", "Nothing is playing right now.", colorGray)
			return
		}
		c.sendEmbed(s, m.ChannelID, "❌ Error", err.Error(), colorRed)
		return
	}

	switch {
	case res.Skipped:
		c.sendEmbed(s, m.ChannelID, "⏭️ Skipped", "Skipped to the next song.", colorGreen)
	case res.AlreadyVoted:
		c.sendEmbed(s, m.ChannelID, "🗳️ Already Voted",
			fmt.Sprintf("You already voted to skip (%d/%d votes).", res.Votes, res.VotesNeeded), colorGray)
	default:
		c.sendEmbed(s, m.ChannelID, "🗳️ Skip Vote",
			fmt.Sprintf("Skip vote registered (%d/%d votes).", res.Votes, res.VotesNeeded), colorBlue)
	}
}
