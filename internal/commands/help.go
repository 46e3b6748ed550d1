package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Help lists the available commands.
func (c *Commands) Help(s *discordgo.Session, m *discordgo.MessageCreate) {
	prefix := c.cfg.Prefix
	embed := &discordgo.MessageEmbed{
		Title:     "🎵 Commands",
		Color:     colorBlue,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Playback",
				Value: fmt.Sprintf(
					"`%[1]splay <url|query>` - queue a track or playlist\n"+
						"`%[1]sskip` - vote to skip (requester skips instantly)\n"+
						"`%[1]sstop` - stop and clear everything\n"+
						"`%[1]sloop` - repeat the current track\n"+
						"`%[1]svolume <0-100>` - set the volume", prefix),
			},
			{
				Name: "Queue",
				Value: fmt.Sprintf(
					"`%[1]squeue [page]` - show the queue\n"+
						"`%[1]squeue remove <n>` - remove a track\n"+
						"`%[1]squeue clear` - empty the queue\n"+
						"`%[1]sshuffle` - shuffle the queued tracks\n"+
						"`%[1]snowplaying` - show the current track\n"+
						"`%[1]splaylist` - playlist loading progress", prefix),
			},
			{
				Name: "Other",
				Value: fmt.Sprintf(
					"`%[1]sjoin` / `%[1]sleave` - voice channel control\n"+
						"`%[1]scachestats` - cache hit rates\n"+
						"`%[1]sclearcache` - wipe the cache", prefix),
			},
		},
	}
	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}
