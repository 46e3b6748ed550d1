package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const queuePageSize = 10

// Queue shows the pending tracks ten per page and handles the remove and
// clear subcommands.
func (c *Commands) Queue(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "remove":
			c.removeFromQueue(s, m, args[1:])
			return
		case "clear":
			c.clearQueue(s, m)
			return
		}
	}

	page := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			page = n
		}
	}
	c.showQueue(s, m, page)
}

func (c *Commands) showQueue(s *discordgo.Session, m *discordgo.MessageCreate, page int) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok || (p.Queue().Len() == 0 && p.Current() == nil) {
		c.sendEmbed(s, m.ChannelID, "📭 Queue", "Queue is empty.", colorGray)
		return
	}

	var b strings.Builder
	if current := p.Current(); current != nil {
		fmt.Fprintf(&b, "🎶 **Now Playing:** %s `[%s]`\n\n", current.Title, current.DurationString())
	}

	total := p.Queue().Len()
	pages := (total + queuePageSize - 1) / queuePageSize
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * queuePageSize
	items := p.Queue().Slice(start, start+queuePageSize)
	if len(items) > 0 {
		b.WriteString("📋 **Up Next:**\n")
		for i, item := range items {
			fmt.Fprintf(&b, "%d. **%s** `[%s]`\n", start+i+1, item.Title, item.DurationString())
		}
		fmt.Fprintf(&b, "\nPage %d/%d (%d queued)", page, pages, total)
	} else {
		b.WriteString("📋 No songs in queue.")
	}

	c.sendEmbed(s, m.ChannelID, "🎵 Music Queue", b.String(), colorBlue)
}

// Shuffle reorders the currently queued tracks. Playlist entries not yet
// loaded keep their original order.
func (c *Commands) Shuffle(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok || p.Queue().Len() == 0 {
		c.sendEmbed(s, m.ChannelID, "📭 Queue", "Nothing to shuffle.", colorGray)
		return
	}

	p.Queue().Shuffle()
	c.sendEmbed(s, m.ChannelID, "🔀 Shuffled",
		fmt.Sprintf("Shuffled %d queued tracks.", p.Queue().Len()), colorGreen)
}

func (c *Commands) removeFromQueue(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		c.sendEmbed(s, m.ChannelID, "❌ Usage Error", "Usage: `queue remove <index>`", colorRed)
		return
	}

	p, ok := c.registry.Get(m.GuildID)
	if !ok {
		c.sendEmbed(s, m.ChannelID, "📭 Queue", "Queue is empty.", colorGray)
		return
	}

	index, err := strconv.Atoi(args[0])
	if err != nil {
		c.sendEmbed(s, m.ChannelID, "❌ Usage Error", "Invalid index. Use `queue` to see positions.", colorRed)
		return
	}

	// Users see 1-based positions.
	removed, err := p.Queue().Remove(index - 1)
	if err != nil {
		c.sendEmbed(s, m.ChannelID, "❌ Error", "No track at that position.", colorRed)
		return
	}
	c.sendEmbed(s, m.ChannelID, "🗑️ Removed",
		fmt.Sprintf("Removed **%s** from the queue.", removed.Title), colorGreen)
}

func (c *Commands) clearQueue(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := c.registry.Get(m.GuildID)
	if !ok {
		c.sendEmbed(s, m.ChannelID, "📭 Queue", "Queue is empty.", colorGray)
		return
	}

	p.Queue().Clear()
	c.sendEmbed(s, m.ChannelID, "🧹 Cleared", "Queue cleared.", colorGreen)
}
