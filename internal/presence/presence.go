package presence

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Manager keeps the bot's Discord presence in sync with playback: a
// "listening to <track>" activity while music plays, server statistics
// otherwise.
type Manager struct {
	session *discordgo.Session
	log     *zap.Logger

	mu      sync.Mutex
	playing bool
}

func NewManager(session *discordgo.Session, log *zap.Logger) *Manager {
	return &Manager{session: session, log: log}
}

// UpdateDefault shows server statistics.
func (m *Manager) UpdateDefault() {
	guilds := m.session.State.Guilds

	status := discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  "music",
				Type:  discordgo.ActivityTypeListening,
				State: "in " + strconv.Itoa(len(guilds)) + " servers",
			},
		},
	}
	if err := m.session.UpdateStatusComplex(status); err != nil {
		m.log.Warn("failed to update presence", zap.Error(err))
	}

	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
}

// UpdateMusic shows the currently playing track.
func (m *Manager) UpdateMusic(title string) {
	status := discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  "to",
				Type:  discordgo.ActivityTypeListening,
				State: title,
			},
		},
	}
	if err := m.session.UpdateStatusComplex(status); err != nil {
		m.log.Warn("failed to update music presence", zap.Error(err))
	}

	m.mu.Lock()
	m.playing = true
	m.mu.Unlock()
}

// ClearMusic returns to the default presence.
func (m *Manager) ClearMusic() {
	m.UpdateDefault()
}

// Run refreshes the default presence periodically, leaving an active music
// presence alone.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			playing := m.playing
			m.mu.Unlock()
			if !playing {
				m.UpdateDefault()
			}
		}
	}
}
