package voice

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Transport wraps one guild's voice connection and drives the audio
// pipeline. It satisfies the player's transport contract.
type Transport struct {
	session *discordgo.Session
	guildID string
	log     *zap.Logger

	mu       sync.Mutex
	vc       *discordgo.VoiceConnection
	pipeline *pipeline
	volume   float64
}

// FindUserVoiceChannel returns the voice channel the user currently sits in.
func FindUserVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("could not find guild: %w", err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, nil
		}
	}
	return "", fmt.Errorf("you must be in a voice channel to play music")
}

// Join connects to a voice channel with retry and readiness wait, returning
// a transport bound to the live connection.
func Join(s *discordgo.Session, guildID, channelID string, log *zap.Logger) (*Transport, error) {
	var vc *discordgo.VoiceConnection
	var err error

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		vc, err = s.ChannelVoiceJoin(guildID, channelID, false, true)
		if err == nil {
			break
		}
		log.Warn("voice join attempt failed",
			zap.Int("attempt", i+1), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel after %d attempts: %w", maxRetries, err)
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for !vc.Ready {
		select {
		case <-timeout:
			vc.Disconnect()
			return nil, fmt.Errorf("voice connection timed out")
		case <-ticker.C:
		}
	}

	log.Info("voice connection ready",
		zap.String("guild_id", guildID), zap.String("channel_id", channelID))

	return &Transport{
		session: s,
		guildID: guildID,
		log:     log.With(zap.String("guild_id", guildID)),
		vc:      vc,
		volume:  1.0,
	}, nil
}

// Play starts streaming a track, replacing any pipeline still running.
// onFinish fires exactly once when the stream ends or is stopped.
func (t *Transport) Play(streamURL string, volume float64, onFinish func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.vc == nil {
		return fmt.Errorf("not connected to a voice channel")
	}
	if t.pipeline != nil {
		t.pipeline.halt()
	}

	t.volume = volume
	p := newPipeline(t.vc, t.log, volume, onFinish)
	if err := p.start(streamURL); err != nil {
		return err
	}
	t.pipeline = p
	return nil
}

// Stop halts the current stream without disconnecting.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pipeline != nil {
		t.pipeline.halt()
		t.pipeline = nil
	}
}

// SetVolume changes the software gain, applied live to the running stream.
func (t *Transport) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = v
	if t.pipeline != nil {
		t.pipeline.setVolume(v)
	}
}

// IsConnected reports whether the voice connection is live.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vc != nil && t.vc.Ready
}

// ListenerCount counts non-bot members in the connected voice channel.
func (t *Transport) ListenerCount() int {
	t.mu.Lock()
	vc := t.vc
	t.mu.Unlock()
	if vc == nil {
		return 0
	}

	guild, err := t.session.State.Guild(t.guildID)
	if err != nil {
		return 0
	}

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != vc.ChannelID {
			continue
		}
		member, err := t.session.State.Member(t.guildID, vs.UserID)
		if err == nil && member.User != nil && member.User.Bot {
			continue
		}
		count++
	}
	return count
}

// Disconnect stops any stream and leaves the voice channel.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pipeline != nil {
		t.pipeline.halt()
		t.pipeline = nil
	}
	if t.vc == nil {
		return nil
	}
	err := t.vc.Disconnect()
	t.vc = nil
	return err
}
