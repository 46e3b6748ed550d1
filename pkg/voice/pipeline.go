// Package voice streams audio into a Discord voice channel: ffmpeg decodes
// the source to raw PCM, gopus encodes 20ms Opus frames, and the frames go
// out over the voice connection's send channel.
package voice

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"layeh.com/gopus"
)

const (
	sampleRate = 48000
	channels   = 2

	// 960 samples per channel is one 20ms frame at 48kHz.
	frameSamples = 960
	frameBytes   = frameSamples * channels * 2

	opusBitrate = 128000
)

// pipeline owns one ffmpeg process streaming one track. It is single-use:
// a new track gets a new pipeline.
type pipeline struct {
	vc     *discordgo.VoiceConnection
	log    *zap.Logger
	volume atomic.Uint64 // float64 bits, 0.0-1.0 gain

	cmd      *exec.Cmd
	stop     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
	onFinish func()
}

func newPipeline(vc *discordgo.VoiceConnection, log *zap.Logger, volume float64, onFinish func()) *pipeline {
	p := &pipeline{
		vc:       vc,
		log:      log,
		stop:     make(chan struct{}),
		onFinish: onFinish,
	}
	p.setVolume(volume)
	return p
}

func (p *pipeline) setVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume.Store(math.Float64bits(v))
}

func (p *pipeline) gain() float64 {
	return math.Float64frombits(p.volume.Load())
}

// start validates the stream, launches ffmpeg and begins streaming on its
// own goroutine. Errors that would make playback impossible are returned
// synchronously; onFinish fires exactly once when streaming ends for any
// reason after a successful start.
func (p *pipeline) start(streamURL string) error {
	if err := preflightStream(streamURL); err != nil {
		return err
	}

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("failed to create opus encoder: %w", err)
	}
	encoder.SetBitrate(opusBitrate)

	cmd := exec.Command("ffmpeg",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", streamURL,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(sampleRate),
		"-ac", fmt.Sprint(channels),
		"-bufsize", "64k",
		"-")

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	p.cmd = cmd

	go consumeStderr(stderr)

	if err := p.waitForVoiceReady(); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return err
	}

	go p.streamLoop(stdout, encoder)
	return nil
}

func (p *pipeline) streamLoop(stdout io.Reader, encoder *gopus.Encoder) {
	defer p.finish()
	defer func() {
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
		p.cmd.Wait()
	}()

	p.vc.Speaking(true)
	defer p.vc.Speaking(false)

	buffer := make([]byte, frameBytes)
	frameCount := 0

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		n, err := readFrame(stdout, buffer)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				p.log.Debug("stream ended", zap.Int("frames", frameCount))
			} else {
				p.log.Warn("stream read failed", zap.Error(err))
			}
			return
		}

		samples := bytesToSamples(buffer[:n])
		if len(samples) != frameSamples*channels {
			padded := make([]int16, frameSamples*channels)
			copy(padded, samples)
			samples = padded
		}
		applyGain(samples, p.gain())

		opusData, err := encoder.Encode(samples, frameSamples, frameBytes)
		if err != nil {
			p.log.Warn("opus encoding failed", zap.Error(err))
			continue
		}

		select {
		case p.vc.OpusSend <- opusData:
			frameCount++
		case <-p.stop:
			return
		case <-time.After(time.Second):
			p.log.Warn("voice send channel blocked, dropping frame")
		}
	}
}

// halt stops streaming. onFinish still fires through the loop's exit path.
func (p *pipeline) halt() {
	p.stopOnce.Do(func() {
		close(p.stop)
		if p.cmd != nil && p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
	})
}

func (p *pipeline) finish() {
	p.doneOnce.Do(func() {
		if p.onFinish != nil {
			p.onFinish()
		}
	})
}

func (p *pipeline) waitForVoiceReady() error {
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("timeout waiting for voice connection")
		case <-ticker.C:
			if p.vc.Ready {
				return nil
			}
		}
	}
}

// readFrame fills one 20ms frame, tolerating short tail reads.
func readFrame(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF && n > 0 {
		return n, nil
	}
	return n, err
}

// preflightStream verifies the stream URL is still live before spawning
// ffmpeg. CDN rejections (403, 410) surface here as real errors instead of
// an ffmpeg process that exits instantly.
func preflightStream(streamURL string) error {
	req, err := http.NewRequest(http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("invalid stream URL: %w", err)
	}
	req.Header.Set("Range", "bytes=0-0")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("stream unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("stream rejected with HTTP %d", resp.StatusCode)
	}
	return nil
}

func consumeStderr(stderr io.ReadCloser) {
	defer stderr.Close()
	buf := make([]byte, 1024)
	for {
		if _, err := stderr.Read(buf); err != nil {
			return
		}
	}
}

func bytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// applyGain scales samples in place, clamping to the int16 range.
func applyGain(samples []int16, gain float64) {
	if gain == 1.0 {
		return
	}
	for i, s := range samples {
		scaled := float64(s) * gain
		switch {
		case scaled > math.MaxInt16:
			samples[i] = math.MaxInt16
		case scaled < math.MinInt16:
			samples[i] = math.MinInt16
		default:
			samples[i] = int16(scaled)
		}
	}
}
