package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/latoulicious/Kagura/pkg/cache"
)

// Transport is the voice-streaming collaborator. Play hands a stream URL to
// the audio pipeline and returns once playback has started; onFinish fires
// exactly once when the stream ends or is stopped.
type Transport interface {
	Play(streamURL string, volume float64, onFinish func()) error
	Stop()
	SetVolume(v float64)
	IsConnected() bool
	ListenerCount() int
	Disconnect() error
}

// Notifier receives playback announcements for the channel that owns the
// player. Implementations must not block.
type Notifier interface {
	NowPlaying(t *Track)
}

// NopNotifier discards announcements.
type NopNotifier struct{}

func (NopNotifier) NowPlaying(*Track) {}

// Config tunes the per-channel playback loop.
type Config struct {
	// PopTimeout bounds how long the loop waits for the next track before
	// giving up the voice channel.
	PopTimeout time.Duration

	// RetryPopTimeout is the shorter wait after an emergency playlist batch.
	RetryPopTimeout time.Duration

	// BatchSize is how many playlist entries one prefetch batch attempts.
	BatchSize int

	// LowWatermark is the queue length at or below which the next batch is
	// loaded synchronously.
	LowWatermark int

	// Concurrency bounds the parallel metadata fetches inside one batch.
	Concurrency int

	// IdleDelay is how long the bot stays in an empty voice channel.
	IdleDelay time.Duration

	// SkipVotesNeeded is the number of distinct non-requester votes that
	// force a skip.
	SkipVotesNeeded int
}

func DefaultPlayerConfig() Config {
	return Config{
		PopTimeout:      3 * time.Minute,
		RetryPopTimeout: 30 * time.Second,
		BatchSize:       15,
		LowWatermark:    3,
		Concurrency:     4,
		IdleDelay:       5 * time.Minute,
		SkipVotesNeeded: 3,
	}
}

// playlistState tracks the active playlist and the load cursor. The cursor
// advances by entries attempted, not succeeded, so permanently broken
// entries are never retried.
type playlistState struct {
	url       string
	title     string
	requester string
	entries   []cache.PlaylistEntry
	cursor    int
}

// SkipResult reports the outcome of one skip vote.
type SkipResult struct {
	Skipped      bool
	AlreadyVoted bool
	Votes        int
	VotesNeeded  int
}

// PlaylistStatus is a snapshot of playlist auto-continuation progress.
type PlaylistStatus struct {
	Active bool
	Title  string
	URL    string
	Loaded int
	Total  int
}

// Player is the per-guild playback orchestrator: it owns the queue, the
// current track, the playback loop, playlist auto-continuation and the
// idle-disconnect timer. Exactly one Run loop consumes the queue; user
// commands and prefetch batches only push.
type Player struct {
	guildID   string
	queue     *Queue
	resolver  *Resolver
	cache     *cache.Manager
	transport Transport
	notifier  Notifier
	cfg       Config
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	current   *Track
	loop      bool
	volume    float64
	skipVotes map[string]struct{}
	playlist  *playlistState
	idleTimer *time.Timer

	// playGen tags each playback attempt. A halted pipeline reports its
	// end late, after the loop has already moved on; its callback carries
	// a stale generation and is dropped instead of finishing the track
	// that replaced it.
	playGen uint64

	// loadMu single-flights playlist extension so the synchronous and
	// background load paths never overlap or skip cursor ranges.
	loadMu            sync.Mutex
	backgroundLoading bool

	finished chan struct{}
	stopOnce sync.Once
	onStop   func()
}

// NewPlayer creates a player bound to one guild's voice transport. onStop
// runs once during teardown, after the transport is released.
func NewPlayer(guildID string, resolver *Resolver, c *cache.Manager, transport Transport, notifier Notifier, cfg Config, log *zap.Logger, onStop func()) *Player {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		guildID:   guildID,
		queue:     NewQueue(),
		resolver:  resolver,
		cache:     c,
		transport: transport,
		notifier:  notifier,
		cfg:       cfg,
		log:       log.With(zap.String("guild_id", guildID)),
		ctx:       ctx,
		cancel:    cancel,
		volume:    1.0,
		skipVotes: make(map[string]struct{}),
		finished:  make(chan struct{}, 1),
		onStop:    onStop,
	}
}

// Run executes the playback loop until explicit stop or fatal connection
// loss. Run must be called exactly once, on its own goroutine.
func (p *Player) Run() {
	defer p.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		if !p.cycle() {
			return
		}
	}
}

// cycle runs one iteration of the playback loop. An unexpected panic is
// contained here so a single bad track can never kill the channel's loop.
func (p *Player) cycle() (keepGoing bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("playback loop recovered", zap.Any("panic", r))
			p.setCurrent(nil)
			keepGoing = p.sleep(2 * time.Second)
		}
	}()

	p.clearFinished()

	if !p.transport.IsConnected() {
		p.log.Warn("voice connection lost, stopping playback")
		return false
	}

	track := p.loopedTrack()
	if track == nil {
		t, err := p.nextTrack()
		if err != nil {
			if errors.Is(err, ErrPopTimeout) {
				p.log.Info("queue idle past limit, leaving voice channel")
			}
			return false
		}
		track = t
	}

	p.setCurrent(track)

	if track.Lazy {
		if err := p.resolver.RefreshStreamURL(p.ctx, track); err != nil {
			p.log.Warn("skipping track, stream resolution failed",
				zap.String("title", track.Title), zap.Error(err))
			p.setCurrent(nil)
			return true
		}
	}

	p.maybeExtendPlaylist()

	if err := p.startPlayback(track); err != nil {
		p.log.Warn("abandoning track, playback failed",
			zap.String("title", track.Title), zap.Error(err))
		p.setCurrent(nil)
		return true
	}

	p.notifier.NowPlaying(track)
	p.waitFinished()

	if !p.Looping() {
		p.setCurrent(nil)
	}
	return true
}

// loopedTrack re-resolves the current track when loop mode is on. Stream
// URLs are time-limited; the URL just played cannot be replayed. A failed
// re-resolution disables loop and falls through to normal advancement.
func (p *Player) loopedTrack() *Track {
	p.mu.Lock()
	looping, track := p.loop, p.current
	p.mu.Unlock()

	if !looping || track == nil {
		return nil
	}
	if err := p.resolver.RefreshStreamURL(p.ctx, track); err != nil {
		p.log.Warn("loop re-resolution failed, disabling loop", zap.Error(err))
		p.setLoop(false)
		p.setCurrent(nil)
		return nil
	}
	return track
}

// nextTrack block-pops the queue. On timeout with an active playlist and an
// empty queue, one emergency batch is loaded and the pop retried with a
// shorter wait.
func (p *Player) nextTrack() (*Track, error) {
	t, err := p.queue.Pop(p.ctx, p.cfg.PopTimeout)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrPopTimeout) {
		return nil, err
	}

	if p.playlistRemaining() > 0 && p.queue.Len() == 0 {
		p.loadNextBatch()
		return p.queue.Pop(p.ctx, p.cfg.RetryPopTimeout)
	}
	return nil, err
}

// startPlayback hands the track to the transport. A recoverable stream
// error (expired, forbidden, unavailable) gets one re-resolve and one
// retry before the track is abandoned.
func (p *Player) startPlayback(t *Track) error {
	err := p.transport.Play(t.StreamURL, p.Volume(), p.finishSignal())
	if err == nil || !IsRecoverableStreamError(err) {
		return err
	}

	p.log.Info("stream rejected, re-resolving once",
		zap.String("title", t.Title), zap.Error(err))
	if rerr := p.resolver.RefreshStreamURL(p.ctx, t); rerr != nil {
		return err
	}
	return p.transport.Play(t.StreamURL, p.Volume(), p.finishSignal())
}

// finishSignal binds a finish callback to this playback attempt. Only the
// callback from the live attempt may resolve the finished signal; anything
// older is a stale pipeline winding down.
func (p *Player) finishSignal() func() {
	p.mu.Lock()
	p.playGen++
	gen := p.playGen
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		live := gen == p.playGen
		p.mu.Unlock()
		if live {
			p.signalFinished()
		}
	}
}

// Enqueue appends a track for playback.
func (p *Player) Enqueue(t *Track) {
	p.queue.Push(t)
}

// LoadPlaylist binds a playlist to this player and synchronously loads the
// first batch. Every track loaded from it is requested by requesterID, so
// the user who queued the playlist keeps their unilateral skip. Returns the
// status after the initial load.
func (p *Player) LoadPlaylist(ctx context.Context, playlistURL, requesterID string) (PlaylistStatus, error) {
	pl, err := p.resolver.Playlist(ctx, playlistURL)
	if err != nil {
		return PlaylistStatus{}, err
	}

	p.mu.Lock()
	p.playlist = &playlistState{
		url:       playlistURL,
		title:     pl.Title,
		requester: requesterID,
		entries:   pl.Entries,
	}
	p.mu.Unlock()

	p.loadNextBatch()
	return p.Playlist(), nil
}

// Playlist reports auto-continuation progress.
func (p *Player) Playlist() PlaylistStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playlist == nil {
		return PlaylistStatus{}
	}
	return PlaylistStatus{
		Active: true,
		Title:  p.playlist.title,
		URL:    p.playlist.url,
		Loaded: p.playlist.cursor,
		Total:  len(p.playlist.entries),
	}
}

func (p *Player) playlistRemaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playlist == nil {
		return 0
	}
	return len(p.playlist.entries) - p.playlist.cursor
}

// maybeExtendPlaylist tops the queue up from the active playlist: at or
// below the low watermark the batch loads synchronously before playback
// proceeds; slightly above it a background load is launched instead so
// playback never waits on network I/O.
func (p *Player) maybeExtendPlaylist() {
	if p.playlistRemaining() == 0 {
		return
	}

	qlen := p.queue.Len()
	switch {
	case qlen <= p.cfg.LowWatermark:
		p.loadNextBatch()
	case qlen <= p.cfg.LowWatermark*2:
		p.mu.Lock()
		launch := !p.backgroundLoading
		if launch {
			p.backgroundLoading = true
		}
		p.mu.Unlock()

		if launch {
			go func() {
				defer func() {
					p.mu.Lock()
					p.backgroundLoading = false
					p.mu.Unlock()
				}()
				p.loadNextBatch()
			}()
		}
	}
}

// loadNextBatch loads the next batch of playlist entries as lazy tracks,
// fanning out bounded-concurrency metadata fetches. The cursor advances by
// the number of entries attempted so failed entries are never retried.
// loadMu makes extension single-flight across the synchronous and
// background paths.
func (p *Player) loadNextBatch() int {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	p.mu.Lock()
	pl := p.playlist
	if pl == nil || pl.cursor >= len(pl.entries) {
		p.mu.Unlock()
		return 0
	}
	start := pl.cursor
	end := start + p.cfg.BatchSize
	if end > len(pl.entries) {
		end = len(pl.entries)
	}
	batch := make([]cache.PlaylistEntry, end-start)
	copy(batch, pl.entries[start:end])
	requester := pl.requester
	p.mu.Unlock()

	tracks := make([]*Track, len(batch))
	var failures int
	var failMu sync.Mutex
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, entry := range batch {
		wg.Add(1)
		go func(i int, entry cache.PlaylistEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			t, err := p.resolver.NewLazySource(p.ctx, entry.URL, requester)
			if err != nil {
				failMu.Lock()
				failures++
				failMu.Unlock()
				if !IsUnavailableEntry(err) {
					p.log.Warn("playlist entry failed to load",
						zap.String("url", entry.URL), zap.Error(err))
				}
				return
			}
			tracks[i] = t
		}(i, entry)
	}
	wg.Wait()

	queued := 0
	for _, t := range tracks {
		if t != nil {
			p.queue.Push(t)
			queued++
		}
	}

	p.mu.Lock()
	if p.playlist == pl {
		pl.cursor = end
	}
	p.mu.Unlock()

	p.log.Info("playlist batch loaded",
		zap.Int("attempted", len(batch)),
		zap.Int("queued", queued),
		zap.Int("failed", failures),
		zap.Int("cursor", end))
	return queued
}

// Skip registers one skip vote. The requester of the current track skips
// unconditionally; otherwise three distinct voters force the skip. A repeat
// vote is reported back as already-voted.
func (p *Player) Skip(userID string) (SkipResult, error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return SkipResult{}, &StateError{Op: "skip", Reason: "nothing is playing"}
	}

	if userID == p.current.RequesterID {
		p.loop = false
		p.mu.Unlock()
		p.forceSkip()
		return SkipResult{Skipped: true, VotesNeeded: p.cfg.SkipVotesNeeded}, nil
	}

	if _, voted := p.skipVotes[userID]; voted {
		votes := len(p.skipVotes)
		p.mu.Unlock()
		return SkipResult{AlreadyVoted: true, Votes: votes, VotesNeeded: p.cfg.SkipVotesNeeded}, nil
	}

	p.skipVotes[userID] = struct{}{}
	votes := len(p.skipVotes)
	if votes >= p.cfg.SkipVotesNeeded {
		p.loop = false
		p.mu.Unlock()
		p.forceSkip()
		return SkipResult{Skipped: true, Votes: votes, VotesNeeded: p.cfg.SkipVotesNeeded}, nil
	}
	p.mu.Unlock()
	return SkipResult{Votes: votes, VotesNeeded: p.cfg.SkipVotesNeeded}, nil
}

func (p *Player) forceSkip() {
	// Invalidate the running pipeline's callback before halting it; the
	// halt fires that callback later and must not count against whatever
	// plays next.
	p.mu.Lock()
	p.playGen++
	p.mu.Unlock()

	p.transport.Stop()
	p.signalFinished()
}

// HandleVoiceMembership reacts to voice roster changes: an empty channel
// arms the idle-disconnect timer, a non-empty one cancels it.
func (p *Player) HandleVoiceMembership() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.transport.ListenerCount() == 0 {
		if p.idleTimer == nil {
			p.idleTimer = time.AfterFunc(p.cfg.IdleDelay, p.idleDisconnect)
		}
		return
	}
	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
}

// idleDisconnect fires after the idle delay. Aloneness is re-verified
// because someone may have rejoined while the timer ran.
func (p *Player) idleDisconnect() {
	if p.transport.ListenerCount() > 0 {
		p.mu.Lock()
		p.idleTimer = nil
		p.mu.Unlock()
		return
	}
	p.log.Info("voice channel empty past idle limit, disconnecting")
	p.Stop()
}

// Stop tears the player down: cancels the loop and the idle timer, drains
// the queue, disconnects the transport and evicts the playlist cache entry
// so a later load of the same playlist starts fresh. Idempotent.
func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.signalFinished()

		p.mu.Lock()
		if p.idleTimer != nil {
			p.idleTimer.Stop()
			p.idleTimer = nil
		}
		pl := p.playlist
		p.playlist = nil
		p.current = nil
		p.mu.Unlock()

		dropped := p.queue.Drain()
		if pl != nil {
			p.cache.DeletePlaylistData(pl.url)
		}

		p.transport.Stop()
		if err := p.transport.Disconnect(); err != nil {
			p.log.Warn("voice disconnect failed", zap.Error(err))
		}

		p.log.Info("player stopped", zap.Int("dropped_tracks", len(dropped)))
		if p.onStop != nil {
			p.onStop()
		}
	})
}

// Current returns the track now playing, or nil.
func (p *Player) Current() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Queue exposes the pending-track queue for command-layer reads, shuffle
// and removal. Only the playback loop pops it.
func (p *Player) Queue() *Queue {
	return p.queue
}

// ToggleLoop flips loop mode and returns the new state.
func (p *Player) ToggleLoop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = !p.loop
	return p.loop
}

// Looping reports whether loop mode is on.
func (p *Player) Looping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

func (p *Player) setLoop(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = v
}

// SetVolume accepts 0-100 and applies it to the transport immediately.
func (p *Player) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return &StateError{Op: "volume", Reason: "must be between 0 and 100"}
	}
	v := float64(percent) / 100

	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()

	p.transport.SetVolume(v)
	return nil
}

// Volume returns the current gain as a 0.0-1.0 fraction.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) setCurrent(t *Track) {
	p.mu.Lock()
	p.current = t
	// Votes are per-track.
	p.skipVotes = make(map[string]struct{})
	p.mu.Unlock()
}

func (p *Player) clearFinished() {
	select {
	case <-p.finished:
	default:
	}
}

func (p *Player) signalFinished() {
	select {
	case p.finished <- struct{}{}:
	default:
	}
}

func (p *Player) waitFinished() {
	select {
	case <-p.finished:
	case <-p.ctx.Done():
	}
}

// sleep pauses without outliving the player, reporting whether the player
// is still running.
func (p *Player) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-p.ctx.Done():
		return false
	}
}
