package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/latoulicious/Kagura/pkg/cache"
	"github.com/latoulicious/Kagura/pkg/extractor"
)

type fakeTransport struct {
	mu          sync.Mutex
	connected   bool
	listeners   int
	playErrs    []error
	played      []string
	finishes    []func()
	stops       int
	disconnects int
	volume      float64
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true, listeners: 1, volume: 1.0}
}

func (f *fakeTransport) Play(streamURL string, volume float64, onFinish func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, streamURL)
	f.finishes = append(f.finishes, onFinish)
	if len(f.playErrs) > 0 {
		err := f.playErrs[0]
		f.playErrs = f.playErrs[1:]
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTransport) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeTransport) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) ListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listeners
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
	return nil
}

func (f *fakeTransport) setListeners(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = n
}

func (f *fakeTransport) playedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.played))
	copy(out, f.played)
	return out
}

// finishCallback returns the onFinish handed over by the i-th Play call, so
// tests can fire a pipeline's completion at a chosen moment.
func (f *fakeTransport) finishCallback(i int) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishes[i]
}

func waitForPlayed(t *testing.T, ft *fakeTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(ft.playedURLs()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d playback starts, got %v", n, ft.playedURLs())
}

func newTestPlayer(t *testing.T, cfg Config) (*Player, *fakeExtractor, *fakeTransport, *cache.Manager) {
	t.Helper()
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Dir = ""
	c := cache.NewManager(cacheCfg, zap.NewNop())
	fx := newFakeExtractor()
	ft := newFakeTransport()
	r := NewResolver(c, fx, zap.NewNop())
	p := NewPlayer("guild-1", r, c, ft, nil, cfg, zap.NewNop(), nil)
	t.Cleanup(p.Stop)
	return p, fx, ft, c
}

func addPlaylist(fx *fakeExtractor, url string, n int, resolvable int) {
	pl := &extractor.PlaylistInfo{Title: "Mix", WebpageURL: url}
	for i := 0; i < n; i++ {
		entryURL := fmt.Sprintf("https://example.com/watch/%d", i)
		pl.Entries = append(pl.Entries, extractor.PlaylistEntry{URL: entryURL, Title: fmt.Sprintf("Track %d", i)})
		if i < resolvable {
			fx.addTrack(entryURL, entryURL, fmt.Sprintf("https://cdn/%d", i), fmt.Sprintf("Track %d", i))
		}
	}
	fx.playlists[url] = pl
}

func TestPlayer_SkipVoting(t *testing.T) {
	p, _, _, _ := newTestPlayer(t, DefaultPlayerConfig())
	p.setCurrent(&Track{Title: "current", RequesterID: "requester"})

	res, err := p.Skip("voter-1")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Votes)

	// Repeat vote from the same user is a no-op.
	res, err = p.Skip("voter-1")
	require.NoError(t, err)
	assert.True(t, res.AlreadyVoted)
	assert.Equal(t, 1, res.Votes)

	res, err = p.Skip("voter-2")
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	// Third distinct voter forces the skip.
	res, err = p.Skip("voter-3")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 3, res.Votes)
}

func TestPlayer_RequesterSkipsUnconditionally(t *testing.T) {
	p, _, ft, _ := newTestPlayer(t, DefaultPlayerConfig())
	p.setCurrent(&Track{Title: "current", RequesterID: "requester"})

	res, err := p.Skip("requester")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, ft.stops)
}

func TestPlayer_SkipWithNothingPlaying(t *testing.T) {
	p, _, _, _ := newTestPlayer(t, DefaultPlayerConfig())

	_, err := p.Skip("someone")
	var stateErr *StateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestPlayer_VotesClearOnTrackChange(t *testing.T) {
	p, _, _, _ := newTestPlayer(t, DefaultPlayerConfig())
	p.setCurrent(&Track{Title: "one", RequesterID: "requester"})

	_, err := p.Skip("voter-1")
	require.NoError(t, err)

	p.setCurrent(&Track{Title: "two", RequesterID: "requester"})
	res, err := p.Skip("voter-1")
	require.NoError(t, err)
	assert.False(t, res.AlreadyVoted, "votes are per-track")
	assert.Equal(t, 1, res.Votes)
}

func TestPlayer_SkipDoesNotCutNextTrackShort(t *testing.T) {
	p, _, ft, _ := newTestPlayer(t, DefaultPlayerConfig())
	for _, name := range []string{"A", "B", "C"} {
		p.Enqueue(&Track{
			Title:       name,
			WebpageURL:  "https://example.com/watch/" + name,
			StreamURL:   "https://cdn/" + name,
			RequesterID: "requester",
		})
	}

	go p.Run()
	waitForPlayed(t, ft, 1)

	res, err := p.Skip("requester")
	require.NoError(t, err)
	require.True(t, res.Skipped)
	waitForPlayed(t, ft, 2)

	// The halted pipeline winds down and reports A's end only now, while
	// B is already playing. That late report must not finish B.
	ft.finishCallback(0)()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"https://cdn/A", "https://cdn/B"}, ft.playedURLs())
	require.NotNil(t, p.Current())
	assert.Equal(t, "B", p.Current().Title)

	// B's own completion still advances the loop.
	ft.finishCallback(1)()
	waitForPlayed(t, ft, 3)
	assert.Equal(t, "https://cdn/C", ft.playedURLs()[2])
}

func TestPlayer_PlaylistTracksKeepRequester(t *testing.T) {
	p, fx, ft, _ := newTestPlayer(t, DefaultPlayerConfig())
	addPlaylist(fx, "https://example.com/pl", 5, 5)

	_, err := p.LoadPlaylist(context.Background(), "https://example.com/pl", "requester")
	require.NoError(t, err)

	for _, tr := range p.Queue().Slice(0, 5) {
		assert.Equal(t, "requester", tr.RequesterID)
	}

	// The user who queued the playlist skips its tracks without votes.
	tr, err := p.queue.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	p.setCurrent(tr)

	res, err := p.Skip("requester")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, ft.stops)
}

func TestPlayer_CursorAdvancesByAttempted(t *testing.T) {
	cfg := DefaultPlayerConfig()
	cfg.BatchSize = 10
	p, fx, _, _ := newTestPlayer(t, cfg)

	// 10 entries, only 6 resolvable: the cursor still moves past all 10.
	addPlaylist(fx, "https://example.com/pl", 10, 6)

	status, err := p.LoadPlaylist(context.Background(), "https://example.com/pl", "requester")
	require.NoError(t, err)

	assert.Equal(t, 10, status.Loaded, "cursor counts attempts, not successes")
	assert.Equal(t, 10, status.Total)
	assert.Equal(t, 6, p.Queue().Len())

	// Nothing left to attempt; a second batch is a no-op.
	assert.Zero(t, p.loadNextBatch())
}

func TestPlayer_PlaylistAutoContinuation(t *testing.T) {
	cfg := DefaultPlayerConfig()
	cfg.BatchSize = 15
	cfg.LowWatermark = 3
	p, fx, _, _ := newTestPlayer(t, cfg)

	addPlaylist(fx, "https://example.com/pl", 20, 20)

	status, err := p.LoadPlaylist(context.Background(), "https://example.com/pl", "requester")
	require.NoError(t, err)
	assert.Equal(t, 15, status.Loaded)
	assert.Equal(t, 15, p.Queue().Len())

	// Simulate 12 plays; queue drops to the low watermark.
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := p.queue.Pop(ctx, time.Second)
		require.NoError(t, err)
	}
	require.Equal(t, 3, p.Queue().Len())

	// At the watermark the next batch loads synchronously.
	p.maybeExtendPlaylist()

	status = p.Playlist()
	assert.Equal(t, 20, status.Loaded)
	assert.Equal(t, 8, p.Queue().Len())
}

func TestPlayer_LoopReResolutionFailureDisablesLoop(t *testing.T) {
	p, _, _, _ := newTestPlayer(t, DefaultPlayerConfig())

	// Current track's URL is unknown to the extractor, so re-resolution fails.
	p.setCurrent(&Track{Title: "gone", WebpageURL: "https://example.com/gone"})
	p.setLoop(true)

	got := p.loopedTrack()
	assert.Nil(t, got, "failed re-resolution must not replay the track")
	assert.False(t, p.Looping(), "loop disables itself on failure")
	assert.Nil(t, p.Current())
}

func TestPlayer_RecoverableStreamErrorRetriesOnce(t *testing.T) {
	p, fx, ft, _ := newTestPlayer(t, DefaultPlayerConfig())
	fx.addTrack("q", "https://example.com/watch/1", "https://cdn/fresh", "Track")

	ft.playErrs = []error{errors.New("HTTP Error 403: Forbidden"), nil}

	track := &Track{Title: "Track", WebpageURL: "https://example.com/watch/1", StreamURL: "https://cdn/stale"}
	require.NoError(t, p.startPlayback(track))

	played := ft.playedURLs()
	require.Len(t, played, 2)
	assert.Equal(t, "https://cdn/stale", played[0])
	assert.Equal(t, "https://cdn/fresh", played[1], "retry uses the re-resolved URL")
}

func TestPlayer_GenericTransportErrorNotRetried(t *testing.T) {
	p, fx, ft, _ := newTestPlayer(t, DefaultPlayerConfig())
	fx.addTrack("q", "https://example.com/watch/1", "https://cdn/1", "Track")

	ft.playErrs = []error{errors.New("encoder exploded")}

	track := &Track{Title: "Track", WebpageURL: "https://example.com/watch/1", StreamURL: "https://cdn/1"}
	err := p.startPlayback(track)
	assert.Error(t, err)
	assert.Len(t, ft.playedURLs(), 1)
}

func TestPlayer_IdleDisconnect(t *testing.T) {
	cfg := DefaultPlayerConfig()
	cfg.IdleDelay = 40 * time.Millisecond
	p, _, ft, _ := newTestPlayer(t, cfg)

	// Channel empties; timer arms. A rejoin before expiry must cancel
	// the disconnect (aloneness is re-verified at expiry).
	ft.setListeners(0)
	p.HandleVoiceMembership()
	ft.setListeners(1)
	p.HandleVoiceMembership()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, ft.disconnects)

	// Empty again with nobody coming back: the player tears down.
	ft.setListeners(0)
	p.HandleVoiceMembership()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, ft.disconnects)
}

func TestPlayer_StopEvictsPlaylistCache(t *testing.T) {
	p, fx, ft, c := newTestPlayer(t, DefaultPlayerConfig())
	addPlaylist(fx, "https://example.com/pl", 5, 5)

	_, err := p.LoadPlaylist(context.Background(), "https://example.com/pl", "requester")
	require.NoError(t, err)
	_, ok := c.PlaylistData("https://example.com/pl")
	require.True(t, ok)

	p.Stop()

	_, ok = c.PlaylistData("https://example.com/pl")
	assert.False(t, ok, "explicit stop must not leave stale playlist data")
	assert.Zero(t, p.Queue().Len())
	assert.Equal(t, 1, ft.disconnects)

	// Stop is idempotent.
	p.Stop()
	assert.Equal(t, 1, ft.disconnects)
}

func TestPlayer_SetVolume(t *testing.T) {
	p, _, ft, _ := newTestPlayer(t, DefaultPlayerConfig())

	require.NoError(t, p.SetVolume(50))
	assert.InDelta(t, 0.5, p.Volume(), 1e-9)
	assert.InDelta(t, 0.5, ft.volume, 1e-9)

	assert.Error(t, p.SetVolume(150))
	assert.Error(t, p.SetVolume(-1))
}

func TestRegistry_AcquireAndTeardown(t *testing.T) {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Dir = ""
	c := cache.NewManager(cacheCfg, zap.NewNop())
	r := NewResolver(c, newFakeExtractor(), zap.NewNop())
	reg := NewRegistry(r, c, DefaultPlayerConfig(), zap.NewNop())

	ft := newFakeTransport()
	p1 := reg.Acquire("guild-1", ft, nil)
	p2 := reg.Acquire("guild-1", ft, nil)
	assert.Same(t, p1, p2, "acquire is create-if-absent")
	assert.Equal(t, 1, reg.Count())

	p1.Stop()
	_, ok := reg.Get("guild-1")
	assert.False(t, ok, "teardown removes the player")
	assert.Zero(t, reg.Count())
}
