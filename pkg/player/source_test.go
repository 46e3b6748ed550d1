package player

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/latoulicious/Kagura/pkg/cache"
	"github.com/latoulicious/Kagura/pkg/extractor"
)

// fakeExtractor serves canned responses and counts calls so tests can
// assert on cache effectiveness.
type fakeExtractor struct {
	mu        sync.Mutex
	probes    map[string]*extractor.TrackInfo
	resolves  map[string]*extractor.TrackInfo
	playlists map[string]*extractor.PlaylistInfo
	searches  map[string][]extractor.SearchResult

	probeCalls   int
	resolveCalls int
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		probes:    make(map[string]*extractor.TrackInfo),
		resolves:  make(map[string]*extractor.TrackInfo),
		playlists: make(map[string]*extractor.PlaylistInfo),
		searches:  make(map[string][]extractor.SearchResult),
	}
}

func (f *fakeExtractor) addTrack(query, pageURL, streamURL, title string) {
	info := &extractor.TrackInfo{Title: title, WebpageURL: pageURL, Duration: 200}
	f.probes[query] = info
	f.probes[pageURL] = info
	resolved := *info
	resolved.StreamURL = streamURL
	f.resolves[pageURL] = &resolved
}

func (f *fakeExtractor) Probe(_ context.Context, query string) (*extractor.TrackInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	if info, ok := f.probes[query]; ok {
		return info, nil
	}
	return nil, extractor.ErrNotFound
}

func (f *fakeExtractor) Resolve(_ context.Context, url string) (*extractor.TrackInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	if info, ok := f.resolves[url]; ok {
		return info, nil
	}
	return nil, extractor.ErrNotFound
}

func (f *fakeExtractor) ProbePlaylist(_ context.Context, url string) (*extractor.PlaylistInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pl, ok := f.playlists[url]; ok {
		return pl, nil
	}
	return nil, extractor.ErrNotFound
}

func (f *fakeExtractor) Search(_ context.Context, query string) ([]extractor.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches[query], nil
}

func (f *fakeExtractor) calls() (probes, resolves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeCalls, f.resolveCalls
}

func newTestResolver(t *testing.T) (*Resolver, *fakeExtractor, *cache.Manager) {
	t.Helper()
	cfg := cache.DefaultConfig()
	cfg.Dir = ""
	c := cache.NewManager(cfg, zap.NewNop())
	fx := newFakeExtractor()
	return NewResolver(c, fx, zap.NewNop()), fx, c
}

func TestResolver_LazySource(t *testing.T) {
	r, fx, _ := newTestResolver(t)
	fx.addTrack("my song", "https://example.com/watch/1", "https://cdn/1", "My Song")

	tr, err := r.NewLazySource(context.Background(), "my song", "user-1")
	require.NoError(t, err)
	assert.True(t, tr.Lazy)
	assert.Empty(t, tr.StreamURL)
	assert.Equal(t, "My Song", tr.Title)
	assert.Equal(t, "user-1", tr.RequesterID)

	// Second lookup is served from the metadata cache.
	_, err = r.NewLazySource(context.Background(), "my song", "user-2")
	require.NoError(t, err)
	probes, resolves := fx.calls()
	assert.Equal(t, 1, probes)
	assert.Zero(t, resolves)
}

func TestResolver_EagerSource(t *testing.T) {
	r, fx, _ := newTestResolver(t)
	fx.addTrack("my song", "https://example.com/watch/1", "https://cdn/1", "My Song")

	tr, err := r.NewSource(context.Background(), "my song", "user-1")
	require.NoError(t, err)
	assert.False(t, tr.Lazy)
	assert.Equal(t, "https://cdn/1", tr.StreamURL)

	// Stream cache absorbs the second full resolution.
	_, err = r.NewSource(context.Background(), "my song", "user-2")
	require.NoError(t, err)
	_, resolves := fx.calls()
	assert.Equal(t, 1, resolves)
}

func TestResolver_RefreshAfterExpiry(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Dir = ""
	cfg.StreamTTL = 0 // stream entries expire immediately
	c := cache.NewManager(cfg, zap.NewNop())
	fx := newFakeExtractor()
	fx.addTrack("q", "https://example.com/watch/1", "https://cdn/1", "Track")
	r := NewResolver(c, fx, zap.NewNop())

	tr, err := r.NewLazySource(context.Background(), "q", "u")
	require.NoError(t, err)

	require.NoError(t, r.RefreshStreamURL(context.Background(), tr))
	require.NoError(t, r.RefreshStreamURL(context.Background(), tr))

	// With the cache expiring instantly every refresh re-extracts.
	_, resolves := fx.calls()
	assert.Equal(t, 2, resolves)
	assert.False(t, tr.Lazy)
}

func TestResolver_NotFound(t *testing.T) {
	r, _, _ := newTestResolver(t)

	_, err := r.NewLazySource(context.Background(), "does not exist", "u")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "does not exist", notFound.Query)
}

func TestResolver_ResolutionError(t *testing.T) {
	r, fx, _ := newTestResolver(t)

	// Probe succeeds, resolve yields nothing playable.
	fx.probes["broken"] = &extractor.TrackInfo{Title: "Broken", WebpageURL: "https://example.com/broken"}

	_, err := r.NewSource(context.Background(), "broken", "u")
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestResolver_PlaylistCached(t *testing.T) {
	r, fx, c := newTestResolver(t)
	fx.playlists["https://example.com/pl"] = &extractor.PlaylistInfo{
		Title:      "Mix",
		WebpageURL: "https://example.com/pl",
		Entries: []extractor.PlaylistEntry{
			{URL: "https://example.com/watch/1", Title: "One"},
			{URL: "https://example.com/watch/2", Title: "Two"},
		},
	}

	pl, err := r.Playlist(context.Background(), "https://example.com/pl")
	require.NoError(t, err)
	assert.Equal(t, "Mix", pl.Title)
	assert.Equal(t, 2, pl.EntryCount)

	_, ok := c.PlaylistData("https://example.com/pl")
	assert.True(t, ok)
}

func TestResolver_SearchCachesAndCaps(t *testing.T) {
	r, fx, _ := newTestResolver(t)
	hits := make([]extractor.SearchResult, 30)
	for i := range hits {
		hits[i] = extractor.SearchResult{URL: "https://example.com/watch", Title: "hit"}
	}
	fx.searches["lofi"] = hits

	results, err := r.Search(context.Background(), "lofi")
	require.NoError(t, err)
	assert.Len(t, results, 30, "fresh results pass through uncapped")

	cached, err := r.Search(context.Background(), "LOFI")
	require.NoError(t, err)
	assert.Len(t, cached, 20, "cached copy is capped")
}

func TestResolver_SearchNoHits(t *testing.T) {
	r, _, _ := newTestResolver(t)

	_, err := r.Search(context.Background(), "nothing")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
