package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Store defaults mirror the volatility of each data kind: metadata is
// stable for hours, server-issued stream URLs go stale in tens of minutes.
const (
	metadataMaxSize = 2000
	streamMaxSize   = 500
	playlistMaxSize = 200
	searchMaxSize   = 1000

	// Search results are capped before caching to bound memory.
	maxSearchResults = 20
)

// Metadata is the reduced projection of extracted track metadata that the
// cache stores. Never the raw extractor payload.
type Metadata struct {
	Title       string `json:"title"`
	Uploader    string `json:"uploader"`
	UploaderURL string `json:"uploader_url,omitempty"`
	Duration    int    `json:"duration"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Description string `json:"description,omitempty"`
	WebpageURL  string `json:"webpage_url"`
	ViewCount   int64  `json:"view_count,omitempty"`
	LikeCount   int64  `json:"like_count,omitempty"`
	UploadDate  string `json:"upload_date,omitempty"`
}

// PlaylistEntry is one track reference inside a cached playlist.
type PlaylistEntry struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Uploader string `json:"uploader,omitempty"`
}

// Playlist is the cached form of an extracted playlist.
type Playlist struct {
	Title       string          `json:"title"`
	Uploader    string          `json:"uploader,omitempty"`
	Description string          `json:"description,omitempty"`
	WebpageURL  string          `json:"webpage_url"`
	Entries     []PlaylistEntry `json:"entries"`
	EntryCount  int             `json:"entry_count"`
}

// SearchResult is one cached search hit.
type SearchResult struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Uploader string `json:"uploader,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

type streamEntry struct {
	StreamURL  string `json:"stream_url"`
	WebpageURL string `json:"webpage_url"`
}

// Config carries the per-store TTLs and the persistence directory.
type Config struct {
	MetadataTTL time.Duration
	StreamTTL   time.Duration
	PlaylistTTL time.Duration
	SearchTTL   time.Duration

	// Dir is where the metadata cache is persisted across restarts.
	// Empty disables persistence.
	Dir string
}

// DefaultConfig returns the standard TTL tiers.
func DefaultConfig() Config {
	return Config{
		MetadataTTL: 2 * time.Hour,
		StreamTTL:   30 * time.Minute,
		PlaylistTTL: time.Hour,
		SearchTTL:   30 * time.Minute,
		Dir:         "cache",
	}
}

// ManagerStats aggregates the per-store counters.
type ManagerStats struct {
	Metadata     Stats
	Stream       Stats
	Playlist     Stats
	Search       Stats
	TotalEntries int
	Saves        uint64
	Loads        uint64
	Uptime       time.Duration
}

// Manager routes each logical data kind to its dedicated store and owns
// key normalization, disk persistence and the background sweep loop.
//
// Every operation is a best-effort side channel: cache failures are logged
// and swallowed, never propagated to the playback path.
type Manager struct {
	metadata  *Store[Metadata]
	streams   *Store[streamEntry]
	playlists *Store[Playlist]
	searches  *Store[[]SearchResult]

	disk  *diskStore
	log   *zap.Logger
	saves atomic.Uint64
	loads atomic.Uint64
	start time.Time
}

// NewManager creates the four stores. Persistence failures degrade to a
// memory-only cache rather than failing construction.
func NewManager(cfg Config, log *zap.Logger) *Manager {
	m := &Manager{
		metadata:  NewStore[Metadata](metadataMaxSize, cfg.MetadataTTL),
		streams:   NewStore[streamEntry](streamMaxSize, cfg.StreamTTL),
		playlists: NewStore[Playlist](playlistMaxSize, cfg.PlaylistTTL),
		searches:  NewStore[[]SearchResult](searchMaxSize, cfg.SearchTTL),
		log:       log,
		start:     time.Now(),
	}

	if cfg.Dir != "" {
		disk, err := openDiskStore(cfg.Dir)
		if err != nil {
			log.Warn("cache persistence unavailable, running memory-only", zap.Error(err))
		} else {
			m.disk = disk
		}
	}
	return m
}

// SongMetadata returns cached metadata for a search query or URL.
func (m *Manager) SongMetadata(query string) (Metadata, bool) {
	return m.metadata.Get(Key("metadata", NormalizeQuery(query)))
}

// CacheSongMetadata stores track metadata under the normalized query.
func (m *Manager) CacheSongMetadata(query string, md Metadata) {
	m.metadata.Put(Key("metadata", NormalizeQuery(query)), md)
}

// StreamURL returns a cached live stream URL for a track's webpage URL.
// A miss here with a metadata hit means "reuse metadata, resolve a fresh
// stream" — the two stores expire independently.
func (m *Manager) StreamURL(webpageURL string) (string, bool) {
	entry, ok := m.streams.Get(Key("stream", NormalizeURL(webpageURL)))
	if !ok {
		return "", false
	}
	return entry.StreamURL, true
}

// CacheStreamURL stores a stream URL under the normalized webpage URL.
func (m *Manager) CacheStreamURL(webpageURL, streamURL string) {
	normalized := NormalizeURL(webpageURL)
	m.streams.Put(Key("stream", normalized), streamEntry{
		StreamURL:  streamURL,
		WebpageURL: normalized,
	})
}

// PlaylistData returns cached playlist contents for a playlist URL.
func (m *Manager) PlaylistData(playlistURL string) (Playlist, bool) {
	return m.playlists.Get(Key("playlist", NormalizeURL(playlistURL)))
}

// CachePlaylistData stores playlist contents. Entry lists can run to
// hundreds of items; only TTL and LRU bound them.
func (m *Manager) CachePlaylistData(playlistURL string, pl Playlist) {
	pl.WebpageURL = NormalizeURL(playlistURL)
	pl.EntryCount = len(pl.Entries)
	m.playlists.Put(Key("playlist", pl.WebpageURL), pl)
}

// DeletePlaylistData evicts a playlist entry, used on explicit stop so a
// later load of the same playlist is not served stale data.
func (m *Manager) DeletePlaylistData(playlistURL string) bool {
	return m.playlists.Delete(Key("playlist", NormalizeURL(playlistURL)))
}

// SearchResults returns cached results for a search query.
func (m *Manager) SearchResults(query string) ([]SearchResult, bool) {
	return m.searches.Get(Key("search", NormalizeQuery(query)))
}

// CacheSearchResults stores search results, capped at the top 20 to bound
// memory regardless of how many came back upstream.
func (m *Manager) CacheSearchResults(query string, results []SearchResult) {
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	m.searches.Put(Key("search", NormalizeQuery(query)), results)
}

// CleanupExpired sweeps expired entries from all four stores.
func (m *Manager) CleanupExpired() int {
	total := m.metadata.CleanupExpired() +
		m.streams.CleanupExpired() +
		m.playlists.CleanupExpired() +
		m.searches.CleanupExpired()
	if total > 0 {
		m.log.Debug("cleaned expired cache entries", zap.Int("count", total))
	}
	return total
}

// SaveToDisk persists the metadata store's unexpired entries. Stream URLs
// are deliberately not persisted; they would be invalid by next startup.
func (m *Manager) SaveToDisk() error {
	if m.disk == nil {
		return nil
	}
	snapshot := m.metadata.Snapshot()
	if err := m.disk.SaveMetadata(snapshot); err != nil {
		m.log.Warn("failed to save cache to disk", zap.Error(err))
		return err
	}
	m.saves.Add(1)
	m.log.Debug("saved metadata cache to disk", zap.Int("entries", len(snapshot)))
	return nil
}

// LoadFromDisk restores persisted metadata entries at startup.
func (m *Manager) LoadFromDisk() error {
	if m.disk == nil {
		return nil
	}
	entries, err := m.disk.LoadMetadata()
	if err != nil {
		m.log.Warn("failed to load cache from disk", zap.Error(err))
		return err
	}
	restored := m.metadata.Restore(entries)
	m.loads.Add(1)
	m.log.Info("loaded metadata cache from disk", zap.Int("entries", restored))
	return nil
}

// Run executes the background maintenance loop: sleep, sweep expired
// entries, save to disk, repeat until the context is cancelled. A failed
// iteration is logged and does not stop the loop.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpired()
			if err := m.SaveToDisk(); err != nil {
				m.log.Warn("background cache save failed", zap.Error(err))
			}
		}
	}
}

// ClearAll wipes every store and resets all counters.
func (m *Manager) ClearAll() {
	m.metadata.Clear()
	m.streams.Clear()
	m.playlists.Clear()
	m.searches.Clear()
	m.log.Info("cache cleared")
}

// Stats returns the aggregate cache report.
func (m *Manager) Stats() ManagerStats {
	md := m.metadata.Stats()
	st := m.streams.Stats()
	pl := m.playlists.Stats()
	se := m.searches.Stats()
	return ManagerStats{
		Metadata:     md,
		Stream:       st,
		Playlist:     pl,
		Search:       se,
		TotalEntries: md.Size + st.Size + pl.Size + se.Size,
		Saves:        m.saves.Load(),
		Loads:        m.loads.Load(),
		Uptime:       time.Since(m.start),
	}
}

// TopAccessedMetadata exposes the hottest metadata entries.
func (m *Manager) TopAccessedMetadata(n int) []AccessStat {
	return m.metadata.TopAccessed(n)
}

// Close saves a final snapshot and releases the disk store.
func (m *Manager) Close() error {
	if m.disk == nil {
		return nil
	}
	if err := m.SaveToDisk(); err != nil {
		m.log.Warn("final cache save failed", zap.Error(err))
	}
	return m.disk.Close()
}
