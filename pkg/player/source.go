package player

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/latoulicious/Kagura/pkg/cache"
	"github.com/latoulicious/Kagura/pkg/extractor"
)

// Resolver turns user queries into playable tracks, consulting the cache
// before the extractor at every step.
type Resolver struct {
	cache     *cache.Manager
	extractor extractor.Extractor
	log       *zap.Logger
}

func NewResolver(c *cache.Manager, ex extractor.Extractor, log *zap.Logger) *Resolver {
	return &Resolver{cache: c, extractor: ex, log: log}
}

// NewSource resolves a query into a track with a live stream URL bound.
// Full miss goes two-phase: probe the query for a canonical webpage URL,
// then resolve that URL for the actual stream.
func (r *Resolver) NewSource(ctx context.Context, query, requesterID string) (*Track, error) {
	track, err := r.NewLazySource(ctx, query, requesterID)
	if err != nil {
		return nil, err
	}
	if err := r.RefreshStreamURL(ctx, track); err != nil {
		return nil, err
	}
	return track, nil
}

// NewLazySource resolves only metadata, deferring the expensive stream-URL
// extraction until the track is about to play. Playlist prefetch uses this
// path so bulk loading stays cheap.
func (r *Resolver) NewLazySource(ctx context.Context, query, requesterID string) (*Track, error) {
	md, err := r.metadataFor(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Track{
		Title:       md.Title,
		Uploader:    md.Uploader,
		Duration:    md.Duration,
		Thumbnail:   md.Thumbnail,
		WebpageURL:  md.WebpageURL,
		RequesterID: requesterID,
		Lazy:        true,
	}, nil
}

// RefreshStreamURL binds (or re-binds) a live stream URL to the track. Safe
// on lazy tracks (first resolution) and on previously-played tracks whose
// URL has expired. The stream cache is consulted first and repopulated on
// a fresh extraction.
func (r *Resolver) RefreshStreamURL(ctx context.Context, t *Track) error {
	if t.WebpageURL == "" {
		return &ResolutionError{URL: t.Title, Err: extractor.ErrNotFound}
	}

	if url, ok := r.cache.StreamURL(t.WebpageURL); ok {
		t.StreamURL = url
		t.Lazy = false
		return nil
	}

	info, err := r.extractor.Resolve(ctx, t.WebpageURL)
	if err != nil {
		return &ResolutionError{URL: t.WebpageURL, Err: err}
	}
	if info.StreamURL == "" {
		return &ResolutionError{URL: t.WebpageURL, Err: extractor.ErrNoEntries}
	}

	t.StreamURL = info.StreamURL
	t.Lazy = false
	r.cache.CacheStreamURL(t.WebpageURL, info.StreamURL)

	// A full resolve returns metadata too; keep the cache warm with it.
	if info.Title != "" {
		r.cache.CacheSongMetadata(t.WebpageURL, metadataFromInfo(info))
	}
	return nil
}

// Playlist loads playlist contents, cache first.
func (r *Resolver) Playlist(ctx context.Context, playlistURL string) (cache.Playlist, error) {
	if pl, ok := r.cache.PlaylistData(playlistURL); ok {
		return pl, nil
	}

	info, err := r.extractor.ProbePlaylist(ctx, playlistURL)
	if err != nil {
		return cache.Playlist{}, err
	}

	pl := cache.Playlist{
		Title:       info.Title,
		Uploader:    info.Uploader,
		Description: info.Description,
		WebpageURL:  info.WebpageURL,
		Entries:     make([]cache.PlaylistEntry, 0, len(info.Entries)),
	}
	for _, e := range info.Entries {
		pl.Entries = append(pl.Entries, cache.PlaylistEntry{
			URL:      e.URL,
			Title:    e.Title,
			Uploader: e.Uploader,
		})
	}
	r.cache.CachePlaylistData(playlistURL, pl)
	pl.EntryCount = len(pl.Entries)
	return pl, nil
}

// Search returns search results for a free-text query, cache first.
func (r *Resolver) Search(ctx context.Context, query string) ([]cache.SearchResult, error) {
	if cached, ok := r.cache.SearchResults(query); ok {
		return cached, nil
	}

	hits, err := r.extractor.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, &NotFoundError{Query: query}
	}

	results := make([]cache.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, cache.SearchResult{
			URL:      h.URL,
			Title:    h.Title,
			Uploader: h.Uploader,
			Duration: h.Duration,
		})
	}
	r.cache.CacheSearchResults(query, results)
	return results, nil
}

func (r *Resolver) metadataFor(ctx context.Context, query string) (cache.Metadata, error) {
	if md, ok := r.cache.SongMetadata(query); ok {
		return md, nil
	}

	info, err := r.extractor.Probe(ctx, query)
	if err != nil {
		if isNotFound(err) {
			return cache.Metadata{}, &NotFoundError{Query: query}
		}
		return cache.Metadata{}, &ResolutionError{URL: query, Err: err}
	}

	md := metadataFromInfo(info)

	// Cache under the original query and the canonical URL so a later
	// direct-URL request for the same track also hits.
	r.cache.CacheSongMetadata(query, md)
	if md.WebpageURL != "" && md.WebpageURL != query {
		r.cache.CacheSongMetadata(md.WebpageURL, md)
	}
	return md, nil
}

func metadataFromInfo(info *extractor.TrackInfo) cache.Metadata {
	return cache.Metadata{
		Title:       info.Title,
		Uploader:    info.Uploader,
		UploaderURL: info.UploaderURL,
		Duration:    info.Duration,
		Thumbnail:   info.Thumbnail,
		Description: info.Description,
		WebpageURL:  info.WebpageURL,
		ViewCount:   info.ViewCount,
		UploadDate:  info.UploadDate,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, extractor.ErrNotFound) || errors.Is(err, extractor.ErrNoEntries)
}
