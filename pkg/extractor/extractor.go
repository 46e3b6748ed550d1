// Package extractor wraps the external media-metadata service behind a
// narrow interface: probe a query, resolve a stream URL, probe a playlist.
// The rest of the bot never assumes anything about the protocol beyond
// these outcomes plus a generic failure.
package extractor

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound means the extractor found nothing for a query.
	ErrNotFound = errors.New("no results found")

	// ErrNoEntries means extraction succeeded but yielded no usable entries.
	ErrNoEntries = errors.New("no usable entries")

	// ErrNotPlaylist means the URL resolved to a single item, not a playlist.
	ErrNotPlaylist = errors.New("not a playlist")
)

// TrackInfo is the reduced projection of one extracted track. StreamURL is
// only populated by Resolve; Probe leaves it empty.
type TrackInfo struct {
	Title       string
	Uploader    string
	UploaderURL string
	Duration    int // seconds
	Thumbnail   string
	Description string
	WebpageURL  string
	StreamURL   string
	ViewCount   int64
	UploadDate  string // YYYYMMDD
}

// PlaylistEntry is one track reference from a playlist probe.
type PlaylistEntry struct {
	URL      string
	Title    string
	Uploader string
}

// PlaylistInfo is the result of probing a playlist URL.
type PlaylistInfo struct {
	Title       string
	Uploader    string
	Description string
	WebpageURL  string
	Entries     []PlaylistEntry
}

// SearchResult is one hit from a free-text search.
type SearchResult struct {
	URL      string
	Title    string
	Uploader string
	Duration int // seconds
}

// Extractor is the external media-metadata collaborator.
type Extractor interface {
	// Probe resolves a free-text query or URL to canonical metadata
	// without performing the expensive stream-URL extraction.
	Probe(ctx context.Context, query string) (*TrackInfo, error)

	// Resolve performs a full extraction against a canonical webpage URL,
	// returning metadata plus a live (time-limited) stream URL.
	Resolve(ctx context.Context, webpageURL string) (*TrackInfo, error)

	// ProbePlaylist extracts a playlist's title and ordered entries, or
	// ErrNotPlaylist when the URL points at a single item.
	ProbePlaylist(ctx context.Context, playlistURL string) (*PlaylistInfo, error)

	// Search returns multiple results for a free-text query.
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// IsURL reports whether the input looks like a URL rather than a search query.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}

// IsYouTubeURL reports whether a URL appears to be from YouTube.
func IsYouTubeURL(s string) bool {
	return strings.Contains(s, "youtube.com") || strings.Contains(s, "youtu.be")
}
