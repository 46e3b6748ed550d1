package extractor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/pkg/errors"
	"github.com/ppalone/ytsearch"
	"go.uber.org/zap"
)

const extractTimeout = 30 * time.Second

// YTDLP extracts metadata and stream URLs through yt-dlp, with a native
// fast path for plain YouTube URLs that avoids spawning a subprocess.
type YTDLP struct {
	log    *zap.Logger
	native *nativeResolver
}

// NewYTDLP creates the default extractor.
func NewYTDLP(log *zap.Logger) *YTDLP {
	return &YTDLP{
		log:    log,
		native: newNativeResolver(log),
	}
}

// newCommand returns a yt-dlp command with the bot's baseline flags.
func (y *YTDLP) newCommand() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings()

	if proxy := os.Getenv("YOUTUBE_PROXY"); proxy != "" {
		cmd.Proxy(proxy)
	}
	return cmd
}

// Probe resolves a query to canonical metadata without extracting a stream
// URL. Free-text queries go through search; URLs get a lightweight
// metadata-only extraction.
func (y *YTDLP) Probe(ctx context.Context, query string) (*TrackInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	if !IsURL(query) {
		results, err := y.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, errors.Wrapf(ErrNotFound, "couldn't find anything that matches %q", query)
		}
		r := results[0]
		return &TrackInfo{
			Title:      r.Title,
			Uploader:   r.Uploader,
			Duration:   r.Duration,
			WebpageURL: r.URL,
			Thumbnail:  youtubeThumbnailURL(r.URL),
		}, nil
	}

	if IsYouTubeURL(query) {
		if info, err := y.native.probe(ctx, query); err == nil {
			return info, nil
		} else {
			y.log.Debug("native probe failed, falling back to yt-dlp",
				zap.String("url", query), zap.Error(err))
		}
	}
	return y.probeYTDLP(ctx, query)
}

func (y *YTDLP) probeYTDLP(ctx context.Context, webpageURL string) (*TrackInfo, error) {
	res, err := y.newCommand().
		Print("%(webpage_url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(upload_date)s\t%(view_count)s").
		IgnoreConfig().
		NoWarnings().
		Run(ctx, "--skip-download", "--no-playlist", webpageURL)
	if err != nil {
		return nil, classifyRunError(err, res, webpageURL)
	}

	fields, ok := firstLine(res.Stdout, 4)
	if !ok {
		return nil, errors.Wrapf(ErrNoEntries, "couldn't fetch %q", webpageURL)
	}

	info := &TrackInfo{
		WebpageURL: fields[0],
		Title:      fields[1],
		Uploader:   fieldOrEmpty(fields, 2),
		Duration:   parseSeconds(fieldOrEmpty(fields, 3)),
		Thumbnail:  fieldOrEmpty(fields, 4),
		UploadDate: fieldOrEmpty(fields, 5),
	}
	if v := fieldOrEmpty(fields, 6); v != "" {
		info.ViewCount, _ = strconv.ParseInt(v, 10, 64)
	}
	return info, nil
}

// Resolve performs a full extraction, returning metadata plus a live
// stream URL. Plain YouTube URLs are tried natively first.
func (y *YTDLP) Resolve(ctx context.Context, webpageURL string) (*TrackInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	if IsYouTubeURL(webpageURL) {
		if info, err := y.native.resolve(ctx, webpageURL); err == nil {
			return info, nil
		} else {
			y.log.Debug("native resolve failed, falling back to yt-dlp",
				zap.String("url", webpageURL), zap.Error(err))
		}
	}
	return y.resolveYTDLP(ctx, webpageURL)
}

func (y *YTDLP) resolveYTDLP(ctx context.Context, webpageURL string) (*TrackInfo, error) {
	res, err := y.newCommand().
		Print("%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(webpage_url)s").
		IgnoreConfig().
		NoWarnings().
		Run(ctx,
			"-f", "bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best",
			"--skip-download", "--no-playlist", webpageURL)
	if err != nil {
		return nil, classifyRunError(err, res, webpageURL)
	}

	fields, ok := firstLine(res.Stdout, 2)
	if !ok || fields[0] == "" {
		return nil, errors.Wrapf(ErrNoEntries, "no stream URL for %q", webpageURL)
	}

	info := &TrackInfo{
		StreamURL:  fields[0],
		Title:      fieldOrEmpty(fields, 1),
		Uploader:   fieldOrEmpty(fields, 2),
		Duration:   parseSeconds(fieldOrEmpty(fields, 3)),
		Thumbnail:  fieldOrEmpty(fields, 4),
		WebpageURL: fieldOrEmpty(fields, 5),
	}
	if info.WebpageURL == "" {
		info.WebpageURL = webpageURL
	}
	return info, nil
}

// ProbePlaylist extracts a playlist's title and flat entry list.
func (y *YTDLP) ProbePlaylist(ctx context.Context, playlistURL string) (*PlaylistInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*extractTimeout)
	defer cancel()

	if IsYouTubeURL(playlistURL) && strings.Contains(playlistURL, "list=") {
		if pl, err := y.native.probePlaylist(ctx, playlistURL); err == nil {
			return pl, nil
		} else if errors.Is(err, ErrNotPlaylist) {
			return nil, err
		} else {
			y.log.Debug("native playlist probe failed, falling back to yt-dlp",
				zap.String("url", playlistURL), zap.Error(err))
		}
	}

	res, err := y.newCommand().
		FlatPlaylist().
		Print("%(playlist_title)s\t%(url)s\t%(title)s\t%(uploader)s\t%(id)s").
		IgnoreConfig().
		NoWarnings().
		Run(ctx, playlistURL, "--yes-playlist")
	if err != nil {
		return nil, classifyRunError(err, res, playlistURL)
	}

	isYouTube := IsYouTubeURL(playlistURL)
	pl := &PlaylistInfo{WebpageURL: playlistURL}
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			continue
		}
		if pl.Title == "" && fields[0] != "" && fields[0] != "NA" {
			pl.Title = fields[0]
		}

		entryURL := fields[1]
		if isYouTube && len(fields) >= 5 && fields[4] != "" && fields[4] != "NA" {
			entryURL = "https://www.youtube.com/watch?v=" + fields[4]
		}
		if entryURL == "" || entryURL == "NA" {
			continue
		}
		pl.Entries = append(pl.Entries, PlaylistEntry{
			URL:      entryURL,
			Title:    fieldOrEmpty(fields, 2),
			Uploader: fieldOrEmpty(fields, 3),
		})
	}

	if len(pl.Entries) == 0 {
		return nil, errors.Wrapf(ErrNoEntries, "no valid entries in playlist %q", playlistURL)
	}
	if len(pl.Entries) <= 1 {
		return nil, ErrNotPlaylist
	}
	return pl, nil
}

// Search runs a free-text search and returns the top results.
func (y *YTDLP) Search(ctx context.Context, query string) ([]SearchResult, error) {
	c := ytsearch.NewClient(nil)
	res, err := c.Search(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "search failed for %q", query)
	}

	results := make([]SearchResult, 0, len(res.Results))
	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		results = append(results, SearchResult{
			URL:      "https://www.youtube.com/watch?v=" + v.VideoID,
			Title:    v.Title,
			Uploader: v.Channel,
			Duration: parseColonDuration(v.Duration),
		})
	}
	return results, nil
}

// classifyRunError maps yt-dlp failures onto the extractor sentinels.
func classifyRunError(err error, res *ytdlp.Result, source string) error {
	stderr := ""
	if res != nil {
		stderr = strings.ToLower(res.Stderr)
	}
	switch {
	case strings.Contains(stderr, "did not match any"),
		strings.Contains(stderr, "unable to download webpage"),
		strings.Contains(stderr, "404"):
		return errors.Wrapf(ErrNotFound, "couldn't find anything that matches %q", source)
	default:
		return errors.Wrapf(err, "yt-dlp extraction failed for %q: %s", source, stderr)
	}
}

func firstLine(stdout string, minFields int) ([]string, bool) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) >= minFields {
			return fields, true
		}
	}
	return nil, false
}

func fieldOrEmpty(fields []string, i int) string {
	if i >= len(fields) || fields[i] == "NA" {
		return ""
	}
	return fields[i]
}

// parseSeconds parses yt-dlp's duration output (seconds, possibly "NA").
func parseSeconds(s string) int {
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// parseColonDuration parses "3:45" or "1:02:03" into seconds.
func parseColonDuration(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// youtubeThumbnailURL builds a thumbnail URL from a watch URL.
func youtubeThumbnailURL(watchURL string) string {
	const prefix = "watch?v="
	i := strings.Index(watchURL, prefix)
	if i < 0 {
		return ""
	}
	id := watchURL[i+len(prefix):]
	if j := strings.IndexAny(id, "&?"); j >= 0 {
		id = id[:j]
	}
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", id)
}
