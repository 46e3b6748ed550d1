package extractor

import (
	"context"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// nativeResolver extracts YouTube streams through the InnerTube API
// directly, skipping the yt-dlp subprocess for the common case.
type nativeResolver struct {
	client *youtube.Client
	log    *zap.Logger
}

func newNativeResolver(log *zap.Logger) *nativeResolver {
	return &nativeResolver{
		client: &youtube.Client{},
		log:    log,
	}
}

func (n *nativeResolver) probe(ctx context.Context, url string) (*TrackInfo, error) {
	video, err := n.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "video lookup failed")
	}
	return n.trackInfo(video, ""), nil
}

func (n *nativeResolver) resolve(ctx context.Context, url string) (*TrackInfo, error) {
	video, err := n.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "video lookup failed")
	}

	format := pickAudioFormat(video)
	if format == nil {
		return nil, errors.Wrap(ErrNoEntries, "no audio formats")
	}

	streamURL, err := n.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return nil, errors.Wrap(err, "stream URL extraction failed")
	}
	return n.trackInfo(video, streamURL), nil
}

func (n *nativeResolver) probePlaylist(ctx context.Context, url string) (*PlaylistInfo, error) {
	pl, err := n.client.GetPlaylistContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "playlist lookup failed")
	}
	if len(pl.Videos) <= 1 {
		return nil, ErrNotPlaylist
	}

	info := &PlaylistInfo{
		Title:      pl.Title,
		Uploader:   pl.Author,
		WebpageURL: url,
		Entries:    make([]PlaylistEntry, 0, len(pl.Videos)),
	}
	for _, v := range pl.Videos {
		if v.ID == "" {
			continue
		}
		info.Entries = append(info.Entries, PlaylistEntry{
			URL:      "https://www.youtube.com/watch?v=" + v.ID,
			Title:    v.Title,
			Uploader: v.Author,
		})
	}
	if len(info.Entries) <= 1 {
		return nil, ErrNotPlaylist
	}
	return info, nil
}

func (n *nativeResolver) trackInfo(video *youtube.Video, streamURL string) *TrackInfo {
	info := &TrackInfo{
		Title:       video.Title,
		Uploader:    video.Author,
		Duration:    int(video.Duration.Seconds()),
		Description: video.Description,
		WebpageURL:  "https://www.youtube.com/watch?v=" + video.ID,
		StreamURL:   streamURL,
		ViewCount:   int64(video.Views),
	}
	if !video.PublishDate.IsZero() {
		info.UploadDate = video.PublishDate.Format("20060102")
	}
	if len(video.Thumbnails) > 0 {
		// Thumbnails are ordered smallest to largest.
		info.Thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}
	return info
}

// pickAudioFormat prefers Opus streams (itag 251 first), then any Opus,
// then whatever the bitrate sort puts on top.
func pickAudioFormat(video *youtube.Video) *youtube.Format {
	formats := video.Formats.WithAudioChannels()
	formats = formats.Type("audio")

	for i := range formats {
		if formats[i].ItagNo == 251 {
			return &formats[i]
		}
	}
	for i := range formats {
		if strings.Contains(formats[i].MimeType, "opus") {
			return &formats[i]
		}
	}
	if len(formats) > 0 {
		formats.Sort()
		return &formats[0]
	}
	return nil
}
