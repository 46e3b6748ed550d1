package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`[a-zA-Z0-9_-]{11}`)

// NormalizeQuery canonicalizes a free-text search query so differently
// capitalized or padded queries collide into one cache slot.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// NormalizeURL canonicalizes a webpage URL for caching. YouTube URLs are
// reduced to their canonical watch URL so tracking and playlist parameters
// don't fragment the cache; other URLs are stripped of their query string.
func NormalizeURL(rawURL string) string {
	if isYouTubeURL(rawURL) {
		if id := extractYouTubeVideoID(rawURL); id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
	}
	if i := strings.Index(rawURL, "?"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// Key derives a cache key from a prefix and an already-normalized
// identifier. A content hash keeps key length uniform; cryptographic
// strength is not required here.
func Key(prefix, identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

func isYouTubeURL(rawURL string) bool {
	return strings.Contains(rawURL, "youtube.com") || strings.Contains(rawURL, "youtu.be")
}

// extractYouTubeVideoID pulls the 11-character video ID out of the common
// YouTube URL shapes (watch, embed, youtu.be short links).
func extractYouTubeVideoID(youtubeURL string) string {
	if strings.Contains(youtubeURL, "youtube.com") {
		parsedURL, err := url.Parse(youtubeURL)
		if err != nil {
			return ""
		}

		if videoID := parsedURL.Query().Get("v"); videoID != "" {
			return videoID
		}

		if strings.Contains(parsedURL.Path, "/embed/") {
			parts := strings.Split(parsedURL.Path, "/embed/")
			if len(parts) > 1 {
				return strings.Split(parts[1], "?")[0]
			}
		}
	}

	if strings.Contains(youtubeURL, "youtu.be") {
		parsedURL, err := url.Parse(youtubeURL)
		if err != nil {
			return ""
		}
		videoID := strings.TrimPrefix(parsedURL.Path, "/")
		return strings.Split(videoID, "?")[0]
	}

	if matches := videoIDPattern.FindAllString(youtubeURL, -1); len(matches) > 0 {
		return matches[0]
	}
	return ""
}
