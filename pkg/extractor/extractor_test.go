package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://www.youtube.com/watch?v=abc"))
	assert.True(t, IsURL("http://example.com"))
	assert.True(t, IsURL("www.example.com/track"))
	assert.False(t, IsURL("never gonna give you up"))
	assert.False(t, IsURL("lofi hip hop radio"))
}

func TestIsYouTubeURL(t *testing.T) {
	assert.True(t, IsYouTubeURL("https://www.youtube.com/watch?v=abc"))
	assert.True(t, IsYouTubeURL("https://youtu.be/abc"))
	assert.False(t, IsYouTubeURL("https://soundcloud.com/artist/track"))
}

func TestParseColonDuration(t *testing.T) {
	assert.Equal(t, 225, parseColonDuration("3:45"))
	assert.Equal(t, 3723, parseColonDuration("1:02:03"))
	assert.Equal(t, 7, parseColonDuration("0:07"))
	assert.Equal(t, 0, parseColonDuration(""))
	assert.Equal(t, 0, parseColonDuration("live"))
}

func TestParseSeconds(t *testing.T) {
	assert.Equal(t, 212, parseSeconds("212"))
	assert.Equal(t, 212, parseSeconds("212.5"))
	assert.Equal(t, 0, parseSeconds("NA"))
	assert.Equal(t, 0, parseSeconds(""))
}

func TestFirstLine(t *testing.T) {
	fields, ok := firstLine("a\tb\tc\n", 3)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, fields)

	_, ok = firstLine("a\tb", 3)
	assert.False(t, ok)

	// Noise lines before the payload are skipped.
	fields, ok = firstLine("warning\nu\tt\tc\td", 4)
	assert.True(t, ok)
	assert.Equal(t, "u", fields[0])
}

func TestFieldOrEmpty(t *testing.T) {
	fields := []string{"one", "NA"}
	assert.Equal(t, "one", fieldOrEmpty(fields, 0))
	assert.Equal(t, "", fieldOrEmpty(fields, 1), "NA placeholder maps to empty")
	assert.Equal(t, "", fieldOrEmpty(fields, 5))
}

func TestYouTubeThumbnailURL(t *testing.T) {
	assert.Equal(t,
		"https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
		youtubeThumbnailURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1"))
	assert.Equal(t, "", youtubeThumbnailURL("https://example.com/track"))
}
