package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, NormalizeQuery("Song A"), NormalizeQuery("song a"))
	assert.Equal(t, NormalizeQuery("  padded  "), NormalizeQuery("padded"))
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "tracking parameter stripped",
			a:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			b:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&index=4",
		},
		{
			name: "short link collides with watch URL",
			a:    "https://youtu.be/dQw4w9WgXcQ",
			b:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "embed URL collides with watch URL",
			a:    "https://www.youtube.com/embed/dQw4w9WgXcQ",
			b:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "non-youtube query string stripped",
			a:    "https://example.com/track/42?utm_source=share",
			b:    "https://example.com/track/42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, NormalizeURL(tt.a), NormalizeURL(tt.b))
		})
	}
}

func TestKey(t *testing.T) {
	a := Key("metadata", "some identifier")
	b := Key("metadata", "some identifier")
	c := Key("metadata", "other identifier")
	d := Key("stream", "some identifier")

	assert.Equal(t, a, b, "key derivation must be deterministic")
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d, "prefix must separate stores")
}
