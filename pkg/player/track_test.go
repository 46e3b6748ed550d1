package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{-5, "0s"},
		{45, "45s"},
		{60, "1m"},
		{225, "3m 45s"},
		{3600, "1h"},
		{3725, "1h 2m 5s"},
		{86400, "1d"},
		{90061, "1d 1h 1m 1s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestTrack_DurationString(t *testing.T) {
	tr := &Track{Title: "song", Duration: 212}
	assert.Equal(t, "3m 32s", tr.DurationString())
}
