package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrDiscordTokenNotSet = errors.New("DISCORD_TOKEN is not set")

// Config carries everything the bot reads from the environment. A .env
// file in the working directory is loaded first when present.
type Config struct {
	DiscordToken string
	Prefix       string

	// Cache tiers.
	CacheDir        string
	MetadataTTL     time.Duration
	StreamTTL       time.Duration
	PlaylistTTL     time.Duration
	SearchTTL       time.Duration
	CleanupInterval time.Duration

	// Playback loop tuning.
	QueueWaitTimeout time.Duration
	IdleDisconnect   time.Duration
	BatchSize        int
	LowWatermark     int
	BatchConcurrency int
	SkipVotesNeeded  int
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, ErrDiscordTokenNotSet
	}

	return &Config{
		DiscordToken: token,
		Prefix:       envString("COMMAND_PREFIX", "!"),

		CacheDir:        envString("CACHE_DIR", "cache"),
		MetadataTTL:     envDuration("CACHE_METADATA_TTL", 2*time.Hour),
		StreamTTL:       envDuration("CACHE_STREAM_TTL", 30*time.Minute),
		PlaylistTTL:     envDuration("CACHE_PLAYLIST_TTL", time.Hour),
		SearchTTL:       envDuration("CACHE_SEARCH_TTL", 30*time.Minute),
		CleanupInterval: envDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),

		QueueWaitTimeout: envDuration("QUEUE_WAIT_TIMEOUT", 3*time.Minute),
		IdleDisconnect:   envDuration("IDLE_DISCONNECT", 5*time.Minute),
		BatchSize:        envInt("PLAYLIST_BATCH_SIZE", 15),
		LowWatermark:     envInt("PLAYLIST_LOW_WATERMARK", 3),
		BatchConcurrency: envInt("PLAYLIST_CONCURRENCY", 4),
		SkipVotesNeeded:  envInt("SKIP_VOTES_NEEDED", 3),
	}, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
