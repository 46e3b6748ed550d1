package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/latoulicious/Kagura/internal/commands"
	"github.com/latoulicious/Kagura/internal/config"
	"github.com/latoulicious/Kagura/internal/handlers"
	"github.com/latoulicious/Kagura/internal/presence"
	"github.com/latoulicious/Kagura/pkg/cache"
	"github.com/latoulicious/Kagura/pkg/extractor"
	"github.com/latoulicious/Kagura/pkg/logging"
	"github.com/latoulicious/Kagura/pkg/player"
)

func main() {
	log := logging.New()
	defer log.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	// Shared caches: one set of stores serves every guild, keyed by
	// content identity.
	cacheManager := cache.NewManager(cache.Config{
		MetadataTTL: cfg.MetadataTTL,
		StreamTTL:   cfg.StreamTTL,
		PlaylistTTL: cfg.PlaylistTTL,
		SearchTTL:   cfg.SearchTTL,
		Dir:         cfg.CacheDir,
	}, log)
	if err := cacheManager.LoadFromDisk(); err != nil {
		log.Warn("starting with a cold cache", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cacheManager.Run(ctx, cfg.CleanupInterval)

	ytdlp := extractor.NewYTDLP(log)
	resolver := player.NewResolver(cacheManager, ytdlp, log)

	playerCfg := player.DefaultPlayerConfig()
	playerCfg.PopTimeout = cfg.QueueWaitTimeout
	playerCfg.BatchSize = cfg.BatchSize
	playerCfg.LowWatermark = cfg.LowWatermark
	playerCfg.Concurrency = cfg.BatchConcurrency
	playerCfg.IdleDelay = cfg.IdleDisconnect
	playerCfg.SkipVotesNeeded = cfg.SkipVotesNeeded
	registry := player.NewRegistry(resolver, cacheManager, playerCfg, log)

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal("failed to create Discord session", zap.Error(err))
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	presenceManager := presence.NewManager(dg, log)
	cmds := commands.New(registry, resolver, cacheManager, presenceManager, cfg, log)
	handler := handlers.New(cmds, registry, cfg.Prefix)

	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.VoiceStateUpdate)

	if err := dg.Open(); err != nil {
		log.Fatal("failed to open Discord session", zap.Error(err))
	}

	presenceManager.UpdateDefault()
	go presenceManager.Run(ctx)

	log.Info("bot is running, press CTRL-C to exit")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Info("shutting down")
	registry.StopAll()
	cancel()
	if err := cacheManager.Close(); err != nil {
		log.Warn("cache shutdown failed", zap.Error(err))
	}
	dg.Close()
}
