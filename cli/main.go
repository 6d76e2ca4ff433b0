// Command releasetracker runs the full pipeline: periodic video discovery
// and post generation, plus the Telegram moderation bot.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"releasetracker/config"
	rthttp "releasetracker/http"
	"releasetracker/llm"
	"releasetracker/queue"
	"releasetracker/retry"
	"releasetracker/storage"
	"releasetracker/telegram"
	"releasetracker/tracker"
	"releasetracker/youtube"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("releasetracker: config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := storage.NewDocuments(cfg.DataDir)
	if err != nil {
		log.Fatalf("releasetracker: storage: %v", err)
	}
	// A missing channel registry means nothing to track. Better to die now
	// than to log the same skip every cycle.
	channels, err := docs.LoadChannels()
	if err != nil {
		log.Fatalf("releasetracker: channel registry: %v", err)
	}
	log.Printf("releasetracker: tracking %d channel(s)", len(channels))

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries
	retryCfg.InitialBackoff = cfg.InitialBackoff
	retryCfg.MaxBackoff = cfg.MaxBackoff
	retryCfg.Multiplier = cfg.BackoffMultiplier

	feedHTTP := rthttp.DefaultConfig()
	feedHTTP.Retry = retryCfg
	feedClient := rthttp.New(feedHTTP)
	defer feedClient.Close()

	genHTTP := rthttp.DefaultConfig()
	genHTTP.Retry = retryCfg
	genHTTP.Timeout = cfg.GeneratorTimeout
	genClient := rthttp.New(genHTTP)
	defer genClient.Close()

	apiLister, err := youtube.NewAPILister(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		log.Fatalf("releasetracker: youtube api: %v", err)
	}
	feedLister := youtube.NewFeedLister(feedClient)

	dayBegin, dayEnd, err := cfg.DayWindow()
	if err != nil {
		log.Fatalf("releasetracker: %v", err)
	}
	engine := youtube.NewDiscoveryEngine(apiLister, feedLister, docs, dayBegin, dayEnd)

	pipeline := llm.NewPipeline(
		llm.NewClient(cfg.GeneratorEndpoint, cfg.GeneratorModel, genClient),
		llm.DefaultPipelineConfig(),
	)

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("releasetracker: telegram: %v", err)
	}

	q := queue.New(docs, pipeline, telegram.NewPublisher(botAPI), queue.Config{
		GroupsByGenre:      cfg.GroupsByGenre,
		DefaultDestination: cfg.DefaultDestination,
	})
	bot := telegram.NewBot(botAPI, q, cfg.ModeratorChatID)
	tr := tracker.New(engine, pipeline, q, cfg.CheckInterval())

	log.Printf("releasetracker: tracking window %s .. %s, checking every %s",
		dayBegin.Format("2006-01-02 15:04:05"), dayEnd.Format("2006-01-02 15:04:05"), cfg.CheckInterval())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tr.Run(ctx) })
	g.Go(func() error { return bot.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("releasetracker: %v", err)
	}
	log.Printf("releasetracker: shut down")
}
