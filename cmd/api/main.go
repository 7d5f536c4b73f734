package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-bot/internal/api/http"
	"github.com/spec-kit/helpdesk-bot/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-bot/internal/auth"
	"github.com/spec-kit/helpdesk-bot/internal/cache"
	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/chat"
	slackchat "github.com/spec-kit/helpdesk-bot/internal/chat/slack"
	"github.com/spec-kit/helpdesk-bot/internal/config"
	"github.com/spec-kit/helpdesk-bot/internal/events"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
	"github.com/spec-kit/helpdesk-bot/internal/persistence"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	"github.com/spec-kit/helpdesk-bot/internal/service"
	"github.com/spec-kit/helpdesk-bot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()

	checks := map[string]handlers.Pinger{"store": store.Health}

	var memberCache cache.MemberCache = cache.NewMemoryMemberCache(nil)
	if cfg.Redis.Addr != "" {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		memberCache = cache.NewRedisMemberCache(redis.Client, cfg.MemberCache.KeyPrefix)
		checks["redis"] = redis
	}

	var dispatcherChat chat.Dispatcher = chat.NewLogDispatcher(logger)
	var directory service.MemberDirectory
	if cfg.Slack.BotToken != "" {
		client, err := slackchat.New(slackchat.Config{BotToken: cfg.Slack.BotToken}, logger)
		if err != nil {
			logger.Fatal("failed to init slack client", zap.Error(err))
		}
		if err := client.Verify(ctx); err != nil {
			logger.Warn("slack token verification failed", zap.Error(err))
		}
		dispatcherChat = client
		directory = client
	} else {
		logger.Warn("SLACK_BOT_TOKEN not set, chat messages will only be logged")
	}

	templates := loadTemplates(cfg.Cards.TemplatesPath, logger)
	metrics := observability.NewMetrics()
	eventDispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets,
		HistoryRepo: store.History,
		IDGenerator: store.IDs,
		Templates:   templates,
		Dispatcher:  eventDispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	rosterService := service.NewRosterService(service.RosterDependencies{
		RosterRepo:   store.Rosters,
		Resolver:     service.NewMemberResolver(memberCache, directory, cfg.MemberCache.TTL(), logger),
		Dispatcher:   eventDispatcher,
		Metrics:      metrics,
		Logger:       logger,
		HistoryLimit: cfg.Roster.HistoryLimit,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Events:       eventDispatcher,
		Chat:         dispatcherChat,
		Tickets:      ticketService,
		Rosters:      rosterService,
		Logger:       logger,
		Metrics:      metrics,
		Config:       cfg.Notification,
		SMEChannelID: cfg.Slack.SMEChannelID,
	})
	worker.StartNotificationWorker(ctx, notificationService, cfg.Notification.BackfillLimit, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenIssuer, cfg.Auth.TokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Activities:   handlers.NewActivityHandler(ticketService, rosterService, cfg.Slack.TeamID, logger),
		Tickets:      handlers.NewTicketsHandler(ticketService),
		Roster:       handlers.NewRosterHandler(rosterService),
		ChannelAuth:  auth.NewChannelAuth(tokens),
		AdminKeyHash: cfg.Auth.AdminKeyHash,
		Metrics:      metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func loadTemplates(path string, logger *zap.Logger) cards.TemplateProvider {
	if path == "" {
		return cards.NewStaticTemplateProvider(nil)
	}
	provider, err := cards.LoadTemplateFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("card templates not found, intake uses fixed fields only", zap.String("path", path))
		return cards.NewStaticTemplateProvider(nil)
	}
	if err != nil {
		logger.Fatal("failed to load card templates", zap.String("path", path), zap.Error(err))
	}
	logger.Info("card templates loaded", zap.String("path", path))
	return provider
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
