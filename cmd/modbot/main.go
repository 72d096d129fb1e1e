package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/modbot/internal/api/http"
	"github.com/spec-kit/modbot/internal/api/http/handlers"
	"github.com/spec-kit/modbot/internal/auth"
	"github.com/spec-kit/modbot/internal/automod"
	"github.com/spec-kit/modbot/internal/bot"
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/events"
	"github.com/spec-kit/modbot/internal/interaction"
	"github.com/spec-kit/modbot/internal/observability"
	"github.com/spec-kit/modbot/internal/persistence"
	"github.com/spec-kit/modbot/internal/platform/discord"
	"github.com/spec-kit/modbot/internal/repository"
	"github.com/spec-kit/modbot/internal/sanction"
	"github.com/spec-kit/modbot/internal/service"
	"github.com/spec-kit/modbot/internal/store"
	"github.com/spec-kit/modbot/internal/worker"
)

func main() {
	app := &cli.App{
		Name:   "modbot",
		Usage:  "guild moderation, ticket and suggestion bot",
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "connect to the gateway and serve the admin API",
				Action: runBot,
			},
			{
				Name:  "mint-token",
				Usage: "issue a bearer token for the admin API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "operator", Required: true, Usage: "operator name recorded in the token"},
					&cli.StringSliceFlag{Name: "scope", Value: cli.NewStringSlice(auth.ScopeRead), Usage: "granted scopes (read, admin)"},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime; defaults to ADMIN_TOKEN_TTL_MINUTES"},
				},
				Action: mintToken,
			},
		},
	}
	app.RunAndExitOnError()
}

func mintToken(cctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.AccessTokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(cctx.String("operator"), cctx.StringSlice("scope"), cctx.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, token)
	fmt.Fprintf(cctx.App.ErrWriter, "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}

func runBot(cctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	var auditRepo repository.AuditRepository
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		auditRepo = repository.NewAuditRepository(pg.PoolHandle())
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	var ledger interaction.Ledger
	if cfg.Ledger.Backend == "redis" {
		ledger = interaction.NewRedisLedger(rdb.Client, cfg.Ledger.TTL)
	} else {
		ledger = interaction.NewMemLedger(cfg.Ledger.Capacity, cfg.Ledger.TTL)
	}

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	client := discord.NewClient(session)

	dispatcher := events.NewInMemoryDispatcher(logger)
	perms := auth.NewPermissions(cfg.Roles, cfg.Tickets.SupportRoles)
	scheduler := sanction.NewScheduler(30*time.Second, logger.Named("sanctions"))
	defer scheduler.Stop()
	cleanup := worker.NewCleanupWorker(logger, 3, time.Second)
	defer cleanup.Stop()

	dataDir := cfg.Store.DataDir
	moderation := service.NewModerationService(service.ModerationDependencies{
		Repo:        repository.NewModerationRepository(store.NewCollection(dataDir, "moderation", domain.NewModerationDocument, logger)),
		Client:      client,
		Permissions: perms,
		Scheduler:   scheduler,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Punishments: cfg.Punishments,
		MutedRole:   cfg.Roles.Muted,
		GuildID:     cfg.Discord.GuildID,
		Logger:      logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Repo:        repository.NewTicketRepository(store.NewCollection(dataDir, "tickets", domain.NewTicketDocument, logger)),
		Client:      client,
		Permissions: perms,
		Dispatcher:  dispatcher,
		Cleanup:     cleanup,
		Tickets:     cfg.Tickets,
		Channels:    cfg.Channels,
		GuildID:     cfg.Discord.GuildID,
		Logger:      logger,
	})
	suggestions := service.NewSuggestionService(service.SuggestionDependencies{
		Repo:        repository.NewSuggestionRepository(store.NewCollection(dataDir, "suggestions", domain.NewSuggestionDocument, logger)),
		Client:      client,
		Permissions: perms,
		Dispatcher:  dispatcher,
		Suggestions: cfg.Suggestions,
		Channels:    cfg.Channels,
		Logger:      logger,
	})
	audit := service.NewAuditService(dispatcher, client, auditRepo, cfg.Channels, logger)
	worker.StartAuditWorker(audit)

	restored, err := moderation.RestoreSanctions(ctx)
	if err != nil {
		logger.Warn("sanction restore incomplete", zap.Error(err))
	}
	logger.Info("sanctions restored", zap.Int("count", restored))

	var chain *automod.Chain
	if cfg.AutoMod.Enabled {
		chain = automod.NewChain(automod.ChainDependencies{
			Client:      client,
			Permissions: perms,
			Sanctions:   moderation,
			Dispatcher:  dispatcher,
			Cleanup:     cleanup,
			Metrics:     metrics,
			Config:      cfg.AutoMod,
			Logger:      logger,
		})
	}

	router := interaction.NewRouter(interaction.RouterDependencies{
		Ledger:  ledger,
		Metrics: metrics,
		Logger:  logger,
	})
	core := bot.New(bot.Dependencies{
		Router:      router,
		Moderation:  moderation,
		Tickets:     tickets,
		Suggestions: suggestions,
		Chain:       chain,
		Client:      client,
		Dispatcher:  dispatcher,
		Roles:       cfg.Roles,
		GuildID:     cfg.Discord.GuildID,
		Logger:      logger,
	})

	gateway := discord.NewGateway(session, discord.GatewayConfig{
		Token:    cfg.Discord.Token,
		ClientID: cfg.Discord.ClientID,
		GuildID:  cfg.Discord.GuildID,
		Commands: discord.Commands(cfg.Tickets),
	}, core, logger)
	if err := gateway.Open(); err != nil {
		return err
	}
	defer gateway.Close() //nolint:errcheck

	var admin *fiber.App
	if cfg.Admin.Enabled {
		admin = newAdminApp(cfg, logger, metrics, pg, rdb, moderation, tickets, suggestions, audit)
		go func() {
			if err := admin.Listen(cfg.Admin.Addr()); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("admin api stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("modbot running",
		zap.String("guild_id", cfg.Discord.GuildID),
		zap.Bool("automod", chain != nil),
		zap.String("ledger", cfg.Ledger.Backend))
	waitForShutdown(ctx, logger)

	if admin != nil {
		_ = admin.ShutdownWithTimeout(5 * time.Second)
	}
	return nil
}

func newAdminApp(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
	pg *persistence.Postgres,
	rdb *persistence.Redis,
	moderation *service.ModerationService,
	tickets *service.TicketService,
	suggestions *service.SuggestionService,
	audit *service.AuditService,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.Admin.RequestTimeout())

	tokens := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.AccessTokenTTLMinutes)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    rdb,
		}),
		Moderation:     handlers.NewModerationHandler(moderation),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Suggestions:    handlers.NewSuggestionsHandler(suggestions),
		Audit:          handlers.NewAuditHandler(audit),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return app
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", strings.ToLower(sig.String())))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}
