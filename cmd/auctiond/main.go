package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jensholdgaard/cricket-auction/internal/auction"
	"github.com/jensholdgaard/cricket-auction/internal/bot"
	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/health"
	"github.com/jensholdgaard/cricket-auction/internal/httpapi"
	"github.com/jensholdgaard/cricket-auction/internal/leader"
	"github.com/jensholdgaard/cricket-auction/internal/roster"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/cricket-auction/internal/store/memstore"
	_ "github.com/jensholdgaard/cricket-auction/internal/store/pgxstore"
	_ "github.com/jensholdgaard/cricket-auction/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("AUCTIOND_CONFIG"), "path to an optional YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	wipe := flag.Bool("wipe", false, "delete all players and auctions, reset every team, then exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath, *wipe); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string, wipe bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.Telemetry.ServiceVersion = version

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to database", slog.String("driver", cfg.Database.Driver))

	auctionMgr, err := auction.NewManager(repos, cfg.Auction, logger, tp.TracerProvider, tp.MeterProvider)
	if err != nil {
		return fmt.Errorf("creating auction manager: %w", err)
	}
	rosterMgr := roster.NewManager(repos.Teams, repos.Players, cfg.Auction.InitialCredits, logger, tp.TracerProvider)

	if wipe {
		sum, err := auctionMgr.Wipe(ctx)
		if err != nil {
			return fmt.Errorf("wiping auction data: %w", err)
		}
		logger.InfoContext(ctx, "auction data wiped",
			slog.Int64("players", sum.Players),
			slog.Int64("auctions", sum.Auctions),
			slog.Int64("teams", sum.Teams),
		)
		return nil
	}

	healthHandler := health.NewHandler(clk, health.Store(repos.Ping))
	api := httpapi.New(auctionMgr, rosterMgr, logger)

	// Every replica serves HTTP; the store keeps concurrent writers consistent.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           httpapi.NewRouter(cfg.Server, api, healthHandler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting http server",
			slog.Int("port", cfg.Server.Port),
			slog.String("prefix", cfg.Server.RoutePrefix),
		)
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serveErr <- listenErr
			cancel()
		}
	}()

	// leaderWork seeds the franchise roster and runs the Discord auctioneer.
	// With leader election enabled only one replica runs it.
	leaderWork := func(ctx context.Context) {
		created, seedErr := rosterMgr.Seed(ctx, cfg.Auction.Teams)
		if seedErr != nil {
			logger.ErrorContext(ctx, "seeding teams failed", slog.Any("error", seedErr))
		} else if created > 0 {
			logger.InfoContext(ctx, "seeded teams", slog.Int("count", created))
		}

		var discordBot *bot.Bot
		if cfg.Discord.Enabled() {
			b, botErr := bot.New(cfg.Discord, auctionMgr, rosterMgr, logger, tp.TracerProvider)
			if botErr == nil {
				botErr = b.Start(ctx)
			}
			if botErr != nil {
				logger.ErrorContext(ctx, "starting discord auctioneer failed", slog.Any("error", botErr))
			} else {
				discordBot = b
			}
		}

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctiond is running", slog.String("version", version))

		<-ctx.Done()

		if discordBot != nil {
			if stopErr := discordBot.Stop(); stopErr != nil {
				logger.Error("discord shutdown error", slog.Any("error", stopErr))
			}
		}
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")
		healthHandler.SetReady(true)

		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger, leaderWork, func() {
			logger.Info("lost leadership, shutting down...")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		leaderWork(ctx)
	}

	logger.Info("shutting down...")
	healthHandler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
	}

	logger.Info("shutdown complete")
	return nil
}
