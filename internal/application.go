package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-udp/internal/config"
	"github.com/rocketscienceinc/tictactoe-udp/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-udp/internal/repository"
	"github.com/rocketscienceinc/tictactoe-udp/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-udp/internal/service"
	"github.com/rocketscienceinc/tictactoe-udp/internal/session"
	"github.com/rocketscienceinc/tictactoe-udp/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-udp/transport/rest"
	"github.com/rocketscienceinc/tictactoe-udp/transport/udp"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	results, closeResults, err := initResults(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer closeResults()

	conn, err := udp.Listen(conf.UDP.Port)
	if err != nil {
		return fmt.Errorf("could not open udp socket: %w", err)
	}

	gameSession := session.New(pkg.GenerateGameID)
	broadcaster := udp.NewBroadcaster(logger, conn)
	dispatcher := udp.NewDispatcher(logger, gameSession, broadcaster)
	udpServer := udp.New(logger, conf.UDP, conn, dispatcher)
	gameLoop := tictactoe.NewGameLoop(logger, gameSession, broadcaster, results)
	httpServer := rest.New(logger, conf.HTTPPort, rest.NewHandlers(logger, results, gameSession))

	// run UDP server
	udpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting UDP server", "port", conf.UDP.Port)
		if udpErr := udpServer.Start(ctx); udpErr != nil {
			log.Error("UDP server error", "error", udpErr)
			udpErrCh <- udpErr
		}
	}()

	// run game loop
	loopErrCh := make(chan error, 1)
	go func() {
		if loopErr := gameLoop.Run(ctx); loopErr != nil && ctx.Err() == nil {
			log.Error("Game loop error", "error", loopErr)
			loopErrCh <- loopErr
		}
	}()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := httpServer.Start(ctx); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-udpErrCh:
		return fmt.Errorf("UDP server error: %w", err)
	case err = <-loopErrCh:
		return fmt.Errorf("game loop error: %w", err)
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// initResults - connects the result storage, or falls back to keeping nothing.
func initResults(ctx context.Context, logger *slog.Logger, conf *config.Config) (service.ResultService, func(), error) {
	log := logger.With("component", "app")

	if !conf.Redis.Enabled {
		log.Info("Redis is disabled, game results are not kept")
		return service.NewNoopResultService(), func() {}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == ":" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	resultRepo := repository.NewResultRepository(redisStorage.Connection, conf.Redis.ResultTTL, conf.Redis.RecentLimit)

	closeStorage := func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}

	return service.NewResultService(logger, resultRepo), closeStorage, nil
}
