package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger *slog.Logger
	srv    *http.Server
}

// NewRouter - registers the routes of handlers behind the CORS middleware.
func NewRouter(handlers Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", handlers.PingHandler)
	mux.HandleFunc("GET /leaderboard", handlers.LeaderboardHandler)
	mux.HandleFunc("GET /results", handlers.ResultsHandler)
	mux.HandleFunc("GET /session", handlers.SessionHandler)

	return cors.Default().Handler(mux)
}

func New(logger *slog.Logger, port string, handlers Handlers) *Server {
	return &Server{
		logger: logger.With("component", "rest-server"),
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      NewRouter(handlers),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// Start - serves HTTP until ctx is done.
func (that *Server) Start(ctx context.Context) error {
	log := that.logger.With("method", "Start")

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving http", "addr", that.srv.Addr)
		errCh <- that.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := that.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}
