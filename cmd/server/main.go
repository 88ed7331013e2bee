package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"deadlock-challenge/internal/config"
	"deadlock-challenge/internal/constants"
	fxmodules "deadlock-challenge/internal/fx"
	"deadlock-challenge/internal/middleware"
	"deadlock-challenge/internal/server"
	"deadlock-challenge/internal/wallet"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(checkWallet),
		fx.Invoke(runServer),
	).Run()
}

// checkWallet adopts an already-authorized account without prompting.
func checkWallet(lc fx.Lifecycle, session *wallet.Session, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if account, ok := session.ActiveAccount(ctx); ok {
				logger.Info().Str("account", account.Hex()).Msg("wallet already connected")
			} else {
				logger.Info().Msg("wallet not connected; call Connect to authorize")
			}
			return nil
		},
	})
}

func runServer(
	lc fx.Lifecycle,
	challengeServer *server.ChallengeServer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()

	path, handler := challengeServer.Handler()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	})

	mux.Handle(path, middleware.RequestID(logger)(handler))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           c.Handler(mux),
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Str("path", path).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
