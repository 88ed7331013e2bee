package fx

import (
	"deadlock-challenge/internal/api"
	"deadlock-challenge/internal/config"
	"deadlock-challenge/internal/database"
	"deadlock-challenge/internal/ledger"
	"deadlock-challenge/internal/logger"
	"deadlock-challenge/internal/repository"
	"deadlock-challenge/internal/server"
	"deadlock-challenge/internal/service"
	"deadlock-challenge/internal/wallet"

	"go.uber.org/fx"
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewActivityRepository),
	// ledger
	fx.Provide(ledger.Dial),
	fx.Provide(fx.Annotate(
		ledger.NewFromConfig,
		fx.As(fx.Self()),
		fx.As(new(service.ChallengeLedger)),
		fx.As(new(service.ChallengeSource)),
		fx.As(new(wallet.ChainIDSource)),
	)),
	// api client
	fx.Provide(fx.Annotate(
		api.NewDeadlockClient,
		fx.As(new(service.MatchSource)),
	)),
	// wallet
	fx.Provide(wallet.NewProvider),
	fx.Provide(wallet.NewSession),
	// svc
	fx.Provide(service.NewChallengeReader),
	fx.Provide(service.NewChallengeWriter),
	fx.Provide(service.NewMatchVerifier),
	// server
	fx.Provide(server.NewChallengeServer),
)
