package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// OrientationPolicy decides what happens when both roster orientations match.
type OrientationPolicy string

const (
	OrientationAccept OrientationPolicy = "accept"
	OrientationReject OrientationPolicy = "reject"
)

type Config struct {
	ContractAddress common.Address
	RPCURL          string
	MatchAPIURL     string

	WalletPrivateKey string
	WalletKeystore   string
	WalletPassphrase string
	ClefURL          string

	DBPath     string
	ServerPort string
	LogLevel   string

	DisplayLocation      *time.Location
	AmbiguousOrientation OrientationPolicy
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	contract := getEnv("CONTRACT_ADDRESS", "0x9fef9cb6026067b533fea49249a7151dc6b7bf0b")
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("CONTRACT_ADDRESS is not a valid address: %q", contract)
	}

	tz := getEnv("DISPLAY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", tz, err)
	}

	policy := OrientationPolicy(getEnv("AMBIGUOUS_ORIENTATION", string(OrientationAccept)))
	if policy != OrientationAccept && policy != OrientationReject {
		return nil, fmt.Errorf("AMBIGUOUS_ORIENTATION must be %q or %q, got %q", OrientationAccept, OrientationReject, policy)
	}

	cfg := &Config{
		ContractAddress:      common.HexToAddress(contract),
		RPCURL:               getEnv("RPC_URL", "https://rpc.soniclabs.com"),
		MatchAPIURL:          getEnv("MATCH_API_URL", "https://api.deadlock-api.com"),
		WalletPrivateKey:     getEnv("WALLET_PRIVATE_KEY", ""),
		WalletKeystore:       getEnv("WALLET_KEYSTORE", ""),
		WalletPassphrase:     getEnv("WALLET_PASSPHRASE", ""),
		ClefURL:              getEnv("CLEF_URL", ""),
		DBPath:               getEnv("DB_PATH", "challenge.db"),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DisplayLocation:      loc,
		AmbiguousOrientation: policy,
	}

	providers := 0
	for _, v := range []string{cfg.WalletPrivateKey, cfg.WalletKeystore, cfg.ClefURL} {
		if v != "" {
			providers++
		}
	}
	if providers > 1 {
		return nil, fmt.Errorf("only one of WALLET_PRIVATE_KEY, WALLET_KEYSTORE, CLEF_URL may be set")
	}

	logger.Info().
		Str("contract", cfg.ContractAddress.Hex()).
		Str("rpc_url", cfg.RPCURL).
		Str("match_api_url", cfg.MatchAPIURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("display_timezone", loc.String()).
		Str("ambiguous_orientation", string(policy)).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
