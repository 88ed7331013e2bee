package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CONTRACT_ADDRESS", "RPC_URL", "MATCH_API_URL", "WALLET_PRIVATE_KEY", "WALLET_KEYSTORE",
		"WALLET_PASSPHRASE", "CLEF_URL", "DB_PATH", "SERVER_PORT", "LOG_LEVEL", "DISPLAY_TIMEZONE",
		"AMBIGUOUS_ORIENTATION",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x9fef9cb6026067b533fea49249a7151dc6b7bf0b"), cfg.ContractAddress)
	assert.Equal(t, "https://rpc.soniclabs.com", cfg.RPCURL)
	assert.Equal(t, "https://api.deadlock-api.com", cfg.MatchAPIURL)
	assert.Equal(t, "challenge.db", cfg.DBPath)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "UTC", cfg.DisplayLocation.String())
	assert.Equal(t, OrientationAccept, cfg.AmbiguousOrientation)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"bad address":    {"CONTRACT_ADDRESS": "0x1234"},
		"bad timezone":   {"DISPLAY_TIMEZONE": "Mars/Olympus"},
		"bad policy":     {"AMBIGUOUS_ORIENTATION": "maybe"},
		"two providers":  {"WALLET_PRIVATE_KEY": "01", "CLEF_URL": "http://localhost:8550"},
		"key + keystore": {"WALLET_PRIVATE_KEY": "01", "WALLET_KEYSTORE": "/tmp/k.json"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(zerolog.Nop())
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicyAndZone(t *testing.T) {
	clearEnv(t)
	t.Setenv("AMBIGUOUS_ORIENTATION", "reject")
	t.Setenv("DISPLAY_TIMEZONE", "Europe/Madrid")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, OrientationReject, cfg.AmbiguousOrientation)
	assert.Equal(t, "Europe/Madrid", cfg.DisplayLocation.String())
}
