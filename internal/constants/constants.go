package constants

import (
	"math/big"
	"time"
)

const (
	ExternalAPITimeout = 10 * time.Second
	LedgerReadTimeout  = 15 * time.Second
	DatabaseTimeout    = 5 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 2
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout   = 5 * time.Second
	ReadHeaderTimeout = 10 * time.Second
)

const (
	TeamSize        = 6
	MatchPlayerSize = 2 * TeamSize

	// per-challenge reads in flight while listing
	ListFetchConcurrency = 16

	ActivityDefaultLimit = 50
	ActivityMaxLimit     = 500

	ShortHashLen = 10
)

// StakeUnits is the fixed stake per create/accept, in whole native units.
const StakeUnits = 5

// StakeWei is StakeUnits expressed in wei (18 decimals).
func StakeWei() *big.Int {
	return new(big.Int).Mul(big.NewInt(StakeUnits), big.NewInt(1e18))
}
