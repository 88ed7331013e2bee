package service

import (
	"math/big"
	"strings"
	"time"

	"deadlock-challenge/internal/constants"

	"github.com/ethereum/go-ethereum/common"
)

const timeLayout = "2006-01-02 15:04:05 MST"

var weiPerUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FormatTime renders a unix timestamp in loc. Only display is localized.
func FormatTime(unix int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(unix, 0).In(loc).Format(timeLayout)
}

// FormatUnits renders a wei amount as whole native units with trailing zero
// decimals trimmed, e.g. 5000000000000000000 -> "5", 1500000000000000000 -> "1.5".
func FormatUnits(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	whole, frac := new(big.Int).QuoRem(abs, weiPerUnit, new(big.Int))
	out := whole.String()
	if frac.Sign() != 0 {
		fs := frac.String()
		fs = strings.Repeat("0", 18-len(fs)) + fs
		out += "." + strings.TrimRight(fs, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ShortHash keeps the leading characters of a transaction hash for display.
func ShortHash(h common.Hash) string {
	s := h.Hex()
	if len(s) <= constants.ShortHashLen {
		return s
	}
	return s[:constants.ShortHashLen] + "..."
}
