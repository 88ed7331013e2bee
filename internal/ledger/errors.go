package ledger

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrWrongStake       = errors.New("wrong stake amount")
	ErrChallengeNotOpen = errors.New("challenge is no longer open")
	ErrSelfAccept       = errors.New("creator cannot accept own challenge")
	ErrTxReverted       = errors.New("transaction reverted")
)

// RevertError is a ledger rejection. Code is one of the typed errors above
// when the reason is recognised and nil otherwise, in which case Reason is
// what should be shown.
type RevertError struct {
	Reason string
	Code   error
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

func (e *RevertError) Unwrap() error {
	return e.Code
}

// revertReasons maps contract require() messages to typed codes.
var revertReasons = []struct {
	substr string
	code   error
}{
	{"Must send exact stake amount", ErrWrongStake},
	{"Challenge not in Created state", ErrChallengeNotOpen},
	{"Creator cannot accept own challenge", ErrSelfAccept},
}

const revertPrefix = "execution reverted"

// ClassifyError turns a reverted call into a *RevertError and returns every
// other error unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	reason, ok := revertReason(err)
	if !ok {
		return err
	}

	for _, r := range revertReasons {
		if strings.Contains(reason, r.substr) {
			return &RevertError{Reason: reason, Code: r.code}
		}
	}
	return &RevertError{Reason: reason}
}

func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason, true
				}
			}
		}
	}

	msg := err.Error()
	idx := strings.Index(msg, revertPrefix)
	if idx < 0 {
		return "", false
	}
	reason := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(revertPrefix):], ":"))
	return reason, true
}

// IsRevert reports whether err is a ledger rejection of any kind.
func IsRevert(err error) bool {
	var rev *RevertError
	return errors.As(err, &rev) || errors.Is(err, ErrTxReverted)
}

