package server

import (
	"errors"
	"fmt"

	"deadlock-challenge/internal/constants"
	"deadlock-challenge/internal/ledger"
	"deadlock-challenge/internal/service"
	"deadlock-challenge/internal/wallet"
)

type StatusKind string

const (
	StatusSuccess   StatusKind = "success"
	StatusError     StatusKind = "error"
	StatusCancelled StatusKind = "cancelled"
	// StatusInfo carries neutral list messages such as "nothing open".
	StatusInfo StatusKind = "info"
)

// Status is the single line every flow reports back.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
}

func (s Status) String() string {
	return fmt.Sprintf("%s: %s", s.Kind, s.Message)
}

func success(format string, args ...any) Status {
	return Status{Kind: StatusSuccess, Message: fmt.Sprintf(format, args...)}
}

func info(msg string) Status {
	return Status{Kind: StatusInfo, Message: msg}
}

func stakeLabel() string {
	return service.FormatUnits(constants.StakeWei()) + " S"
}

// renderError maps a flow failure to what the user sees. Ledger rejections
// with a known reason get a curated message, unknown ones show the reason
// verbatim, and a declined signature is a cancellation rather than an error.
func renderError(err error) Status {
	var revert *ledger.RevertError

	switch {
	case errors.Is(err, wallet.ErrUserRejected):
		return Status{Kind: StatusCancelled, Message: "Transaction rejected by the user."}
	case errors.Is(err, wallet.ErrProviderMissing):
		return Status{Kind: StatusError, Message: "No wallet provider configured."}
	case errors.Is(err, wallet.ErrNotConnected):
		return Status{Kind: StatusError, Message: "Connect a wallet first."}
	case errors.Is(err, wallet.ErrActionInFlight):
		return Status{Kind: StatusError, Message: "Another action is already in progress."}
	case errors.Is(err, ledger.ErrWrongStake):
		return Status{Kind: StatusError, Message: fmt.Sprintf("Stake must be exactly %s.", stakeLabel())}
	case errors.Is(err, ledger.ErrChallengeNotOpen):
		return Status{Kind: StatusError, Message: "The challenge is no longer open."}
	case errors.Is(err, ledger.ErrSelfAccept):
		return Status{Kind: StatusError, Message: "You cannot accept your own challenge."}
	case errors.As(err, &revert) && revert.Reason != "":
		return Status{Kind: StatusError, Message: "Transaction failed: " + revert.Reason}
	case ledger.IsRevert(err):
		return Status{Kind: StatusError, Message: "Transaction reverted."}
	default:
		return Status{Kind: StatusError, Message: err.Error()}
	}
}
