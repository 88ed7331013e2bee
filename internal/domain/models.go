package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type PlayerID uint64

// Team is a fixed six-slot roster as stored on the ledger. A zero team is unset.
type Team [6]PlayerID

func (t Team) IsZero() bool {
	return t == Team{}
}

type Status uint8

const (
	StatusCreated Status = iota
	StatusAccepted
	StatusPaid
	StatusDisputed
	StatusCancelled
)

var statusNames = [...]string{"Created", "Accepted", "Paid", "Disputed", "Cancelled"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("%d", uint8(s))
}

// Challenge is the read projection of a ledger challenge record.
type Challenge struct {
	ID                uint64
	Captain1          common.Address
	Captain2          common.Address
	MatchIDPredefined uint64
	ChallengingTeam   Team
	AcceptingTeam     Team
	RequiredStartTime int64
	CreationTime      int64
	AcceptTime        int64
	Status            Status
	AmountStaked      *big.Int
	WinningTeamIndex  uint8
	PaidMatchID       uint64
}

// IsOpen reports whether the challenge can still be accepted.
func (c *Challenge) IsOpen() bool {
	return c.ID != 0 && c.Status == StatusCreated
}

type ReportPlayer struct {
	AccountID PlayerID
	Team      int
}

// MatchReport is the external match service's record of a played match.
type MatchReport struct {
	MatchID     uint64
	StartTime   int64
	WinningTeam *int
	Players     []ReportPlayer
}

type ActivityKind string

const (
	ActivityConnect ActivityKind = "connect"
	ActivityCreate  ActivityKind = "create"
	ActivityAccept  ActivityKind = "accept"
	ActivityVerify  ActivityKind = "verify"
)

type Activity struct {
	ID          string // nanoid
	Kind        ActivityKind
	ChallengeID uint64
	MatchID     uint64
	Account     string
	TxHash      string
	Outcome     string // "success", "error", "cancelled"
	Message     string
	CreatedAt   time.Time
}
