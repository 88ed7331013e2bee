package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"deadlock-challenge/internal/constants"
	"deadlock-challenge/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ActivityRepository journals every flow this process ran. It is an audit
// trail only; challenge state is always re-read from the ledger.
type ActivityRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewActivityRepository(sqlDB *sql.DB, logger zerolog.Logger) *ActivityRepository {
	return &ActivityRepository{db: sqlDB, logger: logger}
}

const insertActivity = `
INSERT INTO activity (id, kind, challenge_id, match_id, account, tx_hash, outcome, message, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const listActivity = `
SELECT id, kind, challenge_id, match_id, account, tx_hash, outcome, message, created_at
FROM activity
ORDER BY created_at DESC, id
LIMIT ?`

// Record stores a, filling ID and CreatedAt when they are unset.
func (r *ActivityRepository) Record(ctx context.Context, a *domain.Activity) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if a.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		a.ID = id
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, insertActivity,
		a.ID,
		string(a.Kind),
		int64(a.ChallengeID),
		int64(a.MatchID),
		a.Account,
		a.TxHash,
		a.Outcome,
		a.Message,
		a.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("kind", string(a.Kind)).Msg("failed to record activity")
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// List returns the newest entries first. limit is clamped to
// [1, ActivityMaxLimit]; zero means the default.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]domain.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	switch {
	case limit <= 0:
		limit = constants.ActivityDefaultLimit
	case limit > constants.ActivityMaxLimit:
		limit = constants.ActivityMaxLimit
	}

	rows, err := r.db.QueryContext(ctx, listActivity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Activity, 0, limit)
	for rows.Next() {
		var (
			a                    domain.Activity
			kind                 string
			challengeID, matchID int64
		)
		if err := rows.Scan(&a.ID, &kind, &challengeID, &matchID, &a.Account, &a.TxHash, &a.Outcome, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Kind = domain.ActivityKind(kind)
		a.ChallengeID = uint64(challengeID)
		a.MatchID = uint64(matchID)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}

	r.logger.Debug().Int("count", len(result)).Int("limit", limit).Msg("activity listed")
	return result, nil
}
