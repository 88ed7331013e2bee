package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"deadlock-challenge/internal/database"
	"deadlock-challenge/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *ActivityRepository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "activity.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewActivityRepository(db, zerolog.Nop())
}

func TestActivityRecordAndList(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []domain.Activity{
		{Kind: domain.ActivityCreate, ChallengeID: 1, Account: "0xc1", TxHash: "0xaa", Outcome: "success", CreatedAt: base},
		{Kind: domain.ActivityAccept, ChallengeID: 1, Account: "0xc2", Outcome: "error", Message: "Challenge is no longer open", CreatedAt: base.Add(time.Minute)},
		{Kind: domain.ActivityVerify, ChallengeID: 1, MatchID: 4242, Account: "0xc2", TxHash: "0xbb", Outcome: "success", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, repo.Record(ctx, &entries[i]))
		assert.NotEmpty(t, entries[i].ID)
	}

	got, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, domain.ActivityVerify, got[0].Kind)
	assert.Equal(t, uint64(4242), got[0].MatchID)
	assert.Equal(t, entries[2].ID, got[0].ID)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, "Challenge is no longer open", got[1].Message)
	assert.Equal(t, domain.ActivityCreate, got[2].Kind)

	got, err = repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestActivityRecordFillsDefaults(t *testing.T) {
	repo := newRepo(t)
	a := &domain.Activity{Kind: domain.ActivityConnect, Outcome: "cancelled"}

	require.NoError(t, repo.Record(context.Background(), a))
	assert.Len(t, a.ID, 21)
	assert.WithinDuration(t, time.Now(), a.CreatedAt, time.Minute)
}
