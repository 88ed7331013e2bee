package matcher_test

import (
	"math/rand"
	"testing"

	"deadlock-challenge/internal/domain"
	"deadlock-challenge/internal/matcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func team(ids ...domain.PlayerID) domain.Team {
	var t domain.Team
	copy(t[:], ids)
	return t
}

func TestTeamsEqual(t *testing.T) {
	a := matcher.NewRoster(1, 2, 3, 4, 5, 6)
	shuffled := matcher.NewRoster(6, 5, 4, 3, 2, 1)
	other := matcher.NewRoster(1, 2, 3, 4, 5, 7)
	five := matcher.NewRoster(1, 2, 3, 4, 5)
	seven := matcher.NewRoster(1, 2, 3, 4, 5, 6, 7)

	tests := []struct {
		name string
		x, y matcher.Roster
		want bool
	}{
		{"identical", a, a, true},
		{"permuted", a, shuffled, true},
		{"one differs", a, other, false},
		{"short submitted", five, a, false},
		{"short reference", a, five, false},
		{"long", seven, seven, false},
		{"empty", matcher.NewRoster(), matcher.NewRoster(), false},
		{"nil", nil, a, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matcher.TeamsEqual(tc.x, tc.y))
			assert.Equal(t, tc.want, matcher.TeamsEqual(tc.y, tc.x), "must be symmetric")
		})
	}
}

func TestTeamRosterCollapsesDuplicates(t *testing.T) {
	r := matcher.TeamRoster(team(1, 1, 2, 3, 4, 5))
	assert.Len(t, r, 5)
	assert.False(t, matcher.TeamsEqual(r, matcher.NewRoster(1, 2, 3, 4, 5, 6)))
}

func TestReconcileTeamsOrientations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		base := domain.PlayerID(i*100 + 1)
		var a, b domain.Team
		for j := range a {
			a[j] = base + domain.PlayerID(j)
			b[j] = base + 50 + domain.PlayerID(j)
		}

		permA := a
		rng.Shuffle(len(permA), func(x, y int) { permA[x], permA[y] = permA[y], permA[x] })

		direct := matcher.ReconcileTeams(permA, b, matcher.TeamRoster(a), matcher.TeamRoster(b))
		require.True(t, direct.Matched)
		require.Equal(t, matcher.OrientationDirect, direct.Orientation)
		require.False(t, direct.Ambiguous)

		swapped := matcher.ReconcileTeams(permA, b, matcher.TeamRoster(b), matcher.TeamRoster(a))
		require.True(t, swapped.Matched)
		require.Equal(t, matcher.OrientationSwapped, swapped.Orientation)
	}
}

func TestReconcileTeamsAmbiguous(t *testing.T) {
	a := team(1, 2, 3, 4, 5, 6)
	r := matcher.ReconcileTeams(a, a, matcher.TeamRoster(a), matcher.TeamRoster(a))

	assert.True(t, r.Matched)
	assert.Equal(t, matcher.OrientationDirect, r.Orientation)
	assert.True(t, r.Ambiguous)
}

func TestReconcileTeamsMismatch(t *testing.T) {
	challenging := team(1, 2, 3, 4, 5, 6)
	accepting := team(7, 8, 9, 10, 11, 12)
	api0 := matcher.NewRoster(1, 2, 3, 4, 5, 7)
	api1 := matcher.NewRoster(6, 8, 9, 10, 11, 12)

	r := matcher.ReconcileTeams(challenging, accepting, api0, api1)
	assert.False(t, r.Matched)
	assert.Equal(t, matcher.OrientationNone, r.Orientation)
	assert.Empty(t, matcher.MissingPlayers(challenging, accepting, api0, api1))
}

func TestMissingPlayers(t *testing.T) {
	challenging := team(1, 2, 3, 4, 5, 99)
	accepting := team(7, 8, 9, 10, 11, 12)
	api0 := matcher.NewRoster(1, 2, 3, 4, 5, 6)
	api1 := matcher.NewRoster(7, 8, 9, 10, 11, 12)

	assert.Equal(t, []domain.PlayerID{99}, matcher.MissingPlayers(challenging, accepting, api0, api1))
}

func TestTimingValid(t *testing.T) {
	const accept = int64(1_700_000_000)

	for _, start := range []int64{accept - 3600, accept - 1, accept, accept + 1, accept + 86400} {
		assert.Equal(t, start >= accept, matcher.TimingValid(start, accept, 0), "start=%d", start)
	}

	req := accept + 600
	for _, start := range []int64{accept - 1, accept, req - 1, req, req + 1} {
		assert.Equal(t, start >= accept && start >= req, matcher.TimingValid(start, accept, req), "start=%d", start)
	}

	// a required bound earlier than acceptance never loosens the accept bound
	assert.False(t, matcher.TimingValid(accept-1, accept, accept-100))
}
