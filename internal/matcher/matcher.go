// Package matcher compares on-chain rosters and timestamps with an external
// match report. Everything here is pure.
package matcher

import "deadlock-challenge/internal/domain"

const rosterSize = 6

type Orientation string

const (
	OrientationNone    Orientation = ""
	OrientationDirect  Orientation = "direct"
	OrientationSwapped Orientation = "swapped"
)

// Reconciliation is the outcome of ReconcileTeams.
type Reconciliation struct {
	Matched     bool
	Orientation Orientation
	// Ambiguous is set when both orientations hold; Orientation is then Direct.
	Ambiguous bool
}

// Roster is a set of player ids.
type Roster map[domain.PlayerID]struct{}

func NewRoster(ids ...domain.PlayerID) Roster {
	r := make(Roster, len(ids))
	for _, id := range ids {
		r[id] = struct{}{}
	}
	return r
}

func (r Roster) Has(id domain.PlayerID) bool {
	_, ok := r[id]
	return ok
}

// IDs returns the members in no particular order.
func (r Roster) IDs() []domain.PlayerID {
	ids := make([]domain.PlayerID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	return ids
}

// TeamsEqual is true iff both rosters have exactly six members and are set-equal.
func TeamsEqual(submitted, reference Roster) bool {
	if len(submitted) != rosterSize || len(reference) != rosterSize {
		return false
	}
	for id := range submitted {
		if !reference.Has(id) {
			return false
		}
	}
	return true
}

// TeamRoster converts a ledger team into a set. Duplicate slots collapse, so a
// team with repeated ids can never equal a six-member roster.
func TeamRoster(t domain.Team) Roster {
	return NewRoster(t[:]...)
}

func ReconcileTeams(challenging, accepting domain.Team, apiTeam0, apiTeam1 Roster) Reconciliation {
	c, a := TeamRoster(challenging), TeamRoster(accepting)

	direct := TeamsEqual(c, apiTeam0) && TeamsEqual(a, apiTeam1)
	swapped := TeamsEqual(c, apiTeam1) && TeamsEqual(a, apiTeam0)

	switch {
	case direct:
		return Reconciliation{Matched: true, Orientation: OrientationDirect, Ambiguous: swapped}
	case swapped:
		return Reconciliation{Matched: true, Orientation: OrientationSwapped}
	default:
		return Reconciliation{}
	}
}

// MissingPlayers lists on-chain ids that appear in neither API roster, in
// challenging-then-accepting slot order.
func MissingPlayers(challenging, accepting domain.Team, apiTeam0, apiTeam1 Roster) []domain.PlayerID {
	var missing []domain.PlayerID
	seen := make(map[domain.PlayerID]bool)
	for _, team := range []domain.Team{challenging, accepting} {
		for _, id := range team {
			if apiTeam0.Has(id) || apiTeam1.Has(id) || seen[id] {
				continue
			}
			seen[id] = true
			missing = append(missing, id)
		}
	}
	return missing
}

// TimingValid reports whether the match started no earlier than acceptance and,
// when requiredStartTime is non-zero, no earlier than that bound.
func TimingValid(apiStartTime, acceptTime, requiredStartTime int64) bool {
	if apiStartTime < acceptTime {
		return false
	}
	return requiredStartTime == 0 || apiStartTime >= requiredStartTime
}
