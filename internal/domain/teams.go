package domain

import (
	"fmt"
	"math/rand"
	"sort"
)

// NoTeam is returned when no single team can be named.
const NoTeam = 0

// MaxRebalanceMoves bounds one Rebalance call so it can never oscillate.
const MaxRebalanceMoves = 16

// FallbackColor is used for team ids below 1, which Assign never produces.
const FallbackColor = "gray"

// teamPalette is indexed by (id-1) mod len.
var teamPalette = [8]string{"red", "blue", "green", "yellow", "aqua", "purple", "gold", "white"}

// TeamColor returns the display color of a team id.
func TeamColor(id int) string {
	if id < 1 {
		return FallbackColor
	}
	return teamPalette[(id-1)%len(teamPalette)]
}

// Team is a group of participants competing together.
type Team struct {
	ID      int
	Label   string
	Color   string
	members map[string]struct{}
}

// Members returns the sorted member ids.
func (t *Team) Members() []string {
	return sortedKeys(t.members)
}

// Size returns the number of members, alive or not.
func (t *Team) Size() int {
	return len(t.members)
}

// AliveCount returns how many members are in alive.
func (t *Team) AliveCount(alive map[string]bool) int {
	n := 0
	for id := range t.members {
		if alive[id] {
			n++
		}
	}
	return n
}

// Has reports whether id belongs to the team.
func (t *Team) Has(id string) bool {
	_, ok := t.members[id]
	return ok
}

// TeamMove describes one participant reassigned by Rebalance.
type TeamMove struct {
	UserID string
	From   int
	To     int
}

// Teams holds the team layout of the running match.
type Teams struct {
	teams    map[int]*Team
	byMember map[string]int
}

// NewTeams returns an empty team layout.
func NewTeams() *Teams {
	return &Teams{
		teams:    make(map[int]*Team),
		byMember: make(map[string]int),
	}
}

// Assign shuffles participants and partitions them into consecutive groups of
// teamSize. A remainder forms one final, smaller team. Any previous layout is
// discarded.
func (ts *Teams) Assign(participants []string, teamSize int, rng *rand.Rand) []*Team {
	ts.Reset()
	if len(participants) == 0 {
		return nil
	}
	if teamSize < 1 {
		teamSize = 1
	}

	shuffled := append([]string(nil), participants...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	var out []*Team
	for start := 0; start < len(shuffled); start += teamSize {
		end := start + teamSize
		if end > len(shuffled) {
			end = len(shuffled)
		}
		id := len(out) + 1
		team := &Team{
			ID:      id,
			Color:   TeamColor(id),
			members: make(map[string]struct{}, end-start),
		}
		team.Label = fmt.Sprintf("Team %s", team.Color)
		for _, member := range shuffled[start:end] {
			team.members[member] = struct{}{}
			ts.byMember[member] = id
		}
		ts.teams[id] = team
		out = append(out, team)
	}
	return out
}

// TeamOf returns the team id of a participant.
func (ts *Teams) TeamOf(id string) (int, bool) {
	teamID, ok := ts.byMember[id]
	return teamID, ok
}

// Team returns the team with the given id.
func (ts *Teams) Team(id int) (*Team, bool) {
	t, ok := ts.teams[id]
	return t, ok
}

// List returns the teams ordered by id.
func (ts *Teams) List() []*Team {
	out := make([]*Team, 0, len(ts.teams))
	for _, t := range ts.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of teams.
func (ts *Teams) Len() int {
	return len(ts.teams)
}

// Enabled reports whether a team layout exists.
func (ts *Teams) Enabled() bool {
	return len(ts.teams) > 0
}

// RemoveParticipant detaches id from its team and deletes the team once empty.
func (ts *Teams) RemoveParticipant(id string) (int, bool) {
	teamID, ok := ts.byMember[id]
	if !ok {
		return NoTeam, false
	}
	delete(ts.byMember, id)
	if t, ok := ts.teams[teamID]; ok {
		delete(t.members, id)
		if len(t.members) == 0 {
			delete(ts.teams, teamID)
		}
	}
	return teamID, true
}

// AliveTeamCount counts teams with at least one alive member.
func (ts *Teams) AliveTeamCount(alive map[string]bool) int {
	n := 0
	for _, t := range ts.teams {
		if t.AliveCount(alive) > 0 {
			n++
		}
	}
	return n
}

// WinningTeam returns the only team with alive members, or NoTeam when zero or
// several teams remain.
func (ts *Teams) WinningTeam(alive map[string]bool) int {
	winner := NoTeam
	for _, t := range ts.teams {
		if t.AliveCount(alive) == 0 {
			continue
		}
		if winner != NoTeam {
			return NoTeam
		}
		winner = t.ID
	}
	return winner
}

// AliveGap returns the difference between the largest and smallest alive counts
// among teams that still have alive members.
func (ts *Teams) AliveGap(alive map[string]bool) int {
	largest, smallest := ts.extremes(alive)
	if largest == nil {
		return 0
	}
	return largest.AliveCount(alive) - smallest.AliveCount(alive)
}

// Rebalance moves alive participants from the largest to the smallest surviving
// team while their alive counts differ by two or more. It stops after
// MaxRebalanceMoves moves. Best effort, not globally optimal.
func (ts *Teams) Rebalance(alive map[string]bool) []TeamMove {
	var moves []TeamMove
	for i := 0; i < MaxRebalanceMoves; i++ {
		largest, smallest := ts.extremes(alive)
		if largest == nil || largest.AliveCount(alive)-smallest.AliveCount(alive) < 2 {
			break
		}

		var mover string
		for _, id := range largest.Members() {
			if alive[id] {
				mover = id
				break
			}
		}
		delete(largest.members, mover)
		smallest.members[mover] = struct{}{}
		ts.byMember[mover] = smallest.ID
		moves = append(moves, TeamMove{UserID: mover, From: largest.ID, To: smallest.ID})
	}
	return moves
}

// Reset removes every team.
func (ts *Teams) Reset() {
	ts.teams = make(map[int]*Team)
	ts.byMember = make(map[string]int)
}

// extremes picks the largest and smallest teams by alive count, ignoring teams
// without alive members. Ties go to the lowest id.
func (ts *Teams) extremes(alive map[string]bool) (largest, smallest *Team) {
	for _, t := range ts.List() {
		n := t.AliveCount(alive)
		if n == 0 {
			continue
		}
		if largest == nil || n > largest.AliveCount(alive) {
			largest = t
		}
		if smallest == nil || n < smallest.AliveCount(alive) {
			smallest = t
		}
	}
	return largest, smallest
}
