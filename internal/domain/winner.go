package domain

// OutcomeKind is the terminal-condition verdict.
type OutcomeKind string

const (
	OutcomeUndecided OutcomeKind = "undecided"
	OutcomeWinner    OutcomeKind = "winner"
	OutcomeTeamWin   OutcomeKind = "team_winner"
	OutcomeDraw      OutcomeKind = "draw"
)

// Outcome is the result of evaluating the terminal condition.
type Outcome struct {
	Kind      OutcomeKind
	UserID    string
	TeamID    int
	Survivors []string
}

// Terminal reports whether the match is over.
func (o Outcome) Terminal() bool {
	return o.Kind != OutcomeUndecided
}

// ResolveWinner evaluates the terminal condition against the registry and team
// layout. Inconsistent data yields a draw outcome together with an
// InvariantViolation error so the caller can force a reset.
func ResolveWinner(reg *Registry, teams *Teams, teamMode bool) (Outcome, error) {
	alive := reg.Alive()
	for _, id := range alive {
		if !reg.InRoster(id) {
			return Outcome{Kind: OutcomeDraw}, NewError(CodeInvariantViolation, "alive participant %s is not in the roster", id)
		}
	}

	if !teamMode {
		switch len(alive) {
		case 0:
			return Outcome{Kind: OutcomeDraw}, nil
		case 1:
			return Outcome{Kind: OutcomeWinner, UserID: alive[0], Survivors: alive}, nil
		}
		return Outcome{Kind: OutcomeUndecided}, nil
	}

	for _, id := range alive {
		if _, ok := teams.TeamOf(id); !ok {
			return Outcome{Kind: OutcomeDraw}, NewError(CodeInvariantViolation, "alive participant %s has no team", id)
		}
	}

	aliveSet := reg.AliveSet()
	switch teams.AliveTeamCount(aliveSet) {
	case 0:
		return Outcome{Kind: OutcomeDraw}, nil
	case 1:
		return Outcome{Kind: OutcomeTeamWin, TeamID: teams.WinningTeam(aliveSet), Survivors: alive}, nil
	}
	return Outcome{Kind: OutcomeUndecided}, nil
}
