package nakama

import "sync"

// eventGate lets at most one arena match on this node run an event at a time.
// A match claims it when a countdown is opened and releases it once its
// lifecycle is back to idle.
type eventGate struct {
	mu    sync.Mutex
	owner string
}

func newEventGate() *eventGate {
	return &eventGate{}
}

// claim reports whether matchID holds the gate, taking it when it is free.
// The current holder is returned when the claim fails.
func (g *eventGate) claim(matchID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner == "" || g.owner == matchID {
		g.owner = matchID
		return matchID, true
	}
	return g.owner, false
}

// release frees the gate if matchID holds it.
func (g *eventGate) release(matchID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner == matchID {
		g.owner = ""
	}
}

func (g *eventGate) holder() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}
