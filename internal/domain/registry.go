package domain

import "sort"

// Registry tracks which participants are queued, alive or spectating.
// It is not safe for concurrent use; the owning match loop serializes access.
type Registry struct {
	queue      []string
	queued     map[string]struct{}
	alive      map[string]struct{}
	spectators map[string]struct{}
	roster     map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		queued:     make(map[string]struct{}),
		alive:      make(map[string]struct{}),
		spectators: make(map[string]struct{}),
		roster:     make(map[string]struct{}),
	}
}

// Enqueue adds id to the join queue. It returns false if id is already queued.
// Callers only invoke it while the countdown window is open.
func (r *Registry) Enqueue(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := r.queued[id]; ok {
		return false
	}
	r.queued[id] = struct{}{}
	r.queue = append(r.queue, id)
	return true
}

// Leave removes id from whichever set it occupies and reports the set it left.
func (r *Registry) Leave(id string) Membership {
	switch r.State(id) {
	case MembershipQueued:
		r.dequeue(id)
		return MembershipQueued
	case MembershipAlive:
		delete(r.alive, id)
		return MembershipAlive
	case MembershipSpectator:
		delete(r.spectators, id)
		return MembershipSpectator
	}
	return MembershipNone
}

// Eliminate removes id from the alive set. The visual conversion to spectator is
// applied separately by PromoteToSpectator, possibly after a delay.
func (r *Registry) Eliminate(id string) bool {
	if _, ok := r.alive[id]; !ok {
		return false
	}
	delete(r.alive, id)
	return true
}

// PromoteToSpectator moves an alive or already eliminated roster member into the
// spectator set.
func (r *Registry) PromoteToSpectator(id string) bool {
	if _, ok := r.roster[id]; !ok {
		return false
	}
	if _, ok := r.spectators[id]; ok {
		return false
	}
	delete(r.alive, id)
	r.spectators[id] = struct{}{}
	return true
}

// Activate snapshots the given ids into the alive set and the match roster and
// empties the queue.
func (r *Registry) Activate(ids []string) {
	r.clearQueue()
	for _, id := range ids {
		r.alive[id] = struct{}{}
		r.roster[id] = struct{}{}
	}
}

// ClearQueue empties the join queue.
func (r *Registry) ClearQueue() {
	r.clearQueue()
}

// Reset forgets every participant.
func (r *Registry) Reset() {
	r.clearQueue()
	r.alive = make(map[string]struct{})
	r.spectators = make(map[string]struct{})
	r.roster = make(map[string]struct{})
}

// State returns the membership of id.
func (r *Registry) State(id string) Membership {
	if _, ok := r.alive[id]; ok {
		return MembershipAlive
	}
	if _, ok := r.queued[id]; ok {
		return MembershipQueued
	}
	if _, ok := r.spectators[id]; ok {
		return MembershipSpectator
	}
	return MembershipNone
}

func (r *Registry) IsQueued(id string) bool    { return r.State(id) == MembershipQueued }
func (r *Registry) IsAlive(id string) bool     { return r.State(id) == MembershipAlive }
func (r *Registry) IsSpectator(id string) bool { return r.State(id) == MembershipSpectator }

// InRoster reports whether id was registered when the match started.
func (r *Registry) InRoster(id string) bool {
	_, ok := r.roster[id]
	return ok
}

func (r *Registry) QueuedCount() int    { return len(r.queued) }
func (r *Registry) AliveCount() int     { return len(r.alive) }
func (r *Registry) SpectatorCount() int { return len(r.spectators) }
func (r *Registry) RosterCount() int    { return len(r.roster) }

// Queued returns a copy of the queue in join order.
func (r *Registry) Queued() []string {
	return append([]string(nil), r.queue...)
}

// Alive returns a sorted snapshot of the alive set.
func (r *Registry) Alive() []string {
	return sortedKeys(r.alive)
}

// Spectators returns a sorted snapshot of the spectator set.
func (r *Registry) Spectators() []string {
	return sortedKeys(r.spectators)
}

// Roster returns a sorted snapshot of everyone registered at match start.
func (r *Registry) Roster() []string {
	return sortedKeys(r.roster)
}

// AliveSet returns a snapshot of the alive set for membership lookups.
func (r *Registry) AliveSet() map[string]bool {
	out := make(map[string]bool, len(r.alive))
	for id := range r.alive {
		out[id] = true
	}
	return out
}

func (r *Registry) dequeue(id string) {
	delete(r.queued, id)
	for i, queued := range r.queue {
		if queued == id {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			break
		}
	}
}

func (r *Registry) clearQueue() {
	r.queue = nil
	r.queued = make(map[string]struct{})
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
