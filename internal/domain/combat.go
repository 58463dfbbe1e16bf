package domain

import "time"

// DefaultTagDuration is how long a hit keeps its attacker eligible for kill credit.
const DefaultTagDuration = 8 * time.Second

// CombatRecord is the latest hit a victim received.
type CombatRecord struct {
	Attacker string
	Cause    Cause
	At       time.Time
}

// CombatTracker remembers who last damaged whom so that deaths without a direct
// attacker (lava, falls, the void) can still be credited.
type CombatTracker struct {
	tagDuration time.Duration
	records     map[string]CombatRecord
}

// NewCombatTracker builds a tracker. A non-positive duration falls back to
// DefaultTagDuration.
func NewCombatTracker(tagDuration time.Duration) *CombatTracker {
	if tagDuration <= 0 {
		tagDuration = DefaultTagDuration
	}
	return &CombatTracker{
		tagDuration: tagDuration,
		records:     make(map[string]CombatRecord),
	}
}

// TagDuration returns the attribution window.
func (t *CombatTracker) TagDuration() time.Duration {
	return t.tagDuration
}

// RecordHit overwrites the victim's latest hit. Self-hits and anonymous hits are
// ignored.
func (t *CombatTracker) RecordHit(victim, attacker string, cause Cause, now time.Time) bool {
	if victim == "" || attacker == "" || victim == attacker {
		return false
	}
	t.records[victim] = CombatRecord{Attacker: attacker, Cause: cause, At: now}
	return true
}

// ResolveAttacker returns the last attacker of victim if the hit is still within
// the tag window. Expired records are dropped.
func (t *CombatTracker) ResolveAttacker(victim string, now time.Time) (CombatRecord, bool) {
	rec, ok := t.records[victim]
	if !ok {
		return CombatRecord{}, false
	}
	if now.Sub(rec.At) > t.tagDuration {
		delete(t.records, victim)
		return CombatRecord{}, false
	}
	return rec, true
}

// Sweep drops every record older than the tag window and returns how many were
// removed. ResolveAttacker re-checks recency, so this only bounds memory.
func (t *CombatTracker) Sweep(now time.Time) int {
	removed := 0
	for victim, rec := range t.records {
		if now.Sub(rec.At) > t.tagDuration {
			delete(t.records, victim)
			removed++
		}
	}
	return removed
}

// Clear forgets the record held for victim.
func (t *CombatTracker) Clear(victim string) {
	delete(t.records, victim)
}

// Forget drops every record in which id is the victim or the attacker. Used when
// a participant quits so nobody gets credit through them.
func (t *CombatTracker) Forget(id string) {
	for victim, rec := range t.records {
		if victim == id || rec.Attacker == id {
			delete(t.records, victim)
		}
	}
}

// Reset forgets everything.
func (t *CombatTracker) Reset() {
	t.records = make(map[string]CombatRecord)
}

// Len returns the number of live records.
func (t *CombatTracker) Len() int {
	return len(t.records)
}
