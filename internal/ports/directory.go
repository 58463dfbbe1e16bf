package ports

import "lastarena/internal/domain"

// Directory answers presence and position lookups for participants.
// The Nakama adapter feeds it from MatchJoin/MatchLeave and client position reports.
type Directory interface {
	// IsOnline reports whether the participant currently has a presence in the match.
	IsOnline(userID string) bool
	// Position returns the last reported position; ok=false when nothing was reported yet.
	Position(userID string) (domain.Vec3, bool)
}

// Boundary is the arena geometry oracle consumed by the safe zone.
type Boundary = domain.Boundary
