package nakama

import (
	"lastarena/internal/domain"
	"lastarena/internal/ports"
)

// presenceDirectory tracks who is connected to the match and their last
// reported position.
type presenceDirectory struct {
	online    map[string]bool
	positions map[string]domain.Vec3
}

func newPresenceDirectory() *presenceDirectory {
	return &presenceDirectory{
		online:    make(map[string]bool),
		positions: make(map[string]domain.Vec3),
	}
}

func (d *presenceDirectory) IsOnline(userID string) bool {
	return d.online[userID]
}

func (d *presenceDirectory) Position(userID string) (domain.Vec3, bool) {
	p, ok := d.positions[userID]
	return p, ok
}

func (d *presenceDirectory) connect(userID string) {
	d.online[userID] = true
}

func (d *presenceDirectory) disconnect(userID string) {
	delete(d.online, userID)
	delete(d.positions, userID)
}

func (d *presenceDirectory) report(userID string, p domain.Vec3) bool {
	if !d.online[userID] {
		return false
	}
	d.positions[userID] = p
	return true
}

var _ ports.Directory = (*presenceDirectory)(nil)
