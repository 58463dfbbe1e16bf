package ports

import "context"

// AccountPort updates the profile of a newly onboarded player.
type AccountPort interface {
	// UpdateProfile sets username and display name. Empty values are left unchanged.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}
