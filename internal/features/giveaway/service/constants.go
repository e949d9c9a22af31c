package service

const (
	// Attempts to draw a unique invite code
	MaxInviteCodeAttempts = 3
	// Attempts to find a free slug when it is derived from the title
	MaxSlugAttempts = 3

	DefaultListLimit = 20
	MaxListLimit     = 100

	maxSlugLength = 80
)
