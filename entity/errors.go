package entity

import "errors"

// Platform call failures are classified into a small taxonomy so callers can
// branch on the class instead of platform-specific codes. The Discord client
// wraps its REST errors with these sentinels.
var (
	// ErrPermissionDenied: the bot lacks a capability in a guild. Treated
	// as a session-lifetime condition, never retried.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound: a referenced role, channel, member or invite is gone.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited: the platform asked us to back off.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient: network or other retryable remote failure.
	ErrTransient = errors.New("transient remote failure")
)
