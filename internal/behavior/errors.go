package behavior

import "errors"

var (
	// ErrProfileNotLoaded is returned when a session is initialized against
	// a profile that was never generated or restored.
	ErrProfileNotLoaded = errors.New("player profile not loaded")

	// ErrSessionNotInitialized is returned by effective-trait accessors
	// before InitializeSession has run.
	ErrSessionNotInitialized = errors.New("performance session not initialized")
)
