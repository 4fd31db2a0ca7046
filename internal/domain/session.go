package domain

// SessionState tracks the shared transport session. Valid transitions:
// Uninitialized->Initializing, Initializing->Ready, Initializing->
// Uninitialized (failed registration), Ready->Closed.
type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionInitializing  SessionState = "initializing"
	SessionReady         SessionState = "ready"
	SessionClosed        SessionState = "closed"
)
