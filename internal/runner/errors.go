package runner

import "errors"

// Sentinel errors returned before a run starts.
var (
	ErrAgentInactive = errors.New("agent is not active")
	ErrEmptyHistory  = errors.New("chat history is empty")
	ErrEmptyTask     = errors.New("task title and description are empty")
	ErrInvalidRole   = errors.New("chat message role must be user or assistant")

	// ErrCredentials marks an agent key that could not be opened. The run
	// is recorded as failed.
	ErrCredentials = errors.New("agent credentials unavailable")
)
