package team

import "errors"

var (
	// ErrAgentNotFound is returned when a requested agent does not exist.
	ErrAgentNotFound = errors.New("team: agent not found")
	// ErrDuplicateAgent is returned when two agents of one owner share a name.
	ErrDuplicateAgent = errors.New("team: duplicate agent name")
	// ErrInvalidAgent is returned when an agent definition is incomplete.
	ErrInvalidAgent = errors.New("team: invalid agent")
)
