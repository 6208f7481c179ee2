package tool

import "errors"

var (
	// ErrEmptyToolName is returned when a tool name is empty.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool with a name that
	// already exists in the registry.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrNilFactory is returned when registering a nil factory.
	ErrNilFactory = errors.New("tool factory must not be nil")

	// ErrEmptySkill is returned when a skill pack has no name or no tools.
	ErrEmptySkill = errors.New("skill pack must have a name and at least one tool")
)
