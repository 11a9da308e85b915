package core

import "errors"

var (
	// ErrConfiguration marks fatal pre-run problems: bad frequency, bad
	// duration, unknown transport, missing task index, unreadable task list.
	ErrConfiguration = errors.New("configuration error")

	// ErrConstruction marks a transport that could not be initialized
	// within its connect budget.
	ErrConstruction = errors.New("sink construction error")
)
