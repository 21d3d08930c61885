package workflows

import "errors"

var (
	// ErrWorkflowNotFound is returned when a workflow is not registered
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidRequest is returned when the request is invalid
	ErrInvalidRequest = errors.New("invalid workflow request")

	// ErrVisionCall is returned when the annotate call itself fails
	ErrVisionCall = errors.New("vision call failed")

	// ErrStoreWrite is returned when the picture record cannot be written
	ErrStoreWrite = errors.New("picture store write failed")
)
