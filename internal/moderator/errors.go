package moderator

import "errors"

// ErrTaskNotFound is returned by CancelTask for an unknown id.
var ErrTaskNotFound = errors.New("moderator: task not found")

// ErrNegativeMaxWorkers is returned by SetMaxWorkers for n < 0.
var ErrNegativeMaxWorkers = errors.New("moderator: max workers must be >= 0")

// ErrReleased is returned by mutating operations after Release.
var ErrReleased = errors.New("moderator: released")
