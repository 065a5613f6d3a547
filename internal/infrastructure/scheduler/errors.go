package scheduler

import "errors"

var (
	// ErrSchedulerRunning is returned when registering a job on a started scheduler
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrInvalidConfig is returned when a job has no name, runner or interval
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrDuplicateJob is returned when two jobs share a name
	ErrDuplicateJob = errors.New("job already registered")
)
