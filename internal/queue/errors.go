package queue

import "errors"

// ErrConflict is returned when a status update would violate the job state machine.
var ErrConflict = errors.New("queue: conflicting status transition")

// ErrAlreadyClaimed is returned when a job claim races with another worker.
var ErrAlreadyClaimed = errors.New("queue: job already claimed")

// ErrNotFound is returned when an operation targets a job that does not exist.
var ErrNotFound = errors.New("queue: job not found")
