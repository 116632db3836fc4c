// Package queue persists pipeline jobs, transcript segments, and rendered
// clips in SQLite. The store enforces the job state machine on every status
// update and provides atomic claims so concurrent workers never process the
// same job twice.
package queue
