package service

import "errors"

var (
	// ErrLoadFailure aborts a run: tickets or roster could not be read.
	ErrLoadFailure = errors.New("sla run load failed")
	// ErrSendFailed marks a notification that could not be delivered.
	ErrSendFailed = errors.New("notification send failed")
	// ErrPersistFailed marks a breach flag that could not be written.
	ErrPersistFailed = errors.New("breach flag persist failed")
	// ErrRunInProgress is returned when another run holds the run lock.
	ErrRunInProgress = errors.New("sla run already in progress")
)
