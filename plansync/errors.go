package plansync

import (
	"errors"
	"fmt"
)

// ErrSyncInProgress is returned when another run holds the sync guard.
var ErrSyncInProgress = errors.New("sync already in progress")

// AuthFailure is a rejected or unreachable credential exchange.
type AuthFailure struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("token exchange failed: %d - %s", e.Status, e.Body)
}

func (e *AuthFailure) Unwrap() error { return e.Err }

// UpstreamFailure is a non-success or unreachable order feed.
type UpstreamFailure struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order feed failed: %v", e.Err)
	}
	return fmt.Sprintf("order feed failed: %d - %s", e.Status, e.Body)
}

func (e *UpstreamFailure) Unwrap() error { return e.Err }

// RecordMappingError marks one feed item that could not be mapped. It never aborts a run.
type RecordMappingError struct {
	Index       int
	OrderNumber string
	Field       string
	Reason      string
}

func (e *RecordMappingError) Error() string {
	ref := e.OrderNumber
	if ref == "" {
		ref = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("record %s: %s %s", ref, e.Field, e.Reason)
}

// StoreFailure wraps a database failure that rolled back the whole batch.
type StoreFailure struct {
	Err error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store failure: %v", e.Err)
}

func (e *StoreFailure) Unwrap() error { return e.Err }

var errNotPositiveInteger = errors.New("not a positive integer")
