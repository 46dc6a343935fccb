package domain

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when a node identifier is absent from the story graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrStoryNotFound is returned when a graph provider has no story with the given ID.
var ErrStoryNotFound = errors.New("story not found")

// ErrSaveNotFound is returned when a save store has no save with the given ID.
var ErrSaveNotFound = errors.New("save game not found")

// ErrSessionNotFound is returned when a session ID is not held by the manager.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotStarted is returned when an operation needs a started session.
var ErrNotStarted = errors.New("session not started")

// ErrTerminal is returned when a choice is attempted from an ending node.
var ErrTerminal = errors.New("session has reached an ending")

// ErrInvalidChoice is returned when the target is not an option of the current node.
var ErrInvalidChoice = errors.New("choice is not an option of the current node")

// ErrBusy is returned while a load is in flight.
var ErrBusy = errors.New("session is busy loading")

// ErrStaleResponse is returned when a save or load response was superseded
// by a later load, restart or teardown and has been discarded.
var ErrStaleResponse = errors.New("stale response discarded")

// ErrSessionClosed is returned for operations on a torn-down session.
var ErrSessionClosed = errors.New("session closed")

// ErrInvalidSnapshot is returned when a snapshot cannot be applied to the graph.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// PersistenceError wraps a failed save store round trip.
type PersistenceError struct {
	Op     string // "save", "load", "list", "delete"
	SaveID string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.SaveID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.SaveID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
