// Package common defines sentinel errors shared by the client and collector
// layers of fieldreport. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("local storage error")

	// Payload errors (a persisted record that can no longer be trusted).
	ErrCorrupt = errors.New("corrupt payload")

	// Delivery errors.
	ErrTransport = errors.New("transport error")

	// Fallback queue is at capacity.
	ErrQueueFull = errors.New("pending queue is full")

	// Delivery failed and the record could not be saved locally either.
	ErrNotSaved = errors.New("submission neither delivered nor saved")
)
