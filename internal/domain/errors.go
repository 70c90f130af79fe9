package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. a booking event with a missing coordinate).
var ErrValidation = errors.New("validation error")

// ErrLockContended is returned when a slot row's exclusive lock could not be
// acquired immediately because another in-flight transaction holds it.
// Retryable: callers wrap the acquisition in a bounded backoff loop.
var ErrLockContended = errors.New("slot lock contended")

// ErrCapacityExhausted is returned when a slot has no free capacity left.
// Terminal for the current saga step; triggers compensation of prior steps.
var ErrCapacityExhausted = errors.New("slot capacity exhausted")

// ErrSlotConflict is returned when a concurrent transaction inserted the same
// (region, slot_time) row first. Retryable as a re-lookup of the existing row.
var ErrSlotConflict = errors.New("slot already created concurrently")

// ErrRouteNotFound is returned by the cancellation saga when no persisted
// route snapshot exists for the journey. Terminal, never retried.
var ErrRouteNotFound = errors.New("route not found")

// ErrInvalidTransition is returned when a journey status update is attempted
// from a state that does not allow it (e.g. canceling a journey that was
// never confirmed). Terminal; indicates a programming or data error.
var ErrInvalidTransition = errors.New("invalid journey status transition")
