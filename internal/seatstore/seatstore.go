// Package seatstore implements the shared seat counter: one integer of
// remaining capacity per course, mutated only through atomic operations.
//
// The counter is a rebuildable cache of capacity minus the durable registration
// count, never the source of truth. Callers must treat ErrUnavailable as
// "store down, fall back to the durable ledger", never as "course full".
package seatstore

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("seat store unavailable")

// ErrAlreadySeeded is returned by Seed when a counter already exists for the key.
var ErrAlreadySeeded = errors.New("seat counter already seeded")

// ErrMissing is returned by TryDecrement when no counter exists for the key.
var ErrMissing = errors.New("seat counter not seeded")

// Counter is the atomic remaining-seat counter for courses.
type Counter interface {
	// Seed initializes the counter for courseID to remaining. It fails with
	// ErrAlreadySeeded if a counter already exists; idempotent seeding is the
	// caller's job via Exists.
	Seed(ctx context.Context, courseID string, remaining int64) error

	// Exists reports whether a counter has been seeded for courseID.
	Exists(ctx context.Context, courseID string) (bool, error)

	// TryDecrement atomically subtracts by from the counter if the result would
	// stay non-negative, returning whether the decrement was applied. The
	// read-modify-write is indivisible with respect to all other callers. It
	// fails with ErrMissing when the counter has not been seeded.
	TryDecrement(ctx context.Context, courseID string, by int64) (bool, error)

	// Increment adds by back to the counter. A missing counter is logged as an
	// inconsistency and otherwise ignored; reconciliation repairs it.
	Increment(ctx context.Context, courseID string, by int64) error

	// Reseed unconditionally overwrites the counter value. Reconciliation only.
	Reseed(ctx context.Context, courseID string, remaining int64) error

	// Reachable probes the backing store. A false result routes callers to the
	// durable-ledger fallback instead of rejecting requests.
	Reachable(ctx context.Context) bool
}
