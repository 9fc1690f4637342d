package service

import "errors"

// State errors surfaced to callers. Controllers map these onto HTTP codes;
// they are deliberate outcomes, not internal failures.
var (
	// ErrExamNotAvailable covers unknown, unpublished, and out-of-window exams.
	ErrExamNotAvailable = errors.New("exam is not available")

	// ErrAttemptLimitReached means the user already holds max_attempts
	// terminal attempts for the exam.
	ErrAttemptLimitReached = errors.New("attempt limit reached for this exam")

	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrAttemptAlreadyFinalized marks a write against a terminal attempt.
	// Submit treats it as non-fatal and returns the stored result instead.
	ErrAttemptAlreadyFinalized = errors.New("attempt is already finalized")

	// ErrDeadlinePassed rejects incremental saves after the deadline; the
	// attempt itself is finalized by submit or by the sweeper, not here.
	ErrDeadlinePassed = errors.New("attempt deadline has passed")

	// ErrNotAuthorized means the attempt belongs to a different user.
	ErrNotAuthorized = errors.New("attempt belongs to another user")

	// ErrResultNotReady is returned when a result is requested for an
	// attempt that is still in progress.
	ErrResultNotReady = errors.New("attempt has not been finalized yet")
)
