// Package flock guards a Gaffer home directory against concurrent scheduler
// processes.
//
// Acquire takes an exclusive, non-blocking advisory lock on a well-known lock
// file and records the holder's PID in it. A second Acquire on the same path
// fails with errors.ErrRunLockHeld while the first holder lives. The operating
// system drops the lock when the holding process exits, so a crash never
// leaves a stale lock behind.
//
// Usage:
//
//	lock, err := flock.Acquire(path)
//	if err != nil {
//	    // another scheduler owns this home
//	}
//	defer lock.Release()
package flock
