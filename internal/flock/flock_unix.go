//go:build unix

package flock

import "syscall"

// exclusive acquires an exclusive non-blocking advisory lock on the
// descriptor. It fails immediately when another descriptor holds the lock.
func exclusive(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX|syscall.LOCK_NB)
}

// unlock releases the advisory lock on the descriptor.
func unlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
