// Package flock provides cross-platform file locking utilities.
//
// It backs the merge engine's working-tree lock: only one merge may
// check out and mutate the shared repository checkout at a time, even
// across coxswain processes.
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
//	if err := flock.ExclusiveBlocking(file.Fd()); err != nil {
//	    // Lock could not be acquired
//	}
//	defer flock.Unlock(file.Fd())
package flock
