//go:build !deadlock

// Package syncutil provides the mutex types used to guard the shared command
// and telemetry state. By default they are plain sync mutexes with zero
// overhead; build with -tags=deadlock to swap in deadlock detection via
// github.com/sasha-s/go-deadlock.
package syncutil

import "sync"

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
type Mutex struct {
	sync.Mutex
}

// RWMutex wraps sync.RWMutex. Build with -tags=deadlock for deadlock detection.
type RWMutex struct {
	sync.RWMutex
}
