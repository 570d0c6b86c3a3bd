// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool limits the number of goroutines used to run trace instructions concurrently.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool of workers with a soft limit on parallelism.
//
// A Pool can be shared by any number of concurrent trace executions: they all compete for the
// same workers.
type Pool struct {
	mu   sync.Mutex
	cond sync.Cond // Signaled whenever numRunning decreases.

	// maxParallelism: 0 disables parallelism (tasks run inline), < 0 means unlimited.
	maxParallelism int
	numRunning     int
}

// New returns a Pool with parallelism set to runtime.NumCPU().
func New() *Pool {
	return NewWithParallelism(runtime.NumCPU())
}

// NewWithParallelism returns a Pool with the given parallelism.
// See SetMaxParallelism for the meaning of the special values.
func NewWithParallelism(maxParallelism int) *Pool {
	p := &Pool{maxParallelism: maxParallelism}
	p.cond = sync.Cond{L: &p.mu}
	return p
}

// MaxParallelism returns the current limit.
func (p *Pool) MaxParallelism() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxParallelism
}

// SetMaxParallelism changes the limit of concurrently running tasks.
// If set to 0 tasks are run inline by WaitToStart. If set to -1 parallelism is unlimited.
func (p *Pool) SetMaxParallelism(maxParallelism int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxParallelism = maxParallelism
	p.cond.Broadcast()
}

// IsEnabled returns whether tasks are run in separate goroutines.
func (p *Pool) IsEnabled() bool {
	return p.MaxParallelism() != 0
}

// NumRunning returns the number of tasks currently running in the pool's goroutines.
func (p *Pool) NumRunning() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numRunning
}

// lockedIsFull must be called with p.mu held.
func (p *Pool) lockedIsFull() bool {
	if p.maxParallelism < 0 {
		return false
	}
	return p.numRunning >= p.maxParallelism
}

// WaitToStart blocks until a worker is available and then runs task in a new goroutine.
// It returns as soon as the task is started.
//
// If parallelism is disabled the task is run inline, and WaitToStart returns when it finishes.
func (p *Pool) WaitToStart(task func()) {
	p.mu.Lock()
	if p.maxParallelism == 0 {
		p.mu.Unlock()
		task()
		return
	}
	for p.lockedIsFull() {
		p.cond.Wait()
	}
	p.numRunning++
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			p.numRunning--
			p.cond.Signal()
			p.mu.Unlock()
		}()
		task()
	}()
}
