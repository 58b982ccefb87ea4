// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package auth

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Password hashing is slow by design, so it must never run on the serving
// path: one client's login would stall message delivery for everyone. The
// Pool executes hash jobs on a bounded set of workers; the submitting
// goroutine returns immediately and the job's completion function applies
// the result later, against whatever state still exists. A completion
// whose session has disconnected is expected to discover that and discard
// its reply.

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newToken generates a ULID correlation token for a submitted job.
func newToken() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// job is one queued unit of hash work.
type job struct {
	token     ulid.ULID
	name      string
	sessionID int64
	run       func(token ulid.ULID)
}

// Pool runs slow hashing jobs on a bounded set of worker goroutines.
type Pool struct {
	jobs      chan job
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// DefaultQueueDepth bounds the number of jobs waiting for a worker.
// Submitting past the bound blocks the submitting connection's goroutine
// only; other sessions are unaffected.
const DefaultQueueDepth = 256

// NewPool creates a pool with the given number of workers (minimum 1) and
// starts them.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		jobs: make(chan job, DefaultQueueDepth),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues fn for execution on a worker and returns its correlation
// token. The name and session id are for operator logs only.
func (p *Pool) Submit(name string, sessionID int64, fn func(token ulid.ULID)) ulid.ULID {
	token := newToken()
	p.jobs <- job{
		token:     token,
		name:      name,
		sessionID: sessionID,
		run:       fn,
	}
	return token
}

// Close stops accepting jobs and waits for queued work to drain. In-flight
// jobs complete; their completion functions run and discard replies for
// sessions that no longer exist.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		start := time.Now()
		j.run(j.token)
		slog.Debug("hash job completed",
			"job", j.name,
			"token", j.token.String(),
			"session_id", j.sessionID,
			"duration", time.Since(start),
		)
	}
}
