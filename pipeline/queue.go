// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"sync"
)

// Block is the unit of transfer through the Queue: an ordered run of items
// read from the input.
type Block struct {
	Seq     int      // producer sequence number, starting at 0
	Items   []string // in input order
	EndLine int      // input line index just past the last consumed line
}

// Queue is a bounded FIFO of Blocks shared by one producer and many
// consumers. Push blocks while the queue is full; Pop blocks while it is
// empty. Every popped Block must be acknowledged with Done so Join can
// report that all pushed work has finished. Close tells consumers that no
// more Blocks will arrive; Pop returns false once the backlog is drained.
type Queue struct {
	ch        chan Block
	pending   sync.WaitGroup
	closeOnce sync.Once

	mu        sync.Mutex
	highWater int
}

// NewQueue creates a queue holding at most capacity Blocks.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Block, capacity)}
}

// Push enqueues b, waiting for room. It must not be called after Close.
func (q *Queue) Push(ctx context.Context, b Block) error {
	q.pending.Add(1)
	select {
	case q.ch <- b:
		q.observe()
		return nil
	case <-ctx.Done():
		q.pending.Done()
		return ctx.Err()
	}
}

// Pop dequeues the next Block. It returns false when the queue is closed
// and drained, or when ctx is done.
func (q *Queue) Pop(ctx context.Context) (Block, bool) {
	select {
	case b, ok := <-q.ch:
		return b, ok
	case <-ctx.Done():
		return Block{}, false
	}
}

// Done marks one popped Block as finished.
func (q *Queue) Done() {
	q.pending.Done()
}

// Close signals that the producer has finished. Safe to call twice.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

// Join waits until every pushed Block has been marked done.
func (q *Queue) Join(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain acknowledges Blocks nobody will consume after a cancelled run so
// that pending Join goroutines can exit. The queue must already be closed.
func (q *Queue) Drain() int {
	n := 0
	for range q.ch {
		q.pending.Done()
		n++
	}
	return n
}

// Len returns the number of queued Blocks.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity in Blocks.
func (q *Queue) Cap() int { return cap(q.ch) }

// HighWater returns the largest depth observed right after a Push.
func (q *Queue) HighWater() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.highWater
}

func (q *Queue) observe() {
	n := len(q.ch)
	q.mu.Lock()
	if n > q.highWater {
		q.highWater = n
	}
	q.mu.Unlock()
}
