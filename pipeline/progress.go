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
	"fmt"
	"sync"

	"blobsweep/shared/logger"
)

// DefaultPrintEvery is the progress-line interval in items.
const DefaultPrintEvery = 5000

// Progress is a shared counter used only for human-readable progress.
// Values read from it may be stale and must not drive control flow.
type Progress struct {
	mu        sync.Mutex
	value     int64
	total     int64
	lastPrint int64
	every     int64

	log      *logger.Logger
	onChange func(value int64)
}

// NewProgress creates a counter. total <= 0 means unknown.
func NewProgress(total, every int64, log *logger.Logger) *Progress {
	if every <= 0 {
		every = DefaultPrintEvery
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Progress{total: total, every: every, log: log}
}

// OnChange registers a callback invoked with the new value after every
// Increment. It is called outside the lock.
func (p *Progress) OnChange(fn func(value int64)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Increment adds n and emits a progress line once at least every items
// have accumulated since the last one. It reports whether a line was
// emitted.
func (p *Progress) Increment(n int) bool {
	p.mu.Lock()
	p.value += int64(n)
	value := p.value
	printed := false
	if value-p.lastPrint >= p.every {
		p.lastPrint = value
		printed = true
	}
	onChange := p.onChange
	p.mu.Unlock()

	if printed {
		msg := fmt.Sprintf("iteration %d", value)
		if p.total > 0 {
			msg += fmt.Sprintf(" of %d", p.total)
		}
		p.log.Info(msg, nil)
	}
	if onChange != nil {
		onChange(value)
	}
	return printed
}

// Value returns the current count.
func (p *Progress) Value() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// LastPrint returns the value at which the last progress line was emitted.
func (p *Progress) LastPrint() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPrint
}

// Total returns the expected total, or a value <= 0 when unknown.
func (p *Progress) Total() int64 {
	return p.total
}
