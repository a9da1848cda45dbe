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

	"blobsweep/checkpoint"
	"blobsweep/shared/logger"
)

// Watermark tracks which Blocks have finished. Blocks complete out of
// order; the resume line only advances across a contiguous run of
// completed sequence numbers starting at 0.
type Watermark struct {
	mu      sync.Mutex
	next    int
	pending map[int]int
	line    int

	store checkpoint.Store
	key   string
	log   *logger.Logger
}

// NewWatermark starts at line start. store may be nil.
func NewWatermark(start int, store checkpoint.Store, key string, log *logger.Logger) *Watermark {
	if log == nil {
		log = logger.NewNop()
	}
	return &Watermark{
		pending: make(map[int]int),
		line:    start,
		store:   store,
		key:     key,
		log:     log,
	}
}

// Complete records a finished Block and persists the new resume line when
// it advanced. Persistence failures are logged, not returned.
func (w *Watermark) Complete(ctx context.Context, b Block) {
	w.mu.Lock()
	w.pending[b.Seq] = b.EndLine
	advanced := false
	for {
		end, ok := w.pending[w.next]
		if !ok {
			break
		}
		delete(w.pending, w.next)
		w.next++
		if end > w.line {
			w.line = end
		}
		advanced = true
	}
	line := w.line

	// Saving under the lock keeps stored values monotonic.
	if advanced && w.store != nil {
		if err := w.store.Save(ctx, w.key, line); err != nil {
			w.log.WarnWithError("Failed to save checkpoint", err, map[string]interface{}{"line": line})
		}
	}
	w.mu.Unlock()
}

// Line returns the current resume line.
func (w *Watermark) Line() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.line
}
