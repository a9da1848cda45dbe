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

import "sync"

// Failure records one item whose operation failed.
type Failure struct {
	Item string
	Err  error
}

// Failures collects failed items from every worker.
type Failures struct {
	mu    sync.Mutex
	items []Failure
}

// Add records a failure.
func (f *Failures) Add(item string, err error) {
	f.mu.Lock()
	f.items = append(f.items, Failure{Item: item, Err: err})
	f.mu.Unlock()
}

// Len returns the number of recorded failures.
func (f *Failures) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// List returns a copy of the recorded failures in arrival order.
func (f *Failures) List() []Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Failure, len(f.items))
	copy(out, f.items)
	return out
}
