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

// Package checkpoint persists how far into an input file a run has safely
// progressed, so an interrupted run can resume without redoing finished
// blocks. The stored value is an input line index: every line before it
// has been fully processed.
package checkpoint

import (
	"context"
	"regexp"
)

// Store loads and saves resume points by key.
type Store interface {
	// Load returns the stored line, or 0 when nothing is stored for key.
	Load(ctx context.Context, key string) (int, error)
	Save(ctx context.Context, key string, line int) error
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeKey maps an arbitrary key (typically the operation plus the input
// path) onto a string usable as a file name or Redis key suffix.
func SafeKey(key string) string {
	s := unsafeKeyChars.ReplaceAllString(key, "_")
	if s == "" {
		return "_"
	}
	return s
}
