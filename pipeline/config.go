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
	"time"

	"github.com/cockroachdb/errors"
)

const (
	DefaultWorkers   = 100
	DefaultBlockSize = 500
	DefaultPause     = time.Millisecond
	// QueueBlocksPerWorker sizes the queue when QueueCapacity is unset.
	QueueBlocksPerWorker = 4
)

// Config holds the knobs of one run.
type Config struct {
	Workers       int
	Mode          Mode
	BlockSize     int
	QueueCapacity int // in Blocks; 0 means Workers*QueueBlocksPerWorker
	SkipLines     int
	MaxItems      int   // debug cap; <= 0 processes everything
	PrintEvery    int64 // progress line interval in items
	Total         int64 // expected items for progress lines; <= 0 unknown

	// Pause spaces consecutive requests from one worker to stay clear of
	// service-side throttling. 0 disables pacing.
	Pause time.Duration

	// CountCompleted moves the progress increment from enqueue time in
	// the producer to completion time in the workers.
	CountCompleted bool

	// Resume starts from the stored checkpoint when it is past SkipLines.
	Resume bool
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Workers:    DefaultWorkers,
		Mode:       ModeIsolated,
		BlockSize:  DefaultBlockSize,
		PrintEvery: DefaultPrintEvery,
		Total:      -1,
		Pause:      DefaultPause,
	}
}

// QueueSize returns the effective queue capacity in Blocks.
func (c Config) QueueSize() int {
	if c.QueueCapacity > 0 {
		return c.QueueCapacity
	}
	return c.Workers * QueueBlocksPerWorker
}

// Validate rejects configurations a run cannot start with.
func (c Config) Validate() error {
	switch {
	case c.Workers < 1:
		return errors.Newf("workers must be at least 1, got %d", c.Workers)
	case c.BlockSize < 1:
		return errors.Newf("block size must be at least 1, got %d", c.BlockSize)
	case c.QueueCapacity < 0:
		return errors.Newf("queue capacity cannot be negative, got %d", c.QueueCapacity)
	case c.SkipLines < 0:
		return errors.Newf("skip cannot be negative, got %d", c.SkipLines)
	case c.Pause < 0:
		return errors.Newf("pause cannot be negative, got %s", c.Pause)
	}
	switch c.Mode {
	case ModeIsolated, ModeShared, "":
	default:
		return errors.WithHint(errors.Newf("unknown executor mode %q", c.Mode), "use \"isolated\" or \"shared\"")
	}
	return nil
}
