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

// Package pipeline pushes a newline-delimited list of items through a
// per-item Operation in parallel.
//
// A single Producer reads the input, trims and filters lines and groups
// them into fixed-size Blocks which it pushes onto a bounded Queue. A pool
// of workers, run by an Executor, pops Blocks and applies the Operation to
// each item. Once the producer has pushed its final Block it closes the
// Queue; Processor.Run then waits for every pushed Block to be
// acknowledged before the workers observe the closed Queue and exit.
//
// Per-item errors are recorded as Failures and never stop the run. A
// Progress counter logs a line every PrintEvery items, and a Watermark
// records the input line up to which every Block has finished so that a
// later run can resume from it.
package pipeline
