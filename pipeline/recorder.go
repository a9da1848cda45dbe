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

// Recorder receives run statistics, typically to export them as metrics.
type Recorder interface {
	ItemProcessed(outcome Outcome)
	BlockProcessed()
	QueueDepth(blocks int)
	Progress(value int64)
}

type nopRecorder struct{}

func (nopRecorder) ItemProcessed(Outcome) {}
func (nopRecorder) BlockProcessed()       {}
func (nopRecorder) QueueDepth(int)        {}
func (nopRecorder) Progress(int64)        {}
