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

/*
Package logger provides component-scoped logging for blobsweep.

# Overview

Entries are written through a single zap core configured once per process
with Configure. The default output is one human-readable line per entry
with a local timestamp, which is what an operator watching a long bulk run
wants to see interleaved with progress lines. JSON output is available for
log shipping.

# Usage

	logger.Configure(logger.Options{Verbose: true})
	log := logger.New("pipeline").WithRun(runID)

	log.Info("Queuing 500 paths", map[string]interface{}{
	    "block": 12,
	})

	log.WarnWithError("Error setting tier", err, map[string]interface{}{
	    "item": "images/0001.jpg",
	})

# Output Format

Console:

	2025-01-15 10:30:00	INFO	pipeline	Queue joined	{"run_id": "..."}

JSON:

	{"level":"info","timestamp":"2025-01-15T10:30:00.123456789Z",
	 "component":"pipeline","message":"Queue joined","run_id":"..."}

# Thread Safety

Logger instances are safe for concurrent use from multiple goroutines.
Loggers capture the core that was configured when they were created.
*/
package logger
