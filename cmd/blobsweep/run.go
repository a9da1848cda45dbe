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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"blobsweep/config"
	"blobsweep/pipeline"
	"blobsweep/shared/logger"
	"blobsweep/shared/metrics"
)

// maxListedFailures bounds the failures printed in the summary.
const maxListedFailures = 20

// runJob describes one invocation of the pipeline.
type runJob struct {
	operation string // tier, delete, enumerate
	input     string
	key       string // extra checkpoint key component, e.g. the target tier
	cfg       pipeline.Config
	factory   pipeline.OperationFactory
}

// run executes job and prints the summary to out. Only errors that stop
// the run are returned; failed items are reported, not returned.
func (a *app) run(ctx context.Context, out io.Writer, file *config.File, job runJob) (*pipeline.Summary, error) {
	log := logger.New(job.operation)

	opts := []pipeline.Option{pipeline.WithFs(a.fs), pipeline.WithLogger(log)}

	cp, closeCheckpoint, err := a.openCheckpoint(ctx, file.Checkpoint)
	if err != nil {
		return nil, errors.Wrap(err, "opening checkpoint store")
	}
	defer closeCheckpoint()
	if cp != nil {
		opts = append(opts, pipeline.WithCheckpoint(cp, checkpointKey(job)))
	}

	if file.Metrics.Addr != "" {
		rec := metrics.NewRecorder(job.operation)
		srv, err := metrics.Listen(file.Metrics.Addr, rec.Registry(), logger.New("metrics"))
		if err != nil {
			return nil, err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		opts = append(opts, pipeline.WithRecorder(rec))
	}

	p, err := pipeline.New(job.input, job.factory, job.cfg, opts...)
	if err != nil {
		return nil, err
	}

	summary, err := p.Run(ctx)
	if summary != nil {
		printSummary(out, job.operation, summary)
		if path := a.flags.failuresFile; path != "" && len(summary.Failures) > 0 {
			if werr := a.writeFailures(path, summary.Failures); werr != nil {
				log.WarnWithError("Failed to write failures file", werr, map[string]interface{}{"path": path})
			}
		}
	}
	_ = log.Sync()
	return summary, err
}

// checkpointKey identifies a run by operation, target and absolute input.
func checkpointKey(job runJob) string {
	input := job.input
	if abs, err := filepath.Abs(input); err == nil {
		input = abs
	}
	key := job.operation
	if job.key != "" {
		key += ":" + job.key
	}
	return key + ":" + input
}

func printSummary(w io.Writer, operation string, s *pipeline.Summary) {
	fmt.Fprintf(w, "%s: processed %d of %d queued items in %s\n",
		operation, s.Processed(), s.Queued, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  done %d, skipped %d, missing %d, dry run %d, failed %d\n",
		s.Completed, s.Skipped, s.Missing, s.DryRun, s.Failed)
	fmt.Fprintf(w, "  resume line %d\n", s.ResumeLine)

	if len(s.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "Failed items:\n")
	for i, f := range s.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(w, "  ... and %d more\n", len(s.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(w, "  %s: %v\n", f.Item, f.Err)
	}
}

// writeFailures writes one "item<TAB>error" line per failure.
func (a *app) writeFailures(path string, failures []pipeline.Failure) error {
	f, err := a.fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, fl := range failures {
		fmt.Fprintf(w, "%s\t%v\n", fl.Item, fl.Err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
