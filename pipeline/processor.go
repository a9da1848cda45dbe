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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"blobsweep/checkpoint"
	"blobsweep/shared/logger"
)

// Summary describes a finished (or interrupted) run.
type Summary struct {
	RunID      string
	Queued     int // items handed to the queue
	Completed  int // items whose mutating call was issued
	Skipped    int
	Missing    int
	DryRun     int
	Failed     int
	Blocks     int // Blocks fully processed
	Drained    int // Blocks discarded after cancellation
	HighWater  int
	Failures   []Failure
	Elapsed    time.Duration
	ResumeLine int
}

// Processed returns the number of items that reached the operation.
func (s *Summary) Processed() int {
	return s.Completed + s.Skipped + s.Missing + s.DryRun + s.Failed
}

// Option configures a Processor.
type Option func(*Processor)

// WithFs reads the input from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(p *Processor) { p.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Processor) { p.log = log }
}

// WithRecorder exports run statistics to r.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// WithCheckpoint persists the resume line under key after every
// contiguous run of completed Blocks.
func WithCheckpoint(store checkpoint.Store, key string) Option {
	return func(p *Processor) {
		p.checkpoint = store
		p.checkpointKey = key
	}
}

// WithExecutor overrides the executor selected by Config.Mode.
func WithExecutor(e Executor) Option {
	return func(p *Processor) { p.executor = e }
}

// Processor drives every item of an input file through an Operation using
// one producer, a bounded Queue and a pool of workers.
type Processor struct {
	input   string
	factory OperationFactory
	cfg     Config

	fs            afero.Fs
	log           *logger.Logger
	recorder      Recorder
	checkpoint    checkpoint.Store
	checkpointKey string
	executor      Executor
}

// New creates a Processor for the newline-delimited item list at input.
func New(input string, factory OperationFactory, cfg Config, opts ...Option) (*Processor, error) {
	if factory == nil {
		return nil, errors.New("operation factory is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline config")
	}
	if cfg.PrintEvery <= 0 {
		cfg.PrintEvery = DefaultPrintEvery
	}

	p := &Processor{
		input:         input,
		factory:       factory,
		cfg:           cfg,
		fs:            afero.NewOsFs(),
		log:           logger.New("pipeline"),
		recorder:      nopRecorder{},
		checkpointKey: input,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.executor == nil {
		e, err := NewExecutor(cfg.Mode, factory)
		if err != nil {
			return nil, err
		}
		p.executor = e
	}
	return p, nil
}

// run holds the state shared by the goroutines of one Run.
type run struct {
	log       *logger.Logger
	queue     *Queue
	progress  *Progress
	watermark *Watermark
	failures  Failures
	outcomes  [Failed + 1]atomic.Int64
	blocks    atomic.Int64
}

// Run processes the input and returns a Summary. Per-item errors are
// collected in the Summary and never abort the run. Errors that prevent
// the run from starting or from draining the queue are returned; after
// cancellation the partial Summary is returned with the context error.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.log.WithRun(runID)

	skip := p.cfg.SkipLines
	if p.cfg.Resume && p.checkpoint != nil {
		stored, err := p.checkpoint.Load(ctx, p.checkpointKey)
		if err != nil {
			return nil, errors.Wrap(err, "loading checkpoint")
		}
		if stored > skip {
			log.Info("Resuming from checkpoint", map[string]interface{}{"line": stored})
			skip = stored
		}
	}

	f, err := p.fs.Open(p.input)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "opening input %s", p.input),
			"the input must be a newline-delimited list of object paths")
	}
	defer f.Close()

	r := &run{
		log:       log,
		queue:     NewQueue(p.cfg.QueueSize()),
		progress:  NewProgress(p.cfg.Total, p.cfg.PrintEvery, log),
		watermark: NewWatermark(skip, p.checkpoint, p.checkpointKey, log),
	}
	r.progress.OnChange(p.recorder.Progress)

	producer := &Producer{
		BlockSize: p.cfg.BlockSize,
		SkipLines: skip,
		MaxItems:  p.cfg.MaxItems,
		Logger:    log,
	}
	if !p.cfg.CountCompleted {
		producer.Progress = r.progress
	}

	log.Info("Starting run", map[string]interface{}{
		"input":   p.input,
		"workers": p.cfg.Workers,
		"mode":    string(p.cfg.Mode),
		"block":   p.cfg.BlockSize,
		"queue":   r.queue.Cap(),
		"skip":    skip,
	})

	var queued int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := producer.Run(gctx, f, r.queue)
		queued = n
		if err != nil {
			return errors.Wrap(err, "producer")
		}
		log.Info("Producer finished", map[string]interface{}{"items": n})

		if err := r.queue.Join(gctx); err != nil {
			return err
		}
		log.Info("Queue joined", nil)
		return nil
	})
	g.Go(func() error {
		return p.executor.Run(gctx, p.cfg.Workers, func(ctx context.Context, worker int, op Operation) error {
			return p.consume(ctx, worker, op, r)
		})
	})
	err = g.Wait()

	// Release anything left behind by a cancelled run.
	r.queue.Close()
	drained := r.queue.Drain()

	summary := &Summary{
		RunID:      runID,
		Queued:     queued,
		Completed:  int(r.outcomes[Done].Load()),
		Skipped:    int(r.outcomes[Skipped].Load()),
		Missing:    int(r.outcomes[Missing].Load()),
		DryRun:     int(r.outcomes[DryRun].Load()),
		Failed:     int(r.outcomes[Failed].Load()),
		Blocks:     int(r.blocks.Load()),
		Drained:    drained,
		HighWater:  r.queue.HighWater(),
		Failures:   r.failures.List(),
		Elapsed:    time.Since(start),
		ResumeLine: r.watermark.Line(),
	}

	fields := map[string]interface{}{
		"queued":      summary.Queued,
		"completed":   summary.Completed,
		"skipped":     summary.Skipped,
		"missing":     summary.Missing,
		"dry_run":     summary.DryRun,
		"failed":      summary.Failed,
		"resume_line": summary.ResumeLine,
	}
	if err != nil {
		fields["drained_blocks"] = drained
		log.WarnWithError("Run interrupted", err, fields)
		return summary, err
	}
	log.InfoWithDuration("Run complete", float64(summary.Elapsed.Milliseconds()), fields)
	return summary, nil
}

func (p *Processor) consume(ctx context.Context, worker int, op Operation, r *run) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("worker %d panicked: %v", worker, rec)
		}
	}()

	var limiter *rate.Limiter
	if p.cfg.Pause > 0 {
		limiter = rate.NewLimiter(rate.Every(p.cfg.Pause), 1)
	}

	for {
		b, ok := r.queue.Pop(ctx)
		if !ok {
			return nil
		}
		p.recorder.QueueDepth(r.queue.Len())

		if p.handle(ctx, worker, op, limiter, b, r) {
			r.blocks.Add(1)
			p.recorder.BlockProcessed()
			r.watermark.Complete(ctx, b)
		}
	}
}

// handle applies op to every item of b and reports whether the whole Block
// was processed. The Block is acknowledged exactly once.
func (p *Processor) handle(ctx context.Context, worker int, op Operation, limiter *rate.Limiter, b Block, r *run) bool {
	defer r.queue.Done()

	for _, item := range b.Items {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return false
			}
		} else if ctx.Err() != nil {
			return false
		}

		outcome, err := apply(ctx, op, item)
		if err != nil {
			outcome = Failed
			r.failures.Add(item, err)
			r.log.WarnWithError("Failed to process item", err, map[string]interface{}{
				"item":   item,
				"worker": worker,
			})
		}
		r.outcomes[outcome].Add(1)
		p.recorder.ItemProcessed(outcome)
		if p.cfg.CountCompleted {
			r.progress.Increment(1)
		}
	}
	return true
}

func apply(ctx context.Context, op Operation, item string) (outcome Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = Failed
			err = errors.Newf("panic while processing %s: %s", item, fmt.Sprint(rec))
		}
	}()
	outcome, err = op.Apply(ctx, item)
	if outcome < Done || outcome > Failed {
		outcome = Failed
		if err == nil {
			err = errors.Newf("unknown outcome %d", int(outcome))
		}
	}
	return outcome, err
}
