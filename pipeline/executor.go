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
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of applying an Operation to one item.
type Outcome int

const (
	Done    Outcome = iota // the mutating call was issued
	Skipped                // already in the desired state
	Missing                // the item does not exist remotely
	DryRun                 // the mutating call was suppressed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Skipped:
		return "skipped"
	case Missing:
		return "missing"
	case DryRun:
		return "dry_run"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Operation is the per-item side effect a run applies, e.g. changing an
// object's tier or deleting it. Apply must not panic on bad input; a panic
// is recovered and recorded as a failure of that item.
type Operation interface {
	Apply(ctx context.Context, item string) (Outcome, error)
}

// OperationFunc adapts a function to Operation.
type OperationFunc func(ctx context.Context, item string) (Outcome, error)

// Apply calls f(ctx, item).
func (f OperationFunc) Apply(ctx context.Context, item string) (Outcome, error) {
	return f(ctx, item)
}

// OperationFactory builds the Operation a worker uses.
type OperationFactory func(worker int) (Operation, error)

// ConsumeFunc is the block-consuming loop an Executor runs on every worker.
type ConsumeFunc func(ctx context.Context, worker int, op Operation) error

// Executor runs a fixed number of workers until they all return. The
// first worker error cancels the context passed to the others.
type Executor interface {
	Run(ctx context.Context, workers int, consume ConsumeFunc) error
}

// Mode selects an Executor backend.
type Mode string

const (
	// ModeIsolated gives every worker its own Operation instance.
	ModeIsolated Mode = "isolated"
	// ModeShared lets all workers share one Operation instance.
	ModeShared Mode = "shared"
)

// NewExecutor returns the backend for mode.
func NewExecutor(mode Mode, factory OperationFactory) (Executor, error) {
	switch mode {
	case ModeIsolated, "":
		return &IsolatedExecutor{Factory: factory}, nil
	case ModeShared:
		return &SharedExecutor{Factory: factory}, nil
	}
	return nil, errors.Newf("unknown executor mode %q", mode)
}

// SharedExecutor runs every worker against a single Operation, which must
// be safe for concurrent use.
type SharedExecutor struct {
	Factory OperationFactory
}

func (e *SharedExecutor) Run(ctx context.Context, workers int, consume ConsumeFunc) error {
	op, err := e.Factory(0)
	if err != nil {
		return errors.Wrap(err, "creating operation")
	}
	defer closeOperation(op)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			return consume(gctx, worker, op)
		})
	}
	return g.Wait()
}

// IsolatedExecutor builds one Operation per worker and closes it when the
// worker exits, so no client state is shared between workers.
type IsolatedExecutor struct {
	Factory OperationFactory
}

func (e *IsolatedExecutor) Run(ctx context.Context, workers int, consume ConsumeFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			op, err := e.Factory(worker)
			if err != nil {
				return errors.Wrapf(err, "creating operation for worker %d", worker)
			}
			defer closeOperation(op)
			return consume(gctx, worker, op)
		})
	}
	return g.Wait()
}

func closeOperation(op Operation) {
	if c, ok := op.(io.Closer); ok {
		_ = c.Close()
	}
}
