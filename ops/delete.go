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

package ops

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"blobsweep/pipeline"
	"blobsweep/shared/logger"
	"blobsweep/storage"
)

// DeleteOptions controls a Delete operation.
type DeleteOptions struct {
	VerifyExistence bool
	DryRun          bool
}

// Delete removes objects.
type Delete struct {
	store storage.Store
	opts  DeleteOptions
	log   *logger.Logger
}

func NewDelete(store storage.Store, opts DeleteOptions, log *logger.Logger) *Delete {
	if log == nil {
		log = logger.New("delete")
	}
	return &Delete{store: store, opts: opts, log: log}
}

func (d *Delete) Apply(ctx context.Context, item string) (pipeline.Outcome, error) {
	if d.opts.VerifyExistence {
		ok, err := d.store.Exists(ctx, item)
		if err != nil {
			return pipeline.Failed, errors.Wrapf(err, "checking existence of %s", item)
		}
		if !ok {
			d.log.Warn(fmt.Sprintf("%s does not exist", item), nil)
			return pipeline.Missing, nil
		}
	}

	if d.opts.DryRun {
		d.log.Debug(fmt.Sprintf("Not deleting %s", item), nil)
		return pipeline.DryRun, nil
	}

	d.log.Debug(fmt.Sprintf("Deleting %s", item), nil)
	if err := d.store.Delete(ctx, item); err != nil {
		if storage.IsNotFound(err) {
			d.log.Warn(fmt.Sprintf("%s does not exist", item), nil)
			return pipeline.Missing, nil
		}
		return pipeline.Failed, errors.Wrapf(err, "deleting %s", item)
	}
	return pipeline.Done, nil
}
