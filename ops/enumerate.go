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
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"blobsweep/pipeline"
	"blobsweep/shared/logger"
	"blobsweep/storage"
)

// DefaultPageSize is the listing page size used when none is set.
const DefaultPageSize = 5000

// DefaultPagePause spaces consecutive listing pages of one prefix. Listing
// without it gets throttled at the storage-account level.
const DefaultPagePause = time.Millisecond

// UnknownTier is written when the store reports no tier for an object.
const UnknownTier = "Unknown"

// EnumerateOptions controls an Enumerate operation.
type EnumerateOptions struct {
	OutputDir    string
	Fs           afero.Fs // defaults to the OS filesystem
	Sizes        bool     // append "\t<size>" to every name
	Tiers        bool     // append "\t<tier>" to every name
	PageSize     int
	MaxPerPrefix int // debug cap per prefix; <= 0 disables

	// PagePause is the minimum delay between listing pages of one prefix;
	// zero disables it.
	PagePause time.Duration

	// Progress, when set, is incremented by the number of names written
	// from each page, across every prefix.
	Progress *pipeline.Progress
}

// Enumerate lists every object under a prefix into one output file per
// prefix, named after the cleaned prefix.
type Enumerate struct {
	store storage.Store
	opts  EnumerateOptions
	log   *logger.Logger
}

var errPrefixLimit = errors.New("per-prefix limit reached")

// NewEnumerate creates the output directory.
func NewEnumerate(store storage.Store, opts EnumerateOptions, log *logger.Logger) (*Enumerate, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PagePause < 0 {
		return nil, errors.Newf("page pause cannot be negative, got %s", opts.PagePause)
	}
	if log == nil {
		log = logger.New("enumerate")
	}
	if err := opts.Fs.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", opts.OutputDir)
	}
	return &Enumerate{store: store, opts: opts, log: log}, nil
}

// OutputPath returns the file the listing of prefix is written to.
func (e *Enumerate) OutputPath(prefix string) string {
	name := CleanFilename(prefix)
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	return filepath.Join(e.opts.OutputDir, name)
}

func (e *Enumerate) Apply(ctx context.Context, prefix string) (pipeline.Outcome, error) {
	e.log.Info(fmt.Sprintf("Starting enumeration for prefix %s", prefix), nil)

	path := e.OutputPath(prefix)
	f, err := e.opts.Fs.Create(path)
	if err != nil {
		return pipeline.Failed, errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	var limiter *rate.Limiter
	if e.opts.PagePause > 0 {
		limiter = rate.NewLimiter(rate.Every(e.opts.PagePause), 1)
	}

	n := 0
	err = e.store.List(ctx, prefix, e.opts.PageSize, func(page []storage.ObjectInfo) error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		written := 0
		defer func() {
			if e.opts.Progress != nil {
				e.opts.Progress.Increment(written)
			}
		}()

		for _, obj := range page {
			if e.opts.MaxPerPrefix > 0 && n >= e.opts.MaxPerPrefix {
				e.log.Info(fmt.Sprintf("Hit debug path limit for prefix %s", prefix), nil)
				return errPrefixLimit
			}
			if err := e.writeLine(w, obj); err != nil {
				return err
			}
			n++
			written++
		}
		return nil
	})
	if err != nil && !errors.Is(err, errPrefixLimit) {
		return pipeline.Failed, errors.Wrapf(err, "listing prefix %q", prefix)
	}

	if err := w.Flush(); err != nil {
		return pipeline.Failed, errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return pipeline.Failed, errors.Wrapf(err, "closing %s", path)
	}

	e.log.Info(fmt.Sprintf("Finished enumerating %d blobs for prefix %s", n, prefix), nil)
	return pipeline.Done, nil
}

func (e *Enumerate) writeLine(w *bufio.Writer, obj storage.ObjectInfo) error {
	if _, err := w.WriteString(obj.Name); err != nil {
		return err
	}
	if e.opts.Sizes {
		w.WriteByte('\t')
		w.WriteString(strconv.FormatInt(obj.Size, 10))
	}
	if e.opts.Tiers {
		tier := obj.Tier
		if tier == "" {
			tier = UnknownTier
		}
		w.WriteByte('\t')
		w.WriteString(tier)
	}
	return w.WriteByte('\n')
}
