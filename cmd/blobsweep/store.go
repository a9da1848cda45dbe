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
	"context"
	"io"

	"github.com/cockroachdb/errors"

	"blobsweep/checkpoint"
	"blobsweep/config"
	"blobsweep/pipeline"
	"blobsweep/storage"
	"blobsweep/storage/azureblob"
	"blobsweep/storage/gcs"
	"blobsweep/storage/s3"
)

// openStore creates a client for the configured backend.
func (a *app) openStore(ctx context.Context, b config.BackendConfig) (storage.Store, error) {
	switch b.Type {
	case config.BackendAzure:
		st, err := azureblob.New(b.Azure.StoreConfig())
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendS3:
		st, err := s3.New(ctx, b.S3.StoreConfig())
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendGCS:
		st, err := gcs.New(ctx, b.GCS.StoreConfig())
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendMemory:
		return a.memory, nil
	}
	return nil, errors.Newf("unknown backend %q", b.Type)
}

// storeOperation closes the worker's store client when the worker exits.
type storeOperation struct {
	pipeline.Operation
	store storage.Store
}

func (o storeOperation) Close() error {
	if c, ok := o.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// operationFactory opens one store per call and wraps it with build.
func (a *app) operationFactory(ctx context.Context, b config.BackendConfig,
	build func(st storage.Store) (pipeline.Operation, error)) pipeline.OperationFactory {
	return func(worker int) (pipeline.Operation, error) {
		st, err := a.openStore(ctx, b)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s store", b.Type)
		}
		op, err := build(st)
		if err != nil {
			return nil, err
		}
		return storeOperation{Operation: op, store: st}, nil
	}
}

// openCheckpoint returns nil when no checkpoint store is configured.
func (a *app) openCheckpoint(ctx context.Context, c config.CheckpointConfig) (checkpoint.Store, func(), error) {
	switch {
	case c.RedisAddr != "":
		st, err := checkpoint.NewRedisStore(ctx, checkpoint.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			TTL:      c.TTL(),
		})
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case c.Dir != "":
		st, err := checkpoint.NewFileStore(a.fs, c.Dir)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	}
	return nil, func() {}, nil
}
