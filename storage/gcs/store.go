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

// Package gcs provides the Google Cloud Storage backend for blobsweep.
package gcs

import (
	"context"

	gcstorage "cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"blobsweep/storage"
)

const storeName = "gcs"

// Tiers lists the storage classes SetTier accepts. ARCHIVE objects stay
// online in GCS, so nothing here is ever reported as archived.
var Tiers = []string{"STANDARD", "NEARLINE", "COLDLINE", "ARCHIVE"}

// Config selects the bucket and credentials. Without credentials,
// Application Default Credentials are used.
type Config struct {
	Bucket          string
	CredentialsFile string
	Endpoint        string // emulator endpoint
	Anonymous       bool
}

// Store is the GCS implementation of storage.Store
type Store struct {
	client *gcstorage.Client
	bucket *gcstorage.BucketHandle
}

// New creates a GCS client for cfg.Bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, storage.NewStoreError(storeName, "Connect", "", errors.New("bucket is required"))
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, storage.NewStoreError(storeName, "Connect", "", errors.Wrap(err, "failed to create GCS client"))
	}

	return &Store{client: client, bucket: client.Bucket(cfg.Bucket)}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Name() string { return storeName }

func (s *Store) Tiers() []string { return Tiers }

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.bucket.Object(name).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return false, nil
	}
	return false, storage.NewStoreError(storeName, "Exists", name, err)
}

func (s *Store) Properties(ctx context.Context, name string) (*storage.Properties, error) {
	attrs, err := s.bucket.Object(name).Attrs(ctx)
	if err != nil {
		return nil, wrap("Properties", name, err)
	}
	return &storage.Properties{Tier: attrs.StorageClass, Size: attrs.Size}, nil
}

// SetTier rewrites the object onto itself with a new storage class.
func (s *Store) SetTier(ctx context.Context, name, tier string) error {
	obj := s.bucket.Object(name)
	copier := obj.CopierFrom(obj)
	copier.StorageClass = tier
	if _, err := copier.Run(ctx); err != nil {
		return wrap("SetTier", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.bucket.Object(name).Delete(ctx); err != nil {
		return wrap("Delete", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string, pageSize int, fn func(page []storage.ObjectInfo) error) error {
	if pageSize <= 0 {
		pageSize = 1000
	}
	it := s.bucket.Objects(ctx, &gcstorage.Query{Prefix: prefix})
	pager := iterator.NewPager(it, pageSize, "")

	for {
		var attrs []*gcstorage.ObjectAttrs
		next, err := pager.NextPage(&attrs)
		if err != nil {
			return wrap("List", prefix, err)
		}

		page := make([]storage.ObjectInfo, 0, len(attrs))
		for _, a := range attrs {
			page = append(page, storage.ObjectInfo{Name: a.Name, Size: a.Size, Tier: a.StorageClass})
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
	}
}

func wrap(op, name string, err error) error {
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return storage.NotFound(storeName, op, name, err)
	}
	return storage.NewStoreError(storeName, op, name, err)
}

// Verify Store implements storage.Store
var _ storage.Store = (*Store)(nil)
