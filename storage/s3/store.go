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

// Package s3 provides the Amazon S3 backend for blobsweep. Storage classes
// play the role of access tiers; changing one rewrites the object in place.
package s3

import (
	"context"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"

	"blobsweep/storage"
)

const storeName = "s3"

// Tiers lists the storage classes SetTier accepts.
var Tiers = []string{
	string(types.StorageClassStandard),
	string(types.StorageClassStandardIa),
	string(types.StorageClassOnezoneIa),
	string(types.StorageClassIntelligentTiering),
	string(types.StorageClassGlacierIr),
	string(types.StorageClassGlacier),
	string(types.StorageClassDeepArchive),
}

// RestoreDays is how long a restored copy of an archived object is kept.
var RestoreDays int32 = 7

// API is the part of *s3.Client the store uses.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	RestoreObject(ctx context.Context, in *s3.RestoreObjectInput, optFns ...func(*s3.Options)) (*s3.RestoreObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config selects the bucket and credentials. Without explicit keys the
// default AWS credential chain is used.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Store is the S3 implementation of storage.Store
type Store struct {
	api    API
	bucket string
}

// New builds an S3 client from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, storage.NewStoreError(storeName, "Connect", "", errors.New("bucket is required"))
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	// Use explicit credentials if provided, otherwise use default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, storage.NewStoreError(storeName, "Connect", "", errors.Wrap(err, "failed to load AWS config"))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewWithAPI(client, cfg.Bucket), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API, bucket string) *Store {
	return &Store{api: api, bucket: bucket}
}

func (s *Store) Name() string { return storeName }

func (s *Store) Tiers() []string { return Tiers }

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Properties(ctx, name)
	if err == nil {
		return true, nil
	}
	if storage.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *Store) Properties(ctx context.Context, name string) (*storage.Properties, error) {
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, wrap("Properties", name, err)
	}

	props := &storage.Properties{Tier: string(out.StorageClass)}
	// S3 omits the header for STANDARD objects
	if props.Tier == "" {
		props.Tier = string(types.StorageClassStandard)
		props.TierInferred = true
	}
	props.Archived = isArchival(props.Tier)
	if out.ContentLength != nil {
		props.Size = *out.ContentLength
	}
	if out.Restore != nil {
		props.RehydratePending, props.Restored = parseRestore(*out.Restore)
	}
	return props, nil
}

// parseRestore reads the x-amz-restore header, e.g.
// `ongoing-request="false", expiry-date="Fri, 21 Dec 2012 00:00:00 GMT"`.
func parseRestore(header string) (ongoing, restored bool) {
	switch {
	case strings.Contains(header, `ongoing-request="true"`):
		return true, false
	case strings.Contains(header, `ongoing-request="false"`):
		return false, true
	}
	return false, false
}

// SetTier rewrites the object with a new storage class. Archived objects
// cannot be copied until restored: the first call issues a restore request,
// calls made while it runs return ErrRestorePending, and once the restored
// copy is available the object is rewritten in place.
func (s *Store) SetTier(ctx context.Context, name, tier string) error {
	props, err := s.Properties(ctx, name)
	if err != nil {
		return err
	}

	if props.Archived && props.Tier != tier && !props.Restored {
		if props.RehydratePending {
			return storage.RestorePending(storeName, "SetTier", name, nil)
		}
		return s.restore(ctx, name)
	}

	_, err = s.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(name),
		CopySource:        aws.String(s.bucket + "/" + url.PathEscape(name)),
		StorageClass:      types.StorageClass(tier),
		MetadataDirective: types.MetadataDirectiveCopy,
	})
	if err != nil {
		return wrap("SetTier", name, err)
	}
	return nil
}

func (s *Store) restore(ctx context.Context, name string) error {
	_, err := s.api.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		RestoreRequest: &types.RestoreRequest{
			Days: aws.Int32(RestoreDays),
			GlacierJobParameters: &types.GlacierJobParameters{
				Tier: types.TierStandard,
			},
		},
	})
	if err != nil {
		return wrap("SetTier", name, err)
	}
	return nil
}

// Delete removes the object. S3 reports success for keys that do not exist.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return wrap("Delete", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string, pageSize int, fn func(page []storage.ObjectInfo) error) error {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if pageSize > 0 {
		in.MaxKeys = aws.Int32(int32(pageSize))
	}

	paginator := s3.NewListObjectsV2Paginator(s.api, in)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return wrap("List", prefix, err)
		}

		page := make([]storage.ObjectInfo, 0, len(out.Contents))
		for _, obj := range out.Contents {
			info := storage.ObjectInfo{
				Name: aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
				Tier: string(obj.StorageClass),
			}
			page = append(page, info)
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

func isArchival(tier string) bool {
	return tier == string(types.StorageClassGlacier) || tier == string(types.StorageClassDeepArchive)
}

func wrap(op, name string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return storage.NotFound(storeName, op, name, err)
		case "RestoreAlreadyInProgress":
			return storage.RestorePending(storeName, op, name, err)
		}
	}
	return storage.NewStoreError(storeName, op, name, err)
}

// Verify Store implements storage.Store
var _ storage.Store = (*Store)(nil)
