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

package s3

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobsweep/storage"
)

const (
	ongoingRestore  = `ongoing-request="true"`
	finishedRestore = `ongoing-request="false", expiry-date="Fri, 21 Dec 2012 00:00:00 GMT"`
)

type fakeAPI struct {
	mu       sync.Mutex
	heads    map[string]*s3.HeadObjectOutput
	copies   []*s3.CopyObjectInput
	restores []*s3.RestoreObjectInput
	deletes  []string
	pages    []*s3.ListObjectsV2Output
	listIdx  int
	failWith error
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out, ok := f.heads[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return out, nil
}

func (f *fakeAPI) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, in)
	if head, ok := f.heads[aws.ToString(in.Key)]; ok {
		head.StorageClass = in.StorageClass
		head.Restore = nil
	}
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeAPI) RestoreObject(_ context.Context, in *s3.RestoreObjectInput, _ ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	head, ok := f.heads[aws.ToString(in.Key)]
	if ok && aws.ToString(head.Restore) == ongoingRestore {
		return nil, &smithy.GenericAPIError{Code: "RestoreAlreadyInProgress", Message: "Object restore is already in progress"}
	}
	f.restores = append(f.restores, in)
	if ok {
		head.Restore = aws.String(ongoingRestore)
	}
	return &s3.RestoreObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := f.pages[f.listIdx]
	f.listIdx++
	return out, nil
}

func TestPropertiesInfersStandard(t *testing.T) {
	api := &fakeAPI{heads: map[string]*s3.HeadObjectOutput{
		"a": {ContentLength: aws.Int64(5)},
		"g": {StorageClass: types.StorageClassGlacier, Restore: aws.String(`ongoing-request="true"`)},
	}}
	s := NewWithAPI(api, "bucket")
	ctx := context.Background()

	props, err := s.Properties(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", props.Tier)
	assert.True(t, props.TierInferred)
	assert.EqualValues(t, 5, props.Size)

	props, err = s.Properties(ctx, "g")
	require.NoError(t, err)
	assert.True(t, props.Archived)
	assert.True(t, props.RehydratePending)

	_, err = s.Properties(ctx, "missing")
	assert.True(t, storage.IsNotFound(err))

	ok, err := s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetTierCopiesInPlace(t *testing.T) {
	api := &fakeAPI{heads: map[string]*s3.HeadObjectOutput{"dir/a b.jpg": {}}}
	s := NewWithAPI(api, "bucket")

	require.NoError(t, s.SetTier(context.Background(), "dir/a b.jpg", "STANDARD_IA"))

	require.Len(t, api.copies, 1)
	in := api.copies[0]
	assert.Equal(t, types.StorageClassStandardIa, in.StorageClass)
	assert.Equal(t, "bucket/dir%2Fa%20b.jpg", aws.ToString(in.CopySource))
	assert.Equal(t, types.MetadataDirectiveCopy, in.MetadataDirective)
}

func TestSetTierRestoresArchived(t *testing.T) {
	api := &fakeAPI{heads: map[string]*s3.HeadObjectOutput{"a": {StorageClass: types.StorageClassDeepArchive}}}
	s := NewWithAPI(api, "bucket")

	require.NoError(t, s.SetTier(context.Background(), "a", "STANDARD"))

	assert.Empty(t, api.copies)
	require.Len(t, api.restores, 1)
	assert.Equal(t, RestoreDays, aws.ToInt32(api.restores[0].RestoreRequest.Days))
}

func TestSetTierWhileRestoring(t *testing.T) {
	api := &fakeAPI{heads: map[string]*s3.HeadObjectOutput{
		"a": {StorageClass: types.StorageClassGlacier, Restore: aws.String(ongoingRestore)},
	}}
	s := NewWithAPI(api, "bucket")

	err := s.SetTier(context.Background(), "a", "STANDARD")
	require.Error(t, err)
	assert.True(t, storage.IsRestorePending(err))
	assert.False(t, storage.IsNotFound(err))
	assert.Empty(t, api.restores)
	assert.Empty(t, api.copies)
}

func TestSetTierCopiesRestoredObject(t *testing.T) {
	api := &fakeAPI{heads: map[string]*s3.HeadObjectOutput{
		"a": {StorageClass: types.StorageClassGlacier, Restore: aws.String(finishedRestore)},
	}}
	s := NewWithAPI(api, "bucket")
	ctx := context.Background()

	props, err := s.Properties(ctx, "a")
	require.NoError(t, err)
	assert.True(t, props.Restored)
	assert.False(t, props.RehydratePending)

	require.NoError(t, s.SetTier(ctx, "a", "STANDARD"))
	assert.Empty(t, api.restores)
	require.Len(t, api.copies, 1)
	assert.Equal(t, types.StorageClassStandard, api.copies[0].StorageClass)

	props, err = s.Properties(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", props.Tier)
	assert.False(t, props.Archived)
}

func TestSetTierConvergesOutOfArchive(t *testing.T) {
	api := &fakeAPI{heads: map[string]*s3.HeadObjectOutput{"a": {StorageClass: types.StorageClassDeepArchive}}}
	s := NewWithAPI(api, "bucket")
	ctx := context.Background()

	require.NoError(t, s.SetTier(ctx, "a", "STANDARD"))
	assert.True(t, storage.IsRestorePending(s.SetTier(ctx, "a", "STANDARD")))

	api.heads["a"].Restore = aws.String(finishedRestore)
	require.NoError(t, s.SetTier(ctx, "a", "STANDARD"))

	assert.Len(t, api.restores, 1)
	require.Len(t, api.copies, 1)
	assert.Equal(t, types.StorageClassStandard, api.heads["a"].StorageClass)
}

func TestRestoreAlreadyInProgress(t *testing.T) {
	err := wrap("SetTier", "a", &smithy.GenericAPIError{Code: "RestoreAlreadyInProgress"})
	assert.True(t, storage.IsRestorePending(err))
}

func TestDeleteWrapsErrors(t *testing.T) {
	api := &fakeAPI{failWith: errors.New("SlowDown")}
	s := NewWithAPI(api, "bucket")

	err := s.Delete(context.Background(), "a")
	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Delete", se.Operation)
	assert.False(t, storage.IsNotFound(err))
}

func TestListPages(t *testing.T) {
	api := &fakeAPI{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{{Key: aws.String("p/1"), Size: aws.Int64(1), StorageClass: types.ObjectStorageClassStandard}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("t1"),
		},
		{
			Contents:    []types.Object{{Key: aws.String("p/2"), Size: aws.Int64(2), StorageClass: types.ObjectStorageClassGlacier}},
			IsTruncated: aws.Bool(false),
		},
	}}
	s := NewWithAPI(api, "bucket")

	var got []storage.ObjectInfo
	err := s.List(context.Background(), "p/", 1, func(page []storage.ObjectInfo) error {
		got = append(got, page...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []storage.ObjectInfo{
		{Name: "p/1", Size: 1, Tier: "STANDARD"},
		{Name: "p/2", Size: 2, Tier: "GLACIER"},
	}, got)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
