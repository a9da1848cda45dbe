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

package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreErrorMessage(t *testing.T) {
	err := NewStoreError("azureblob", "SetTier", "a/b.jpg", errors.New("403"))
	assert.Equal(t, "azureblob.SetTier a/b.jpg: 403", err.Error())

	err = NewStoreError("s3", "List", "", nil)
	assert.Equal(t, "s3.List", err.Error())
}

func TestNotFoundMarksCause(t *testing.T) {
	cause := errors.New("BlobNotFound")
	err := NotFound("azureblob", "Delete", "x", cause)

	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsNotFound(NotFound("s3", "Delete", "x", nil)))
	assert.False(t, IsNotFound(NewStoreError("s3", "Delete", "x", cause)))
}
