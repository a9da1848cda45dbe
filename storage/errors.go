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
	"github.com/cockroachdb/errors"
)

// StoreError represents errors specific to object-store operations
type StoreError struct {
	Store     string
	Operation string
	Object    string
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Store + "." + e.Operation
	if e.Object != "" {
		msg += " " + e.Object
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new StoreError
func NewStoreError(store, operation, object string, cause error) *StoreError {
	return &StoreError{
		Store:     store,
		Operation: operation,
		Object:    object,
		Cause:     cause,
	}
}

// NotFound builds a StoreError that matches ErrNotFound.
func NotFound(store, operation, object string, cause error) *StoreError {
	if cause == nil {
		cause = ErrNotFound
	} else {
		cause = errors.Mark(cause, ErrNotFound)
	}
	return NewStoreError(store, operation, object, cause)
}

// IsNotFound reports whether err signals a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// RestorePending builds a StoreError that matches ErrRestorePending.
func RestorePending(store, operation, object string, cause error) *StoreError {
	if cause == nil {
		cause = ErrRestorePending
	} else {
		cause = errors.Mark(cause, ErrRestorePending)
	}
	return NewStoreError(store, operation, object, cause)
}

// IsRestorePending reports whether err signals that the object is still
// being brought back from an offline tier.
func IsRestorePending(err error) bool {
	return errors.Is(err, ErrRestorePending)
}
