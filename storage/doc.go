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

/*
Package storage defines the object-store capability that blobsweep's
per-item operations run against.

Backends live in sub-packages:

  - azureblob: Azure Blob Storage (Hot, Cool, Cold, Archive)
  - s3: Amazon S3 and S3-compatible endpoints (storage classes)
  - gcs: Google Cloud Storage (storage classes)
  - memstore: in-memory store for tests and rehearsals

Every backend reports a missing object with an error for which IsNotFound
returns true, so operations can tell "does not exist" apart from transient
failures without inspecting SDK error types.
*/
package storage
