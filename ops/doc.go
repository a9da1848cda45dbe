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

// Package ops holds the per-item operations blobsweep runs through a
// pipeline: changing an object's access tier, deleting it, and listing
// everything under a prefix.
//
// Every operation implements pipeline.Operation over a storage.Store and
// reports absent objects as pipeline.Missing instead of an error.
// ListFolders runs on its own and produces the prefix list Enumerate reads.
package ops
