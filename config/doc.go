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

// Package config loads blobsweep's YAML configuration file.
//
// Values may reference environment variables as ${VAR}, ${VAR:-default}
// or $VAR; references are expanded before the YAML is parsed, so secrets
// such as SAS tokens and access keys can stay out of the file:
//
//	version: "1"
//	backend:
//	  type: azure
//	  azure:
//	    account: camtraps
//	    container: images
//	    sas_token: ${AZURE_SAS_TOKEN}
//	pipeline:
//	  workers: 100
//	  block_size: 500
//	checkpoint:
//	  redis_addr: ${REDIS_ADDR:-localhost:6379}
//
// Command-line flags override values read from the file.
package config
