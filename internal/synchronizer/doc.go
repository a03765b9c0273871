/*
Copyright 2025 The Organization Manager contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package synchronizer implements the reconciliation that captures
// Organizations existing only in the cluster into the configuration repository.
//
// For every controlled namespace the synchronizer collects the organizations
// tracked in Git and those deleted from Git within the lookback window, lists
// the cluster organizations outside of both sets and commits them to Git in a
// single push per namespace.
//
// Key features:
// - Organizations deleted from Git are never resurrected from the cluster
// - Controller annotations (kopf., kubectl.) are stripped before capture
// - Dry runs report what would be captured without writing anything
// - Namespaces are processed in order, the first failure aborts the run
package synchronizer
