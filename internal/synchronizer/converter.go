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

package synchronizer

import (
	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

// OrganizationsToCapture returns the observed organizations that are neither
// tracked in Git nor were deleted from it recently, preserving their order.
func OrganizationsToCapture(observed []orgv1.Organization, tracked, deleted []string) []orgv1.Organization {
	skip := make(map[string]struct{}, len(tracked)+len(deleted))
	for _, name := range exclusions(tracked, deleted) {
		skip[name] = struct{}{}
	}

	result := make([]orgv1.Organization, 0, len(observed))
	for i := range observed {
		if _, ok := skip[observed[i].Metadata.Name]; ok {
			continue
		}
		result = append(result, observed[i])
	}
	return result
}

// exclusions is the union of tracked and deleted names without duplicates.
func exclusions(tracked, deleted []string) []string {
	seen := make(map[string]struct{}, len(tracked)+len(deleted))
	union := make([]string, 0, len(tracked)+len(deleted))

	for _, names := range [][]string{tracked, deleted} {
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			union = append(union, name)
		}
	}
	return union
}
