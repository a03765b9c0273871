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

package organization

import (
	"sort"
	"strings"
)

// MergeEntitlements overlays client entitlements on top of defaults. Client
// values win on collision. Keys are upper-cased.
func MergeEntitlements(defaults, client map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(client))
	for k, v := range defaults {
		merged[strings.ToUpper(k)] = v
	}
	for k, v := range client {
		merged[strings.ToUpper(k)] = v
	}
	return merged
}

// MissingEntitlements returns the mandatory entitlement names absent from
// entitlements, sorted.
func MissingEntitlements(entitlements map[string]string, mandatory []string) []string {
	var missing []string
	for _, name := range mandatory {
		if _, ok := entitlements[strings.ToUpper(name)]; !ok {
			missing = append(missing, strings.ToUpper(name))
		}
	}
	sort.Strings(missing)
	return missing
}

// RemoveCollisions drops counted entitlements superseded by their unlimited
// counterpart. The map is modified in place and returned.
func RemoveCollisions(entitlements map[string]string) map[string]string {
	if _, ok := entitlements[EntitlementUnlimitedUsers]; ok {
		delete(entitlements, EntitlementUserCount)
	}
	if _, ok := entitlements[EntitlementUnlimitedWorkspaces]; ok {
		delete(entitlements, EntitlementWorkspaceCount)
	}
	return entitlements
}
