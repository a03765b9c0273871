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

package tier

import (
	"fmt"
	"strconv"

	"k8c.io/organization-manager/internal/organization"
)

// CountingPolicy decides how USER_COUNT and WORKSPACE_COUNT are derived from
// the tier defaults and the caller's overrides.
type CountingPolicy interface {
	Name() string
	Entitlements(req *Request, defaults Defaults) map[string]string
}

const (
	UnlimitedPolicyName     = "unlimited"
	WorkspaceOnlyPolicyName = "workspace-only"
)

// ParseCountingPolicy returns the policy registered under name. An empty name
// selects the unlimited policy.
func ParseCountingPolicy(name string) (CountingPolicy, error) {
	switch name {
	case "", UnlimitedPolicyName:
		return UnlimitedPolicy{}, nil
	case WorkspaceOnlyPolicyName:
		return WorkspaceOnlyPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown counting policy %q, expected one of %q or %q", name, UnlimitedPolicyName, WorkspaceOnlyPolicyName)
	}
}

// UnlimitedPolicy lets callers override both counts. An UNLIMITED_* entitlement
// replaces its counted counterpart.
type UnlimitedPolicy struct{}

func (UnlimitedPolicy) Name() string {
	return UnlimitedPolicyName
}

func (UnlimitedPolicy) Entitlements(req *Request, defaults Defaults) map[string]string {
	result := map[string]string{}
	countEntitlement(result, req, organization.EntitlementUserCount, organization.EntitlementUnlimitedUsers, defaults.MaxUserCount)
	countEntitlement(result, req, organization.EntitlementWorkspaceCount, organization.EntitlementUnlimitedWorkspaces, defaults.MaxWorkspaceCount)
	return result
}

// WorkspaceOnlyPolicy fixes the user count to the tier default and only lets
// callers override the workspace count. UNLIMITED_* entitlements are ignored.
type WorkspaceOnlyPolicy struct{}

func (WorkspaceOnlyPolicy) Name() string {
	return WorkspaceOnlyPolicyName
}

func (WorkspaceOnlyPolicy) Entitlements(req *Request, defaults Defaults) map[string]string {
	return map[string]string{
		organization.EntitlementUserCount:      strconv.Itoa(defaults.MaxUserCount),
		organization.EntitlementWorkspaceCount: strconv.Itoa(countOverride(req, organization.EntitlementWorkspaceCount, defaults.MaxWorkspaceCount)),
	}
}

func countEntitlement(result map[string]string, req *Request, counted, unlimited string, fallback int) {
	if req.has(unlimited) {
		result[unlimited] = ""
		return
	}
	result[counted] = strconv.Itoa(countOverride(req, counted, fallback))
}

// countOverride returns the caller's value when exactly one integer override
// exists, fallback otherwise.
func countOverride(req *Request, name string, fallback int) int {
	overrides := req.override(name)
	if len(overrides) != 1 {
		return fallback
	}

	count, err := strconv.Atoi(overrides[0].Value)
	if err != nil {
		return fallback
	}
	return count
}
