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
	"fmt"
	"sort"
	"strings"

	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

// Entitlement names recognized by the service. Other names are passed through.
const (
	EntitlementContract            = "CONTRACT"
	EntitlementTier                = "TIER"
	EntitlementUserCount           = "USER_COUNT"
	EntitlementWorkspaceCount      = "WORKSPACE_COUNT"
	EntitlementManagedOIDC         = "MANAGED_OIDC"
	EntitlementUnlimitedUsers      = "UNLIMITED_USERS"
	EntitlementUnlimitedWorkspaces = "UNLIMITED_WORKSPACES"
)

// KnownEntitlements lists the entitlement names accepted in tier requests.
var KnownEntitlements = []string{
	EntitlementContract,
	EntitlementTier,
	EntitlementUserCount,
	EntitlementWorkspaceCount,
	EntitlementManagedOIDC,
	EntitlementUnlimitedUsers,
	EntitlementUnlimitedWorkspaces,
}

// Deployment names the cluster and deployment (namespace) an organization lives in.
type Deployment struct {
	Cluster    string `json:"cluster"`
	Deployment string `json:"deployment"`
}

func (d Deployment) String() string {
	return fmt.Sprintf("%s/%s", d.Cluster, d.Deployment)
}

// Record is the validated description of an organization.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Hostname string `json:"hostname"`

	AdminUserToken       string               `json:"adminUserToken,omitempty"`
	AdminUserTokenSecret *orgv1.SecretWrapper `json:"adminUserTokenSecret,omitempty"`

	DeploymentProperties Deployment `json:"deploymentProperties"`

	// Entitlements are keyed by upper-case name. UNLIMITED_* entitlements carry
	// an empty value.
	Entitlements map[string]string `json:"entitlements"`

	TLS                *orgv1.TLS           `json:"tls,omitempty"`
	OrgAnnotations     map[string]string    `json:"orgAnnotations,omitempty"`
	IngressAnnotations map[string]string    `json:"ingressAnnotations,omitempty"`
	OAuthProvider      *orgv1.OAuthProvider `json:"oauthProvider,omitempty"`

	// DryRun is accepted on input only.
	DryRun bool `json:"-"`
}

// Normalize upper-cases entitlement keys. Keys differing only in case collapse
// to the lexically last original spelling.
func (r *Record) Normalize() {
	if r.Entitlements == nil {
		return
	}

	keys := make([]string, 0, len(r.Entitlements))
	for k := range r.Entitlements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	normalized := make(map[string]string, len(r.Entitlements))
	for _, k := range keys {
		normalized[strings.ToUpper(k)] = r.Entitlements[k]
	}
	r.Entitlements = normalized
}

// Definition builds the custom resource applied to the cluster and written to Git.
func (r *Record) Definition(namespace string) *orgv1.Organization {
	return &orgv1.Organization{
		APIVersion: orgv1.APIVersion(),
		Kind:       orgv1.OrganizationKindName,
		Metadata: orgv1.OrganizationMetadata{
			Name:        r.ID,
			Namespace:   namespace,
			Annotations: copyMap(r.OrgAnnotations),
		},
		Spec: orgv1.OrganizationSpec{
			AdminGroup:           orgv1.DefaultAdminGroup,
			AdminUser:            orgv1.DefaultAdminUser,
			AdminUserToken:       r.AdminUserToken,
			AdminUserTokenSecret: r.AdminUserTokenSecret,
			Entitlements:         definitionEntitlements(r.Entitlements),
			Hostname:             r.Hostname,
			ID:                   r.ID,
			Name:                 r.Name,
			TLS:                  r.TLS,
			IngressAnnotations:   copyMap(r.IngressAnnotations),
			OAuthProvider:        r.OAuthProvider,
		},
	}
}

func definitionEntitlements(entitlements map[string]string) []orgv1.Entitlement {
	if len(entitlements) == 0 {
		return nil
	}

	names := make([]string, 0, len(entitlements))
	for name := range entitlements {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]orgv1.Entitlement, 0, len(names))
	for _, name := range names {
		if name == EntitlementContract {
			result = append(result, orgv1.Entitlement{Name: name, Expiry: entitlements[name]})
			continue
		}
		result = append(result, orgv1.Entitlement{Name: name, Value: entitlements[name]})
	}
	return result
}

func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
