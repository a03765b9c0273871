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
	"regexp"
	"strings"

	"k8c.io/organization-manager/internal/pkg/apierror"
)

// MaxIDLength is the maximum length of an organization id.
const MaxIDLength = 36

var (
	idPattern       = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?(\.[a-z0-9]([-a-z0-9]*[a-z0-9])?)*$`)
	contractPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}Z$`)
	wildcardPattern = regexp.MustCompile(`^wildcard\..*-tls$`)
)

// IsWildcardSecret reports whether secretName names a pre-provisioned wildcard
// certificate secret.
func IsWildcardSecret(secretName string) bool {
	return wildcardPattern.MatchString(secretName)
}

// IsValidID reports whether id can be used as an organization id.
func IsValidID(id string) bool {
	return len(id) <= MaxIDLength && idPattern.MatchString(id)
}

// IsPathSegment reports whether name can be used as a single directory name
// of the configuration repository.
func IsPathSegment(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// IsValidContract reports whether value is a valid CONTRACT expiry instant.
func IsValidContract(value string) bool {
	return contractPattern.MatchString(value)
}

// ValidateRequest checks a record as submitted by a caller. The CONTRACT
// entitlement may still be missing because defaults are merged afterwards.
func (r *Record) ValidateRequest() error {
	return r.validate(false)
}

// Validate checks every invariant of a record about to be persisted.
func (r *Record) Validate() error {
	return r.validate(true)
}

func (r *Record) validate(requireContract bool) error {
	var violations []string

	if !IsValidID(r.ID) {
		violations = append(violations, "Organization ID is not valid")
	}
	if strings.TrimSpace(r.Name) == "" {
		violations = append(violations, "name cannot be blank")
	}
	if strings.TrimSpace(r.Hostname) == "" {
		violations = append(violations, "hostname cannot be blank")
	}
	if !r.hasValidAdminCredential() {
		violations = append(violations, "Exactly one of adminUserToken or adminUserTokenSecret needs to be properly filled")
	}
	if strings.TrimSpace(r.DeploymentProperties.Cluster) == "" || strings.TrimSpace(r.DeploymentProperties.Deployment) == "" {
		violations = append(violations, "Fields cluster and deployment cannot be blank")
	} else if !IsPathSegment(r.DeploymentProperties.Cluster) || !IsPathSegment(r.DeploymentProperties.Deployment) {
		violations = append(violations, "Fields cluster and deployment must be single path segments")
	}

	contract, hasContract := r.entitlement(EntitlementContract)
	switch {
	case hasContract && !IsValidContract(contract):
		violations = append(violations, "Entitlement 'Contract' has invalid value")
	case !hasContract && requireContract:
		violations = append(violations, "Entitlement 'Contract' is missing")
	}

	oidc, _ := r.entitlement(EntitlementManagedOIDC)
	if strings.TrimSpace(oidc) == "" {
		if r.OAuthProvider != nil {
			violations = append(violations, "OIDC cannot be set when the MANAGED_OIDC entitlement is not set")
		}
	} else if r.OAuthProvider == nil {
		violations = append(violations, "OIDC cannot be empty when the MANAGED_OIDC entitlement is set")
	}

	if r.TLS != nil {
		blankIssuer := strings.TrimSpace(r.TLS.IssuerName) == "" && strings.TrimSpace(r.TLS.IssuerType) == ""
		missingIssuer := strings.TrimSpace(r.TLS.IssuerName) == "" || strings.TrimSpace(r.TLS.IssuerType) == ""
		if IsWildcardSecret(r.TLS.SecretName) {
			if !blankIssuer {
				violations = append(violations, "IssuerName and IssuerType cannot be set with wildcard secretName")
			}
		} else if missingIssuer {
			violations = append(violations, "IssuerName and IssuerType cannot be empty")
		}
	}

	if len(violations) > 0 {
		return apierror.InvalidOrganization(r.ID, violations)
	}
	return nil
}

func (r *Record) hasValidAdminCredential() bool {
	if strings.TrimSpace(r.AdminUserToken) != "" {
		return r.AdminUserTokenSecret == nil
	}

	if r.AdminUserTokenSecret == nil {
		return false
	}
	secret := r.AdminUserTokenSecret.KubernetesSecret
	return strings.TrimSpace(secret.Name) != "" && strings.TrimSpace(secret.Key) != ""
}

// entitlement looks up name case-insensitively so validation does not depend on
// Normalize having run.
func (r *Record) entitlement(name string) (string, bool) {
	if v, ok := r.Entitlements[name]; ok {
		return v, true
	}
	for k, v := range r.Entitlements {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
