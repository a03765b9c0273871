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

// Package tier resolves a tier request (a tier name plus a few caller supplied
// values) into a complete organization record using per-tier defaults.
package tier

import (
	"strings"

	"k8c.io/organization-manager/internal/organization"
	"k8c.io/organization-manager/internal/pkg/apierror"
)

// Tier is a commercial tier. The value is the upper-case tier name.
type Tier string

const (
	POC          Tier = "POC"
	Professional Tier = "PROFESSIONAL"
	Enterprise   Tier = "ENTERPRISE"
	Demo         Tier = "DEMO"
	Trial        Tier = "TRIAL"
	Internal     Tier = "INTERNAL"
	Partners     Tier = "PARTNERS"
)

var AvailableTiers = []Tier{POC, Professional, Enterprise, Demo, Trial, Internal, Partners}

// ParseTier resolves name case-insensitively.
func ParseTier(name string) (Tier, error) {
	for _, t := range AvailableTiers {
		if strings.EqualFold(string(t), name) {
			return t, nil
		}
	}
	return "", apierror.InvalidTier(name)
}

// Lower returns the tier name as used for secret lookups.
func (t Tier) Lower() string {
	return strings.ToLower(string(t))
}

const (
	DefaultPasswordSecretName = "bootstrap-token"
	DefaultPasswordSecretKey  = "hash"
	DefaultExpiryDays         = 30
	DefaultMaxUserCount       = 25
	DefaultMaxWorkspaceCount  = 10

	// IssuerType is the cert-manager issuer kind used for per-organization certificates.
	IssuerType = "ClusterIssuer"
)

// Defaults is the template of a single tier.
type Defaults struct {
	PasswordSecretName string            `json:"orgPasswordSecretName,omitempty"`
	PasswordSecretKey  string            `json:"orgPasswordSecretKey,omitempty"`
	ExpiryDays         int               `json:"orgExpiryDays,omitempty"`
	MaxUserCount       int               `json:"orgMaxUserCount,omitempty"`
	MaxWorkspaceCount  int               `json:"orgMaxWorkspaceCount,omitempty"`
	ManagedOIDC        *bool             `json:"orgManagedOidc,omitempty"`
	CertIssuer         string            `json:"orgCertIssuer,omitempty"`
	IngressAnnotations map[string]string `json:"ingressAnnotations,omitempty"`
	OrgAnnotations     map[string]string `json:"orgAnnotations,omitempty"`
}

// WithDefaults returns a copy of d with unset fields filled in.
func (d Defaults) WithDefaults() Defaults {
	if d.PasswordSecretName == "" {
		d.PasswordSecretName = DefaultPasswordSecretName
	}
	if d.PasswordSecretKey == "" {
		d.PasswordSecretKey = DefaultPasswordSecretKey
	}
	if d.ExpiryDays == 0 {
		d.ExpiryDays = DefaultExpiryDays
	}
	if d.MaxUserCount == 0 {
		d.MaxUserCount = DefaultMaxUserCount
	}
	if d.MaxWorkspaceCount == 0 {
		d.MaxWorkspaceCount = DefaultMaxWorkspaceCount
	}
	if d.ManagedOIDC == nil {
		managed := true
		d.ManagedOIDC = &managed
	}
	return d
}

// IsManagedOIDC reports whether organizations of the tier get a managed OIDC provider.
func (d Defaults) IsManagedOIDC() bool {
	return d.ManagedOIDC == nil || *d.ManagedOIDC
}

// EnvironmentSecrets are per cluster and tier overrides.
type EnvironmentSecrets struct {
	ClientID           string `json:"clientId,omitempty"`
	SecretKey          string `json:"secretKey,omitempty"`
	WildcardCertSecret string `json:"wildcardCertSecret,omitempty"`
}

// EntitlementOverride is a caller supplied entitlement. Expiry is only read for
// CONTRACT and uses the YYYY-MM-DD layout.
type EntitlementOverride struct {
	Name   string `json:"name"`
	Value  string `json:"value,omitempty"`
	Expiry string `json:"expiry,omitempty"`
}

// Request asks for an organization of a given tier.
type Request struct {
	OrganizationID       string                  `json:"organizationId,omitempty"`
	ContactEmail         string                  `json:"contactEmail"`
	OrganizationName     string                  `json:"organizationName"`
	Hostname             string                  `json:"hostname"`
	Entitlements         []EntitlementOverride   `json:"entitlements,omitempty"`
	DeploymentProperties organization.Deployment `json:"deploymentProperties"`
	DryRun               bool                    `json:"dryRun,omitempty"`
}

func (r *Request) override(name string) []EntitlementOverride {
	var matches []EntitlementOverride
	for _, e := range r.Entitlements {
		if strings.EqualFold(e.Name, name) {
			matches = append(matches, e)
		}
	}
	return matches
}

func (r *Request) has(name string) bool {
	return len(r.override(name)) > 0
}
