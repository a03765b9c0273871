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

package v1

// Organization is the declarative definition of a tenant organization.
type Organization struct {
	APIVersion string               `json:"apiVersion" yaml:"apiVersion"`
	Kind       string               `json:"kind" yaml:"kind"`
	Metadata   OrganizationMetadata `json:"metadata" yaml:"metadata"`
	Spec       OrganizationSpec     `json:"spec" yaml:"spec"`
}

type OrganizationMetadata struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// +optional
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// OrganizationSpec describes the desired organization.
type OrganizationSpec struct {
	AdminGroup string `json:"adminGroup" yaml:"adminGroup"`
	AdminUser  string `json:"adminUser" yaml:"adminUser"`

	// AdminUserToken is the hashed bootstrap token. Mutually exclusive with
	// AdminUserTokenSecret.
	//
	// +optional
	AdminUserToken string `json:"adminUserToken,omitempty" yaml:"adminUserToken,omitempty"`

	// AdminUserTokenSecret references a secret holding the hashed bootstrap token.
	//
	// +optional
	AdminUserTokenSecret *SecretWrapper `json:"adminUserTokenSecret,omitempty" yaml:"adminUserTokenSecret,omitempty"`

	// Entitlements are sorted by name.
	Entitlements []Entitlement `json:"entitlements,omitempty" yaml:"entitlements,omitempty"`

	Hostname string `json:"hostname" yaml:"hostname"`
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`

	// +optional
	TLS *TLS `json:"tls,omitempty" yaml:"tls,omitempty"`

	// +optional
	IngressAnnotations map[string]string `json:"ingressAnnotations,omitempty" yaml:"ingressAnnotations,omitempty"`

	// +optional
	OAuthProvider *OAuthProvider `json:"oauthProvider,omitempty" yaml:"oauthProvider,omitempty"`
}

// Entitlement is a named grant. The CONTRACT entitlement carries Expiry, every
// other entitlement carries Value.
type Entitlement struct {
	Expiry string `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Name   string `json:"name" yaml:"name"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
}

type SecretWrapper struct {
	KubernetesSecret KubernetesSecret `json:"kubernetesSecret" yaml:"kubernetesSecret"`
}

type KubernetesSecret struct {
	Name string `json:"name" yaml:"name"`
	Key  string `json:"key" yaml:"key"`
}

type TLS struct {
	// +optional
	IssuerName string `json:"issuerName,omitempty" yaml:"issuerName,omitempty"`
	// +optional
	IssuerType string `json:"issuerType,omitempty" yaml:"issuerType,omitempty"`
	SecretName string `json:"secretName" yaml:"secretName"`
}

type OAuthProvider struct {
	OAuthIssuerID       string        `json:"oauthIssuerId" yaml:"oauthIssuerId"`
	OAuthIssuerLocation string        `json:"oauthIssuerLocation" yaml:"oauthIssuerLocation"`
	OAuthClientID       string        `json:"oauthClientId" yaml:"oauthClientId"`
	OAuthClientSecret   SecretWrapper `json:"oauthClientSecret" yaml:"oauthClientSecret"`
}
