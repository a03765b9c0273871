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
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/organization"
	"k8c.io/organization-manager/internal/pkg/apierror"
	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

const (
	expiryDateLayout = "2006-01-02"
	contractLayout   = "2006-01-02T15:04:05Z"
)

var expiryDatePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)

// ResolverConfig holds the static tier configuration.
type ResolverConfig struct {
	Log *zap.SugaredLogger

	// Tiers maps a tier to its defaults. Tiers without an entry use the
	// built-in defaults.
	Tiers map[Tier]Defaults

	// Secrets maps cluster and lower-case tier name to environment overrides.
	Secrets map[string]map[string]EnvironmentSecrets

	// OIDC maps a cluster to its OAuth provider profile.
	OIDC map[string]orgv1.OAuthProvider

	CountingPolicy CountingPolicy
}

func (c *ResolverConfig) validate() error {
	if c.Log == nil {
		return fmt.Errorf("log cannot be nil")
	}

	if c.CountingPolicy == nil {
		return fmt.Errorf("counting policy cannot be nil")
	}

	for t := range c.Tiers {
		if _, err := ParseTier(string(t)); err != nil {
			return fmt.Errorf("tier %q is not supported", t)
		}
	}

	return nil
}

type idGenerator interface {
	Generate(ctx context.Context, company, email, cluster, deployment string) (string, error)
}

// Resolver turns tier requests into organization records.
type Resolver struct {
	cfg *ResolverConfig
	log *zap.SugaredLogger
	ids idGenerator
	now func() time.Time
}

func NewResolver(cfg *ResolverConfig) (*Resolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("failed to instantiate tier resolver: config is nil")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to instantiate tier resolver: %w", err)
	}

	return &Resolver{
		cfg: cfg,
		log: cfg.Log,
		ids: NewIDGenerator(cfg.Log.Named("idgen")),
		now: time.Now,
	}, nil
}

// Defaults returns the effective defaults of t.
func (r *Resolver) Defaults(t Tier) Defaults {
	return r.cfg.Tiers[t].WithDefaults()
}

// Resolve builds a record for req using the defaults of t. The returned record
// satisfies every record invariant.
func (r *Resolver) Resolve(ctx context.Context, req *Request, t Tier) (*organization.Record, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	defaults := r.Defaults(t)
	deployment := req.DeploymentProperties

	id := req.OrganizationID
	if id == "" {
		generated, err := r.ids.Generate(ctx, req.OrganizationName, req.ContactEmail, deployment.Cluster, deployment.Deployment)
		if err != nil {
			return nil, err
		}
		id = generated
	}

	contract, err := r.contract(req, defaults)
	if err != nil {
		return nil, err
	}

	entitlements := r.cfg.CountingPolicy.Entitlements(req, defaults)
	entitlements[organization.EntitlementContract] = contract
	entitlements[organization.EntitlementTier] = string(t)

	record := &organization.Record{
		ID:       id,
		Name:     req.OrganizationName,
		Hostname: req.Hostname,
		AdminUserTokenSecret: &orgv1.SecretWrapper{
			KubernetesSecret: orgv1.KubernetesSecret{
				Name: defaults.PasswordSecretName,
				Key:  defaults.PasswordSecretKey,
			},
		},
		DeploymentProperties: deployment,
		Entitlements:         entitlements,
		TLS:                  r.tls(id, deployment.Cluster, t, defaults),
		OrgAnnotations:       copyAnnotations(defaults.OrgAnnotations),
		IngressAnnotations:   copyAnnotations(defaults.IngressAnnotations),
		DryRun:               req.DryRun,
	}

	if defaults.IsManagedOIDC() {
		entitlements[organization.EntitlementManagedOIDC] = "true"
		record.OAuthProvider = r.oauthProvider(deployment.Cluster, t)
		if record.OAuthProvider == nil {
			r.log.Warnw("Tier requires managed OIDC but the cluster has no OIDC profile", "tier", t, "cluster", deployment.Cluster)
		}
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	r.log.Debugw("Resolved tier organization", "organization_id", id, "tier", t, "policy", r.cfg.CountingPolicy.Name())
	return record, nil
}

// contract returns the CONTRACT instant: the caller's expiry date, or today plus
// the tier expiry, at the start of the day in UTC.
func (r *Resolver) contract(req *Request, defaults Defaults) (string, error) {
	var expiry time.Time

	overrides := req.override(organization.EntitlementContract)
	if len(overrides) > 0 && overrides[0].Expiry != "" {
		parsed, err := time.Parse(expiryDateLayout, overrides[0].Expiry)
		if err != nil {
			return "", apierror.BadRequest(fmt.Sprintf("Invalid CONTRACT expiry %q, expected YYYY-MM-DD", overrides[0].Expiry))
		}
		expiry = parsed
	} else {
		now := r.now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		expiry = today.AddDate(0, 0, defaults.ExpiryDays)
	}

	return expiry.UTC().Format(contractLayout), nil
}

func (r *Resolver) tls(id, cluster string, t Tier, defaults Defaults) *orgv1.TLS {
	secrets := r.environmentSecrets(cluster, t)
	if secrets != nil && organization.IsWildcardSecret(secrets.WildcardCertSecret) {
		return &orgv1.TLS{SecretName: secrets.WildcardCertSecret}
	}

	return &orgv1.TLS{
		SecretName: fmt.Sprintf("%s-tls", id),
		IssuerName: defaults.CertIssuer,
		IssuerType: IssuerType,
	}
}

func (r *Resolver) oauthProvider(cluster string, t Tier) *orgv1.OAuthProvider {
	profile, ok := r.cfg.OIDC[cluster]
	if !ok {
		return nil
	}

	provider := profile
	if secrets := r.environmentSecrets(cluster, t); secrets != nil {
		if secrets.ClientID != "" {
			provider.OAuthClientID = secrets.ClientID
		}
		if secrets.SecretKey != "" {
			provider.OAuthClientSecret.KubernetesSecret.Key = secrets.SecretKey
		}
	}
	return &provider
}

func (r *Resolver) environmentSecrets(cluster string, t Tier) *EnvironmentSecrets {
	byTier, ok := r.cfg.Secrets[cluster]
	if !ok {
		return nil
	}
	secrets, ok := byTier[t.Lower()]
	if !ok {
		return nil
	}
	return &secrets
}

func validateRequest(req *Request) error {
	var violations []string

	if strings.TrimSpace(req.ContactEmail) == "" {
		violations = append(violations, "contactEmail cannot be blank")
	}
	if strings.TrimSpace(req.OrganizationName) == "" {
		violations = append(violations, "organizationName cannot be blank")
	}
	if strings.TrimSpace(req.Hostname) == "" {
		violations = append(violations, "hostname cannot be blank")
	}
	if strings.TrimSpace(req.DeploymentProperties.Cluster) == "" || strings.TrimSpace(req.DeploymentProperties.Deployment) == "" {
		violations = append(violations, "Fields cluster and deployment cannot be blank")
	}

	for _, e := range req.Entitlements {
		if !slices.Contains(organization.KnownEntitlements, strings.ToUpper(e.Name)) {
			violations = append(violations, fmt.Sprintf("unknown entitlement %q", e.Name))
			continue
		}
		if e.Expiry != "" && !expiryDatePattern.MatchString(e.Expiry) {
			violations = append(violations, fmt.Sprintf("entitlement %q has invalid expiry %q", e.Name, e.Expiry))
		}
	}

	if len(violations) > 0 {
		return apierror.BadRequest(strings.Join(violations, "; "))
	}
	return nil
}

func copyAnnotations(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
