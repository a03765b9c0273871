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

// Package config loads the organization API configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	kerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"

	"k8c.io/organization-manager/internal/repository"
	"k8c.io/organization-manager/internal/tier"
	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

// RepositoryTokenEnv overrides repository.token.
const RepositoryTokenEnv = "ORGANIZATION_REPOSITORY_TOKEN"

const (
	DefaultAddress                 = ":8080"
	DefaultApplicationName         = "organization-api"
	DefaultShutdownTimeoutSeconds  = 30
	DefaultKeepAliveSeconds        = 30
	DefaultKeepAliveTimeoutSeconds = 5
	DefaultTokenValiditySeconds    = 60
)

// Config is the root of the configuration file. It is read-only after Load.
type Config struct {
	Server       Server       `json:"server"`
	Service      Service      `json:"service"`
	Organization Organization `json:"organization"`
	Repository   Repository   `json:"repository"`
	Tiers        Tiers        `json:"tiers"`

	// Secrets maps cluster and lower-case tier name to environment overrides.
	Secrets map[string]map[string]tier.EnvironmentSecrets `json:"secrets,omitempty"`

	OIDC     OIDC     `json:"oidc"`
	Metadata Metadata `json:"metadata"`
}

type Server struct {
	Address                string `json:"address" validate:"hostname_port"`
	ApplicationName        string `json:"applicationName" validate:"required"`
	ShutdownTimeoutSeconds int    `json:"shutdownTimeoutSeconds" validate:"gte=0"`
}

// Service selects the deployments this instance writes to directly.
type Service struct {
	ManagedCluster       string   `json:"managedCluster,omitempty"`
	ControlledNamespaces []string `json:"controlledNamespaces,omitempty" validate:"dive,required"`
	LookbackDays         int      `json:"lookbackDays" validate:"gte=0"`
}

type Organization struct {
	MandatoryEntitlements []string          `json:"mandatoryEntitlements,omitempty"`
	DefaultEntitlements   map[string]string `json:"defaultEntitlements,omitempty"`
}

type Repository struct {
	URL            string `json:"url" validate:"required"`
	Branch         string `json:"branch,omitempty"`
	Token          string `json:"token,omitempty"`
	CommitterName  string `json:"committerName" validate:"required"`
	CommitterEmail string `json:"committerEmail" validate:"required,email"`
	Directory      string `json:"directory,omitempty"`
}

type Tiers struct {
	CountingPolicy string                   `json:"countingPolicy,omitempty"`
	Definitions    map[string]tier.Defaults `json:"definitions,omitempty"`
}

type OIDC struct {
	// Profile maps a cluster to its OAuth provider.
	Profile map[string]OIDCProfile `json:"profile,omitempty"`
}

type OIDCProfile struct {
	OAuth orgv1.OAuthProvider `json:"oauth"`
}

// Metadata configures the metadata store used to issue tokens. Token issuance
// is disabled when Address is empty.
type Metadata struct {
	Address                 string `json:"address,omitempty"`
	UserAgent               string `json:"userAgent,omitempty"`
	KeepAliveSeconds        int    `json:"keepAliveSeconds" validate:"gte=0"`
	KeepAliveTimeoutSeconds int    `json:"keepAliveTimeoutSeconds" validate:"gte=0"`
	TokenValiditySeconds    int    `json:"tokenValiditySeconds" validate:"gte=0"`
}

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes data, applies environment overrides and defaults and validates
// the result. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if token, ok := os.LookupEnv(RepositoryTokenEnv); ok {
		cfg.Repository.Token = token
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SetDefaults fills in unset optional fields.
func (c *Config) SetDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ApplicationName == "" {
		c.Server.ApplicationName = DefaultApplicationName
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = DefaultShutdownTimeoutSeconds
	}
	if c.Service.LookbackDays == 0 {
		c.Service.LookbackDays = repository.DefaultLookbackDays
	}
	if c.Repository.CommitterName == "" {
		c.Repository.CommitterName = c.Server.ApplicationName
	}
	if c.Tiers.CountingPolicy == "" {
		c.Tiers.CountingPolicy = tier.UnlimitedPolicyName
	}
	if c.Metadata.UserAgent == "" {
		c.Metadata.UserAgent = c.Server.ApplicationName
	}
	if c.Metadata.KeepAliveSeconds == 0 {
		c.Metadata.KeepAliveSeconds = DefaultKeepAliveSeconds
	}
	if c.Metadata.KeepAliveTimeoutSeconds == 0 {
		c.Metadata.KeepAliveTimeoutSeconds = DefaultKeepAliveTimeoutSeconds
	}
	if c.Metadata.TokenValiditySeconds == 0 {
		c.Metadata.TokenValiditySeconds = DefaultTokenValiditySeconds
	}
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed on the %q rule", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if len(c.Service.ControlledNamespaces) > 0 && strings.TrimSpace(c.Service.ManagedCluster) == "" {
		errs = append(errs, fmt.Errorf("service.managedCluster is required when controlled namespaces are set"))
	}

	if _, err := tier.ParseCountingPolicy(c.Tiers.CountingPolicy); err != nil {
		errs = append(errs, fmt.Errorf("tiers.countingPolicy: %w", err))
	}

	for name := range c.Tiers.Definitions {
		if _, err := tier.ParseTier(name); err != nil {
			errs = append(errs, fmt.Errorf("tiers.definitions: unknown tier %q", name))
		}
	}

	return kerrors.NewAggregate(errs)
}

// TierDefinitions returns the tier defaults keyed by tier.
func (c *Config) TierDefinitions() map[tier.Tier]tier.Defaults {
	result := make(map[tier.Tier]tier.Defaults, len(c.Tiers.Definitions))
	for name, defaults := range c.Tiers.Definitions {
		t, err := tier.ParseTier(name)
		if err != nil {
			continue
		}
		result[t] = defaults
	}
	return result
}

// OIDCProviders returns the OAuth provider of every cluster with a profile.
func (c *Config) OIDCProviders() map[string]orgv1.OAuthProvider {
	result := make(map[string]orgv1.OAuthProvider, len(c.OIDC.Profile))
	for cluster, profile := range c.OIDC.Profile {
		result[cluster] = profile.OAuth
	}
	return result
}

func (m Metadata) KeepAlive() time.Duration {
	return time.Duration(m.KeepAliveSeconds) * time.Second
}

func (m Metadata) KeepAliveTimeout() time.Duration {
	return time.Duration(m.KeepAliveTimeoutSeconds) * time.Second
}

func (m Metadata) TokenValidity() time.Duration {
	return time.Duration(m.TokenValiditySeconds) * time.Second
}

func (s Server) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}
