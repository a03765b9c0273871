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
	"context"
	"fmt"

	"go.uber.org/zap"

	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

// Config holds the configuration of the synchronizer.
type Config struct {
	Log *zap.SugaredLogger

	// ManagedCluster is the cluster this instance writes to.
	ManagedCluster string

	// ControlledNamespaces are the deployments reconciled, in order.
	ControlledNamespaces []string

	// LookbackDays bounds the Git history searched for deleted organizations.
	// When set to 0, the repository default is used.
	LookbackDays int
}

func (c *Config) validate() error {
	if c.Log == nil {
		return fmt.Errorf("log cannot be nil")
	}

	if c.LookbackDays < 0 {
		return fmt.Errorf("lookback days must be a non-negative number")
	}

	return nil
}

// Repository is the part of the Git synchronizer used for reconciliation.
type Repository interface {
	ListOrganizations(cluster, deployment string) ([]string, error)
	ListDeletedOrganizations(ctx context.Context, cluster, deployment string, lookbackDays int) ([]string, error)
	CreateOrganizationsAll(ctx context.Context, orgs []orgv1.Organization, cluster string) error
}

// Lister lists cluster organizations.
type Lister interface {
	ListOrganizations(ctx context.Context, namespace string, except []string) ([]orgv1.Organization, error)
}

// Synchronizer captures cluster-only organizations into Git.
type Synchronizer struct {
	cfg    *Config
	lister Lister
	logger *zap.SugaredLogger
}

func New(cfg *Config, lister Lister) (*Synchronizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("failed to instantiate synchronizer: config is nil")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to instantiate synchronizer: %w", err)
	}

	if lister == nil {
		return nil, fmt.Errorf("failed to instantiate synchronizer: lister is nil")
	}

	return &Synchronizer{
		cfg:    cfg,
		lister: lister,
		logger: cfg.Log,
	}, nil
}

// Enabled reports whether there is anything to reconcile.
func (s *Synchronizer) Enabled() bool {
	return s.cfg.ManagedCluster != "" && len(s.cfg.ControlledNamespaces) > 0
}
