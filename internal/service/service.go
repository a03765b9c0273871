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

// Package service implements the organization use cases: create (raw and
// tier based), delete and synchronize. It decides which side effects happen
// and in which order; the Git repository is always written, the cluster only
// when this instance manages the target deployment.
package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/organization"
	"k8c.io/organization-manager/internal/pkg/apierror"
	omlog "k8c.io/organization-manager/internal/pkg/log"
	"k8c.io/organization-manager/internal/pkg/metrics"
	"k8c.io/organization-manager/internal/synchronizer"
	"k8c.io/organization-manager/internal/tier"
	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

// Config holds the static configuration of the service.
type Config struct {
	Log *zap.SugaredLogger

	// ManagedCluster is the cluster this instance writes to directly.
	ManagedCluster string

	// ControlledNamespaces are the deployments of ManagedCluster written directly.
	ControlledNamespaces []string

	// MandatoryEntitlements must be present after defaults are merged.
	MandatoryEntitlements []string

	// DefaultEntitlements are merged under the caller's entitlements.
	DefaultEntitlements map[string]string
}

func (c *Config) validate() error {
	if c.Log == nil {
		return fmt.Errorf("log cannot be nil")
	}

	if len(c.ControlledNamespaces) > 0 && strings.TrimSpace(c.ManagedCluster) == "" {
		return fmt.Errorf("controlled namespaces require a managed cluster")
	}

	return nil
}

// Gateway creates organizations in the cluster.
type Gateway interface {
	CreateOrganization(ctx context.Context, org *orgv1.Organization) error
}

// Repository is a working copy of the configuration repository.
type Repository interface {
	synchronizer.Repository

	CreateOrganization(ctx context.Context, org *orgv1.Organization, cluster string) error
	DeleteOrganization(ctx context.Context, id, cluster, deployment string) error
	Close() error
}

// RepositoryOpener opens a fresh working copy.
type RepositoryOpener func(ctx context.Context) (Repository, error)

// Resolver turns tier requests into records.
type Resolver interface {
	Resolve(ctx context.Context, req *tier.Request, t tier.Tier) (*organization.Record, error)
}

// Dependencies are the collaborators of the service.
type Dependencies struct {
	Gateway        Gateway
	OpenRepository RepositoryOpener
	Resolver       Resolver
	Synchronizer   *synchronizer.Synchronizer
	Metrics        *metrics.Recorder
}

func (d *Dependencies) validate() error {
	if d.Gateway == nil {
		return fmt.Errorf("gateway cannot be nil")
	}
	if d.OpenRepository == nil {
		return fmt.Errorf("repository opener cannot be nil")
	}
	if d.Resolver == nil {
		return fmt.Errorf("tier resolver cannot be nil")
	}
	if d.Synchronizer == nil {
		return fmt.Errorf("synchronizer cannot be nil")
	}
	if d.Metrics == nil {
		return fmt.Errorf("metrics recorder cannot be nil")
	}
	return nil
}

// OrganizationService orchestrates organization writes.
type OrganizationService struct {
	cfg  *Config
	deps Dependencies
	log  *zap.SugaredLogger

	newID func() string
}

func New(cfg *Config, deps Dependencies) (*OrganizationService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("failed to instantiate organization service: config is nil")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to instantiate organization service: %w", err)
	}

	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("failed to instantiate organization service: %w", err)
	}

	return &OrganizationService{
		cfg:   cfg,
		deps:  deps,
		log:   cfg.Log,
		newID: uuid.NewString,
	}, nil
}

// CreateOrganization validates record, merges default entitlements and writes
// the organization. The returned record carries the effective entitlements.
func (s *OrganizationService) CreateOrganization(ctx context.Context, record *organization.Record) (*organization.Record, error) {
	result := *record
	if result.ID == "" {
		result.ID = s.newID()
	}
	result.Normalize()

	l := omlog.Organization(s.log, result.ID, result.DeploymentProperties.Cluster, result.DeploymentProperties.Deployment)
	l.Info("Validating organization definition")

	if err := result.ValidateRequest(); err != nil {
		return nil, err
	}

	entitlements := organization.MergeEntitlements(s.cfg.DefaultEntitlements, result.Entitlements)
	if missing := organization.MissingEntitlements(entitlements, s.cfg.MandatoryEntitlements); len(missing) > 0 {
		l.Warnw("Mandatory entitlements are missing", "missing", missing)
		return nil, apierror.MissingMandatoryEntitlement(missing)
	}
	result.Entitlements = organization.RemoveCollisions(entitlements)

	if err := result.Validate(); err != nil {
		return nil, err
	}

	err := s.deps.Metrics.DurationWithCounter(metrics.OperationCreate, func() error {
		return s.createInServices(ctx, l, &result)
	})
	if err != nil {
		l.Errorw("Failed to create organization", "error", err)
		return nil, err
	}

	return &result, nil
}

// CreateTierOrganization resolves req against the named tier and creates the
// resulting organization.
func (s *OrganizationService) CreateTierOrganization(ctx context.Context, req *tier.Request, tierName string) (*organization.Record, error) {
	t, err := tier.ParseTier(tierName)
	if err != nil {
		s.log.Warnw("Incorrect tier type", "tier", tierName)
		return nil, err
	}

	record, err := s.deps.Resolver.Resolve(ctx, req, t)
	if err != nil {
		return nil, err
	}

	return s.CreateOrganization(ctx, record)
}

// DeleteOrganization removes the organization from Git only. The GitOps
// controller removes it from the cluster.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, id string, deployment organization.Deployment) error {
	if strings.TrimSpace(deployment.Cluster) == "" || strings.TrimSpace(deployment.Deployment) == "" {
		return apierror.BadRequest("Fields cluster and deployment cannot be blank")
	}
	if !organization.IsPathSegment(deployment.Cluster) || !organization.IsPathSegment(deployment.Deployment) || !organization.IsPathSegment(id) {
		return apierror.BadRequest("Fields organizationId, cluster and deployment must be single path segments")
	}

	l := omlog.Organization(s.log, id, deployment.Cluster, deployment.Deployment)
	l.Info("Deleting organization")

	return s.deps.Metrics.DurationWithCounter(metrics.OperationDelete, func() error {
		return s.deps.Metrics.DurationWithCounter(metrics.OperationDeleteRepository, func() error {
			return s.withRepository(ctx, func(repo Repository) error {
				return repo.DeleteOrganization(ctx, id, deployment.Cluster, deployment.Deployment)
			})
		})
	})
}

// SynchronizeOrganizations captures cluster-only organizations of every
// controlled namespace into Git using a single working copy.
func (s *OrganizationService) SynchronizeOrganizations(ctx context.Context, dryRun bool) (map[string][]string, error) {
	if !s.deps.Synchronizer.Enabled() {
		return map[string][]string{}, nil
	}

	var result map[string][]string
	err := s.withRepository(ctx, func(repo Repository) error {
		var err error
		result, err = s.deps.Synchronizer.Synchronize(ctx, repo, dryRun)
		return err
	})
	if err != nil {
		s.log.Errorw("Failed to synchronize organizations", "error", err)
		return nil, err
	}

	return result, nil
}

func (s *OrganizationService) createInServices(ctx context.Context, l *zap.SugaredLogger, record *organization.Record) error {
	deployment := record.DeploymentProperties
	definition := record.Definition(deployment.Deployment)

	if record.DryRun {
		l.Infow("Dry run, organization definition built", "definition", definition)
		return nil
	}

	if s.managesDeployment(deployment) {
		err := s.deps.Metrics.DurationWithCounter(metrics.OperationCreateK8s, func() error {
			return s.deps.Gateway.CreateOrganization(ctx, definition)
		})
		if err != nil {
			return err
		}
	}

	return s.deps.Metrics.DurationWithCounter(metrics.OperationCreateRepository, func() error {
		return s.withRepository(ctx, func(repo Repository) error {
			return repo.CreateOrganization(ctx, definition, deployment.Cluster)
		})
	})
}

func (s *OrganizationService) managesDeployment(deployment organization.Deployment) bool {
	return s.cfg.ManagedCluster == deployment.Cluster && slices.Contains(s.cfg.ControlledNamespaces, deployment.Deployment)
}

func (s *OrganizationService) withRepository(ctx context.Context, f func(repo Repository) error) error {
	repo, err := s.deps.OpenRepository(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			s.log.Warnw("Failed to close organization repository", "error", err)
		}
	}()

	return f(repo)
}
