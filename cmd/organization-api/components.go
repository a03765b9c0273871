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

package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/config"
	"k8c.io/organization-manager/internal/pkg/kubernetes"
	omlog "k8c.io/organization-manager/internal/pkg/log"
	"k8c.io/organization-manager/internal/pkg/metrics"
	"k8c.io/organization-manager/internal/repository"
	"k8c.io/organization-manager/internal/service"
	"k8c.io/organization-manager/internal/synchronizer"
	"k8c.io/organization-manager/internal/tier"
	"k8c.io/organization-manager/internal/tokens"

	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
)

type components struct {
	service  *service.OrganizationService
	tokens   *tokens.Client
	registry *prometheus.Registry
}

func (c *components) Close() error {
	if c.tokens != nil {
		return c.tokens.Close()
	}
	return nil
}

// buildComponents wires the application. The token client is only created
// when a metadata store address is configured.
func buildComponents(rawLog *zap.Logger, cfg *config.Config) (*components, error) {
	restConfig, err := ctrlconfig.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig: %w", err)
	}

	gateway, err := kubernetes.NewGatewayForConfig(restConfig, omlog.Component(rawLog, "kubernetes"))
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	policy, err := tier.ParseCountingPolicy(cfg.Tiers.CountingPolicy)
	if err != nil {
		return nil, err
	}

	resolver, err := tier.NewResolver(&tier.ResolverConfig{
		Log:            omlog.Component(rawLog, "tier"),
		Tiers:          cfg.TierDefinitions(),
		Secrets:        cfg.Secrets,
		OIDC:           cfg.OIDCProviders(),
		CountingPolicy: policy,
	})
	if err != nil {
		return nil, err
	}

	sync, err := synchronizer.New(&synchronizer.Config{
		Log:                  omlog.Component(rawLog, "synchronizer"),
		ManagedCluster:       cfg.Service.ManagedCluster,
		ControlledNamespaces: cfg.Service.ControlledNamespaces,
		LookbackDays:         cfg.Service.LookbackDays,
	}, gateway)
	if err != nil {
		return nil, err
	}

	repoConfig := &repository.Config{
		Log:            omlog.Component(rawLog, "repository"),
		URL:            cfg.Repository.URL,
		Branch:         cfg.Repository.Branch,
		Token:          cfg.Repository.Token,
		CommitterName:  cfg.Repository.CommitterName,
		CommitterEmail: cfg.Repository.CommitterEmail,
		Directory:      cfg.Repository.Directory,
	}
	openRepository := func(ctx context.Context) (service.Repository, error) {
		repo, err := repository.Open(ctx, repoConfig)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	svc, err := service.New(&service.Config{
		Log:                   omlog.Component(rawLog, "service"),
		ManagedCluster:        cfg.Service.ManagedCluster,
		ControlledNamespaces:  cfg.Service.ControlledNamespaces,
		MandatoryEntitlements: cfg.Organization.MandatoryEntitlements,
		DefaultEntitlements:   cfg.Organization.DefaultEntitlements,
	}, service.Dependencies{
		Gateway:        gateway,
		OpenRepository: openRepository,
		Resolver:       resolver,
		Synchronizer:   sync,
		Metrics:        recorder,
	})
	if err != nil {
		return nil, err
	}

	c := &components{
		service:  svc,
		registry: registry,
	}

	if cfg.Metadata.Address != "" {
		c.tokens, err = tokens.Dial(&tokens.Config{
			Log:              omlog.Component(rawLog, "tokens"),
			Address:          cfg.Metadata.Address,
			UserAgent:        cfg.Metadata.UserAgent,
			KeepAlive:        cfg.Metadata.KeepAlive(),
			KeepAliveTimeout: cfg.Metadata.KeepAliveTimeout(),
			Validity:         cfg.Metadata.TokenValidity(),
		})
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}
