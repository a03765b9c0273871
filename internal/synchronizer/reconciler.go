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

	"k8c.io/organization-manager/internal/pkg/kubernetes"
	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

// Synchronize reconciles every controlled namespace and returns the captured
// organization names per namespace. Namespaces already pushed stay pushed when
// a later one fails.
func (s *Synchronizer) Synchronize(ctx context.Context, repo Repository, dryRun bool) (map[string][]string, error) {
	result := make(map[string][]string, len(s.cfg.ControlledNamespaces))
	if !s.Enabled() {
		s.logger.Info("No managed cluster or controlled namespaces configured, nothing to synchronize")
		return result, nil
	}

	for _, namespace := range s.cfg.ControlledNamespaces {
		l := s.logger.With("cluster", s.cfg.ManagedCluster, "namespace", namespace, "dry_run", dryRun)

		names, err := s.synchronizeNamespace(ctx, l, repo, namespace, dryRun)
		if err != nil {
			return nil, fmt.Errorf("namespace %q: %w", namespace, err)
		}
		result[namespace] = names
	}

	return result, nil
}

func (s *Synchronizer) synchronizeNamespace(
	ctx context.Context,
	l *zap.SugaredLogger,
	repo Repository,
	namespace string,
	dryRun bool,
) ([]string, error) {
	l.Info("Synchronizing organizations")

	tracked, err := repo.ListOrganizations(s.cfg.ManagedCluster, namespace)
	if err != nil {
		return nil, err
	}

	deleted, err := repo.ListDeletedOrganizations(ctx, s.cfg.ManagedCluster, namespace, s.cfg.LookbackDays)
	if err != nil {
		return nil, err
	}

	observed, err := s.lister.ListOrganizations(ctx, namespace, exclusions(tracked, deleted))
	if err != nil {
		return nil, err
	}

	toCapture := OrganizationsToCapture(observed, tracked, deleted)
	names := organizationNames(toCapture)

	if dryRun {
		l.Infow("Dry run, organizations not captured", "organizations", names)
		return names, nil
	}

	if err := repo.CreateOrganizationsAll(ctx, kubernetes.CleanOrgDefinitions(toCapture), s.cfg.ManagedCluster); err != nil {
		return nil, err
	}

	l.Infow("Synchronization complete", "captured", len(names), "tracked", len(tracked), "deleted", len(deleted))
	return names, nil
}

func organizationNames(orgs []orgv1.Organization) []string {
	names := make([]string, 0, len(orgs))
	for i := range orgs {
		names = append(names, orgs[i].Metadata.Name)
	}
	return names
}
