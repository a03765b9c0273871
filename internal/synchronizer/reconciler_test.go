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
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

func org(name, namespace string, annotations map[string]string) orgv1.Organization {
	return orgv1.Organization{
		APIVersion: orgv1.APIVersion(),
		Kind:       orgv1.OrganizationKindName,
		Metadata:   orgv1.OrganizationMetadata{Name: name, Namespace: namespace, Annotations: annotations},
		Spec:       orgv1.OrganizationSpec{ID: name, Name: name},
	}
}

type fakeLister struct {
	orgs    map[string][]orgv1.Organization
	err     error
	excepts map[string][]string
}

func (f *fakeLister) ListOrganizations(_ context.Context, namespace string, except []string) ([]orgv1.Organization, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.excepts == nil {
		f.excepts = map[string][]string{}
	}
	f.excepts[namespace] = except

	var result []orgv1.Organization
	for _, o := range f.orgs[namespace] {
		if !slices.Contains(except, o.Metadata.Name) {
			result = append(result, o)
		}
	}
	return result, nil
}

type fakeRepository struct {
	tracked   map[string][]string
	deleted   map[string][]string
	lookbacks []int
	created   map[string][]orgv1.Organization
	pushes    int
	createErr error
}

func (f *fakeRepository) ListOrganizations(_, deployment string) ([]string, error) {
	return f.tracked[deployment], nil
}

func (f *fakeRepository) ListDeletedOrganizations(_ context.Context, _, deployment string, lookbackDays int) ([]string, error) {
	f.lookbacks = append(f.lookbacks, lookbackDays)
	return f.deleted[deployment], nil
}

func (f *fakeRepository) CreateOrganizationsAll(_ context.Context, orgs []orgv1.Organization, _ string) error {
	if f.createErr != nil {
		return f.createErr
	}
	if len(orgs) == 0 {
		return nil
	}
	if f.created == nil {
		f.created = map[string][]orgv1.Organization{}
	}
	f.pushes++
	f.created[orgs[0].Metadata.Namespace] = append(f.created[orgs[0].Metadata.Namespace], orgs...)
	return nil
}

func newTestSynchronizer(t *testing.T, lister Lister, namespaces ...string) *Synchronizer {
	t.Helper()

	s, err := New(&Config{
		Log:                  zap.NewNop().Sugar(),
		ManagedCluster:       "cluster-a",
		ControlledNamespaces: namespaces,
		LookbackDays:         20,
	}, lister)
	require.NoError(t, err)
	return s
}

func TestOrganizationsToCapture(t *testing.T) {
	observed := []orgv1.Organization{org("acme", "prod", nil), org("globex", "prod", nil), org("initech", "prod", nil)}

	tests := []struct {
		name     string
		tracked  []string
		deleted  []string
		expected []string
	}{
		{name: "nothing tracked", expected: []string{"acme", "globex", "initech"}},
		{name: "tracked are skipped", tracked: []string{"acme"}, expected: []string{"globex", "initech"}},
		{name: "deleted are not resurrected", deleted: []string{"globex"}, expected: []string{"acme", "initech"}},
		{name: "union of both", tracked: []string{"acme", "globex"}, deleted: []string{"globex", "initech"}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := organizationNames(OrganizationsToCapture(observed, tt.tracked, tt.deleted))
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("unexpected capture (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSynchronize(t *testing.T) {
	lister := &fakeLister{orgs: map[string][]orgv1.Organization{
		"prod": {
			org("acme", "prod", nil),
			org("globex", "prod", map[string]string{"kopf.zalando.org/last-handled-configuration": "{}"}),
			org("initech", "prod", nil),
		},
		"stage": {org("umbrella", "stage", nil)},
	}}
	repo := &fakeRepository{
		tracked: map[string][]string{"prod": {"acme"}},
		deleted: map[string][]string{"prod": {"initech"}},
	}

	s := newTestSynchronizer(t, lister, "prod", "stage")
	result, err := s.Synchronize(context.Background(), repo, false)
	require.NoError(t, err)

	expected := map[string][]string{"prod": {"globex"}, "stage": {"umbrella"}}
	if diff := cmp.Diff(expected, result); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}

	require.Equal(t, []string{"acme", "initech"}, lister.excepts["prod"])
	require.Equal(t, 2, repo.pushes, "one push per namespace")
	require.Nil(t, repo.created["prod"][0].Metadata.Annotations, "controller annotations must be stripped")
	require.Equal(t, []int{20, 20}, repo.lookbacks)
}

func TestSynchronizeDryRun(t *testing.T) {
	lister := &fakeLister{orgs: map[string][]orgv1.Organization{"prod": {org("acme", "prod", nil)}}}
	repo := &fakeRepository{}

	s := newTestSynchronizer(t, lister, "prod")
	result, err := s.Synchronize(context.Background(), repo, true)
	require.NoError(t, err)

	require.Equal(t, map[string][]string{"prod": {"acme"}}, result)
	require.Zero(t, repo.pushes)
}

func TestSynchronizeEmptyNamespaceDoesNotPush(t *testing.T) {
	repo := &fakeRepository{}

	s := newTestSynchronizer(t, &fakeLister{}, "prod")
	result, err := s.Synchronize(context.Background(), repo, false)
	require.NoError(t, err)

	require.Equal(t, map[string][]string{"prod": {}}, result)
	require.Zero(t, repo.pushes)
}

func TestSynchronizeAbortsOnFirstFailure(t *testing.T) {
	errBoom := errors.New("boom")
	lister := &fakeLister{err: errBoom}

	s := newTestSynchronizer(t, lister, "prod", "stage")
	_, err := s.Synchronize(context.Background(), &fakeRepository{}, false)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected lister error, got %v", err)
	}
}

func TestSynchronizeDisabled(t *testing.T) {
	s := newTestSynchronizer(t, &fakeLister{})

	result, err := s.Synchronize(context.Background(), &fakeRepository{}, false)
	require.NoError(t, err)
	require.Empty(t, result)
}
