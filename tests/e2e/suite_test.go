//go:build e2e

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

package e2e_test

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/pkg/kubernetes"
	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/e2e-framework/klient"
	"sigs.k8s.io/e2e-framework/klient/wait"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/yaml"
)

const (
	testNamespace = "organizations-e2e"
	crdManifest   = "testdata/organization-crd.yaml"
)

var errClientNotInitialized = errors.New("client is not initialized")

type suite struct {
	client  client.Client
	gateway *kubernetes.Gateway
}

func newSuite(config *envconf.Config) (*suite, error) {
	s := &suite{}
	if err := s.withClient(config.Client()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *suite) withClient(kl klient.Client) error {
	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return err
	}

	cl, err := client.New(kl.RESTConfig(), client.Options{Scheme: scheme})
	if err != nil {
		return err
	}

	gateway, err := kubernetes.NewGatewayForConfig(kl.RESTConfig(), zap.NewNop().Sugar())
	if err != nil {
		return err
	}

	s.client = cl
	s.gateway = gateway
	return nil
}

func (s *suite) installCRD(ctx context.Context) error {
	if s.client == nil {
		return errClientNotInitialized
	}

	data, err := os.ReadFile(crdManifest)
	if err != nil {
		return err
	}

	crd := &unstructured.Unstructured{}
	if err := yaml.Unmarshal(data, &crd.Object); err != nil {
		return err
	}

	if err := s.client.Create(ctx, crd); err != nil && !apierrors.IsAlreadyExists(err) {
		return err
	}

	return waitFor(ctx, func(ctx context.Context) (bool, error) {
		_, err := s.gateway.ListOrganizations(ctx, metav1.NamespaceDefault, nil)
		return err == nil, nil
	})
}

func (s *suite) cleanupAllOrganizations(ctx context.Context) error {
	if s.client == nil {
		return errClientNotInitialized
	}

	return waitFor(ctx, func(ctx context.Context) (bool, error) {
		orgs := &unstructured.UnstructuredList{}
		orgs.SetGroupVersionKind(orgv1.SchemeGroupVersion.WithKind(orgv1.OrganizationKindName + "List"))
		if err := s.client.List(ctx, orgs, client.InNamespace(testNamespace)); err != nil {
			if apierrors.IsNotFound(err) {
				return true, nil
			}
			return false, err
		}

		for i := range orgs.Items {
			if err := s.client.Delete(ctx, &orgs.Items[i]); err != nil && !apierrors.IsNotFound(err) {
				return false, nil
			}
		}

		remaining, err := s.gateway.ListOrganizations(ctx, testNamespace, nil)
		if err != nil {
			return false, err
		}

		return len(remaining) == 0, nil
	})
}

const (
	timeout  = time.Minute * 1
	interval = time.Second * 1
)

func waitFor(ctx context.Context, f func(ctx context.Context) (bool, error)) error {
	err := wait.For(
		f,
		wait.WithTimeout(timeout),
		wait.WithInterval(interval),
		wait.WithContext(ctx),
	)

	return err
}
