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

// Package kubernetes reads and writes Organization custom resources through the
// dynamic client.
package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/pkg/apierror"
	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
)

// FieldManager owns the fields written on create, so the GitOps controller can
// take them over on its next apply.
const FieldManager = "kustomize-controller"

// Gateway creates and lists Organization resources.
type Gateway struct {
	client dynamic.Interface
	log    *zap.SugaredLogger
}

func NewGateway(client dynamic.Interface, log *zap.SugaredLogger) (*Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("failed to instantiate gateway: client is nil")
	}

	if log == nil {
		return nil, fmt.Errorf("failed to instantiate gateway: log cannot be nil")
	}

	return &Gateway{client: client, log: log}, nil
}

// NewGatewayForConfig builds a dynamic client for cfg.
func NewGatewayForConfig(cfg *rest.Config, log *zap.SugaredLogger) (*Gateway, error) {
	client, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	return NewGateway(client, log)
}

// CreateOrganization creates org in its namespace.
func (g *Gateway) CreateOrganization(ctx context.Context, org *orgv1.Organization) error {
	namespace := org.Metadata.Namespace
	l := g.log.With("organization_id", org.Metadata.Name, "namespace", namespace)

	obj, err := ToUnstructured(org)
	if err != nil {
		return apierror.K8sOperation(namespace, org.Metadata.Name, err)
	}

	_, err = g.client.Resource(orgv1.OrganizationResource).
		Namespace(namespace).
		Create(ctx, obj, metav1.CreateOptions{FieldManager: FieldManager})
	if err != nil {
		logAPIError(l, "Failed to create organization", err)
		return apierror.K8sOperation(namespace, org.Metadata.Name, err)
	}

	l.Info("Organization created")
	return nil
}

// ListOrganizations returns the organizations in namespace whose names are not
// in except. An object that does not decode into an Organization fails the
// whole listing.
func (g *Gateway) ListOrganizations(ctx context.Context, namespace string, except []string) ([]orgv1.Organization, error) {
	l := g.log.With("namespace", namespace)

	list, err := g.client.Resource(orgv1.OrganizationResource).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		logAPIError(l, "Failed to list organizations", err)
		return nil, apierror.K8sOperation(namespace, "", err)
	}

	var result []orgv1.Organization
	for i := range list.Items {
		item := &list.Items[i]
		if slices.Contains(except, item.GetName()) {
			continue
		}

		org, err := FromUnstructured(item)
		if err != nil {
			l.Errorw("Failed to decode organization", "organization_id", item.GetName(), "error", err)
			return nil, apierror.K8sOperation(namespace, item.GetName(), err)
		}
		result = append(result, *org)
	}

	l.Debugw("Listed organizations", "total", len(list.Items), "returned", len(result))
	return result, nil
}

// CleanOrgDefinitions strips controller-owned annotations. Organizations are
// modified in place and returned.
func CleanOrgDefinitions(orgs []orgv1.Organization) []orgv1.Organization {
	for i := range orgs {
		annotations := orgs[i].Metadata.Annotations
		for key := range annotations {
			if hasControllerPrefix(key) {
				delete(annotations, key)
			}
		}
		if len(annotations) == 0 {
			orgs[i].Metadata.Annotations = nil
		}
	}
	return orgs
}

func hasControllerPrefix(key string) bool {
	for _, prefix := range orgv1.ControllerAnnotationPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// ToUnstructured converts org for the dynamic client.
func ToUnstructured(org *orgv1.Organization) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(org)
	if err != nil {
		return nil, fmt.Errorf("failed to convert organization %q: %w", org.Metadata.Name, err)
	}
	return &unstructured.Unstructured{Object: content}, nil
}

// FromUnstructured decodes obj. Unknown fields such as server-populated
// metadata are ignored, mistyped fields are an error.
func FromUnstructured(obj *unstructured.Unstructured) (*orgv1.Organization, error) {
	org := &orgv1.Organization{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, org); err != nil {
		return nil, fmt.Errorf("failed to decode organization %q: %w", obj.GetName(), err)
	}
	return org, nil
}

func logAPIError(l *zap.SugaredLogger, msg string, err error) {
	var status apierrors.APIStatus
	if !errors.As(err, &status) {
		l.Errorw(msg, "error", err)
		return
	}

	s := status.Status()
	l.Errorw(msg,
		"code", s.Code,
		"reason", s.Reason,
		"message", s.Message,
		"details", s.Details,
	)
}
