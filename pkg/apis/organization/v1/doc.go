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

// Package v1 contains the Organization custom resource consumed by the GitOps
// controller. The same document is written to the configuration repository and
// applied to the cluster.
package v1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// GroupName is the API group of the Organization resource.
	GroupName = "organization.k8c.io"

	// Version is the served version of the Organization resource.
	Version = "v1"

	// OrganizationResourceName is the plural name of the Organization resource.
	OrganizationResourceName = "organizations"

	// OrganizationKindName is the kind name of the Organization resource.
	OrganizationKindName = "Organization"
)

var (
	// SchemeGroupVersion is the group version of the Organization resource.
	SchemeGroupVersion = schema.GroupVersion{Group: GroupName, Version: Version}

	// OrganizationResource addresses organizations through the dynamic client.
	OrganizationResource = SchemeGroupVersion.WithResource(OrganizationResourceName)
)

// APIVersion returns the apiVersion written into every Organization document.
func APIVersion() string {
	return SchemeGroupVersion.String()
}

const (
	// DefaultAdminGroup is the admin group every organization is created with.
	DefaultAdminGroup = "adminGroup"

	// DefaultAdminUser is the admin user every organization is created with.
	DefaultAdminUser = "admin"
)

// ControllerAnnotationPrefixes are annotation prefixes written by controllers and
// kubectl. They are stripped before an observed Organization is written to Git.
var ControllerAnnotationPrefixes = []string{"kopf.", "kubectl."}
