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

package apierror

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

func InvalidTier(value string) *Error {
	return &Error{
		Reason:  ReasonInvalidTier,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Incorrect tier type: %s", value),
		Fields:  map[string]string{"tier": value},
	}
}

func MissingMandatoryEntitlement(missing []string) *Error {
	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)

	return &Error{
		Reason:  ReasonMissingMandatoryEntitlement,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Missing mandatory entitlements: %s", strings.Join(sorted, ", ")),
		Fields:  map[string]string{"entitlements": strings.Join(sorted, ",")},
	}
}

// InvalidOrganization lists every violated constraint of an organization record.
func InvalidOrganization(id string, violations []string) *Error {
	return &Error{
		Reason:  ReasonInvalidOrganization,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Invalid organization: %s", strings.Join(violations, "; ")),
		Fields:  map[string]string{"organization_id": id},
	}
}

func BadRequest(message string) *Error {
	return &Error{
		Reason:  ReasonBadRequest,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// QueryParamsViolation maps each offending query parameter to its violation.
func QueryParamsViolation(violations map[string]string) *Error {
	names := make([]string, 0, len(violations))
	for name := range violations {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, violations[name]))
	}

	return &Error{
		Reason:  ReasonQueryParamsViolation,
		Status:  http.StatusBadRequest,
		Message: strings.Join(parts, ", "),
		Fields:  violations,
	}
}

func OrganizationNotFound(cluster, deployment, id string) *Error {
	return &Error{
		Reason: ReasonOrganizationNotFound,
		Status: http.StatusNotFound,
		Message: fmt.Sprintf("Organization not found %s/%s/%s. It could be deleted from the repository, "+
			"or you have passed the wrong organization id.", cluster, deployment, id),
		Fields: deploymentFields(cluster, deployment, id),
	}
}

func DeploymentNotFound(cluster, deployment string) *Error {
	return &Error{
		Reason:  ReasonDeploymentNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("Deployment does not exist: %s/%s", cluster, deployment),
		Fields:  deploymentFields(cluster, deployment, ""),
	}
}

func RepositoryInit(url string, err error) *Error {
	return &Error{
		Reason:  ReasonRepositoryInit,
		Status:  http.StatusInternalServerError,
		Message: gitErrorMessage,
		Fields:  map[string]string{"url": url},
		Err:     err,
	}
}

func GitOperation(cluster, deployment, id string, err error) *Error {
	return &Error{
		Reason:  ReasonGitOperation,
		Status:  http.StatusInternalServerError,
		Message: gitErrorMessage,
		Fields:  deploymentFields(cluster, deployment, id),
		Err:     err,
	}
}

// PushVerification reports the ref updates the remote did not accept.
func PushVerification(cluster, deployment, id string, rejected []string) *Error {
	fields := deploymentFields(cluster, deployment, id)
	fields["rejected"] = strings.Join(rejected, ", ")

	return &Error{
		Reason:  ReasonPushVerification,
		Status:  http.StatusInternalServerError,
		Message: gitErrorMessage,
		Fields:  fields,
	}
}

func K8sOperation(namespace, id string, err error) *Error {
	fields := map[string]string{"namespace": namespace}
	if id != "" {
		fields["organization_id"] = id
	}

	return &Error{
		Reason:  ReasonK8sOperation,
		Status:  http.StatusInternalServerError,
		Message: k8sErrorMessage,
		Fields:  fields,
		Err:     err,
	}
}

func IDGeneration(attempts int, err error) *Error {
	return &Error{
		Reason:  ReasonIDGeneration,
		Status:  http.StatusInternalServerError,
		Message: internalErrorMessage,
		Fields:  map[string]string{"attempts": fmt.Sprint(attempts)},
		Err:     err,
	}
}

func deploymentFields(cluster, deployment, id string) map[string]string {
	fields := map[string]string{
		"cluster":    cluster,
		"deployment": deployment,
	}
	if id != "" {
		fields["organization_id"] = id
	}
	return fields
}
