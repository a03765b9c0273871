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

// Package apierror defines the error taxonomy shared by all components.
// Client errors carry a 4xx status and a message that is safe to return to the
// caller. Server errors carry a 5xx status and a generic public message; their
// details stay in the wrapped error and in the fields, which are only logged.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Reason string

const (
	ReasonInvalidTier                 Reason = "InvalidTier"
	ReasonMissingMandatoryEntitlement Reason = "MissingMandatoryEntitlement"
	ReasonInvalidOrganization         Reason = "InvalidOrganization"
	ReasonOrganizationNotFound        Reason = "OrganizationNotFound"
	ReasonDeploymentNotFound          Reason = "DeploymentNotFound"
	ReasonQueryParamsViolation        Reason = "QueryParamsViolation"
	ReasonBadRequest                  Reason = "BadRequest"
	ReasonRepositoryInit              Reason = "RepositoryInit"
	ReasonGitOperation                Reason = "GitOperation"
	ReasonPushVerification            Reason = "PushVerification"
	ReasonK8sOperation                Reason = "K8sOperation"
	ReasonIDGeneration                Reason = "IdGeneration"
	ReasonInternal                    Reason = "Internal"
)

const (
	gitErrorMessage      = "Internal git error."
	k8sErrorMessage      = "Internal k8s error."
	internalErrorMessage = "Internal server error."
)

// Error is the error type returned by every component. Compare with errors.Is
// against the sentinel values below, they match on Reason only.
type Error struct {
	Reason  Reason
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

var (
	ErrInvalidTier                 = &Error{Reason: ReasonInvalidTier}
	ErrMissingMandatoryEntitlement = &Error{Reason: ReasonMissingMandatoryEntitlement}
	ErrInvalidOrganization         = &Error{Reason: ReasonInvalidOrganization}
	ErrOrganizationNotFound        = &Error{Reason: ReasonOrganizationNotFound}
	ErrDeploymentNotFound          = &Error{Reason: ReasonDeploymentNotFound}
	ErrQueryParamsViolation        = &Error{Reason: ReasonQueryParamsViolation}
	ErrBadRequest                  = &Error{Reason: ReasonBadRequest}
	ErrRepositoryInit              = &Error{Reason: ReasonRepositoryInit}
	ErrGitOperation                = &Error{Reason: ReasonGitOperation}
	ErrPushVerification            = &Error{Reason: ReasonPushVerification}
	ErrK8sOperation                = &Error{Reason: ReasonK8sOperation}
	ErrIDGeneration                = &Error{Reason: ReasonIDGeneration}
)

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Reason))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, e.Fields[k]))
		}
		sb.WriteString(" [")
		sb.WriteString(strings.Join(pairs, ", "))
		sb.WriteString("]")
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// IsClientError reports whether the error was caused by the caller.
func (e *Error) IsClientError() bool {
	return e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError
}

// StatusCode returns the HTTP status of err. Errors outside of the taxonomy are
// server errors.
func StatusCode(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Internal wraps an error that does not belong to the taxonomy.
func Internal(err error) *Error {
	return &Error{
		Reason:  ReasonInternal,
		Status:  http.StatusInternalServerError,
		Message: internalErrorMessage,
		Err:     err,
	}
}
