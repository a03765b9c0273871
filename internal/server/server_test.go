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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/organization"
	"k8c.io/organization-manager/internal/pkg/apierror"
	"k8c.io/organization-manager/internal/pkg/log"
	"k8c.io/organization-manager/internal/tier"
	"k8c.io/organization-manager/internal/tokens"
)

type fakeService struct {
	record     *organization.Record
	tierReq    *tier.Request
	tierName   string
	deletedID  string
	deployment organization.Deployment
	dryRun     *bool
	err        error
	panics     bool
}

func (f *fakeService) CreateOrganization(_ context.Context, record *organization.Record) (*organization.Record, error) {
	if f.panics {
		panic("boom")
	}
	f.record = record
	if f.err != nil {
		return nil, f.err
	}
	return record, nil
}

func (f *fakeService) CreateTierOrganization(_ context.Context, req *tier.Request, tierName string) (*organization.Record, error) {
	f.tierReq = req
	f.tierName = tierName
	if f.err != nil {
		return nil, f.err
	}
	return &organization.Record{ID: "generated", Name: req.OrganizationName}, nil
}

func (f *fakeService) DeleteOrganization(_ context.Context, id string, deployment organization.Deployment) error {
	f.deletedID = id
	f.deployment = deployment
	return f.err
}

func (f *fakeService) SynchronizeOrganizations(_ context.Context, dryRun bool) (map[string][]string, error) {
	f.dryRun = &dryRun
	if f.err != nil {
		return nil, f.err
	}
	return map[string][]string{"prod": {"legacy"}}, nil
}

type fakeIssuer struct {
	req *tokens.Request
}

func (f *fakeIssuer) CreateInternalAPIToken(_ context.Context, req *tokens.Request) (*tokens.Token, error) {
	f.req = req
	return &tokens.Token{OrganizationID: req.OrganizationID, Token: "issued"}, nil
}

func newTestServer(t *testing.T, svc *fakeService, issuer TokenIssuer) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := New(&Config{
		Log:             zap.NewNop(),
		ApplicationName: "organization-api",
		Gatherer:        prometheus.NewRegistry(),
	}, svc, issuer)
	require.NoError(t, err)
	return s
}

func do(s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	body := errorBody{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestCreateOrganization(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, nil)

	rec := do(s, http.MethodPost, OrganizationsPath, `{
		"organization": {
			"id": "acme",
			"name": "Acme Inc.",
			"hostname": "acme.example.com",
			"adminUserToken": "secret",
			"deploymentProperties": {"cluster": "cluster-a", "deployment": "prod"},
			"entitlements": {"CONTRACT": "2030-01-01T00:00:00Z"},
			"dryRun": true
		}
	}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.record.DryRun)
	require.Equal(t, organization.Deployment{Cluster: "cluster-a", Deployment: "prod"}, svc.record.DeploymentProperties)

	response := map[string]map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, "acme", response["organization"]["id"])
	require.NotContains(t, response["organization"], "dryRun")
}

func TestCreateOrganizationErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		status     int
		errorClass string
		message    string
	}{
		{
			name:       "missing wrapper",
			body:       `{"id": "acme"}`,
			status:     http.StatusBadRequest,
			errorClass: string(apierror.ReasonBadRequest),
			message:    "Organization is required",
		},
		{
			name:       "malformed body",
			body:       `{"organization":`,
			status:     http.StatusBadRequest,
			errorClass: string(apierror.ReasonBadRequest),
			message:    "Invalid request body",
		},
		{
			name:       "invalid organization",
			body:       `{"organization": {"id": "acme"}}`,
			err:        apierror.InvalidOrganization("acme", []string{"hostname cannot be blank"}),
			status:     http.StatusBadRequest,
			errorClass: string(apierror.ReasonInvalidOrganization),
			message:    "hostname cannot be blank",
		},
		{
			name:       "git failure hides details",
			body:       `{"organization": {"id": "acme"}}`,
			err:        apierror.GitOperation("cluster-a", "prod", "acme", errors.New("auth failed for token abc")),
			status:     http.StatusInternalServerError,
			errorClass: string(apierror.ReasonGitOperation),
			message:    "Internal git error.",
		},
		{
			name:       "unexpected error",
			body:       `{"organization": {"id": "acme"}}`,
			err:        errors.New("boom"),
			status:     http.StatusInternalServerError,
			errorClass: string(apierror.ReasonInternal),
			message:    "Internal server error.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, &fakeService{err: tc.err}, nil)

			rec := do(s, http.MethodPost, OrganizationsPath, tc.body, nil)
			require.Equal(t, tc.status, rec.Code)

			detail := decodeError(t, rec)
			require.Equal(t, tc.errorClass, detail.ErrorClass)
			require.Contains(t, detail.Message, tc.message)
			require.NotContains(t, detail.Message, "abc")
			require.Equal(t, "organization-api", detail.Component)
		})
	}
}

func TestCreateTierOrganization(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, nil)

	rec := do(s, http.MethodPost, OrganizationsPath+"/tier/trial", `{
		"tierOrganization": {
			"contactEmail": "jane@acme.com",
			"organizationName": "Acme",
			"hostname": "acme.example.com",
			"deploymentProperties": {"cluster": "cluster-a", "deployment": "prod"},
			"entitlements": [{"name": "CONTRACT", "expiry": "2030-01-01"}]
		}
	}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "trial", svc.tierName)
	require.Equal(t, "Acme", svc.tierReq.OrganizationName)
	require.Equal(t, []tier.EntitlementOverride{{Name: "CONTRACT", Expiry: "2030-01-01"}}, svc.tierReq.Entitlements)

	s = newTestServer(t, &fakeService{err: apierror.InvalidTier("gold")}, nil)
	rec = do(s, http.MethodPost, OrganizationsPath+"/tier/gold", `{"tierOrganization": {}}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, string(apierror.ReasonInvalidTier), decodeError(t, rec).ErrorClass)
}

func TestSynchronizeOrganizations(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		dryRun bool
	}{
		{name: "empty body defaults to dry run", body: "", dryRun: true},
		{name: "missing flag defaults to dry run", body: `{"synchronizeOrganizations": {}}`, dryRun: true},
		{name: "explicit write", body: `{"synchronizeOrganizations": {"dryRun": false}}`, dryRun: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{}
			s := newTestServer(t, svc, nil)

			rec := do(s, http.MethodPost, OrganizationsPath+"/synchronize", tc.body, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.NotNil(t, svc.dryRun)
			require.Equal(t, tc.dryRun, *svc.dryRun)

			result := map[string][]string{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			if diff := cmp.Diff(map[string][]string{"prod": {"legacy"}}, result); diff != "" {
				t.Fatalf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeleteOrganization(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		err     error
		status  int
		message string
	}{
		{
			name:   "deleted",
			query:  "?cluster=cluster-a&deployment=prod",
			status: http.StatusNoContent,
		},
		{
			name:    "missing params",
			query:   "",
			status:  http.StatusBadRequest,
			message: "cluster: Query param is missing, deployment: Query param is missing",
		},
		{
			name:    "empty param",
			query:   "?cluster=cluster-a&deployment=",
			status:  http.StatusBadRequest,
			message: "deployment: Query param is empty",
		},
		{
			name:   "not found",
			query:  "?cluster=cluster-a&deployment=prod",
			err:    apierror.OrganizationNotFound("cluster-a", "prod", "acme"),
			status: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{err: tc.err}
			s := newTestServer(t, svc, nil)

			rec := do(s, http.MethodDelete, OrganizationsPath+"/acme"+tc.query, "", nil)
			require.Equal(t, tc.status, rec.Code)

			if tc.status == http.StatusNoContent {
				require.Equal(t, "acme", svc.deletedID)
				require.Equal(t, organization.Deployment{Cluster: "cluster-a", Deployment: "prod"}, svc.deployment)
				return
			}
			if tc.message != "" {
				require.Contains(t, decodeError(t, rec).Message, tc.message)
				require.Empty(t, svc.deletedID)
			}
		})
	}
}

func TestStatusAndMetrics(t *testing.T) {
	s := newTestServer(t, &fakeService{}, nil)

	rec := do(s, http.MethodGet, OrganizationsPath+"/status", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, rec.Header().Get(log.RequestIDHeader))

	rec = do(s, http.MethodGet, OrganizationsPath+"/status", "", map[string]string{log.RequestIDHeader: "req-1"})
	require.Equal(t, "req-1", rec.Header().Get(log.RequestIDHeader))

	rec = do(s, http.MethodGet, MetricsPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t, &fakeService{panics: true}, nil)

	rec := do(s, http.MethodPost, OrganizationsPath, `{"organization": {"id": "acme"}}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, string(apierror.ReasonInternal), decodeError(t, rec).ErrorClass)
}

func TestCreateToken(t *testing.T) {
	body := `{"organizationId": "acme", "userId": "admin", "tokenId": "support"%s}`

	tests := []struct {
		name    string
		ticket  string
		headers map[string]string
		status  int
	}{
		{name: "internal caller", status: http.StatusOK},
		{
			name:    "external caller with ticket",
			ticket:  `, "ticketId": "SUP-42"`,
			headers: map[string]string{log.AuthRequestEmailHeader: "jane@example.com"},
			status:  http.StatusOK,
		},
		{
			name:    "external caller without ticket",
			headers: map[string]string{log.AuthRequestEmailHeader: "jane@example.com"},
			status:  http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			issuer := &fakeIssuer{}
			s := newTestServer(t, &fakeService{}, issuer)

			rec := do(s, http.MethodPost, TokensPath, strings.Replace(body, "%s", tc.ticket, 1), tc.headers)
			require.Equal(t, tc.status, rec.Code)

			if tc.status != http.StatusOK {
				require.Nil(t, issuer.req)
				return
			}
			token := tokens.Token{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
			require.Equal(t, tokens.Token{OrganizationID: "acme", Token: "issued"}, token)
		})
	}
}

func TestTokensDisabled(t *testing.T) {
	s := newTestServer(t, &fakeService{}, nil)

	rec := do(s, http.MethodPost, TokensPath, `{}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
