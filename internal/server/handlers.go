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
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/organization"
	"k8c.io/organization-manager/internal/pkg/log"
	"k8c.io/organization-manager/internal/tier"
	"k8c.io/organization-manager/internal/tokens"
)

type organizationPayload struct {
	organization.Record
	DryRun bool `json:"dryRun,omitempty"`
}

type createOrganizationRequest struct {
	Organization *organizationPayload `json:"organization" binding:"required"`
}

type organizationResponse struct {
	Organization *organization.Record `json:"organization"`
}

type createTierOrganizationRequest struct {
	TierOrganization *tier.Request `json:"tierOrganization" binding:"required"`
}

type synchronizeRequest struct {
	SynchronizeOrganizations *synchronizeOptions `json:"synchronizeOrganizations"`
}

type synchronizeOptions struct {
	DryRun *bool `json:"dryRun"`
}

// dryRun defaults to true so that an empty request never writes.
func (r *synchronizeRequest) dryRun() bool {
	if r.SynchronizeOrganizations == nil || r.SynchronizeOrganizations.DryRun == nil {
		return true
	}
	return *r.SynchronizeOrganizations.DryRun
}

func (s *Server) caller(c *gin.Context) *zap.SugaredLogger {
	return s.log.With(
		"request_id", c.GetString(log.RequestIDKey),
		"user", c.GetHeader(log.AuthRequestUserHeader),
		"email", c.GetHeader(log.AuthRequestEmailHeader),
	)
}

func (s *Server) createOrganization(c *gin.Context) {
	req := &createOrganizationRequest{}
	if err := bind(c, req); err != nil {
		s.abort(c, err)
		return
	}

	record := req.Organization.Record
	record.DryRun = req.Organization.DryRun

	s.caller(c).Infow("Create organization requested", "organization_id", record.ID, "dry_run", record.DryRun)

	result, err := s.organizations.CreateOrganization(c.Request.Context(), &record)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, organizationResponse{Organization: result})
}

func (s *Server) createTierOrganization(c *gin.Context) {
	req := &createTierOrganizationRequest{}
	if err := bind(c, req); err != nil {
		s.abort(c, err)
		return
	}

	tierType := c.Param("tierType")
	s.caller(c).Infow("Create tier organization requested", "tier", tierType, "organization_name", req.TierOrganization.OrganizationName)

	result, err := s.organizations.CreateTierOrganization(c.Request.Context(), req.TierOrganization, tierType)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, organizationResponse{Organization: result})
}

func (s *Server) synchronizeOrganizations(c *gin.Context) {
	req := &synchronizeRequest{}
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		s.abort(c, bodyError{err: err})
		return
	}

	s.caller(c).Infow("Synchronization requested", "dry_run", req.dryRun())

	result, err := s.organizations.SynchronizeOrganizations(c.Request.Context(), req.dryRun())
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) deleteOrganization(c *gin.Context) {
	id := c.Param("organizationId")
	deployment := organization.Deployment{
		Cluster:    c.Query(clusterParam),
		Deployment: c.Query(deploymentParam),
	}

	s.caller(c).Infow("Delete organization requested", "organization_id", id, "cluster", deployment.Cluster, "deployment", deployment.Deployment)

	if err := s.organizations.DeleteOrganization(c.Request.Context(), id, deployment); err != nil {
		s.abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) status(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (s *Server) createToken(c *gin.Context) {
	req := &tokens.Request{}
	if err := bind(c, req); err != nil {
		s.abort(c, err)
		return
	}

	external := c.GetHeader(log.AuthRequestEmailHeader) != ""
	s.caller(c).Infow("Internal API token requested", "organization_id", req.OrganizationID, "user_id", req.UserID, "ticket_id", req.TicketID)

	if err := req.ValidateTicket(external); err != nil {
		s.abort(c, err)
		return
	}

	token, err := s.tokens.CreateInternalAPIToken(c.Request.Context(), req)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}
