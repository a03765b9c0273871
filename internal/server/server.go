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

// Package server exposes the organization API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/organization"
	"k8c.io/organization-manager/internal/pkg/log"
	"k8c.io/organization-manager/internal/tier"
	"k8c.io/organization-manager/internal/tokens"
)

const (
	OrganizationsPath = "/api/v1/organizations"
	TokensPath        = "/api/v1/tokens"
	MetricsPath       = "/metrics"

	DefaultShutdownTimeout = 30 * time.Second
)

// OrganizationService is the use case layer behind the organization routes.
type OrganizationService interface {
	CreateOrganization(ctx context.Context, record *organization.Record) (*organization.Record, error)
	CreateTierOrganization(ctx context.Context, req *tier.Request, tierName string) (*organization.Record, error)
	DeleteOrganization(ctx context.Context, id string, deployment organization.Deployment) error
	SynchronizeOrganizations(ctx context.Context, dryRun bool) (map[string][]string, error)
}

// TokenIssuer issues internal API tokens.
type TokenIssuer interface {
	CreateInternalAPIToken(ctx context.Context, req *tokens.Request) (*tokens.Token, error)
}

type Config struct {
	Log *zap.Logger

	Address string

	// ApplicationName is reported as the component of error responses.
	ApplicationName string

	ShutdownTimeout time.Duration

	// Gatherer is exposed on the metrics endpoint.
	Gatherer prometheus.Gatherer
}

func (c *Config) validate() error {
	if c.Log == nil {
		return fmt.Errorf("log cannot be nil")
	}

	if c.Gatherer == nil {
		return fmt.Errorf("metrics gatherer cannot be nil")
	}

	return nil
}

type Server struct {
	cfg    *Config
	log    *zap.SugaredLogger
	router *gin.Engine

	organizations OrganizationService
	tokens        TokenIssuer
}

// New builds the router. The token route is only registered when issuer is
// not nil.
func New(cfg *Config, organizations OrganizationService, issuer TokenIssuer) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("failed to instantiate server: config is nil")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to instantiate server: %w", err)
	}

	if organizations == nil {
		return nil, fmt.Errorf("failed to instantiate server: organization service is nil")
	}

	s := &Server{
		cfg:           cfg,
		log:           cfg.Log.Sugar(),
		organizations: organizations,
		tokens:        issuer,
	}
	s.router = s.routes()

	return s, nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(
		requestID(),
		log.NewGinLoggerMiddleware(s.cfg.Log),
		gin.CustomRecovery(s.recover),
	)

	orgs := router.Group(OrganizationsPath)
	orgs.POST("", s.createOrganization)
	orgs.POST("/tier/:tierType", s.createTierOrganization)
	orgs.POST("/synchronize", s.synchronizeOrganizations)
	orgs.DELETE("/:organizationId", requireQueryParams(s, clusterParam, deploymentParam), s.deleteOrganization)
	orgs.GET("/status", s.status)

	if s.tokens != nil {
		router.POST(TokensPath, s.createToken)
	}

	router.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))

	return router
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Starting HTTP server", "address", s.cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")

	timeout := s.cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = DefaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
