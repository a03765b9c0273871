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

// Package tokens issues short-lived internal API tokens through the metadata
// store gRPC API.
package tokens

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"k8c.io/organization-manager/internal/pkg/apierror"
)

const (
	OrganizationIDMetadataKey = "x-organization-id"
	UserIDMetadataKey         = "x-user-id"

	DefaultKeepAlive        = 30 * time.Second
	DefaultKeepAliveTimeout = 5 * time.Second
	DefaultValidity         = 60 * time.Second

	roundRobinServiceConfig = `{"loadBalancingConfig":[{"round_robin":{}}]}`
)

var ticketPattern = regexp.MustCompile(`^[A-Z0-9]{2,}-[0-9]+$`)

// Request asks for a token of a user in an organization.
type Request struct {
	TicketID       string `json:"ticketId,omitempty"`
	OrganizationID string `json:"organizationId" binding:"required"`
	UserID         string `json:"userId" binding:"required"`
	TokenID        string `json:"tokenId" binding:"required"`
}

// ValidateTicket requires a ticket id on requests coming from external
// callers.
func (r *Request) ValidateTicket(external bool) error {
	if external && !ticketPattern.MatchString(r.TicketID) {
		return apierror.BadRequest("Request does not contain valid Jira ticket id")
	}
	return nil
}

// Token is an issued API token.
type Token struct {
	OrganizationID string `json:"organizationId"`
	Token          string `json:"token"`
}

// Config holds the metadata store connection settings.
type Config struct {
	Log *zap.SugaredLogger

	Address          string
	UserAgent        string
	KeepAlive        time.Duration
	KeepAliveTimeout time.Duration

	// Validity is how long issued tokens stay valid.
	Validity time.Duration
}

func (c *Config) validate() error {
	if c.Log == nil {
		return fmt.Errorf("log cannot be nil")
	}

	if c.Validity < 0 {
		return fmt.Errorf("token validity must be a non-negative duration")
	}

	return nil
}

// Client calls the metadata store token API.
type Client struct {
	conn  grpc.ClientConnInterface
	close func() error
	log   *zap.SugaredLogger

	desc     *descriptors
	validity time.Duration
	now      func() time.Time
}

// Dial connects to cfg.Address. The connection is established lazily.
func Dial(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("failed to create token client: config is nil")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to create token client: %w", err)
	}

	if strings.TrimSpace(cfg.Address) == "" {
		return nil, fmt.Errorf("failed to create token client: address cannot be empty")
	}

	keepAlive := cfg.KeepAlive
	if keepAlive == 0 {
		keepAlive = DefaultKeepAlive
	}
	keepAliveTimeout := cfg.KeepAliveTimeout
	if keepAliveTimeout == 0 {
		keepAliveTimeout = DefaultKeepAliveTimeout
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultServiceConfig(roundRobinServiceConfig),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                keepAlive,
			Timeout:             keepAliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(UnaryClientInterceptor(cfg.Log)),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, grpc.WithUserAgent(cfg.UserAgent))
	}

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create token client: %w", err)
	}

	c, err := NewClient(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.close = conn.Close

	return c, nil
}

// NewClient creates a client on top of an existing connection.
func NewClient(conn grpc.ClientConnInterface, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("failed to create token client: config is nil")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to create token client: %w", err)
	}

	desc, err := buildDescriptors()
	if err != nil {
		return nil, fmt.Errorf("failed to create token client: %w", err)
	}

	validity := cfg.Validity
	if validity == 0 {
		validity = DefaultValidity
	}

	return &Client{
		conn:     conn,
		close:    func() error { return nil },
		log:      cfg.Log,
		desc:     desc,
		validity: validity,
		now:      time.Now,
	}, nil
}

// Close releases the connection opened by Dial.
func (c *Client) Close() error {
	return c.close()
}

// CreateInternalAPIToken issues a token for userID in organizationID.
func (c *Client) CreateInternalAPIToken(ctx context.Context, req *Request) (*Token, error) {
	l := c.log.With("organization_id", req.OrganizationID, "user_id", req.UserID, "token_id", req.TokenID)

	ctx = metadata.AppendToOutgoingContext(ctx,
		OrganizationIDMetadataKey, req.OrganizationID,
		UserIDMetadataKey, req.UserID,
	)

	in := c.request(req)
	out := dynamicpb.NewMessage(c.desc.response)

	if err := c.conn.Invoke(ctx, CreateInternalAPITokenMethod, in, out); err != nil {
		l.Errorw("Failed to create internal API token", "code", status.Code(err).String())
		return nil, toAPIError(err)
	}

	l.Info("Internal API token created")

	return &Token{
		OrganizationID: getString(out, fieldOrganizationID),
		Token:          getString(out, fieldToken),
	}, nil
}

func (c *Client) request(req *Request) *dynamicpb.Message {
	msg := dynamicpb.NewMessage(c.desc.request)
	setString(msg, fieldOrganizationID, req.OrganizationID)
	setString(msg, fieldUserID, req.UserID)
	setString(msg, fieldTokenID, req.TokenID)

	validTo := c.now().Add(c.validity)
	fields := msg.Descriptor().Fields()
	ts := msg.Mutable(fields.ByName(fieldValidTo)).Message()
	tsFields := ts.Descriptor().Fields()
	ts.Set(tsFields.ByName(fieldSeconds), protoreflect.ValueOfInt64(validTo.Unix()))

	return msg
}

func setString(msg protoreflect.Message, name, value string) {
	msg.Set(msg.Descriptor().Fields().ByName(protoreflect.Name(name)), protoreflect.ValueOfString(value))
}

func getString(msg protoreflect.Message, name string) string {
	return msg.Get(msg.Descriptor().Fields().ByName(protoreflect.Name(name))).String()
}

func toAPIError(err error) error {
	st := status.Convert(err)
	switch st.Code() {
	case codes.InvalidArgument:
		return apierror.BadRequest(st.Message())
	default:
		return apierror.Internal(err)
	}
}
