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
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"k8c.io/organization-manager/internal/pkg/apierror"
	"k8c.io/organization-manager/internal/pkg/log"
)

const (
	clusterParam    = "cluster"
	deploymentParam = "deployment"

	queryParamMissing = "Query param is missing"
	queryParamEmpty   = "Query param is empty"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	ErrorClass string `json:"errorClass"`
	Message    string `json:"message"`
	Component  string `json:"component"`
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(log.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(log.RequestIDKey, id)
		c.Header(log.RequestIDHeader, id)
		c.Next()
	}
}

// requireQueryParams rejects requests where any of names is missing or blank.
func requireQueryParams(s *Server, names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		violations := map[string]string{}
		for _, name := range names {
			value, ok := c.GetQuery(name)
			switch {
			case !ok:
				violations[name] = queryParamMissing
			case strings.TrimSpace(value) == "":
				violations[name] = queryParamEmpty
			}
		}

		if len(violations) > 0 {
			s.abort(c, apierror.QueryParamsViolation(violations))
			return
		}
		c.Next()
	}
}

func (s *Server) recover(c *gin.Context, recovered any) {
	s.abort(c, apierror.Internal(fmt.Errorf("panic: %v", recovered)))
}

// abort writes err as an error body. Server errors only expose their generic
// message.
func (s *Server) abort(c *gin.Context, err error) {
	apiErr, ok := apierror.As(err)
	if !ok {
		apiErr = bindingError(err)
	}

	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{
		ErrorClass: string(apiErr.Reason),
		Message:    apiErr.Message,
		Component:  s.cfg.ApplicationName,
	}})
}

// bindingError turns request decoding failures into bad requests. Everything
// else is an internal error.
func bindingError(err error) *apierror.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
		return apierror.BadRequest(strings.Join(fields, ", "))
	}

	var be bodyError
	if errors.As(err, &be) {
		return apierror.BadRequest(be.Error())
	}

	return apierror.Internal(err)
}

// bodyError marks a request body that could not be decoded.
type bodyError struct {
	err error
}

func (e bodyError) Error() string {
	return fmt.Sprintf("Invalid request body: %v", e.err)
}

func (e bodyError) Unwrap() error {
	return e.err
}

func bind(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return bodyError{err: err}
	}
	return nil
}
