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

package log

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Headers set by the authenticating proxy in front of the API.
const (
	AuthRequestUserHeader  = "X-Auth-Request-User"
	AuthRequestEmailHeader = "X-Auth-Request-Email"
	RequestIDHeader        = "X-Request-Id"
)

// RequestIDKey is the gin context key of the request id.
const RequestIDKey = "request_id"

// NewGinLoggerMiddleware logs every request once it has been served. Server
// errors are logged at error level, client errors at warn level.
func NewGinLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.WithOptions(zap.AddCallerSkip(1))
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		latency := time.Since(start)

		statusCode := ctx.Writer.Status()

		fields := []zap.Field{
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("code", statusCode),
			zap.Duration("latency", latency),
			zap.String("request_id", ctx.GetString(RequestIDKey)),
		}
		if user := ctx.GetHeader(AuthRequestUserHeader); user != "" {
			fields = append(fields, zap.String("user", user))
		}
		if email := ctx.GetHeader(AuthRequestEmailHeader); email != "" {
			fields = append(fields, zap.String("email", email))
		}

		if len(ctx.Errors) != 0 && statusCode >= http.StatusInternalServerError {
			logger.Error(ctx.Errors.String(), fields...)
			return
		}

		if statusCode >= http.StatusInternalServerError {
			logger.Error(http.StatusText(statusCode), fields...)
			return
		}

		if statusCode >= http.StatusBadRequest {
			logger.Warn(http.StatusText(statusCode), fields...)
			return
		}
		logger.Info(http.StatusText(statusCode), fields...)
	}
}
