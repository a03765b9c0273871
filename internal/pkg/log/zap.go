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

// Package log builds the zap loggers of the organization API and the gin
// request logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	ctrlruntimelzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// DefaultApplication names the root logger.
const DefaultApplication = "organization-api"

// Structured field keys shared by every component.
const (
	OrganizationIDKey = "organization_id"
	ClusterKey        = "cluster"
	DeploymentKey     = "deployment"
	ComponentKey      = "component"
)

type Format string

const (
	FormatJSON    Format = "JSON"
	FormatConsole Format = "Console"
)

var AvailableFormats = []Format{FormatJSON, FormatConsole}

func (f *Format) Type() string {
	return "string"
}

func (f *Format) String() string {
	return string(*f)
}

func (f *Format) Set(s string) error {
	for _, available := range AvailableFormats {
		if strings.EqualFold(s, string(available)) {
			*f = available
			return nil
		}
	}
	return fmt.Errorf("invalid format '%s'", s)
}

// Options are the logging flags shared by every subcommand.
type Options struct {
	Debug  bool
	Format Format

	// Application names the root logger. Component loggers are nested below it.
	Application string
}

func NewDefaultOptions() Options {
	return Options{
		Format:      FormatJSON,
		Application: DefaultApplication,
	}
}

func (o *Options) AddPFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Debug, "log-debug", o.Debug, "Enables more verbose logging")
	fs.Var(&o.Format, "log-format", "Log format, one of JSON or Console")
}

func (o *Options) Validate() error {
	for i := range AvailableFormats {
		if o.Format == AvailableFormats[i] {
			return nil
		}
	}

	return fmt.Errorf("invalid log-format specified %q; available: %+v", o.Format, AvailableFormats)
}

// NewFromOptions creates the root logger writing to stderr.
func NewFromOptions(o Options) *zap.Logger {
	return New(o, os.Stderr)
}

// New creates the root logger writing to w.
func New(o Options, w io.Writer) *zap.Logger {
	sink := zapcore.AddSync(w)

	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if o.Debug {
		lvl = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.NameKey = ComponentKey
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var enc zapcore.Encoder
	if o.Format == FormatConsole {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(&ctrlruntimelzap.KubeAwareEncoder{Encoder: enc}, sink, lvl)
	log := zap.New(core, zap.AddCaller(), zap.ErrorOutput(sink))

	if o.Application != "" {
		log = log.Named(o.Application)
	}
	return log
}

// Component returns the sugared logger of a named component.
func Component(log *zap.Logger, name string) *zap.SugaredLogger {
	return log.Named(name).Sugar()
}

// Organization scopes log to a single organization of a deployment. Empty
// values are left out.
func Organization(log *zap.SugaredLogger, id, cluster, deployment string) *zap.SugaredLogger {
	var fields []any
	if id != "" {
		fields = append(fields, OrganizationIDKey, id)
	}
	if cluster != "" {
		fields = append(fields, ClusterKey, cluster)
	}
	if deployment != "" {
		fields = append(fields, DeploymentKey, deployment)
	}
	return log.With(fields...)
}
