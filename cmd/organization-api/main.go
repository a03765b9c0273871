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

package main

import (
	"fmt"
	"os"

	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/config"
	omlog "k8c.io/organization-manager/internal/pkg/log"

	ctrlruntimelog "sigs.k8s.io/controller-runtime/pkg/log"
)

type options struct {
	configFile string
	log        omlog.Options
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	o := &options{log: omlog.NewDefaultOptions()}

	cmd := &cobra.Command{
		Use:           "organization-api",
		Short:         "Provisions organizations into GitOps repositories and Kubernetes clusters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&o.configFile, "config", "config.yaml", "Path to the configuration file")
	o.log.AddPFlags(fs)

	cmd.AddCommand(newServeCommand(o), newSynchronizeCommand(o))
	return cmd
}

// setup validates the options, installs the loggers and loads the config.
func (o *options) setup() (*zap.Logger, *config.Config, error) {
	if err := o.log.Validate(); err != nil {
		return nil, nil, err
	}

	rawLog := omlog.NewFromOptions(o.log)
	ctrlruntimelog.SetLogger(zapr.NewLogger(rawLog.WithOptions(zap.AddCallerSkip(1))))

	cfg, err := config.Load(o.configFile)
	if err != nil {
		rawLog.Sugar().Errorw("Failed to load configuration", "path", o.configFile, "error", err)
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return rawLog, cfg, nil
}
