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
	"github.com/spf13/cobra"

	"k8c.io/organization-manager/internal/server"

	ctrl "sigs.k8s.io/controller-runtime"
)

func newServeCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the organization API until terminated",
		RunE: func(_ *cobra.Command, _ []string) error {
			rawLog, cfg, err := o.setup()
			if err != nil {
				return err
			}
			l := rawLog.Sugar()

			c, err := buildComponents(rawLog, cfg)
			if err != nil {
				l.Errorw("Failed to build components", "error", err)
				return err
			}
			defer c.Close()

			var issuer server.TokenIssuer
			if c.tokens != nil {
				issuer = c.tokens
			}

			srv, err := server.New(&server.Config{
				Log:             rawLog.Named("http"),
				Address:         cfg.Server.Address,
				ApplicationName: cfg.Server.ApplicationName,
				ShutdownTimeout: cfg.Server.ShutdownTimeout(),
				Gatherer:        c.registry,
			}, c.service, issuer)
			if err != nil {
				l.Errorw("Failed to create HTTP server", "error", err)
				return err
			}

			l.Infow("Starting organization API",
				"managed_cluster", cfg.Service.ManagedCluster,
				"controlled_namespaces", cfg.Service.ControlledNamespaces,
				"tokens_enabled", issuer != nil,
			)

			if err := srv.Run(ctrl.SetupSignalHandler()); err != nil {
				l.Errorw("HTTP server stopped", "error", err)
				return err
			}
			return nil
		},
	}
}
