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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	ctrl "sigs.k8s.io/controller-runtime"
)

func newSynchronizeCommand(o *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "synchronize",
		Short: "Capture organizations that only exist in the cluster into Git",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			result, err := c.service.SynchronizeOrganizations(ctrl.SetupSignalHandler(), dryRun)
			if err != nil {
				l.Errorw("Synchronization failed", "error", err)
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Only report the organizations that would be captured")
	return cmd
}
