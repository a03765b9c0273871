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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	omlog "k8c.io/organization-manager/internal/pkg/log"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()

	names := []string{}
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	require.ElementsMatch(t, []string{"serve", "synchronize"}, names)

	sync, _, err := cmd.Find([]string{"synchronize"})
	require.NoError(t, err)
	dryRun := sync.Flags().Lookup("dry-run")
	require.NotNil(t, dryRun)
	require.Equal(t, "true", dryRun.DefValue)
}

func TestSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repository:
  url: https://git.example.com/infra/organizations.git
  committerEmail: organization-api@example.com
`), 0o600))

	o := &options{configFile: path, log: omlog.NewDefaultOptions()}
	log, cfg, err := o.setup()
	require.NoError(t, err)
	require.NotNil(t, log)
	require.Equal(t, "https://git.example.com/infra/organizations.git", cfg.Repository.URL)

	o.configFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err = o.setup()
	require.ErrorContains(t, err, "failed to load configuration")

	o.log.Format = "xml"
	_, _, err = o.setup()
	require.ErrorContains(t, err, "invalid log-format")
}
