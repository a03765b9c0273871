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

package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"k8c.io/organization-manager/internal/pkg/apierror"
)

// ListOrganizations returns the metadata names of the organizations stored for
// cluster and deployment, sorted. A missing deployment directory yields none.
func (r *Repository) ListOrganizations(cluster, deployment string) ([]string, error) {
	dir := path.Join(cluster, deployment)

	entries, err := os.ReadDir(r.abs(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.log.Debugw("Deployment directory does not exist", "cluster", cluster, "deployment", deployment)
			return nil, nil
		}
		return nil, apierror.GitOperation(cluster, deployment, "", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExtension) {
			continue
		}

		data, err := os.ReadFile(r.abs(path.Join(dir, entry.Name())))
		if err != nil {
			return nil, apierror.GitOperation(cluster, deployment, "", err)
		}

		org, err := Decode(data)
		if err != nil {
			return nil, apierror.GitOperation(cluster, deployment, "", fmt.Errorf("%s: %w", entry.Name(), err))
		}
		names = append(names, org.Metadata.Name)
	}

	sort.Strings(names)
	return names, nil
}

// ListDeletedOrganizations returns the ids of organizations whose files were
// deleted below cluster and deployment within the last lookbackDays days.
// Consecutive commits of the history are diffed pairwise, oldest first.
func (r *Repository) ListDeletedOrganizations(ctx context.Context, cluster, deployment string, lookbackDays int) ([]string, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	since := r.now().AddDate(0, 0, -lookbackDays)
	iter, err := r.repo.Log(&git.LogOptions{Since: &since})
	if err != nil {
		return nil, apierror.GitOperation(cluster, deployment, "", fmt.Errorf("failed to read log: %w", err))
	}

	var commits []*object.Commit
	if err := iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, c)
		return nil
	}); err != nil {
		return nil, apierror.GitOperation(cluster, deployment, "", fmt.Errorf("failed to walk log: %w", err))
	}
	slices.Reverse(commits)

	prefix := path.Join(cluster, deployment) + "/"
	deleted := map[string]struct{}{}

	for i := 1; i < len(commits); i++ {
		ids, err := deletedBetween(ctx, commits[i-1], commits[i], prefix)
		if err != nil {
			return nil, apierror.GitOperation(cluster, deployment, "", err)
		}
		for _, id := range ids {
			deleted[id] = struct{}{}
		}
	}

	result := make([]string, 0, len(deleted))
	for id := range deleted {
		result = append(result, id)
	}
	sort.Strings(result)

	r.log.Debugw("Listed deleted organizations", "cluster", cluster, "deployment", deployment, "count", len(result), "commits", len(commits))
	return result, nil
}

func deletedBetween(ctx context.Context, older, newer *object.Commit, prefix string) ([]string, error) {
	from, err := older.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree of %s: %w", older.Hash, err)
	}

	to, err := newer.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree of %s: %w", newer.Hash, err)
	}

	changes, err := from.DiffContext(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", older.Hash, newer.Hash, err)
	}

	var ids []string
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, err
		}
		if action != merkletrie.Delete {
			continue
		}

		name := change.From.Name
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileExtension) {
			continue
		}

		id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileExtension)
		if strings.Contains(id, "/") {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
