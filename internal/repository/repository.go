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

// Package repository keeps organization definitions in a Git configuration
// repository. Every Repository value owns a private clone in a temporary
// directory; callers must Close it when done.
//
// Files are laid out as {cluster}/{deployment}/{organization-id}.yaml. A
// deployment directory must exist in the repository before organizations can
// be written to it.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/pkg/apierror"
	omlog "k8c.io/organization-manager/internal/pkg/log"
	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

const (
	// tokenUsername is the user name sent along with the access token.
	tokenUsername = "PRIVATE_TOKEN"

	// DefaultLookbackDays bounds the history searched for deleted organizations.
	DefaultLookbackDays = 20

	cloneDirPattern = "organizations-"
)

// Config describes the remote repository and the identity used for commits.
type Config struct {
	Log *zap.SugaredLogger

	URL string

	// Branch is checked out and pushed. The remote HEAD is used when empty.
	Branch string

	// Token authenticates HTTP(S) remotes. Anonymous access is used when empty.
	Token string

	CommitterName  string
	CommitterEmail string

	// Directory is the parent of the temporary clones. The system temporary
	// directory is used when empty.
	Directory string
}

func (c *Config) validate() error {
	if c.Log == nil {
		return fmt.Errorf("log cannot be nil")
	}

	if c.URL == "" {
		return fmt.Errorf("repository url cannot be empty")
	}

	if c.CommitterName == "" || c.CommitterEmail == "" {
		return fmt.Errorf("committer name and email cannot be empty")
	}

	return nil
}

// Repository is a private working copy of the configuration repository.
type Repository struct {
	cfg      *Config
	log      *zap.SugaredLogger
	dir      string
	branch   plumbing.ReferenceName
	repo     *git.Repository
	worktree *git.Worktree

	now  func() time.Time
	push func(ctx context.Context) ([]RefUpdate, error)
}

// Open clones the configuration repository into a new temporary directory.
// The clone must contain at least one tracked file.
func Open(ctx context.Context, cfg *Config) (*Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("failed to open repository: config is nil")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	dir, err := os.MkdirTemp(cfg.Directory, cloneDirPattern)
	if err != nil {
		return nil, apierror.RepositoryInit(cfg.URL, fmt.Errorf("failed to create clone directory: %w", err))
	}

	l := cfg.Log.With("path", dir)
	l.Debug("Cloning organization repository")

	r := &Repository{
		cfg: cfg,
		log: l,
		dir: dir,
		now: time.Now,
	}
	r.push = r.pushOrigin

	if err := r.clone(ctx); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			l.Warnw("Failed to remove clone directory", "error", rmErr)
		}
		return nil, err
	}

	l.Infow("Organization repository cloned", "branch", r.branch.Short())
	return r, nil
}

func (r *Repository) clone(ctx context.Context) error {
	opts := &git.CloneOptions{
		URL:          r.cfg.URL,
		Auth:         r.auth(),
		SingleBranch: r.cfg.Branch != "",
	}
	if r.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(r.cfg.Branch)
	}

	repo, err := git.PlainCloneContext(ctx, r.dir, false, opts)
	if err != nil {
		return apierror.RepositoryInit(r.cfg.URL, fmt.Errorf("failed to clone: %w", err))
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return apierror.RepositoryInit(r.cfg.URL, fmt.Errorf("failed to read working tree: %w", err))
	}
	if len(entries) <= 1 {
		return apierror.RepositoryInit(r.cfg.URL, errors.New("working tree is empty"))
	}

	head, err := repo.Head()
	if err != nil {
		return apierror.RepositoryInit(r.cfg.URL, fmt.Errorf("failed to resolve HEAD: %w", err))
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return apierror.RepositoryInit(r.cfg.URL, fmt.Errorf("failed to open worktree: %w", err))
	}

	r.repo = repo
	r.worktree = worktree
	r.branch = head.Name()
	return nil
}

// Close removes the working copy.
func (r *Repository) Close() error {
	if err := os.RemoveAll(r.dir); err != nil {
		return fmt.Errorf("failed to remove clone directory %q: %w", r.dir, err)
	}
	r.log.Debug("Organization repository removed")
	return nil
}

// Dir returns the working copy directory.
func (r *Repository) Dir() string {
	return r.dir
}

// CreateOrganization writes org below cluster and the organization's namespace,
// commits it when the content changed and pushes.
func (r *Repository) CreateOrganization(ctx context.Context, org *orgv1.Organization, cluster string) error {
	deployment := org.Metadata.Namespace

	if _, err := r.commitOrganization(org, cluster); err != nil {
		return err
	}

	if err := r.pushCreated(ctx, cluster, deployment, org.Metadata.Name); err != nil {
		return err
	}

	omlog.Organization(r.log, org.Metadata.Name, cluster, deployment).Info("Organization pushed")
	return nil
}

// CreateOrganizationsAll commits every organization separately and pushes once.
// An empty batch does nothing.
func (r *Repository) CreateOrganizationsAll(ctx context.Context, orgs []orgv1.Organization, cluster string) error {
	if len(orgs) == 0 {
		return nil
	}

	for i := range orgs {
		if _, err := r.commitOrganization(&orgs[i], cluster); err != nil {
			return err
		}
	}

	deployment := orgs[0].Metadata.Namespace
	if err := r.pushCreated(ctx, cluster, deployment, ""); err != nil {
		return err
	}

	omlog.Organization(r.log, "", cluster, deployment).Infow("Organizations pushed", "count", len(orgs))
	return nil
}

// DeleteOrganization removes the organization file, commits and pushes. The
// push must be accepted for every ref.
func (r *Repository) DeleteOrganization(ctx context.Context, id, cluster, deployment string) error {
	rel := organizationPath(cluster, deployment, id)
	l := omlog.Organization(r.log, id, cluster, deployment)

	if _, err := os.Stat(r.abs(rel)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apierror.OrganizationNotFound(cluster, deployment, id)
		}
		return apierror.GitOperation(cluster, deployment, id, err)
	}

	if _, err := r.worktree.Remove(rel); err != nil {
		return apierror.GitOperation(cluster, deployment, id, fmt.Errorf("failed to remove %q: %w", rel, err))
	}

	if err := r.commit(fmt.Sprintf("[%s/%s] Remove organization %s", cluster, deployment, id)); err != nil {
		return apierror.GitOperation(cluster, deployment, id, err)
	}

	updates, err := r.push(ctx)
	if err != nil {
		return apierror.GitOperation(cluster, deployment, id, err)
	}

	if rejected := rejectedUpdates(updates, false); len(rejected) > 0 {
		l.Errorw("Push was not accepted", "rejected", rejected)
		return apierror.PushVerification(cluster, deployment, id, rejected)
	}

	l.Info("Organization removed from repository")
	return nil
}

// commitOrganization writes the organization file and commits it if the staged
// content differs from HEAD.
func (r *Repository) commitOrganization(org *orgv1.Organization, cluster string) (bool, error) {
	id := org.Metadata.Name
	deployment := org.Metadata.Namespace
	rel := organizationPath(cluster, deployment, id)
	l := omlog.Organization(r.log, id, cluster, deployment)

	info, err := os.Stat(r.abs(path.Join(cluster, deployment)))
	if err != nil || !info.IsDir() {
		return false, apierror.DeploymentNotFound(cluster, deployment)
	}

	data, err := Encode(org)
	if err != nil {
		return false, apierror.GitOperation(cluster, deployment, id, err)
	}

	if err := os.WriteFile(r.abs(rel), data, 0o644); err != nil {
		return false, apierror.GitOperation(cluster, deployment, id, fmt.Errorf("failed to write %q: %w", rel, err))
	}

	if _, err := r.worktree.Add(rel); err != nil {
		return false, apierror.GitOperation(cluster, deployment, id, fmt.Errorf("failed to stage %q: %w", rel, err))
	}

	status, err := r.worktree.Status()
	if err != nil {
		return false, apierror.GitOperation(cluster, deployment, id, fmt.Errorf("failed to read status: %w", err))
	}

	fileStatus, ok := status[rel]
	if !ok || (fileStatus.Staging != git.Added && fileStatus.Staging != git.Modified) {
		l.Warn("Organization file unchanged, skipping commit")
		return false, nil
	}

	if err := r.commit(fmt.Sprintf("[%s/%s] Add organization %s", cluster, deployment, id)); err != nil {
		return false, apierror.GitOperation(cluster, deployment, id, err)
	}

	l.Debugw("Organization committed", "path", rel)
	return true, nil
}

func (r *Repository) commit(message string) error {
	signature := &object.Signature{
		Name:  r.cfg.CommitterName,
		Email: r.cfg.CommitterEmail,
		When:  r.now(),
	}

	if _, err := r.worktree.Commit(message, &git.CommitOptions{Author: signature, Committer: signature}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (r *Repository) pushCreated(ctx context.Context, cluster, deployment, id string) error {
	updates, err := r.push(ctx)
	if err != nil {
		return apierror.GitOperation(cluster, deployment, id, err)
	}

	if rejected := rejectedUpdates(updates, true); len(rejected) > 0 {
		return apierror.GitOperation(cluster, deployment, id, fmt.Errorf("push rejected: %v", rejected))
	}
	return nil
}

func (r *Repository) auth() transport.AuthMethod {
	if r.cfg.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: tokenUsername, Password: r.cfg.Token}
}

func (r *Repository) abs(rel string) string {
	return filepath.Join(r.dir, filepath.FromSlash(rel))
}

func organizationPath(cluster, deployment, id string) string {
	return path.Join(cluster, deployment, id+fileExtension)
}
