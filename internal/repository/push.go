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
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
)

// RefUpdateStatus is the remote's verdict on a single pushed ref.
type RefUpdateStatus string

const (
	RefUpdateOK       RefUpdateStatus = "OK"
	RefUpdateUpToDate RefUpdateStatus = "UP_TO_DATE"
	RefUpdateRejected RefUpdateStatus = "REJECTED"
)

// RefUpdate is the result of pushing a single ref.
type RefUpdate struct {
	Ref     string
	Status  RefUpdateStatus
	Message string
}

func (u RefUpdate) String() string {
	if u.Message == "" {
		return fmt.Sprintf("%s %s", u.Ref, u.Status)
	}
	return fmt.Sprintf("%s %s: %s", u.Ref, u.Status, u.Message)
}

// rejectionMarkers identify push errors that carry the remote's refusal of a
// ref rather than a transport failure.
var rejectionMarkers = []string{
	"non-fast-forward",
	"command error on",
	"rejected",
}

// pushOrigin pushes the checked out branch to origin and reports the outcome
// per ref. Transport failures are returned as errors, refusals as updates.
func (r *Repository) pushOrigin(ctx context.Context) ([]RefUpdate, error) {
	ref := r.branch.String()
	spec := config.RefSpec(fmt.Sprintf("%s:%s", ref, ref))

	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       r.auth(),
	})

	switch {
	case err == nil:
		return []RefUpdate{{Ref: ref, Status: RefUpdateOK}}, nil
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return []RefUpdate{{Ref: ref, Status: RefUpdateUpToDate}}, nil
	case errors.Is(err, git.ErrForceNeeded) || isRejection(err):
		return []RefUpdate{{Ref: ref, Status: RefUpdateRejected, Message: err.Error()}}, nil
	default:
		return nil, fmt.Errorf("failed to push %s: %w", ref, err)
	}
}

func isRejection(err error) bool {
	msg := err.Error()
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// rejectedUpdates lists updates that are not OK. Up-to-date refs are accepted
// only when allowUpToDate is set.
func rejectedUpdates(updates []RefUpdate, allowUpToDate bool) []string {
	var rejected []string
	for _, u := range updates {
		if u.Status == RefUpdateOK || (allowUpToDate && u.Status == RefUpdateUpToDate) {
			continue
		}
		rejected = append(rejected, u.String())
	}
	return rejected
}
