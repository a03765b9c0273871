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

package tier

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/pkg/apierror"
)

const (
	idGenerationMaxTries = 10
	idGenerationInterval = time.Millisecond
)

var (
	idCandidatePattern = regexp.MustCompile(`[a-z0-9][-a-z0-9]{8}[a-z0-9]`)

	errNoIDCandidate = errors.New("digest does not contain an organization id candidate")
)

// IDGenerator derives short organization ids from the organization's identity
// and the current time. Attempts are spaced so each one hashes a different
// millisecond.
type IDGenerator struct {
	log      *zap.SugaredLogger
	now      func() time.Time
	derive   func(seed string) (string, bool)
	maxTries uint
	interval time.Duration
}

func NewIDGenerator(log *zap.SugaredLogger) *IDGenerator {
	return &IDGenerator{
		log:      log,
		now:      time.Now,
		derive:   deriveID,
		maxTries: idGenerationMaxTries,
		interval: idGenerationInterval,
	}
}

// Generate returns a 10 character id matching the organization id pattern.
func (g *IDGenerator) Generate(ctx context.Context, company, email, cluster, deployment string) (string, error) {
	var attempts uint

	id, err := backoff.Retry(ctx,
		func() (string, error) {
			attempts++
			seed := fmt.Sprintf("%s%s%s%s%d", company, email, cluster, deployment, g.now().UnixMilli())
			id, ok := g.derive(seed)
			if !ok {
				return "", errNoIDCandidate
			}
			return id, nil
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(g.interval)),
		backoff.WithMaxTries(g.maxTries),
		backoff.WithNotify(func(err error, _ time.Duration) {
			g.log.Debugw("Retrying organization id generation", "attempt", attempts, "max", g.maxTries, "error", err)
		}),
	)
	if err != nil {
		g.log.Errorw("Failed to generate organization id", "attempts", attempts, "error", err)
		return "", apierror.IDGeneration(int(attempts), err)
	}

	return id, nil
}

// deriveID hashes seed with MD5, encodes it as URL-safe base64, lower-cases it
// and returns the first 10 character run matching the id pattern.
func deriveID(seed string) (string, bool) {
	sum := md5.Sum([]byte(seed))
	encoded := strings.ToLower(base64.URLEncoding.EncodeToString(sum[:]))

	id := idCandidatePattern.FindString(encoded)
	return id, id != ""
}
