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
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"k8c.io/organization-manager/internal/pkg/apierror"
)

func TestDeriveID(t *testing.T) {
	tests := []struct {
		name     string
		seed     string
		expected string
	}{
		{
			name:     "first candidate at the start of the digest",
			seed:     "Acme Inc.owner@acme.comcluster-aprod1700000000000",
			expected: "yoeonchrgm",
		},
		{
			name:     "candidate skips the underscore",
			seed:     "Acme Inc.owner@acme.comcluster-aprod1700000000001",
			expected: "oxwgtsuijg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := deriveID(tt.seed)
			if !ok {
				t.Fatalf("expected a candidate for %q", tt.seed)
			}
			if got != tt.expected {
				t.Errorf("deriveID() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestGenerateIsDeterministicForAFixedClock(t *testing.T) {
	g := NewIDGenerator(zap.NewNop().Sugar())
	g.now = func() time.Time { return time.UnixMilli(1700000000000) }

	id, err := g.Generate(context.Background(), "Acme Inc.", "owner@acme.com", "cluster-a", "prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "yoeonchrgm" {
		t.Errorf("Generate() = %q, expected %q", id, "yoeonchrgm")
	}
}

func TestGenerateRetriesWithAFreshClock(t *testing.T) {
	var seeds []string
	clock := int64(1700000000000)

	g := NewIDGenerator(zap.NewNop().Sugar())
	g.interval = 0
	g.now = func() time.Time {
		clock++
		return time.UnixMilli(clock)
	}
	g.derive = func(seed string) (string, bool) {
		seeds = append(seeds, seed)
		if len(seeds) < 3 {
			return "", false
		}
		return "abcdefghij", true
	}

	id, err := g.Generate(context.Background(), "Acme", "a@b.c", "c", "d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abcdefghij" {
		t.Errorf("Generate() = %q", id)
	}
	if len(seeds) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(seeds))
	}
	if seeds[0] == seeds[1] || seeds[1] == seeds[2] {
		t.Errorf("expected distinct seeds per attempt, got %v", seeds)
	}
}

func TestGenerateGivesUpAfterTenAttempts(t *testing.T) {
	attempts := 0

	g := NewIDGenerator(zap.NewNop().Sugar())
	g.interval = 0
	g.derive = func(string) (string, bool) {
		attempts++
		return "", false
	}

	_, err := g.Generate(context.Background(), "Acme", "a@b.c", "c", "d")
	if !errors.Is(err, apierror.ErrIDGeneration) {
		t.Fatalf("expected IdGeneration error, got %v", err)
	}
	if attempts != idGenerationMaxTries {
		t.Errorf("expected %d attempts, got %d", idGenerationMaxTries, attempts)
	}
}
