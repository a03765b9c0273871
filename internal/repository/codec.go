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
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	orgv1 "k8c.io/organization-manager/pkg/apis/organization/v1"
)

const fileExtension = ".yaml"

// Encode renders an Organization the way it is stored in the repository: two
// space indentation, sorted map keys, empty fields omitted.
func Encode(org *orgv1.Organization) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(org); err != nil {
		return nil, fmt.Errorf("failed to encode organization %q: %w", org.Metadata.Name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode organization %q: %w", org.Metadata.Name, err)
	}

	return buf.Bytes(), nil
}

// Decode parses a stored Organization.
func Decode(data []byte) (*orgv1.Organization, error) {
	org := &orgv1.Organization{}
	if err := yaml.Unmarshal(data, org); err != nil {
		return nil, fmt.Errorf("failed to decode organization: %w", err)
	}
	return org, nil
}
