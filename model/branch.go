/*
Copyright 2024 DineHub Authors.

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

package model

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Branch identifies one location of one merchant, the two-level scoping key
// partitioning all data in the store.
type Branch struct {
	TenantID string `json:"tenantId"`
	BranchID string `json:"branchId"`
}

func (b Branch) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.TenantID, validation.Required),
		validation.Field(&b.BranchID, validation.Required),
	)
}

// Path is the branch's document path relative to the documents root.
func (b Branch) Path() string {
	return fmt.Sprintf("tenants/%s/branches/%s", b.TenantID, b.BranchID)
}

// NotifyConfigPath is the well-known path of the branch's notification
// configuration document.
func (b Branch) NotifyConfigPath() string {
	return b.Path() + "/config/notifications"
}

// BranchConfig is the per-branch notification configuration, created and
// edited by the merchant console and read-only from the worker's perspective.
type BranchConfig struct {
	Enabled        bool   `json:"enabled"`
	WhatsAppNumber string `json:"whatsappNumber"`
}
