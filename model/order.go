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
	"time"

	"github.com/shopspring/decimal"
)

// Order status values, set by the external order-management flow. The worker
// only ever reads StatusPending and StatusCancelled.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusServed    = "served"
	StatusCancelled = "cancelled"
)

// OrderItem is a single line on an order. Price is the unit price at
// three-decimal currency precision (fils).
type OrderItem struct {
	Name  string          `json:"name"`
	Qty   int64           `json:"qty"`
	Price decimal.Decimal `json:"price"`
	Note  string          `json:"note,omitempty"`
}

// NotificationState is the per-channel idempotency record on an order.
// It is mutated exclusively by the notification worker, once per event kind,
// and never reset.
type NotificationState struct {
	WaNewSent      bool      `json:"waNewSent"`
	WaNewSentAt    time.Time `json:"waNewSentAt,omitempty"`
	WaNewSid       string    `json:"waNewSid,omitempty"`
	WaCancelSent   bool      `json:"waCancelSent"`
	WaCancelSentAt time.Time `json:"waCancelSentAt,omitempty"`
	WaCancelSid    string    `json:"waCancelSid,omitempty"`
}

// Order is one order document under a tenant/branch-scoped collection.
type Order struct {
	ID                 string            `json:"id"`
	Path               string            `json:"path"` // store path relative to the documents root
	Status             string            `json:"status"`
	OrderNo            string            `json:"order_no"`
	Table              string            `json:"table,omitempty"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	Items              []OrderItem       `json:"items"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	Notifications      NotificationState `json:"notifications"`
	CreatedAt          time.Time         `json:"created_at"`

	// UpdateTime is the opaque version token the store supplied on read,
	// required for a safe conditional write.
	UpdateTime string `json:"update_time"`
}
