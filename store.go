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

package notifier

import (
	"context"
	"path"
	"strings"

	"github.com/dinehub/notifier/docstore"
	"github.com/dinehub/notifier/internal/apierror"
	"github.com/dinehub/notifier/model"
)

// decodeOrder builds a typed Order from a raw store document. All wire-tag
// handling happens inside docstore; this only names the fields.
func decodeOrder(doc docstore.Document) model.Order {
	f := doc.Fields

	var items []model.OrderItem
	for _, v := range f.Array("items") {
		if v.MapValue == nil {
			continue
		}
		m := v.MapValue.Fields
		items = append(items, model.OrderItem{
			Name:  m.String("name"),
			Qty:   m.Int("qty"),
			Price: m.Decimal("price"),
			Note:  m.String("note"),
		})
	}

	notif := f.Map("notifications")

	return model.Order{
		ID:                 path.Base(doc.Name),
		Path:               doc.RelativePath(),
		Status:             f.String("status"),
		OrderNo:            f.String("orderNo"),
		Table:              f.String("table"),
		Subtotal:           f.Decimal("subtotal"),
		Items:              items,
		CancellationReason: f.String("cancellationReason"),
		CreatedAt:          f.Time("createdAt"),
		Notifications: model.NotificationState{
			WaNewSent:      notif.Bool("waNewSent"),
			WaNewSentAt:    notif.Time("waNewSentAt"),
			WaNewSid:       notif.String("waNewSid"),
			WaCancelSent:   notif.Bool("waCancelSent"),
			WaCancelSentAt: notif.Time("waCancelSentAt"),
			WaCancelSid:    notif.String("waCancelSid"),
		},
		UpdateTime: doc.UpdateTime,
	}
}

// branchFromPath derives the tenant/branch pair from a relative order path,
// e.g. "tenants/t1/branches/b1/orders/o1". Used in cross-tenant mode where
// matched orders arrive from every branch at once.
func branchFromPath(relativePath string) (model.Branch, bool) {
	parts := strings.Split(strings.Trim(relativePath, "/"), "/")
	if len(parts) >= 4 && parts[0] == "tenants" && parts[2] == "branches" {
		return model.Branch{TenantID: parts[1], BranchID: parts[3]}, true
	}
	return model.Branch{}, false
}

// branchNotifyConfig loads the notification config document for a branch.
// A missing or unreadable document yields nil: the channel is simply not
// configured for that branch and it is skipped silently. Credential failures
// are the one exception, they abort the whole run.
func (n *Notifier) branchNotifyConfig(ctx context.Context, b model.Branch) (*model.BranchConfig, error) {
	doc, err := n.store.GetDocument(ctx, b.NotifyConfigPath())
	if err != nil {
		if apierror.HasCode(err, apierror.ErrAuth) {
			return nil, err
		}
		return nil, nil
	}
	if doc == nil {
		return nil, nil
	}
	return &model.BranchConfig{
		Enabled:        doc.Fields.Bool("enabled"),
		WhatsAppNumber: doc.Fields.String("whatsappNumber"),
	}, nil
}
