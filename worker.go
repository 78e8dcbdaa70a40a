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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dinehub/notifier/docstore"
	"github.com/dinehub/notifier/internal/apierror"
	"github.com/dinehub/notifier/internal/notification"
	"github.com/dinehub/notifier/model"
)

const (
	ordersCollection = "orders"

	fieldStatus    = "status"
	fieldCreatedAt = "createdAt"

	notificationsField = "notifications"
)

// event describes one notification kind: which order status it matches, the
// idempotency flag that gates it and the message body it produces.
type event struct {
	name     string
	status   string
	sentFlag string
	sentAt   string
	sidField string
	format   func(model.Order) string
}

func events() []event {
	return []event{
		{
			name:     "new",
			status:   model.StatusPending,
			sentFlag: "waNewSent",
			sentAt:   "waNewSentAt",
			sidField: "waNewSid",
			format: func(o model.Order) string {
				return FormatNewOrder(o.OrderNo, o.Table, o.Items, o.Subtotal)
			},
		},
		{
			name:     "cancel",
			status:   model.StatusCancelled,
			sentFlag: "waCancelSent",
			sentAt:   "waCancelSentAt",
			sidField: "waCancelSid",
			format: func(o model.Order) string {
				return FormatCancelledOrder(o.OrderNo, o.Table, o.Items, o.Subtotal, o.CancellationReason)
			},
		},
	}
}

// Run performs one scheduled invocation: resolve the branches to scan, and
// for each one load config, query unmarked orders oldest-first, deliver and
// commit the idempotency flags. Only credential failures abort the run; a
// failing branch or order never blocks the rest of the backlog.
func (n *Notifier) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := logrus.WithField("run_id", runID)

	branches := ResolveBranches(n.cnf.Worker.BranchesJSON)
	if len(branches) == 0 {
		log.Info("no branch allow-list configured, running cross-tenant scan")
		if err := n.runCrossTenant(ctx, log); err != nil {
			notification.NotifyError(notification.Alert{RunID: runID, Stage: "cross-tenant scan", Err: err})
			return err
		}
		return nil
	}

	log.Infof("scanning %d configured branches", len(branches))
	for _, b := range branches {
		blog := log.WithFields(logrus.Fields{"tenant": b.TenantID, "branch": b.BranchID})
		if err := n.runBranch(ctx, blog, b); err != nil {
			if apierror.HasCode(err, apierror.ErrAuth) {
				notification.NotifyError(notification.Alert{RunID: runID, Stage: "branch scan", Err: err})
				return err
			}
			// A branch-level failure is isolated; move on to the next branch.
			blog.WithError(err).Error("branch processing aborted")
		}
	}
	return nil
}

// runBranch runs the scoped pipeline for one branch: config gate first, then
// both event kinds in turn.
func (n *Notifier) runBranch(ctx context.Context, log *logrus.Entry, b model.Branch) error {
	cfg, err := n.branchNotifyConfig(ctx, b)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled || cfg.WhatsAppNumber == "" {
		log.Debug("notifications not configured for branch, skipping")
		return nil
	}

	for _, ev := range events() {
		q := n.eventQuery(ev, false)
		docs, err := n.store.RunQuery(ctx, b.Path(), q)
		if err != nil {
			return err
		}
		n.processBatch(ctx, log, docs, cfg.WhatsAppNumber, ev)
	}
	return nil
}

// runCrossTenant runs the collection-group pipeline: one query per event kind
// across all tenants, with the branch config looked up (and memoized per run)
// from each matched order's document path.
func (n *Notifier) runCrossTenant(ctx context.Context, log *logrus.Entry) error {
	configs := map[model.Branch]*model.BranchConfig{}

	for _, ev := range events() {
		q := n.eventQuery(ev, true)
		docs, err := n.store.RunQuery(ctx, "", q)
		if err != nil {
			if apierror.HasCode(err, apierror.ErrAuth) {
				return err
			}
			log.WithError(err).Errorf("%s-order scan failed", ev.name)
			continue
		}

		paced := false
		for _, doc := range docs {
			b, ok := branchFromPath(doc.RelativePath())
			if !ok {
				log.Warnf("order %s has an unexpected path, skipping", doc.Name)
				continue
			}

			cfg, cached := configs[b]
			if !cached {
				cfg, err = n.branchNotifyConfig(ctx, b)
				if err != nil {
					return err
				}
				configs[b] = cfg
			}
			if cfg == nil || !cfg.Enabled || cfg.WhatsAppNumber == "" {
				continue
			}

			olog := log.WithFields(logrus.Fields{"tenant": b.TenantID, "branch": b.BranchID})
			if paced {
				n.sleep(n.pacingDelay())
			}
			paced = n.processOrder(ctx, olog, doc, cfg.WhatsAppNumber, ev)
		}
	}
	return nil
}

// eventQuery is the shared query shape: status equality, the event's sent
// flag still false, oldest first, capped at the configured page size. The cap
// bounds per-run cost and keeps delivery within third-party rate limits.
func (n *Notifier) eventQuery(ev event, crossTenant bool) *docstore.Query {
	q := docstore.NewQuery(ordersCollection).
		WhereEq(fieldStatus, docstore.String(ev.status)).
		WhereEq(notificationsField+"."+ev.sentFlag, docstore.Boolean(false)).
		OrderByAsc(fieldCreatedAt).
		WithLimit(n.cnf.Worker.PageSize)
	if crossTenant {
		q.AllDescendants()
	}
	return q
}

// processBatch paces between sends only; the last order of a batch is not
// followed by a sleep.
func (n *Notifier) processBatch(ctx context.Context, log *logrus.Entry, docs []docstore.Document, to string, ev event) {
	paced := false
	for _, doc := range docs {
		if paced {
			n.sleep(n.pacingDelay())
		}
		paced = n.processOrder(ctx, log, doc, to, ev)
	}
}

// processOrder formats, delivers and commits one order's notification.
// It reports whether a delivery was attempted so the caller can pace the next
// send. Every failure is contained here: a delivery error leaves the flag
// uncommitted so the order is retried on the next run, and a precondition
// skip means a concurrent run already handled it.
func (n *Notifier) processOrder(ctx context.Context, log *logrus.Entry, doc docstore.Document, to string, ev event) (attempted bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("panic while processing order %s: %v", doc.Name, rec)
		}
	}()

	order := decodeOrder(doc)
	olog := log.WithFields(logrus.Fields{"order": order.ID, "event": ev.name})

	body := ev.format(order)

	sid, err := n.sender.Send(ctx, to, body)
	attempted = true
	if err != nil {
		olog.WithError(err).Error("delivery failed, order stays eligible for the next run")
		return attempted
	}

	fields := map[string]docstore.Value{
		notificationsField + "." + ev.sentFlag: docstore.Boolean(true),
		notificationsField + "." + ev.sentAt:   docstore.Timestamp(n.now()),
		notificationsField + "." + ev.sidField: docstore.String(sid),
	}

	result, err := n.store.Commit(ctx, order.Path, order.UpdateTime, fields)
	if err != nil {
		olog.WithError(err).Error("flag commit failed")
		return attempted
	}
	if result == docstore.CommitSkipped {
		olog.Info("order already handled by a concurrent run")
		return attempted
	}

	olog.WithField("sid", sid).Info("notification delivered and recorded")
	return attempted
}
