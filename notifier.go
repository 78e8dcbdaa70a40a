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

// Package notifier implements the scheduled worker that scans the multi-tenant
// order store for orders needing outbound messages, delivers them through the
// messaging API and durably records per-event idempotency flags with
// optimistic-concurrency commits.
package notifier

import (
	"context"
	"time"

	"github.com/dinehub/notifier/config"
	"github.com/dinehub/notifier/docstore"
)

// Store is the slice of the document-store client the worker depends on.
type Store interface {
	RunQuery(ctx context.Context, parent string, q *docstore.Query) ([]docstore.Document, error)
	GetDocument(ctx context.Context, relativePath string) (*docstore.Document, error)
	Commit(ctx context.Context, relativePath, updateTime string, fields map[string]docstore.Value) (docstore.CommitResult, error)
}

// Sender delivers one message and returns the provider-assigned message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Notifier ties the store, the delivery channel and the worker configuration
// together for one scheduled invocation at a time.
type Notifier struct {
	store  Store
	sender Sender
	cnf    *config.Configuration

	// injected for deterministic pacing and timestamp tests
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Notifier from the loaded configuration.
func New(store Store, sender Sender) (*Notifier, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &Notifier{
		store:  store,
		sender: sender,
		cnf:    cnf,
		now:    time.Now,
		sleep:  time.Sleep,
	}, nil
}

func (n *Notifier) pacingDelay() time.Duration {
	return time.Duration(n.cnf.Worker.PacingDelayMS) * time.Millisecond
}
