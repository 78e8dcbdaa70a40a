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

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/dinehub/notifier/config"
	"github.com/dinehub/notifier/internal/apierror"
	"github.com/dinehub/notifier/internal/request"
)

// Document is one document returned by the store: its full resource name,
// decoded field map and the opaque version token required for a safe
// conditional write.
type Document struct {
	Name       string `json:"name"`
	Fields     Fields `json:"fields"`
	UpdateTime string `json:"updateTime"`
}

// RelativePath strips the "projects/.../documents/" prefix off the resource
// name, leaving the tenant-scoped path (e.g. "tenants/t1/branches/b1/orders/o1").
func (d Document) RelativePath() string {
	marker := "/documents/"
	if i := strings.Index(d.Name, marker); i >= 0 {
		return d.Name[i+len(marker):]
	}
	return d.Name
}

// CommitResult reports whether a conditional commit was applied or skipped
// because another writer got there first.
type CommitResult string

const (
	CommitApplied CommitResult = "applied"
	CommitSkipped CommitResult = "skipped"
)

// Client issues structured queries and conditional commits against the
// document store's REST surface.
type Client struct {
	baseURL   string
	projectID string
	tokens    *TokenSource
}

func NewClient(cfg *config.FirestoreConfig) (*Client, error) {
	creds, err := NewCredentials(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		projectID: cfg.ProjectID,
		tokens:    NewTokenSource(creds),
	}, nil
}

func (c *Client) documentsRoot() string {
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents", c.baseURL, c.projectID)
}

func (c *Client) resourceName(relativePath string) string {
	return fmt.Sprintf("projects/%s/databases/(default)/documents/%s", c.projectID, relativePath)
}

// googleStatus is the error envelope the store returns on failures.
type googleStatus struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

type runQueryItem struct {
	Document *Document `json:"document,omitempty"`
	ReadTime string    `json:"readTime,omitempty"`
}

// RunQuery executes a structured query. An empty parent runs the query at the
// documents root, which is where collection-group queries live; a parent like
// "tenants/t1/branches/b1" scopes the query under that path.
func (c *Client) RunQuery(ctx context.Context, parent string, q *Query) ([]Document, error) {
	target := c.documentsRoot()
	if parent != "" {
		target += "/" + strings.Trim(parent, "/")
	}
	target += ":runQuery"

	payload, err := request.ToJsonReq(map[string]interface{}{"structuredQuery": q})
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "failed to encode structured query", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", target, payload)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "failed to build runQuery request", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	resp, err := request.Call(req, &raw)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "runQuery request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "runQuery was rejected by the store", decodeStatus(raw, resp.StatusCode))
	}

	var items []runQueryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "failed to decode runQuery response", err)
	}

	docs := make([]Document, 0, len(items))
	for _, item := range items {
		if item.Document != nil {
			docs = append(docs, *item.Document)
		}
	}
	return docs, nil
}

// GetDocument fetches a single document by its relative path. A 404 yields
// (nil, nil): an absent configuration document is not an error.
func (c *Client) GetDocument(ctx context.Context, relativePath string) (*Document, error) {
	target := c.documentsRoot() + "/" + strings.Trim(relativePath, "/")

	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "failed to build document request", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	resp, err := request.Call(req, &raw)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "document request failed", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "document read was rejected by the store", decodeStatus(raw, resp.StatusCode))
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrQuery, "failed to decode document", err)
	}
	return &doc, nil
}

type commitWrite struct {
	Update struct {
		Name   string `json:"name"`
		Fields Fields `json:"fields"`
	} `json:"update"`
	UpdateMask struct {
		FieldPaths []string `json:"fieldPaths"`
	} `json:"updateMask"`
	CurrentDocument map[string]interface{} `json:"currentDocument"`
}

// Commit applies a field-path-restricted update to one document, guarded by
// an optimistic-concurrency precondition: the document must still be at the
// version read (updateTime), or at least exist when no version token is
// available. A precondition failure is the expected already-handled-by-a-
// concurrent-run signal and returns CommitSkipped with a nil error.
func (c *Client) Commit(ctx context.Context, relativePath, updateTime string, fields map[string]Value) (CommitResult, error) {
	var write commitWrite
	write.Update.Name = c.resourceName(relativePath)
	write.Update.Fields = nestFields(fields)
	write.UpdateMask.FieldPaths = sortedPaths(fields)
	if updateTime != "" {
		write.CurrentDocument = map[string]interface{}{"updateTime": updateTime}
	} else {
		write.CurrentDocument = map[string]interface{}{"exists": true}
	}

	payload, err := request.ToJsonReq(map[string]interface{}{"writes": []commitWrite{write}})
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrQuery, "failed to encode commit", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.documentsRoot()+":commit", payload)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrQuery, "failed to build commit request", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return "", err
	}

	var raw json.RawMessage
	resp, err := request.Call(req, &raw)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrQuery, "commit request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := decodeStatus(raw, resp.StatusCode)
		if isPreconditionFailure(resp.StatusCode, status) {
			return CommitSkipped, nil
		}
		return "", apierror.NewAPIError(apierror.ErrQuery, "commit was rejected by the store", status)
	}
	return CommitApplied, nil
}

func decodeStatus(raw json.RawMessage, httpStatus int) error {
	var status googleStatus
	if err := json.Unmarshal(raw, &status); err == nil && status.Error.Status != "" {
		return fmt.Errorf("%s (%d): %s", status.Error.Status, status.Error.Code, status.Error.Message)
	}
	return fmt.Errorf("store returned HTTP %d", httpStatus)
}

func isPreconditionFailure(httpStatus int, status error) bool {
	if httpStatus == http.StatusConflict {
		return true
	}
	return status != nil && strings.Contains(status.Error(), "FAILED_PRECONDITION")
}

// nestFields turns dotted field paths into the nested mapValue structure the
// commit payload requires, so "notifications.waNewSent" becomes a
// notifications map with a waNewSent entry.
func nestFields(fields map[string]Value) Fields {
	out := Fields{}
	for path, v := range fields {
		parts := strings.Split(path, ".")
		cur := out
		for i, part := range parts {
			if i == len(parts)-1 {
				cur[part] = v
				break
			}
			next, ok := cur[part]
			if !ok || next.MapValue == nil {
				next = Map(Fields{})
				cur[part] = next
			}
			cur = next.MapValue.Fields
		}
	}
	return out
}

func sortedPaths(fields map[string]Value) []string {
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
