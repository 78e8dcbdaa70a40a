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

import "encoding/json"

// Wire representation of a structured query.

type structuredQuery struct {
	From    []collectionSelector `json:"from"`
	Where   *filter              `json:"where,omitempty"`
	OrderBy []ordering           `json:"orderBy,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
}

type collectionSelector struct {
	CollectionID   string `json:"collectionId"`
	AllDescendants bool   `json:"allDescendants,omitempty"`
}

type filter struct {
	Composite *compositeFilter `json:"compositeFilter,omitempty"`
	Field     *fieldFilter     `json:"fieldFilter,omitempty"`
}

type compositeFilter struct {
	Op      string   `json:"op"`
	Filters []filter `json:"filters"`
}

type fieldFilter struct {
	Field fieldReference `json:"field"`
	Op    string         `json:"op"`
	Value Value          `json:"value"`
}

type fieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type ordering struct {
	Field     fieldReference `json:"field"`
	Direction string         `json:"direction"`
}

// Query builds a structured query against one collection name. Equality
// filters are combined with AND; field paths may be dotted to reach nested
// maps (e.g. "notifications.waNewSent").
type Query struct {
	collection     string
	allDescendants bool
	filters        []fieldFilter
	orderBy        []ordering
	limit          int
}

func NewQuery(collection string) *Query {
	return &Query{collection: collection}
}

// AllDescendants switches the query into collection-group mode, matching the
// same collection name across all tenants in one call.
func (q *Query) AllDescendants() *Query {
	q.allDescendants = true
	return q
}

func (q *Query) WhereEq(fieldPath string, v Value) *Query {
	q.filters = append(q.filters, fieldFilter{
		Field: fieldReference{FieldPath: fieldPath},
		Op:    "EQUAL",
		Value: v,
	})
	return q
}

func (q *Query) OrderByAsc(fieldPath string) *Query {
	q.orderBy = append(q.orderBy, ordering{
		Field:     fieldReference{FieldPath: fieldPath},
		Direction: "ASCENDING",
	})
	return q
}

func (q *Query) WithLimit(n int) *Query {
	q.limit = n
	return q
}

// MarshalJSON renders the wire form of the query.
func (q *Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.build())
}

func (q *Query) build() structuredQuery {
	out := structuredQuery{
		From: []collectionSelector{{
			CollectionID:   q.collection,
			AllDescendants: q.allDescendants,
		}},
		OrderBy: q.orderBy,
		Limit:   q.limit,
	}

	switch len(q.filters) {
	case 0:
	case 1:
		f := q.filters[0]
		out.Where = &filter{Field: &f}
	default:
		parts := make([]filter, 0, len(q.filters))
		for i := range q.filters {
			f := q.filters[i]
			parts = append(parts, filter{Field: &f})
		}
		out.Where = &filter{Composite: &compositeFilter{Op: "AND", Filters: parts}}
	}
	return out
}
