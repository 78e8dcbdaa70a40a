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
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dinehub/notifier/model"
)

// ResolveBranches parses the configured branch allow-list. A nil result is
// the scan-all signal: the worker then uses the collection-group query shape
// across every tenant instead of targeted per-branch queries.
//
// A malformed list is a warning, never fatal; individual malformed entries
// are dropped.
func ResolveBranches(raw string) []model.Branch {
	trimmed := stripWrappingQuotes(strings.TrimSpace(raw))
	if trimmed == "" {
		return nil
	}

	var entries []model.Branch
	if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
		logrus.WithError(err).Warn("branch allow-list is not valid JSON, falling back to cross-tenant scan")
		return nil
	}

	valid := make([]model.Branch, 0, len(entries))
	for _, b := range entries {
		if err := b.Validate(); err != nil {
			logrus.WithError(err).Warnf("dropping malformed allow-list entry %+v", b)
			continue
		}
		valid = append(valid, b)
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}

// stripWrappingQuotes removes one layer of accidental quoting around the
// whole value, a common artifact of shell-escaped environment variables.
func stripWrappingQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
