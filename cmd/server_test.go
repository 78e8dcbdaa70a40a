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

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubRouter_Health(t *testing.T) {
	router := newStubRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cron-only worker", w.Body.String())
}

func TestStubRouter_Preflight(t *testing.T) {
	router := newStubRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/email", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStubRouter_LegacyActionsGone(t *testing.T) {
	router := newStubRouter()

	for _, target := range []string{"/", "/email"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, target, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusGone, w.Code, target)

		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "DEPRECATED", body.Error.Code)
		assert.Contains(t, body.Error.Message, "scheduled worker")
	}
}

func TestStubRouter_UnknownPath(t *testing.T) {
	router := newStubRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/anything/else", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cron-only worker", w.Body.String())
}
