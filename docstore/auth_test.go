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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinehub/notifier/config"
	"github.com/dinehub/notifier/internal/apierror"
)

const testTokenURL = "https://oauth2.example.com/token"

func testFirestoreConfig(t *testing.T) *config.FirestoreConfig {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	return &config.FirestoreConfig{
		ProjectID:   "demo-project",
		ClientEmail: "worker@demo-project.iam.gserviceaccount.com",
		PrivateKey:  string(pemBytes),
		TokenURL:    testTokenURL,
		BaseURL:     "https://firestore.example.com/v1",
	}
}

func registerTokenResponder(t *testing.T, expiresIn int64) {
	t.Helper()
	httpmock.RegisterResponder("POST", testTokenURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			assert.Equal(t, jwtBearerGrant, req.PostForm.Get("grant_type"))
			assert.NotEmpty(t, req.PostForm.Get("assertion"))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"access_token": "test-bearer-token",
				"expires_in":   expiresIn,
				"token_type":   "Bearer",
			})
		})
}

func TestNewCredentials_BadKey(t *testing.T) {
	cfg := testFirestoreConfig(t)
	cfg.PrivateKey = "not a pem key"

	_, err := NewCredentials(cfg)
	assert.True(t, apierror.HasCode(err, apierror.ErrAuth))
}

func TestTokenSource_CachesToken(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTokenResponder(t, 3600)

	creds, err := NewCredentials(testFirestoreConfig(t))
	require.NoError(t, err)
	ts := NewTokenSource(creds)

	token, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-bearer-token", token)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	// Second call is served from the cache
	token, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-bearer-token", token)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestTokenSource_RefreshesBeforeExpiry(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	registerTokenResponder(t, 3600)

	creds, err := NewCredentials(testFirestoreConfig(t))
	require.NoError(t, err)
	ts := NewTokenSource(creds)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }

	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	// 30 minutes in: more than 5 minutes of validity remain, cache holds
	now = now.Add(30 * time.Minute)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	// 56 minutes in: less than the refresh skew remains, token is refreshed
	now = now.Add(26 * time.Minute)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestTokenSource_ExchangeRejected(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", testTokenURL,
		httpmock.NewJsonResponderOrPanic(http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid JWT Signature.",
		}))

	creds, err := NewCredentials(testFirestoreConfig(t))
	require.NoError(t, err)
	ts := NewTokenSource(creds)

	_, err = ts.Token(context.Background())
	assert.True(t, apierror.HasCode(err, apierror.ErrAuth))

	// No partial credential is cached after a failed exchange
	assert.Empty(t, ts.token)
}
