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
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/dinehub/notifier/config"
	"github.com/dinehub/notifier/internal/apierror"
	"github.com/dinehub/notifier/internal/request"
)

const (
	datastoreScope = "https://www.googleapis.com/auth/datastore"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionTTL is the lifetime claimed in the signed assertion.
	assertionTTL = time.Hour

	// refreshSkew forces a proactive refresh when the cached token has less
	// than this much validity remaining.
	refreshSkew = 5 * time.Minute

	maxExchangeRetries = 3
)

// Credentials is the parsed service-account identity used to talk to the
// document store.
type Credentials struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  *rsa.PrivateKey
	TokenURL    string
}

// NewCredentials parses the PEM private key out of the Firestore config.
func NewCredentials(cfg *config.FirestoreConfig) (*Credentials, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKey))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrAuth, "service account private key is not a valid PEM RSA key", err)
	}
	return &Credentials{
		ProjectID:   cfg.ProjectID,
		ClientEmail: cfg.ClientEmail,
		PrivateKey:  key,
		TokenURL:    cfg.TokenURL,
	}, nil
}

// TokenSource exchanges a signed service-account assertion for a bearer token
// and caches it until shortly before expiry. It is an explicit injected cache
// object rather than process-global state, so tests stay deterministic.
type TokenSource struct {
	creds *Credentials
	now   func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewTokenSource(creds *Credentials) *TokenSource {
	return &TokenSource{
		creds: creds,
		now:   time.Now,
	}
}

// Token returns the cached bearer token, refreshing it when less than
// refreshSkew validity remains. A failed exchange leaves the cache untouched
// and returns an AUTH_FAILED error that aborts the whole run.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Add(refreshSkew).Before(ts.expiry) {
		return ts.token, nil
	}

	assertion, err := ts.signAssertion()
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrAuth, "failed to sign token assertion", err)
	}

	token, expiresIn, err := ts.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	ts.token = token
	ts.expiry = ts.now().Add(time.Duration(expiresIn) * time.Second)
	logrus.WithField("expires_in", expiresIn).Debug("access token refreshed")
	return ts.token, nil
}

// signAssertion builds the RS256 JWT the identity provider expects:
// issuer = service-account email, audience = token endpoint, datastore scope,
// one hour expiry.
func (ts *TokenSource) signAssertion() (string, error) {
	now := ts.now()
	claims := jwt.MapClaims{
		"iss":   ts.creds.ClientEmail,
		"scope": datastoreScope,
		"aud":   ts.creds.TokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.creds.PrivateKey)
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// exchange posts the assertion to the token endpoint. Transient transport
// failures are retried with exponential backoff; a rejection by the endpoint
// is permanent.
func (ts *TokenSource) exchange(ctx context.Context, assertion string) (string, int64, error) {
	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	var out tokenResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", ts.creds.TokenURL, request.ToFormReq(form))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		out = tokenResponse{}
		resp, err := request.Call(req, &out)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("token endpoint returned %d: %s %s", resp.StatusCode, out.Error, out.ErrorDescription))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxExchangeRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", 0, apierror.NewAPIError(apierror.ErrAuth, "token exchange failed", err)
	}
	if out.AccessToken == "" {
		return "", 0, apierror.NewAPIError(apierror.ErrAuth, "token endpoint returned an empty access token", out)
	}
	return out.AccessToken, out.ExpiresIn, nil
}
