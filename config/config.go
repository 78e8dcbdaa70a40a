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

package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "8080"

	DEFAULT_TOKEN_URL     = "https://oauth2.googleapis.com/token"
	DEFAULT_FIRESTORE_URL = "https://firestore.googleapis.com/v1"
	DEFAULT_TWILIO_URL    = "https://api.twilio.com"
	DEFAULT_PAGE_SIZE     = 10
	DEFAULT_PACING_MS     = 1100
	DEFAULT_INTERVAL_SEC  = 60
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Port string `json:"port" envconfig:"NOTIFIER_SERVER_PORT"`
}

// FirestoreConfig carries the service-account identity for the document store.
// Either the raw fields (client_email + private_key) or a base64-encoded JSON
// bundle (credentials_b64) must be supplied; an explicitly configured project
// id always wins over the one embedded in the bundle.
type FirestoreConfig struct {
	ProjectID      string `json:"project_id" envconfig:"NOTIFIER_FIRESTORE_PROJECT_ID"`
	ClientEmail    string `json:"client_email" envconfig:"NOTIFIER_FIRESTORE_CLIENT_EMAIL"`
	PrivateKey     string `json:"private_key" envconfig:"NOTIFIER_FIRESTORE_PRIVATE_KEY"`
	CredentialsB64 string `json:"credentials_b64" envconfig:"NOTIFIER_FIRESTORE_CREDENTIALS_B64"`
	TokenURL       string `json:"token_url" envconfig:"NOTIFIER_FIRESTORE_TOKEN_URL"`
	BaseURL        string `json:"base_url" envconfig:"NOTIFIER_FIRESTORE_BASE_URL"`
}

type TwilioConfig struct {
	AccountSID string `json:"account_sid" envconfig:"NOTIFIER_TWILIO_ACCOUNT_SID"`
	AuthToken  string `json:"auth_token" envconfig:"NOTIFIER_TWILIO_AUTH_TOKEN"`
	FromNumber string `json:"from_number" envconfig:"NOTIFIER_TWILIO_FROM_NUMBER"`
	BaseURL    string `json:"base_url" envconfig:"NOTIFIER_TWILIO_BASE_URL"`
}

type WorkerConfig struct {
	// BranchesJSON is an optional JSON array of {tenantId, branchId} pairs.
	// When empty or malformed the worker falls back to a collection-group
	// scan across all tenants.
	BranchesJSON  string `json:"branches" envconfig:"NOTIFIER_WORKER_BRANCHES"`
	PageSize      int    `json:"page_size" envconfig:"NOTIFIER_WORKER_PAGE_SIZE"`
	PacingDelayMS int    `json:"pacing_delay_ms" envconfig:"NOTIFIER_WORKER_PACING_DELAY_MS"`
	IntervalSec   int    `json:"interval_sec" envconfig:"NOTIFIER_WORKER_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string          `json:"project_name" envconfig:"NOTIFIER_PROJECT_NAME"`
	Server       ServerConfig    `json:"server"`
	Firestore    FirestoreConfig `json:"firestore"`
	Twilio       TwilioConfig    `json:"twilio"`
	Worker       WorkerConfig    `json:"worker"`
	Notification Notification    `json:"notification"`
}

// serviceAccountBundle mirrors the JSON key file issued for a service account.
type serviceAccountBundle struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("notifier", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called notifier.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Notifier Worker"
	}

	if err := cnf.decodeCredentialBundle(); err != nil {
		return err
	}

	if cnf.Firestore.ProjectID == "" {
		log.Println("Error: Firestore project id is empty. It's a required field.")
		return errors.New("firestore project id is required")
	}

	if cnf.Firestore.ClientEmail == "" || cnf.Firestore.PrivateKey == "" {
		log.Println("Error: service account credentials are missing. They are required fields.")
		return errors.New("service account credentials are required")
	}

	if cnf.Twilio.AccountSID == "" || cnf.Twilio.AuthToken == "" || cnf.Twilio.FromNumber == "" {
		log.Println("Error: Twilio credentials are incomplete. They are required fields.")
		return errors.New("twilio credentials are required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Firestore.ProjectID = strings.TrimSpace(cnf.Firestore.ProjectID)
	cnf.Firestore.ClientEmail = strings.TrimSpace(cnf.Firestore.ClientEmail)
	cnf.Twilio.FromNumber = strings.TrimSpace(cnf.Twilio.FromNumber)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Firestore.TokenURL == "" {
		cnf.Firestore.TokenURL = DEFAULT_TOKEN_URL
	}
	if cnf.Firestore.BaseURL == "" {
		cnf.Firestore.BaseURL = DEFAULT_FIRESTORE_URL
	}
	if cnf.Twilio.BaseURL == "" {
		cnf.Twilio.BaseURL = DEFAULT_TWILIO_URL
	}

	if cnf.Worker.PageSize <= 0 {
		cnf.Worker.PageSize = DEFAULT_PAGE_SIZE
	}
	if cnf.Worker.PacingDelayMS <= 0 {
		cnf.Worker.PacingDelayMS = DEFAULT_PACING_MS
	}
	if cnf.Worker.IntervalSec <= 0 {
		cnf.Worker.IntervalSec = DEFAULT_INTERVAL_SEC
	}

	return nil
}

// decodeCredentialBundle fills the raw service-account fields from the base64
// bundle when they were not set directly.
func (cnf *Configuration) decodeCredentialBundle() error {
	if cnf.Firestore.CredentialsB64 == "" {
		return nil
	}
	if cnf.Firestore.ClientEmail != "" && cnf.Firestore.PrivateKey != "" && cnf.Firestore.ProjectID != "" {
		return nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cnf.Firestore.CredentialsB64))
	if err != nil {
		log.Println("Error: credentials bundle is not valid base64.")
		return errors.New("credentials bundle is not valid base64")
	}

	var bundle serviceAccountBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		log.Println("Error: credentials bundle is not valid JSON.")
		return errors.New("credentials bundle is not valid JSON")
	}

	if cnf.Firestore.ClientEmail == "" {
		cnf.Firestore.ClientEmail = bundle.ClientEmail
	}
	if cnf.Firestore.PrivateKey == "" {
		cnf.Firestore.PrivateKey = bundle.PrivateKey
	}
	if cnf.Firestore.ProjectID == "" {
		cnf.Firestore.ProjectID = bundle.ProjectID
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
