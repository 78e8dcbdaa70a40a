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
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	notifier "github.com/dinehub/notifier"
	"github.com/dinehub/notifier/config"
	"github.com/dinehub/notifier/docstore"
	"github.com/dinehub/notifier/internal/notification"
	"github.com/dinehub/notifier/whatsapp"
)

// CLI represents the command-line application, encapsulating the root Cobra
// command.
type CLI struct {
	cmd *cobra.Command
}

// workerInstance holds the wired Notifier and its configuration, shared by
// all subcommands.
type workerInstance struct {
	notifier *notifier.Notifier
	cnf      *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and wires the Notifier before any command
// runs.
func preRun(app *workerInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		err := config.InitConfig(configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		worker, err := setupNotifier(cnf)
		if err != nil {
			notification.NotifyError(notification.Alert{Stage: "startup", Err: err})
			log.Fatal(err)
		}

		app.notifier = worker
		app.cnf = cnf

		return nil
	}
}

// setupNotifier wires the document-store client and the delivery client into
// a Notifier.
func setupNotifier(cnf *config.Configuration) (*notifier.Notifier, error) {
	store, err := docstore.NewClient(&cnf.Firestore)
	if err != nil {
		return nil, errors.Wrap(err, "error creating document store client")
	}

	sender := whatsapp.NewClient(&cnf.Twilio)

	worker, err := notifier.New(store, sender)
	if err != nil {
		return nil, errors.Wrap(err, "error creating notifier")
	}
	return worker, nil
}

// NewCLI creates the command-line interface for the notifier worker.
func NewCLI() *CLI {
	var configFile string
	w := &workerInstance{}

	var rootCmd = &cobra.Command{
		Use:   "notifier",
		Short: "Order notification worker",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./notifier.json", "Configuration file for the worker")

	rootCmd.PersistentPreRunE = preRun(w)

	rootCmd.AddCommand(workerCommands(w))
	rootCmd.AddCommand(serverCommands(w))

	return &CLI{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during
// execution.
func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
