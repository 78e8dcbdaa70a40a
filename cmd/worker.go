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
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// workerCommands defines the "run" command. Without flags it behaves like the
// scheduled trigger: one invocation per interval until interrupted. With
// --once it performs a single invocation and exits, which is the shape a
// cron-style external scheduler invokes.
func workerCommands(w *workerInstance) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the notification worker",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if once {
				if err := w.notifier.Run(ctx); err != nil {
					logrus.WithError(err).Error("run aborted")
					os.Exit(1)
				}
				return
			}

			interval := time.Duration(w.cnf.Worker.IntervalSec) * time.Second
			logrus.Infof("worker started with interval: %v", interval)

			runOnce(ctx, w)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					runOnce(ctx, w)
				case <-ctx.Done():
					logrus.Info("worker stopping...")
					return
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "perform a single invocation and exit")
	return cmd
}

// runOnce performs one invocation. A failed run is logged and the next tick
// tries again; overlapping or repeated runs are safe because the flag commit
// is guarded by the document version precondition.
func runOnce(ctx context.Context, w *workerInstance) {
	if err := w.notifier.Run(ctx); err != nil {
		logrus.WithError(err).Error("scheduled run aborted")
	}
}
