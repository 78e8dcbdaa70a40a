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
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dinehub/notifier/internal/apierror"
)

// newStubRouter builds the compatibility HTTP surface. The worker itself has
// no functional HTTP API; this stub only answers browser preflights and
// reports the legacy email-style actions as permanently deprecated.
func newStubRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.OPTIONS("/*any", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Cron-only worker")
	})

	legacy := func(c *gin.Context) {
		err := apierror.NewAPIError(apierror.ErrDeprecated,
			"the email notification channel has been removed; notifications are delivered by the scheduled worker", nil)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err})
	}
	r.POST("/", legacy)
	r.POST("/email", legacy)

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusOK, "Cron-only worker")
	})

	return r
}

// serverCommands defines the "server" command that serves the compatibility
// stub.
func serverCommands(w *workerInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start the compatibility HTTP stub",
		Run: func(cmd *cobra.Command, args []string) {
			router := newStubRouter()
			addr := ":" + w.cnf.Server.Port
			log.Printf("stub server listening on %s", addr)
			if err := router.Run(addr); err != nil {
				log.Fatalf("could not start stub server: %v", err)
			}
		},
	}
}
