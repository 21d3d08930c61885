// Package handlers exposes the pipeline over HTTP.
package handlers

import "github.com/gin-gonic/gin"

// Routes groups the handlers mounted on the engine. Nil handlers are not mounted.
type Routes struct {
	Probes  *ProbeHandler
	Events  *EventHandler
	Process *ProcessHandler
}

// Register mounts the routes on r
func Register(r gin.IRouter, routes Routes) {
	if routes.Probes != nil {
		r.GET("/health", routes.Probes.Health)
		r.GET("/start", routes.Probes.Start)
		r.GET("/actuator/startup", routes.Probes.Startup)
	}

	if routes.Events != nil {
		r.POST("/", routes.Events.HandleCloudEvent)
		r.POST("/events/storage", routes.Events.HandleStorageEvent)
	}

	if routes.Process != nil {
		r.POST("/v1/process", routes.Process.HandleProcess)
		if routes.Process.status != nil {
			r.GET("/v1/runs/:id", routes.Process.HandleStatus)
		}
	}
}
