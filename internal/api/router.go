// Package api wires the HTTP handlers onto the router.
package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-box-pipeline/docs"
	"go-box-pipeline/internal/api/handler"
	"go-box-pipeline/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.GET("/", h.Index)
	r.POST("/process", h.ProcessBox)
	r.GET("/batch", h.Batch)
	r.POST("/batch/upload", h.BatchUpload)

	r.GET("/api/v1/jobs", h.ListJobs)
	// More specific routes first
	r.GET("/api/v1/jobs/*/errors", h.GetJobErrors)
	r.GET("/api/v1/jobs/*", h.GetJob)
	r.GET("/api/v1/download/*/*", h.DownloadFile)

	r.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
