package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with all routes attached.
func NewRouter(h *Handler, mode string) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/lookup", h.LookupAll)
		apiGroup.GET("/lookup/:provider", h.LookupOne)

		apiGroup.POST("/tracks", h.RegisterTrack)
		apiGroup.GET("/tracks/:id", h.GetTrack)
		apiGroup.PUT("/tracks/:id/ids", h.SetIDs)
		apiGroup.POST("/tracks/:id/refresh/:provider", h.RefreshByID)
		apiGroup.GET("/tracks/:id/registry", h.GetRegistry)
		apiGroup.GET("/tracks/:id/stats", h.GetStats)

		apiGroup.GET("/tracking/runs", h.RecentRuns)
		apiGroup.POST("/tracking/run", h.TriggerRun)
	}

	return r
}
