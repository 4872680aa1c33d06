package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tracklink-go-srv/internal/database"
	"tracklink-go-srv/internal/models"
	"tracklink-go-srv/internal/pipeline"
	"tracklink-go-srv/internal/provider"
	"tracklink-go-srv/internal/scheduler"
)

// Handler wires the pipeline and storage into the HTTP surface.
type Handler struct {
	pipe   *pipeline.Pipeline
	store  *database.Store
	sched  *scheduler.Scheduler
	logger *logrus.Logger
}

func NewHandler(pipe *pipeline.Pipeline, store *database.Store, sched *scheduler.Scheduler, logger *logrus.Logger) *Handler {
	return &Handler{pipe: pipe, store: store, sched: sched, logger: logger}
}

// lookupStatus maps adapter failures onto response codes. Disabled is a
// server-side configuration gap, not a client error.
func lookupStatus(err error) int {
	switch {
	case errors.Is(err, provider.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrUnknownProvider):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// LookupOne GET /api/lookup/:provider?isrc=USUM71703861
func (h *Handler) LookupOne(c *gin.Context) {
	prov, ok := models.ParseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}
	isrc := models.CanonicalISRC(c.Query("isrc"))
	if isrc == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isrc is required"})
		return
	}

	res, err := h.pipe.LookupOne(c.Request.Context(), prov, isrc)
	if err != nil {
		c.JSON(lookupStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// LookupAll GET /api/lookup?isrc=USUM71703861
func (h *Handler) LookupAll(c *gin.Context) {
	isrc := models.CanonicalISRC(c.Query("isrc"))
	if isrc == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isrc is required"})
		return
	}

	out, err := h.pipe.LookupAll(c.Request.Context(), isrc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

type registerTrackRequest struct {
	Title   string `json:"title" binding:"required"`
	Artist  string `json:"artist" binding:"required"`
	ISRC    string `json:"isrc"`
	Creator string `json:"creator"`
}

// RegisterTrack POST /api/tracks
func (h *Handler) RegisterTrack(c *gin.Context) {
	var req registerTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	track := models.Track{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Artist:    req.Artist,
		ISRC:      models.CanonicalISRC(req.ISRC),
		Creator:   req.Creator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.InsertTrack(c.Request.Context(), track); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, track)
}

// GetTrack GET /api/tracks/:id
func (h *Handler) GetTrack(c *gin.Context) {
	track, err := h.store.GetTrack(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, track)
}

// SetIDs PUT /api/tracks/:id/ids
//
// Manually pins platform ids on a track. Pinned ids take precedence over
// anything the scheduled passes resolve later.
func (h *Handler) SetIDs(c *gin.Context) {
	var ids models.PlatformIDs
	if err := c.ShouldBindJSON(&ids); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if ids.SpotifyID == "" && ids.AppleID == "" && ids.YouTubeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one platform id is required"})
		return
	}

	reg, err := h.pipe.SetIDs(c.Request.Context(), c.Param("id"), ids)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// RefreshByID POST /api/tracks/:id/refresh/:provider
func (h *Handler) RefreshByID(c *gin.Context) {
	prov, ok := models.ParseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	res, err := h.pipe.RefreshByID(c.Request.Context(), c.Param("id"), prov)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
			return
		}
		c.JSON(lookupStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRegistry GET /api/tracks/:id/registry
func (h *Handler) GetRegistry(c *gin.Context) {
	reg, err := h.store.GetRegistry(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reg)
}

// GetStats GET /api/tracks/:id/stats?days=30
func (h *Handler) GetStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	stats, err := h.store.DailyRange(c.Request.Context(), c.Param("id"), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"track_id": c.Param("id"), "stats": stats})
}

// RecentRuns GET /api/tracking/runs?limit=20
func (h *Handler) RecentRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.store.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// TriggerRun POST /api/tracking/run
func (h *Handler) TriggerRun(c *gin.Context) {
	runID, started := h.sched.TriggerRun()
	if !started {
		c.JSON(http.StatusConflict, gin.H{"error": "a tracking pass is already running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

// Healthz GET /healthz
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func storeStatus(err error) int {
	if errors.Is(err, database.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
