package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// MirrorHandler exposes the PostgreSQL roster mirror.
type MirrorHandler struct {
	mirror *service.MirrorService
}

// NewMirrorHandler constructs MirrorHandler.
func NewMirrorHandler(mirror *service.MirrorService) *MirrorHandler {
	return &MirrorHandler{mirror: mirror}
}

// Sync godoc
// @Summary Copy the current roster into PostgreSQL
// @Description With async=true the sync is queued and retried in the background.
// @Tags Mirror
// @Produce json
// @Param async query bool false "Queue instead of waiting"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /api/v1/mirror/sync [post]
func (h *MirrorHandler) Sync(c *gin.Context) {
	if c.Query("async") == "true" {
		id, err := h.mirror.Enqueue()
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, gin.H{"task_id": id})
		return
	}
	result, err := h.mirror.Sync(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// List godoc
// @Summary Read mirrored students
// @Tags Mirror
// @Produce json
// @Param department query string false "Department (case-insensitive)"
// @Param active query bool false "Filter by active state"
// @Success 200 {object} response.Envelope
// @Router /api/v1/mirror/students [get]
func (h *MirrorHandler) List(c *gin.Context) {
	filter := models.MirrorFilter{Department: c.Query("department")}
	if active := c.Query("active"); active == "true" || active == "false" {
		v := active == "true"
		filter.Active = &v
	}
	rows, err := h.mirror.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"total": len(rows)})
}

// Status godoc
// @Summary Background sync counters
// @Tags Mirror
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/mirror/status [get]
func (h *MirrorHandler) Status(c *gin.Context) {
	response.OK(c, h.mirror.QueueStats())
}
