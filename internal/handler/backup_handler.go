package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// BackupHandler exposes backup snapshots of the data directory.
type BackupHandler struct {
	files *service.FileService
}

// NewBackupHandler constructs BackupHandler.
func NewBackupHandler(files *service.FileService) *BackupHandler {
	return &BackupHandler{files: files}
}

// Create godoc
// @Summary Snapshot the data directory
// @Tags Backups
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /api/v1/backups [post]
func (h *BackupHandler) Create(c *gin.Context) {
	info, err := h.files.CreateBackup(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, info)
}

// List godoc
// @Summary List backups, newest first
// @Tags Backups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	names, err := h.files.ListBackups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, names)
}

// Get godoc
// @Summary Describe a backup
// @Tags Backups
// @Produce json
// @Param name path string true "Backup name"
// @Success 200 {object} response.Envelope
// @Router /api/v1/backups/{name} [get]
func (h *BackupHandler) Get(c *gin.Context) {
	info, err := h.files.DescribeBackup(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, info)
}

// Restore godoc
// @Summary Replace the data directory with a backup
// @Description In-memory collections are not reloaded; import afterwards.
// @Tags Backups
// @Param name path string true "Backup name"
// @Success 204
// @Router /api/v1/backups/{name}/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	if err := h.files.RestoreFromBackup(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
