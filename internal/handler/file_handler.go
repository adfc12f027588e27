package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// FileRequest names a CSV file under the data directory. Empty uses the default.
type FileRequest struct {
	File string `json:"file"`
}

// FileHandler exposes CSV import and export.
type FileHandler struct {
	transfer *service.TransferService
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(transfer *service.TransferService) *FileHandler {
	return &FileHandler{transfer: transfer}
}

func bindFileRequest(c *gin.Context) (FileRequest, bool) {
	var req FileRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return req, false
	}
	return req, true
}

// ExportStudents godoc
// @Summary Export students to CSV
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body FileRequest false "Target file"
// @Success 200 {object} response.Envelope
// @Router /api/v1/files/students/export [post]
func (h *FileHandler) ExportStudents(c *gin.Context) {
	req, ok := bindFileRequest(c)
	if !ok {
		return
	}
	path, err := h.transfer.ExportStudents(c.Request.Context(), req.File)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"path": path})
}

// ImportStudents godoc
// @Summary Replace students from CSV
// @Description Invalid rows are skipped and listed in the response.
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body FileRequest false "Source file"
// @Success 200 {object} response.Envelope
// @Router /api/v1/files/students/import [post]
func (h *FileHandler) ImportStudents(c *gin.Context) {
	req, ok := bindFileRequest(c)
	if !ok {
		return
	}
	result, err := h.transfer.ImportStudents(c.Request.Context(), req.File)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ExportCourses godoc
// @Summary Export courses to CSV
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body FileRequest false "Target file"
// @Success 200 {object} response.Envelope
// @Router /api/v1/files/courses/export [post]
func (h *FileHandler) ExportCourses(c *gin.Context) {
	req, ok := bindFileRequest(c)
	if !ok {
		return
	}
	path, err := h.transfer.ExportCourses(c.Request.Context(), req.File)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"path": path})
}

// ImportCourses godoc
// @Summary Replace courses from CSV
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body FileRequest false "Source file"
// @Success 200 {object} response.Envelope
// @Router /api/v1/files/courses/import [post]
func (h *FileHandler) ImportCourses(c *gin.Context) {
	req, ok := bindFileRequest(c)
	if !ok {
		return
	}
	result, err := h.transfer.ImportCourses(c.Request.Context(), req.File)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
