package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

var rosterContentTypes = map[string]string{
	service.RosterCSV:  "text/csv",
	service.RosterXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	service.RosterPDF:  "application/pdf",
}

// ReportHandler serves aggregate reports.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Statistics godoc
// @Summary Enrollment statistics
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/reports/statistics [get]
func (h *ReportHandler) Statistics(c *gin.Context) {
	stats, err := h.reports.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Departments godoc
// @Summary Active students and average GPA per department
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/reports/departments [get]
func (h *ReportHandler) Departments(c *gin.Context) {
	summaries, err := h.reports.DepartmentSummaries(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summaries)
}

// Roster godoc
// @Summary Download the student roster
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param course query string false "Restrict to a course's enrolled students"
// @Param sort query string false "Sort key"
// @Param format query string false "xlsx (default), csv or pdf"
// @Success 200 {file} file
// @Router /api/v1/reports/roster [get]
func (h *ReportHandler) Roster(c *gin.Context) {
	format := c.DefaultQuery("format", service.RosterXLSX)
	body, err := h.reports.Roster(c.Request.Context(), c.Query("course"), c.Query("sort"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "roster."+format, rosterContentTypes[format], body)
}
