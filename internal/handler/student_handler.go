package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	records *service.RecordsService
	reports *service.ReportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(records *service.RecordsService, reports *service.ReportService) *StudentHandler {
	return &StudentHandler{records: records, reports: reports}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param department query string false "Department (case-insensitive)"
// @Param year query int false "Study year"
// @Param min_gpa query number false "Minimum GPA"
// @Param active query bool false "Filter by active state"
// @Param q query string false "Name contains"
// @Param sort query string false "id, name, year, department, registration or gpa"
// @Success 200 {object} response.Envelope
// @Router /api/v1/students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := service.StudentFilter{
		Department: strings.TrimSpace(c.Query("department")),
		Name:       c.Query("q"),
		Sort:       c.Query("sort"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be an integer"))
			return
		}
		filter.Year = year
	}
	if raw := c.Query("min_gpa"); raw != "" {
		gpa, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "min_gpa must be a number"))
			return
		}
		filter.MinGPA = &gpa
	}
	if active := c.Query("active"); active != "" {
		if active == "true" {
			v := true
			filter.Active = &v
		} else if active == "false" {
			v := false
			filter.Active = &v
		}
	}

	students, err := h.records.ListStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"total": len(students)})
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /api/v1/students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.records.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /api/v1/students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.records.CreateStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Description Applies the valid subset of the supplied fields.
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /api/v1/students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.records.UpdateStudent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Deactivate godoc
// @Summary Deactivate student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /api/v1/students/{id}/deactivate [post]
func (h *StudentHandler) Deactivate(c *gin.Context) {
	if err := h.records.DeactivateStudent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activate godoc
// @Summary Activate student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /api/v1/students/{id}/activate [post]
func (h *StudentHandler) Activate(c *gin.Context) {
	if err := h.records.ActivateStudent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Remove student
// @Description Only students without enrollments can be removed.
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /api/v1/students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.records.RemoveStudent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transcript godoc
// @Summary Student transcript
// @Tags Students
// @Produce plain
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "text (default) or pdf"
// @Success 200 {string} string
// @Router /api/v1/students/{id}/transcript [get]
func (h *StudentHandler) Transcript(c *gin.Context) {
	id := c.Param("id")
	if c.Query("format") == "pdf" {
		body, err := h.reports.TranscriptPDF(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, "transcript_"+id+".pdf", "application/pdf", body)
		return
	}
	text, err := h.reports.Transcript(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.String(http.StatusOK, text)
}
