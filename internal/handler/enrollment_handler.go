package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// EnrollRequest names the course to join.
type EnrollRequest struct {
	CourseID string `json:"course_id" binding:"required"`
}

// GradeRequest carries a grade letter.
type GradeRequest struct {
	Grade models.Grade `json:"grade" binding:"required"`
}

// EnrollmentHandler links students to courses.
type EnrollmentHandler struct {
	records *service.RecordsService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(records *service.RecordsService) *EnrollmentHandler {
	return &EnrollmentHandler{records: records}
}

// List godoc
// @Summary List a student's enrollment records
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /api/v1/students/{id}/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	enrollments, err := h.records.Enrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollments)
}

// Enroll godoc
// @Summary Enroll a student in a course
// @Description Fails with 409 when already enrolled or the course is full, 422 when the credit limit would be exceeded.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body EnrollRequest true "Course"
// @Success 201 {object} response.Envelope
// @Router /api/v1/students/{id}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.records.EnrollStudentInCourse(c.Request.Context(), c.Param("id"), req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Unenroll godoc
// @Summary Remove a student from a course
// @Tags Enrollments
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 204
// @Router /api/v1/students/{id}/enrollments/{courseId} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.records.UnenrollStudentFromCourse(c.Request.Context(), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignGrade godoc
// @Summary Record a grade for an enrolled course
// @Tags Enrollments
// @Accept json
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param payload body GradeRequest true "Grade letter (S, A-F)"
// @Success 204
// @Router /api/v1/students/{id}/grades/{courseId} [put]
func (h *EnrollmentHandler) AssignGrade(c *gin.Context) {
	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.records.AssignGrade(c.Request.Context(), c.Param("id"), c.Param("courseId"), req.Grade); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
