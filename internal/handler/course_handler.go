package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// AssignInstructorRequest names the instructor for a course. Empty clears it.
type AssignInstructorRequest struct {
	InstructorID string `json:"instructor_id"`
}

// CourseHandler exposes catalog endpoints.
type CourseHandler struct {
	catalog *service.CatalogService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(catalog *service.CatalogService) *CourseHandler {
	return &CourseHandler{catalog: catalog}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param department query string false "Department (case-insensitive)"
// @Param instructor query string false "Instructor ID"
// @Param sort query string false "id, code, title, credits or enrollment"
// @Success 200 {object} response.Envelope
// @Router /api/v1/courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.catalog.ListCourses(c.Request.Context(), service.CourseFilter{
		Department:   c.Query("department"),
		InstructorID: c.Query("instructor"),
		Sort:         c.Query("sort"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"total": len(courses)})
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /api/v1/courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.catalog.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Create godoc
// @Summary Create course
// @Description max_enrollment 0 takes the configured default.
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /api/v1/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /api/v1/courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.catalog.UpdateCourse(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// AssignInstructor godoc
// @Summary Assign an instructor to a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body AssignInstructorRequest true "Instructor"
// @Success 200 {object} response.Envelope
// @Router /api/v1/courses/{id}/instructor [post]
func (h *CourseHandler) AssignInstructor(c *gin.Context) {
	var req AssignInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.catalog.AssignInstructor(c.Request.Context(), c.Param("id"), req.InstructorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}
