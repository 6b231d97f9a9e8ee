package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmaulana/school-notify-api/internal/models"
	"github.com/rmaulana/school-notify-api/internal/service"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
	"github.com/rmaulana/school-notify-api/pkg/response"
)

// StudentHandler exposes the student directory endpoints.
type StudentHandler struct {
	directory  *service.DirectoryService
	dashboards *service.DashboardService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(directory *service.DirectoryService, dashboards *service.DashboardService) *StudentHandler {
	return &StudentHandler{directory: directory, dashboards: dashboards}
}

// Register godoc
// @Summary Register parent and first student
// @Description Create a parent account together with its first student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.RegisterParentStudentRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/register [post]
func (h *StudentHandler) Register(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RegisterParentStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, err := h.directory.RegisterParentStudent(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context())
	response.Created(c, res)
}

// AddChild godoc
// @Summary Add a student to an existing parent
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.AddChildRequest true "Child payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) AddChild(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AddChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.directory.AddChild(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context())
	response.Created(c, student)
}

// List godoc
// @Summary List students grouped by grade
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.directory.ListByGrade(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Search godoc
// @Summary Search students
// @Tags Students
// @Produce json
// @Param q query string false "Term matched against student name, parent name and parent email"
// @Param grade query string false "Exact grade filter"
// @Success 200 {object} response.Envelope
// @Router /students/search [get]
func (h *StudentHandler) Search(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.StudentSearchFilter{
		Term:  strings.TrimSpace(c.Query("q")),
		Grade: c.Query("grade"),
	}
	students, err := h.directory.Search(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Export godoc
// @Summary Export the roster
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.directory.ExportRoster(c.Request.Context(), actor, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="roster.%s"`, ext))
	c.Data(http.StatusOK, contentType, data)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.directory.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Update a student's name and grade
// @Tags Students
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.directory.Update(c.Request.Context(), actor, id, req); err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context())
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a student and its notifications
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 204 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.directory.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context())
	response.NoContent(c)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer")
	}
	return id, nil
}
