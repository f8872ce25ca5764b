package student

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler 提供学生档案的CRUD接口
type Handler struct {
	repo *Repository
}

// NewHandler 创建学生档案处理器
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Student not found"})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		slog.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": msg})
	}
}

// CreateStudent POST /students
func (h *Handler) CreateStudent(c *gin.Context) {
	var body Student
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid student data: " + err.Error()})
		return
	}
	if err := h.repo.Save(c.Request.Context(), body); err != nil {
		h.fail(c, err, "Server error saving student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListStudents GET /students
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Server error fetching students")
		return
	}
	c.JSON(http.StatusOK, students)
}

// GetStudent GET /students/:id
func (h *Handler) GetStudent(c *gin.Context) {
	s, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Server error fetching student")
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateStudent PUT /students/:id
func (h *Handler) UpdateStudent(c *gin.Context) {
	var body Student
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid student data: " + err.Error()})
		return
	}
	if err := h.repo.Update(c.Request.Context(), c.Param("id"), body); err != nil {
		h.fail(c, err, "Server error updating student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteStudent DELETE /students/:id
func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Server error deleting student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
