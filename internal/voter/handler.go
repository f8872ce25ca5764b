package voter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SlpAus/campus-election-backend/internal/audit"
	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/gin-gonic/gin"
)

// EventRecorder 接收审计事件
type EventRecorder interface {
	Note(ctx context.Context, kind audit.Kind, studentID, code, detail string)
}

// Handler 提供投票人认证相关的HTTP接口
type Handler struct {
	svc    *Service
	events EventRecorder
}

// NewHandler 创建投票人处理器。events 可以为nil。
func NewHandler(svc *Service, events EventRecorder) *Handler {
	return &Handler{svc: svc, events: events}
}

// MarkCodeUsedRequest 是 /mark-code-used 的请求体
type MarkCodeUsedRequest struct {
	Code      string `json:"code" binding:"required"`
	StudentID string `json:"studentID" binding:"required"`
	Name      string `json:"name" binding:"required"`
}

// MarkCodeUsed 标记投票码已使用并保存认证记录
func (h *Handler) MarkCodeUsed(c *gin.Context) {
	var body MarkCodeUsedRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "code, studentID and name are required"})
		return
	}

	err := h.svc.MarkCodeUsed(c.Request.Context(), body.Code, body.StudentID, body.Name)
	switch {
	case err == nil:
		if h.events != nil {
			h.events.Note(c.Request.Context(), audit.KindCodeMarked, body.StudentID, body.Code, "")
		}
		c.JSON(http.StatusOK, gin.H{"message": "Code marked as used"})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": "code, studentID and name are required"})
	case errors.Is(err, code.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Code does not exist"})
	default:
		slog.Error("标记投票码失败", "studentID", body.StudentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to mark code"})
	}
}

// LoginRequest 是 /auth/login 的请求体
type LoginRequest struct {
	StudentID string `json:"studentID"`
}

// Login 查询学生的认证记录与投票状态
func (h *Handler) Login(c *gin.Context) {
	var body LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	session, err := h.svc.Login(c.Request.Context(), body.StudentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, session)
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Voter not found"})
	default:
		slog.Error("登录查询失败", "studentID", body.StudentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Login failed"})
	}
}
