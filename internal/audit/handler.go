package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler 提供审计日志的只读API
type Handler struct {
	log *Log
}

// NewHandler 创建审计日志处理器
func NewHandler(log *Log) *Handler {
	return &Handler{log: log}
}

// ListEvents 返回最近的审计事件
// GET /audit?limit=50&studentID=S1
func (h *Handler) ListEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	events, err := h.log.Recent(c.Request.Context(), limit, c.Query("studentID"))
	if err != nil {
		slog.Error("查询审计事件失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch audit events"})
		return
	}
	c.JSON(http.StatusOK, events)
}
