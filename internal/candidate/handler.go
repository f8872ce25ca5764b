package candidate

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler 提供候选人列表接口
type Handler struct {
	repo *Repository
}

// NewHandler 创建候选人处理器
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// UpsertRequest 是 POST /candidates 的请求体。
// Index 指向已有候选人时替换，缺省或越界时追加。
type UpsertRequest struct {
	Index *int `json:"index"`
	Candidate
}

// ListCandidates GET /candidates
func (h *Handler) ListCandidates(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		slog.Error("读取候选人失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch candidates"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// SaveCandidate POST /candidates
func (h *Handler) SaveCandidate(c *gin.Context) {
	var body UpsertRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid candidate data: " + err.Error()})
		return
	}
	if err := h.repo.Upsert(c.Request.Context(), body.Index, body.Candidate); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteCandidate DELETE /candidates/:index
func (h *Handler) DeleteCandidate(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "index must be an integer"})
		return
	}
	if err := h.repo.Delete(c.Request.Context(), index); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrIndexOutOfRange):
		c.JSON(http.StatusNotFound, gin.H{"message": "Candidate not found"})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "Candidate list changed, please retry"})
	default:
		slog.Error("保存候选人失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save candidates"})
	}
}
