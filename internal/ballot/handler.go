package ballot

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SlpAus/campus-election-backend/internal/audit"
	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/gin-gonic/gin"
)

// EventRecorder 接收投票相关的审计事件
type EventRecorder interface {
	Note(ctx context.Context, kind audit.Kind, studentID, code, detail string)
}

// Handler 把投票服务暴露为HTTP接口
type Handler struct {
	svc    *Service
	codes  *code.Registry
	events EventRecorder
}

// NewHandler 创建投票处理器。events 可以为nil。
func NewHandler(svc *Service, codes *code.Registry, events EventRecorder) *Handler {
	return &Handler{svc: svc, codes: codes, events: events}
}

func (h *Handler) note(c *gin.Context, kind audit.Kind, studentID, voteCode string, detail interface{}) {
	if h.events == nil {
		return
	}
	var text string
	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			text = string(b)
		}
	}
	h.events.Note(c.Request.Context(), kind, studentID, voteCode, text)
}

// CheckCodeRequest 是 /check-code 的请求体
type CheckCodeRequest struct {
	Code string `json:"code"`
}

// CheckCode 检查一个投票码是否可用
func (h *Handler) CheckCode(c *gin.Context) {
	var body CheckCodeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	status, err := h.codes.Check(c.Request.Context(), body.Code)
	if err != nil {
		slog.Error("检查投票码失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check code"})
		return
	}

	switch status {
	case code.StatusNotFound:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Code does not exist"})
	case code.StatusAlreadyUsed:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Code already used"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Code is valid"})
	}
}

// VoteRequest 是 /vote 的请求体。
// Votes 的值可以为 null，此时按 NoSelection 计票。
type VoteRequest struct {
	StudentID string             `json:"studentID"`
	Votes     map[string]*string `json:"votes"`
	Name      string             `json:"name"`
	Code      string             `json:"code"`
}

func (r VoteRequest) normalizedVotes() map[string]string {
	if r.Votes == nil {
		return nil
	}
	out := make(map[string]string, len(r.Votes))
	for position, candidate := range r.Votes {
		if candidate == nil {
			out[position] = ""
		} else {
			out[position] = *candidate
		}
	}
	return out
}

// SubmitVote 处理一张选票
func (h *Handler) SubmitVote(c *gin.Context) {
	var body VoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid vote data"})
		return
	}

	votes := body.normalizedVotes()
	err := h.svc.RecordBallot(c.Request.Context(), body.StudentID, votes, body.Name, body.Code)
	switch {
	case err == nil:
		h.note(c, audit.KindBallotRecorded, body.StudentID, body.Code, votes)
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid vote data"})
	case errors.Is(err, ErrCodeNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Code does not exist"})
	case errors.Is(err, ErrCodeAlreadyUsed):
		c.JSON(http.StatusForbidden, gin.H{"message": "Code already used"})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "Vote conflicted with another request, please retry"})
	default:
		slog.Error("投票失败", "studentID", body.StudentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Voting failed"})
	}
}

// DeleteVoteRecord 撤销某个学生的选票
func (h *Handler) DeleteVoteRecord(c *gin.Context) {
	studentID := c.Param("studentID")

	removed, err := h.svc.RemoveBallot(c.Request.Context(), studentID)
	switch {
	case err == nil:
		h.note(c, audit.KindBallotRemoved, studentID, removed.Code, removed.Votes)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Voter and votes deleted successfully!"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Voter record not found"})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Vote records changed concurrently, please retry"})
	default:
		slog.Error("撤销选票失败", "studentID", studentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete voter"})
	}
}

// ResetVotes 清空所有投票数据并恢复全部投票码
func (h *Handler) ResetVotes(c *gin.Context) {
	if err := h.svc.ResetAll(c.Request.Context()); err != nil {
		slog.Error("重置投票失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to reset votes and codes"})
		return
	}
	h.note(c, audit.KindVotesReset, "", "", nil)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All votes and codes reset successfully!"})
}

// ResultsResponse 是 /results 的响应体
type ResultsResponse struct {
	VotesCount  map[string]int `json:"votesCount"`
	VoteRecords []Ballot       `json:"voteRecords"`
}

// GetResults 返回计票结果和全部选票
func (h *Handler) GetResults(c *gin.Context) {
	results, err := h.svc.ComputeResults(c.Request.Context())
	if err != nil {
		slog.Error("获取结果失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch results"})
		return
	}
	c.JSON(http.StatusOK, ResultsResponse{
		VotesCount:  results.Flatten(),
		VoteRecords: results.Ballots,
	})
}
