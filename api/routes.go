package api

import (
	"net/http"

	"github.com/SlpAus/campus-election-backend/internal/audit"
	"github.com/SlpAus/campus-election-backend/internal/ballot"
	"github.com/SlpAus/campus-election-backend/internal/candidate"
	"github.com/SlpAus/campus-election-backend/internal/idcheck"
	"github.com/SlpAus/campus-election-backend/internal/media"
	"github.com/SlpAus/campus-election-backend/internal/student"
	"github.com/SlpAus/campus-election-backend/internal/voter"
	"github.com/gin-gonic/gin"
)

// Handlers 汇集了所有需要注册的处理器
type Handlers struct {
	Ballot    *ballot.Handler
	Voter     *voter.Handler
	Student   *student.Handler
	Candidate *candidate.Handler
	Media     *media.Handler
	IDCheck   *idcheck.Handler
	Audit     *audit.Handler

	// Snapshot 返回SQLite中的计票快照，可以为nil
	Snapshot gin.HandlerFunc

	// RequireStore 包裹所有会写入投票状态的路由，可以为nil
	RequireStore gin.HandlerFunc
}

// LimitBody 限制请求体的最大字节数
func LimitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Voting Server is LIVE")
	})

	// 投票相关的路由
	voting := router.Group("")
	if h.RequireStore != nil {
		voting.Use(h.RequireStore)
	}
	{
		voting.POST("/check-code", h.Ballot.CheckCode)
		voting.POST("/mark-code-used", h.Voter.MarkCodeUsed)
		voting.POST("/vote", h.Ballot.SubmitVote)
		voting.DELETE("/vote-record/:studentID", h.Ballot.DeleteVoteRecord)
		voting.POST("/reset-votes", h.Ballot.ResetVotes)
	}
	router.POST("/auth/login", h.Voter.Login)
	router.GET("/results", h.Ballot.GetResults)
	if h.Snapshot != nil {
		router.GET("/results/snapshot", h.Snapshot)
	}

	// 学生档案
	students := router.Group("/students")
	{
		students.POST("", h.Student.CreateStudent)
		students.GET("", h.Student.ListStudents)
		students.GET("/:id", h.Student.GetStudent)
		students.PUT("/:id", h.Student.UpdateStudent)
		students.DELETE("/:id", h.Student.DeleteStudent)
	}

	// 候选人
	candidates := router.Group("/candidates")
	{
		candidates.GET("", h.Candidate.ListCandidates)
		candidates.POST("", h.Candidate.SaveCandidate)
		candidates.DELETE("/:index", h.Candidate.DeleteCandidate)
	}

	router.POST("/upload-photo", h.Media.UploadPhoto)
	router.POST("/verify-id", h.IDCheck.VerifyID)
	router.GET("/audit", h.Audit.ListEvents)
}
