package idcheck

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

var errNoImage = errors.New("no image provided")

// Handler 处理学生证检查
type Handler struct {
	verifier *Verifier
}

// NewHandler 创建证件检查处理器
func NewHandler(verifier *Verifier) *Handler {
	return &Handler{verifier: verifier}
}

// VerifyRequest 是JSON形式的请求体，Image 为 data URL 或纯 base64
type VerifyRequest struct {
	Image string `json:"image"`
}

// readImage 支持 multipart 的 photo 字段或 JSON 中的 base64 图片
func readImage(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("photo")
		if err != nil {
			return nil, errNoImage
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	var body VerifyRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Image == "" {
		return nil, errNoImage
	}
	data, err := base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(body.Image, ""))
	if err != nil {
		return nil, errNoImage
	}
	return data, nil
}

// VerifyID POST /verify-id
func (h *Handler) VerifyID(c *gin.Context) {
	image, err := readImage(c)
	if err != nil || len(image) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"verified": false, "message": "No image provided"})
		return
	}

	result, err := h.verifier.Verify(c.Request.Context(), image)
	if err != nil {
		slog.Error("证件识别失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"verified": false, "text": "", "message": "OCR failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}
