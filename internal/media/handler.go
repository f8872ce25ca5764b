package media

import (
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler 处理候选人照片上传
type Handler struct {
	store BlobStore
}

// NewHandler 创建上传处理器
func NewHandler(store BlobStore) *Handler {
	return &Handler{store: store}
}

// objectName 生成 candidate-<uuid><ext> 形式的对象名
func objectName(original string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(original))
	return "candidate-" + id.String() + ext, nil
}

// UploadPhoto POST /upload-photo，multipart 字段名为 photo
func (h *Handler) UploadPhoto(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		slog.Error("无法打开上传文件", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("无法读取上传文件", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	name, err := objectName(fh.Filename)
	if err != nil {
		slog.Error("无法生成对象名", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
		return
	}

	if err := h.store.Upload(c.Request.Context(), name, contentType, data); err != nil {
		slog.Error("照片上传失败", "name", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.store.PublicURL(name)})
}
