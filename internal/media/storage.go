package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/SlpAus/campus-election-backend/internal/platform/config"
	storage "github.com/supabase-community/storage-go"
)

// BlobStore 是候选人照片所用的对象存储
type BlobStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) error
	PublicURL(name string) string
	Probe(ctx context.Context) error
}

// SupabaseStore 通过 Supabase Storage 上传文件
type SupabaseStore struct {
	client *storage.Client
	bucket string
}

// NewSupabaseStore 根据配置创建存储客户端。cfg.URL 是项目地址，不含 /storage/v1。
func NewSupabaseStore(cfg config.StorageConfig) *SupabaseStore {
	endpoint := strings.TrimRight(cfg.URL, "/") + "/storage/v1"
	return &SupabaseStore{
		client: storage.NewClient(endpoint, cfg.Key, map[string]string{"apikey": cfg.Key}),
		bucket: cfg.Bucket,
	}
}

// Upload 以给定名称上传文件，不覆盖同名对象
func (s *SupabaseStore) Upload(ctx context.Context, name, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upsert := false
	_, err := s.client.UploadFile(s.bucket, name, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("上传 %s 失败: %w", name, err)
	}
	return nil
}

// PublicURL 返回公开bucket中对象的访问地址
func (s *SupabaseStore) PublicURL(name string) string {
	return s.client.GetPublicUrl(s.bucket, name).SignedURL
}

// Probe 列出bucket中的一个对象，用于启动检查
func (s *SupabaseStore) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.ListFiles(s.bucket, "", storage.FileSearchOptions{Limit: 1}); err != nil {
		return fmt.Errorf("无法访问bucket %s: %w", s.bucket, err)
	}
	return nil
}
