package idcheck

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/SlpAus/campus-election-backend/internal/platform/config"
)

// charWhitelist 限制识别结果只包含证件上会出现的字符
const charWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789:-."

// TextExtractor 从图片中提取文字。没有结构化约定：图片进，纯文本出。
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// TesseractCLI 通过调用 tesseract 命令行程序识别文字
type TesseractCLI struct {
	binary   string
	language string
}

// NewTesseractCLI 根据配置创建识别器
func NewTesseractCLI(cfg config.OCRConfig) *TesseractCLI {
	return &TesseractCLI{binary: cfg.Binary, language: cfg.Language}
}

// ExtractText 把图片从标准输入交给 tesseract，并读取标准输出中的文字
func (t *TesseractCLI) ExtractText(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout",
		"-l", t.language,
		"--psm", "6",
		"-c", "tessedit_char_whitelist="+charWhitelist,
	)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract执行失败: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Probe 确认 tesseract 程序可用
func (t *TesseractCLI) Probe(ctx context.Context) error {
	if err := exec.CommandContext(ctx, t.binary, "--version").Run(); err != nil {
		return fmt.Errorf("无法运行 %s: %w", t.binary, err)
	}
	return nil
}
