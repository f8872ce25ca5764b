package idcheck

import (
	"context"
	"regexp"
	"strings"
)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = strings.NewReplacer(".", "", ",", "")
)

// Result 是一次证件检查的结果。Text 是未经规整的大写识别文本。
type Result struct {
	Verified bool   `json:"verified"`
	Text     string `json:"text"`
}

// Verifier 检查识别文本中是否包含全部关键词。
// 这是一个很弱的检查，只能过滤掉明显不是本校证件的图片。
type Verifier struct {
	extractor TextExtractor
	keywords  []string
}

// NewVerifier 创建证件检查器
func NewVerifier(extractor TextExtractor, keywords []string) *Verifier {
	upper := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			upper = append(upper, k)
		}
	}
	return &Verifier{extractor: extractor, keywords: upper}
}

// normalize 转为大写、合并空白并去掉句点和逗号
func normalize(text string) string {
	text = strings.ToUpper(text)
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(punctuation.Replace(text))
}

// Verify 识别图片并做关键词匹配
func (v *Verifier) Verify(ctx context.Context, image []byte) (*Result, error) {
	raw, err := v.extractor.ExtractText(ctx, image)
	if err != nil {
		return nil, err
	}

	text := normalize(raw)
	verified := len(v.keywords) > 0
	for _, k := range v.keywords {
		if !strings.Contains(text, k) {
			verified = false
			break
		}
	}
	return &Result{Verified: verified, Text: strings.ToUpper(raw)}, nil
}
