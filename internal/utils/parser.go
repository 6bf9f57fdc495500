package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// releaseDateLayouts 支持的上映日期格式，按顺序尝试
var releaseDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2006-01",
	"2006",
}

// ParseReleaseDate 解析上映日期
// 空串或无法解析时返回 nil，由调用方决定如何补齐
func ParseReleaseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// ParseOptionalFloat 解析可选数值，空串、NaN、Inf 均视为缺失
func ParseOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// CleanText 合并多余空白
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate 按字符截断，超出部分以省略号结尾
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}
