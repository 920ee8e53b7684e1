package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// 尺寸标记：数字 + 英寸符号
	dimensionRe = regexp.MustCompile(`^(\d+(?:\.\d+)?|\.\d+)\s*(?:"|”|″|“|'')$`)
	// 标签中的尺寸：数字后可跟英寸符号或 in/inch
	labelSizeRe = regexp.MustCompile(`^(?:ø|Ø|dia\.?|diameter)?\s*(\d+(?:\.\d+)?)\s*(?:"|”|″|''|in|inch|inches)?$`)
	currencyRe  = regexp.MustCompile(`[$€£¥฿]|usd|thb|rmb`)
)

// NormalizeColumnName 规范化列名：小写、去首尾空格、压缩连续空白
func NormalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return whitespaceRe.ReplaceAllString(name, " ")
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// IsBlank 单元格是否为空
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ParseDimension 解析尺寸标记，例如 `24"`、`7.5"`；没有英寸符号的纯数字不算尺寸
func ParseDimension(s string) (float64, bool) {
	m := dimensionRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseLabelSize 从 Other 表的行标签解析尺寸，允许省略英寸符号
func ParseLabelSize(s string) (float64, bool) {
	m := labelSizeRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PriceParse 价格解析结果
type PriceParse int

const (
	PriceEmpty   PriceParse = iota // 空单元格或占位符
	PriceOK                        // 解析成功
	PriceInvalid                   // 非空但无法解析
)

// ParsePrice 解析价格：去除货币符号、千分位和空白
func ParsePrice(s string) (float64, PriceParse) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "-" || s == "—" || s == "n/a" {
		return 0, PriceEmpty
	}
	s = currencyRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = whitespaceRe.ReplaceAllString(s, "")
	if s == "" {
		return 0, PriceInvalid
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, PriceInvalid
	}
	return v, PriceOK
}

// ParseNumber 解析普通数字（乘数、数量等），允许千分位
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SplitList 按逗号拆分并去除空项
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
