package parser

import (
	"strings"
)

// SheetType Sheet 类型
type SheetType string

const (
	SheetTypeHeader   SheetType = "header"
	SheetTypeStandard SheetType = "standard"
	SheetTypeOther    SheetType = "other"
	SheetTypeUnknown  SheetType = "unknown"
)

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName     string    `json:"sheetName"`
	SheetType     SheetType `json:"sheetType"`
	DimensionRuns int       `json:"dimensionRuns"` // 尺寸表头数量
	LabelRuns     int       `json:"labelRuns"`     // 文本表头数量
}

// SheetRecognizer Sheet 名称解析与类型识别
type SheetRecognizer struct {
	headerName string
}

// NewSheetRecognizer 创建识别器，headerName 为 Header 表名称（大小写不敏感）
func NewSheetRecognizer(headerName string) *SheetRecognizer {
	if strings.TrimSpace(headerName) == "" {
		headerName = "Header"
	}
	return &SheetRecognizer{headerName: headerName}
}

// FindHeaderSheet 在工作簿 Sheet 列表中查找 Header 表
func (r *SheetRecognizer) FindHeaderSheet(sheets []string) (string, bool) {
	return ResolveSheet(sheets, r.headerName)
}

// ResolveSheet 按名称查找 Sheet：先精确匹配，再忽略大小写与首尾空格
func ResolveSheet(sheets []string, name string) (string, bool) {
	for _, s := range sheets {
		if s == name {
			return s, true
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, s := range sheets {
		if strings.ToLower(strings.TrimSpace(s)) == want {
			return s, true
		}
	}
	return "", false
}

// Recognize 识别 Sheet 类型
func (r *SheetRecognizer) Recognize(g *Grid) SheetRecognitionResult {
	result := SheetRecognitionResult{SheetName: g.Name, SheetType: SheetTypeUnknown}
	if strings.EqualFold(strings.TrimSpace(g.Name), strings.TrimSpace(r.headerName)) {
		result.SheetType = SheetTypeHeader
		return result
	}

	for row := 0; row < g.NumRows(); row++ {
		result.DimensionRuns += len(findDimensionRuns(g, row))
		result.LabelRuns += len(findLabelRuns(g, row))
	}
	switch {
	case result.DimensionRuns > 0:
		result.SheetType = SheetTypeStandard
	case result.LabelRuns > 0:
		result.SheetType = SheetTypeOther
	}
	return result
}
