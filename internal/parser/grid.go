package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Grid Sheet 的单元格视图。合并单元格只有左上角有值，其余位置记录为续接格。
type Grid struct {
	Name   string
	Rows   [][]string
	merged map[[2]int]bool
}

// NewGrid 由二维字符串创建 Grid（测试与非 Excel 来源使用）
func NewGrid(name string, rows [][]string) *Grid {
	return &Grid{Name: name, Rows: rows, merged: make(map[[2]int]bool)}
}

// LoadGrid 读取 Sheet 的单元格与合并区域
func LoadGrid(f *excelize.File, sheet string) (*Grid, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	g := NewGrid(sheet, rows)

	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged cells of %q: %w", sheet, err)
	}
	for _, m := range merges {
		c1, r1, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			continue
		}
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				if r == r1 && c == c1 {
					continue
				}
				g.MarkMerged(r-1, c-1)
			}
		}
	}
	return g, nil
}

// MarkMerged 标记 (row, col) 为合并区域的续接格（0 起始）
func (g *Grid) MarkMerged(row, col int) {
	g.merged[[2]int{row, col}] = true
}

// IsMergedContinuation 是否为合并区域中非左上角的格子
func (g *Grid) IsMergedContinuation(row, col int) bool {
	return g.merged[[2]int{row, col}]
}

// NumRows 行数
func (g *Grid) NumRows() int {
	return len(g.Rows)
}

// RowWidth 指定行的列数
func (g *Grid) RowWidth(row int) int {
	if row < 0 || row >= len(g.Rows) {
		return 0
	}
	return len(g.Rows[row])
}

// Cell 返回去除首尾空白的单元格内容，越界返回空串
func (g *Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(g.Rows[row][col])
}

// IsBlankRow 整行为空
func (g *Grid) IsBlankRow(row int) bool {
	for col := 0; col < g.RowWidth(row); col++ {
		if g.Cell(row, col) != "" {
			return false
		}
	}
	return true
}
