package parser

import (
	"fmt"
	"sort"
	"strings"

	"pricebook/internal/model"
)

type rowKind int

const (
	rowNone rowKind = iota
	rowData
	rowCompanion
	rowMiss
)

// 连续两行不匹配即关闭矩阵
const maxMisses = 2

var (
	otherPriceKeywords = []string{"price", "table", "not", "/ft", "per ft", "per foot", "/foot"}
	companionKeywords  = []string{"wd", "damper"}
)

// headerRun 表头中的一段连续列
type headerRun struct {
	leadCol int
	cols    []int
	widths  []float64 // Standard 表
	labels  []string  // Other 表
}

func (h headerRun) firstCol() int { return h.leadCol }
func (h headerRun) lastCol() int  { return h.cols[len(h.cols)-1] + 1 }

type dataRow struct {
	row       int
	height    float64
	label     string
	companion int
	cellIdx   map[int]int // 表头列序号 -> 单元格下标
}

// matrix 检测过程中的候选矩阵
type matrix struct {
	kind      model.TableKind
	sheet     string
	headerRow int
	run       headerRun
	layout    Layout
	last      rowKind
	misses    int
	endRow    int
	rows      []dataRow
	cells     []RawCell
	other     []RawOtherCell
}

func newMatrix(kind model.TableKind, sheet string, row int, run headerRun) *matrix {
	return &matrix{
		kind:      kind,
		sheet:     sheet,
		headerRow: row,
		run:       run,
		layout:    LayoutUnknown,
		endRow:    row,
	}
}

// DetectTables 检测 Sheet 中的标准尺寸矩阵（宽度表头 × 高度行）
func DetectTables(g *Grid) ([]RawTable, []DetectionWarning) {
	return detect(g, model.TableKindStandard, findDimensionRuns)
}

// DetectOtherTables 检测以文本标签为行列键的 Other 矩阵
func DetectOtherTables(g *Grid) ([]RawTable, []DetectionWarning) {
	return detect(g, model.TableKindOther, findLabelRuns)
}

func detect(g *Grid, kind model.TableKind, findRuns func(*Grid, int) []headerRun) ([]RawTable, []DetectionWarning) {
	var (
		open     []*matrix
		tables   []RawTable
		warnings []DetectionWarning
	)

	closeMatrix := func(m *matrix) {
		if t, ok := m.finish(g); ok {
			tables = append(tables, t)
		}
	}

	for r := 0; r < g.NumRows(); r++ {
		runs := findRuns(g, r)

		var next []*matrix
		for _, m := range open {
			if m.overlaps(runs) {
				closeMatrix(m)
				continue
			}
			if m.step(g, r, &warnings) {
				next = append(next, m)
			} else {
				closeMatrix(m)
			}
		}
		for _, run := range runs {
			next = append(next, newMatrix(kind, g.Name, r, run))
		}
		open = next
	}
	for _, m := range open {
		closeMatrix(m)
	}

	sort.SliceStable(tables, func(i, j int) bool {
		if tables[i].StartRow != tables[j].StartRow {
			return tables[i].StartRow < tables[j].StartRow
		}
		return tables[i].StartCol < tables[j].StartCol
	})
	return tables, warnings
}

// findDimensionRuns 查找两个及以上连续尺寸标记，标记前一列为行标签列
func findDimensionRuns(g *Grid, r int) []headerRun {
	var runs []headerRun
	n := g.RowWidth(r)
	c := 0
	for c < n {
		if _, ok := ParseDimension(g.Cell(r, c)); !ok {
			c++
			continue
		}
		run := headerRun{leadCol: c - 1}
		for c < n {
			v, ok := ParseDimension(g.Cell(r, c))
			if !ok {
				break
			}
			run.cols = append(run.cols, c)
			run.widths = append(run.widths, v)
			c++
		}
		if len(run.cols) >= 2 && run.leadCol >= 0 {
			runs = append(runs, run)
		}
	}
	return runs
}

// findLabelRuns 查找包含价格关键词的连续非空表头段
func findLabelRuns(g *Grid, r int) []headerRun {
	var runs []headerRun
	n := g.RowWidth(r)
	c := 0
	for c < n {
		if g.Cell(r, c) == "" {
			c++
			continue
		}
		start := c
		for c < n && g.Cell(r, c) != "" {
			c++
		}
		end := c - 1

		hasKeyword := false
		dims := 0
		for i := start; i <= end; i++ {
			text := NormalizeColumnName(g.Cell(r, i))
			if ContainsAny(text, otherPriceKeywords) {
				hasKeyword = true
			}
			if _, ok := ParseDimension(g.Cell(r, i)); ok {
				dims++
			}
		}
		if !hasKeyword || dims >= 2 {
			continue
		}

		run := headerRun{leadCol: start}
		first := start + 1
		if ContainsAny(NormalizeColumnName(g.Cell(r, start)), otherPriceKeywords) {
			// 第一列就是价格列：行标签列在左侧，表头角为空
			if start == 0 {
				continue
			}
			run.leadCol = start - 1
			first = start
		}
		for i := first; i <= end; i++ {
			run.cols = append(run.cols, i)
			run.labels = append(run.labels, g.Cell(r, i))
		}
		if len(run.cols) > 0 {
			runs = append(runs, run)
		}
	}
	return runs
}

func (m *matrix) overlaps(runs []headerRun) bool {
	for _, run := range runs {
		if run.firstCol() <= m.run.lastCol() && m.run.firstCol() <= run.lastCol() {
			return true
		}
	}
	return false
}

// matchLead 判断一行是否为数据行，返回行键
func (m *matrix) matchLead(g *Grid, r int) (float64, string, bool) {
	lead := g.Cell(r, m.run.leadCol)
	if m.kind == model.TableKindStandard {
		h, ok := ParseDimension(lead)
		return h, lead, ok
	}
	if lead == "" || g.IsMergedContinuation(r, m.run.leadCol) {
		return 0, "", false
	}
	for _, col := range m.run.cols {
		if g.Cell(r, col) != "" {
			return 0, lead, true
		}
	}
	return 0, "", false
}

// isCompanion 判断紧随数据行的一行是否为伴随行（继承上一行的键）
func (m *matrix) isCompanion(g *Grid, r int) bool {
	if m.last != rowData {
		return false
	}
	merged := g.IsMergedContinuation(r, m.run.leadCol)
	if m.layout == LayoutAdjacent && !merged {
		return false
	}
	lead := g.Cell(r, m.run.leadCol)
	if lead == "" || merged {
		return true
	}
	if m.kind != model.TableKindStandard {
		return false
	}
	if _, ok := ParseDimension(lead); ok {
		return false
	}
	return ContainsAny(NormalizeColumnName(lead), companionKeywords)
}

// step 处理一行，返回矩阵是否仍然打开
func (m *matrix) step(g *Grid, r int, warnings *[]DetectionWarning) bool {
	if height, label, ok := m.matchLead(g, r); ok {
		if m.last == rowData && m.layout == LayoutUnknown {
			m.layout = LayoutAdjacent
		}
		m.rows = append(m.rows, dataRow{row: r, height: height, label: label, companion: -1, cellIdx: map[int]int{}})
		m.readPrices(g, r, false, warnings)
		m.last = rowData
		m.misses = 0
		m.endRow = r
		return true
	}

	if m.isCompanion(g, r) {
		last := &m.rows[len(m.rows)-1]
		last.companion = r
		if m.readPrices(g, r, true, warnings) {
			m.endRow = r
		}
		m.layout = LayoutSeparated
		m.last = rowCompanion
		return true
	}

	m.misses++
	m.last = rowMiss
	return m.misses < maxMisses
}

// readPrices 读取一行中与表头对齐的价格；damper 为 true 时写入上一数据行的带阻尼价格
func (m *matrix) readPrices(g *Grid, r int, damper bool, warnings *[]DetectionWarning) bool {
	current := &m.rows[len(m.rows)-1]
	found := false
	for i, col := range m.run.cols {
		raw := g.Cell(r, col)
		v, res := ParsePrice(raw)
		switch res {
		case PriceEmpty:
			continue
		case PriceInvalid:
			*warnings = append(*warnings, DetectionWarning{
				Kind:    WarnUnparsablePrice,
				Sheet:   m.sheet,
				Row:     r + 1,
				Col:     col + 1,
				Message: fmt.Sprintf("cannot parse price %q, cell skipped", raw),
			})
			continue
		}
		found = true

		if damper {
			idx, ok := current.cellIdx[i]
			if !ok {
				continue
			}
			if m.kind == model.TableKindStandard {
				m.cells[idx].PriceWithDamper = model.Float64Ptr(v)
			} else {
				m.other[idx].PriceWithDamper = model.Float64Ptr(v)
			}
			continue
		}

		if m.kind == model.TableKindStandard {
			current.cellIdx[i] = len(m.cells)
			m.cells = append(m.cells, RawCell{
				Width:       m.run.widths[i],
				Height:      current.height,
				NormalPrice: v,
				Row:         r,
				Col:         col,
			})
			continue
		}

		cell := RawOtherCell{
			RowLabel:    current.label,
			ColumnLabel: m.run.labels[i],
			NormalPrice: v,
			Row:         r,
			Col:         col,
		}
		if size, ok := ParseLabelSize(current.label); ok {
			cell.Size = model.Float64Ptr(size)
		}
		current.cellIdx[i] = len(m.other)
		m.other = append(m.other, cell)
	}
	return found
}

// finish 关闭矩阵并读取超限乘数，没有任何单元格的候选被丢弃
func (m *matrix) finish(g *Grid) (RawTable, bool) {
	if len(m.cells) == 0 && len(m.other) == 0 {
		return RawTable{}, false
	}
	t := RawTable{
		Kind:       m.kind,
		StartRow:   m.headerRow,
		EndRow:     m.endRow,
		StartCol:   m.run.leadCol,
		EndCol:     m.run.cols[len(m.run.cols)-1],
		Layout:     m.layout,
		Cells:      m.cells,
		OtherCells: m.other,
		Label:      findLabel(g, m.headerRow, m.run.leadCol, m.run.cols[len(m.run.cols)-1]),
	}
	if t.Layout == LayoutUnknown {
		t.Layout = LayoutAdjacent
	}
	if m.kind == model.TableKindStandard {
		t.Multipliers = m.readMultipliers(g, t.EndCol+1)
	}
	return t, true
}

// readMultipliers 读取右侧乘数列（按高度）与下方两行乘数（按宽度，先普通后带阻尼）
func (m *matrix) readMultipliers(g *Grid, multCol int) []RawMultiplier {
	var out []RawMultiplier
	for _, dr := range m.rows {
		if v, ok := parseMultiplier(g.Cell(dr.row, multCol)); ok {
			out = append(out, RawMultiplier{Axis: model.AxisColumn, Dimension: dr.height, Multiplier: v, AppliesTo: model.AppliesToNormal})
		}
		if dr.companion >= 0 {
			if v, ok := parseMultiplier(g.Cell(dr.companion, multCol)); ok {
				out = append(out, RawMultiplier{Axis: model.AxisColumn, Dimension: dr.height, Multiplier: v, AppliesTo: model.AppliesToDamper})
			}
		}
	}

	below := m.endRow + 1
	normal := m.readMultiplierRow(g, below, model.AppliesToNormal)
	out = append(out, normal...)
	if len(normal) > 0 {
		out = append(out, m.readMultiplierRow(g, below+1, model.AppliesToDamper)...)
	}
	return out
}

func (m *matrix) readMultiplierRow(g *Grid, r int, applies model.AppliesTo) []RawMultiplier {
	if r >= g.NumRows() {
		return nil
	}
	if _, ok := ParseDimension(g.Cell(r, m.run.leadCol)); ok {
		return nil
	}
	var out []RawMultiplier
	for i, col := range m.run.cols {
		if v, ok := parseMultiplier(g.Cell(r, col)); ok {
			out = append(out, RawMultiplier{Axis: model.AxisRow, Dimension: m.run.widths[i], Multiplier: v, AppliesTo: applies})
		}
	}
	return out
}

func parseMultiplier(s string) (float64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "x")
	v, ok := ParseNumber(s)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// findLabel 查找矩阵前的型号标签：上一行（矩阵列范围内），其次同一行行标签列左侧
func findLabel(g *Grid, headerRow, leadCol, lastCol int) string {
	if headerRow > 0 {
		for c := leadCol; c <= lastCol+1; c++ {
			if v := g.Cell(headerRow-1, c); isLabelText(v) {
				return v
			}
		}
	}
	for c := leadCol - 1; c >= 0; c-- {
		if v := g.Cell(headerRow, c); isLabelText(v) {
			return v
		}
	}
	return ""
}

func isLabelText(s string) bool {
	if s == "" {
		return false
	}
	if _, ok := ParseDimension(s); ok {
		return false
	}
	if _, ok := ParseNumber(s); ok {
		return false
	}
	return true
}
