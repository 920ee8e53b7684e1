package importer

import (
	"fmt"
	"strings"

	"pricebook/internal/model"
	"pricebook/internal/parser"
)

// catalogBuilder 把 Header 行与检测到的矩阵合并成目录
type catalogBuilder struct {
	known    map[string]bool // Header 中声明的全部型号（小写）
	products map[string]bool // 已写入的型号（小写）
	nextID   int             // 下一个隐式表编号
	catalog  model.Catalog
	warnings []parser.DetectionWarning
}

func newCatalogBuilder(entries []parser.HeaderEntry) *catalogBuilder {
	b := &catalogBuilder{
		known:    make(map[string]bool),
		products: make(map[string]bool),
		nextID:   1,
	}
	for _, e := range entries {
		for _, m := range e.Table.Models {
			b.known[modelKey(m)] = true
		}
		if e.Table.TableID >= b.nextID {
			b.nextID = e.Table.TableID + 1
		}
	}
	return b
}

func modelKey(m string) string {
	return strings.ToLower(strings.TrimSpace(m))
}

func (b *catalogBuilder) warn(w ...parser.DetectionWarning) {
	b.warnings = append(b.warnings, w...)
}

// addSheet 检测一个 Sheet 并绑定引用它的 Header 行
func (b *catalogBuilder) addSheet(g *parser.Grid, entries []parser.HeaderEntry) SheetResult {
	result := SheetResult{SheetName: g.Name, Entries: len(entries)}
	before := len(b.warnings)

	std, warnings := parser.DetectTables(g)
	b.warn(warnings...)
	result.TablesDetected = len(std)

	bound := make([]*parser.RawTable, len(entries))
	stdUsed := make([]bool, len(std))
	b.bindByLabel(entries, bound, std, stdUsed)
	b.bindByPosition(entries, bound, std, stdUsed)

	var (
		others    []parser.RawTable
		otherUsed []bool
	)
	if hasUnbound(bound) {
		detected, warnings := parser.DetectOtherTables(g)
		for _, t := range detected {
			if !overlapsAny(&t, std) {
				others = append(others, t)
			}
		}
		if len(others) > 0 {
			b.warn(warnings...)
		}
		otherUsed = make([]bool, len(others))
		b.bindByLabel(entries, bound, others, otherUsed)
		b.bindByPosition(entries, bound, others, otherUsed)
		result.TablesDetected += len(others)
	}

	for i, e := range entries {
		data := b.addTable(e.Table, bound[i], e.Row)
		if bound[i] != nil {
			result.TablesBound++
		}
		result.Cells += len(data.Cells) + len(data.Other)
	}

	for j := range std {
		if stdUsed[j] {
			continue
		}
		t := &std[j]
		if t.Label != "" && !b.known[modelKey(t.Label)] {
			table := model.NewPriceTable(b.nextID, g.Name)
			table.Models = []string{t.Label}
			b.nextID++
			data := b.addTable(table, t, 0)
			result.TablesBound++
			result.Cells += len(data.Cells)
			continue
		}
		b.warnUnbound(g.Name, t)
	}
	for j := range others {
		if !otherUsed[j] {
			b.warnUnbound(g.Name, &others[j])
		}
	}
	result.Warnings = len(b.warnings) - before
	return result
}

func (b *catalogBuilder) warnUnbound(sheet string, t *parser.RawTable) {
	msg := "table is not declared in the header sheet, dropped"
	if t.Label != "" {
		msg = fmt.Sprintf("table %q is not declared in the header sheet, dropped", t.Label)
	}
	b.warn(parser.DetectionWarning{
		Kind:    parser.WarnUnboundTable,
		Sheet:   sheet,
		Row:     t.StartRow + 1,
		Col:     t.StartCol + 1,
		Message: msg,
	})
}

// bindByLabel 标签与 Header 行型号一致的矩阵优先绑定
func (b *catalogBuilder) bindByLabel(entries []parser.HeaderEntry, bound []*parser.RawTable, tables []parser.RawTable, used []bool) {
	for i, e := range entries {
		if bound[i] != nil {
			continue
		}
		for j := range tables {
			if used[j] || !labelMatches(tables[j].Label, e.Table.Models) {
				continue
			}
			bound[i] = &tables[j]
			used[j] = true
			break
		}
	}
}

// bindByPosition 其余 Header 行按顺序绑定剩余矩阵，跳过标签属于其他型号的矩阵
func (b *catalogBuilder) bindByPosition(entries []parser.HeaderEntry, bound []*parser.RawTable, tables []parser.RawTable, used []bool) {
	next := 0
	for i := range entries {
		if bound[i] != nil {
			continue
		}
		for next < len(tables) && (used[next] || b.known[modelKey(tables[next].Label)]) {
			next++
		}
		if next >= len(tables) {
			return
		}
		bound[i] = &tables[next]
		used[next] = true
		next++
	}
}

func labelMatches(label string, models []string) bool {
	if label == "" {
		return false
	}
	candidates := append([]string{label}, parser.SplitList(label)...)
	for _, c := range candidates {
		for _, m := range models {
			if modelKey(c) == modelKey(m) {
				return true
			}
		}
	}
	return false
}

func hasUnbound(bound []*parser.RawTable) bool {
	for _, t := range bound {
		if t == nil {
			return true
		}
	}
	return false
}

func overlapsAny(t *parser.RawTable, tables []parser.RawTable) bool {
	for i := range tables {
		if t.Overlaps(&tables[i]) {
			return true
		}
	}
	return false
}

// addTable 写入一张价格表，相同坐标的单元格后者覆盖前者
func (b *catalogBuilder) addTable(table model.PriceTable, raw *parser.RawTable, headerRow int) model.TableData {
	data := model.TableData{Table: table}
	if raw == nil {
		b.warn(parser.DetectionWarning{
			Kind:    parser.WarnZeroCells,
			Sheet:   table.SheetName,
			TableID: table.TableID,
			Row:     headerRow,
			Message: fmt.Sprintf("no price matrix found for models %s", strings.Join(table.Models, ", ")),
		})
	} else {
		data.Table.Kind = raw.Kind
		data.Table.Label = raw.Label
		data.Cells = b.buildCells(table, raw)
		data.Multipliers = buildMultipliers(table.TableID, raw)
		data.Other = b.buildOther(table, raw)
	}

	b.catalog.Tables = append(b.catalog.Tables, data)
	b.addProducts(data.Table)
	return data
}

func (b *catalogBuilder) buildCells(table model.PriceTable, raw *parser.RawTable) []model.PriceCell {
	var cells []model.PriceCell
	index := make(map[[2]float64]int)
	for _, c := range raw.Cells {
		cell := model.PriceCell{
			TableID:         table.TableID,
			Width:           c.Width,
			Height:          c.Height,
			NormalPrice:     c.NormalPrice,
			PriceWithDamper: c.PriceWithDamper,
		}
		key := [2]float64{c.Width, c.Height}
		if i, ok := index[key]; ok {
			b.warn(parser.DetectionWarning{
				Kind:    parser.WarnDuplicateCell,
				Sheet:   table.SheetName,
				TableID: table.TableID,
				Row:     c.Row + 1,
				Col:     c.Col + 1,
				Message: fmt.Sprintf("duplicate cell %vx%v, later value %v wins", c.Width, c.Height, c.NormalPrice),
			})
			cells[i] = cell
			continue
		}
		index[key] = len(cells)
		cells = append(cells, cell)
	}
	return cells
}

func buildMultipliers(tableID int, raw *parser.RawTable) []model.Multiplier {
	type key struct {
		axis      model.Axis
		dimension float64
		applies   model.AppliesTo
	}
	var out []model.Multiplier
	index := make(map[key]int)
	for _, m := range raw.Multipliers {
		mult := model.Multiplier{
			TableID:    tableID,
			Axis:       m.Axis,
			Dimension:  m.Dimension,
			Multiplier: m.Multiplier,
			AppliesTo:  m.AppliesTo,
		}
		k := key{m.Axis, m.Dimension, m.AppliesTo}
		if i, ok := index[k]; ok {
			out[i] = mult
			continue
		}
		index[k] = len(out)
		out = append(out, mult)
	}
	return out
}

func (b *catalogBuilder) buildOther(table model.PriceTable, raw *parser.RawTable) []model.OtherPrice {
	var out []model.OtherPrice
	index := make(map[[2]string]int)
	for _, c := range raw.OtherCells {
		price := model.OtherPrice{
			TableID:         table.TableID,
			RowLabel:        c.RowLabel,
			ColumnLabel:     c.ColumnLabel,
			Size:            c.Size,
			NormalPrice:     c.NormalPrice,
			PriceWithDamper: c.PriceWithDamper,
		}
		key := [2]string{c.RowLabel, c.ColumnLabel}
		if i, ok := index[key]; ok {
			b.warn(parser.DetectionWarning{
				Kind:    parser.WarnDuplicateOtherCell,
				Sheet:   table.SheetName,
				TableID: table.TableID,
				Row:     c.Row + 1,
				Col:     c.Col + 1,
				Message: fmt.Sprintf("duplicate cell %q/%q, later value %v wins", c.RowLabel, c.ColumnLabel, c.NormalPrice),
			})
			out[i] = price
			continue
		}
		index[key] = len(out)
		out = append(out, price)
	}
	return out
}

// addProducts 写入表的型号，重复型号保留最先声明的
func (b *catalogBuilder) addProducts(table model.PriceTable) {
	for _, m := range table.Models {
		key := modelKey(m)
		if b.products[key] {
			b.warn(parser.DetectionWarning{
				Kind:    parser.WarnDuplicateModel,
				Sheet:   table.SheetName,
				TableID: table.TableID,
				Message: fmt.Sprintf("model %q already declared by an earlier table, ignored", m),
			})
			continue
		}
		b.products[key] = true
		b.catalog.Products = append(b.catalog.Products, model.Product{
			TableID:   table.TableID,
			Model:     strings.TrimSpace(m),
			SheetName: table.SheetName,
		})
	}
}
