package parser

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"pricebook/internal/model"
)

// DefaultHeaderSearchWindow Header 表表头行的搜索范围
const DefaultHeaderSearchWindow = 20

// ErrHeaderRowNotFound Header 表中找不到表头行
var ErrHeaderRowNotFound = errors.New("header row not found")

// HeaderEntry Header 表中声明的一张价格表
type HeaderEntry struct {
	Row             int // 1 起始
	Table           model.PriceTable
	TableIDDeclared bool
}

// ReadHeaderSheet 解析 Header 表。表头行为前 window 行中第一个命中两个及以上字段的行；
// 连续两行空行视为数据结束。
func ReadHeaderSheet(g *Grid, window int) ([]HeaderEntry, []DetectionWarning, error) {
	if window <= 0 {
		window = DefaultHeaderSearchWindow
	}

	headerRow := -1
	var mapping map[Field]int
	for r := 0; r < min(window, g.NumRows()); r++ {
		m := HeaderFields.MapRow(g.Rows[r])
		if len(m) >= 2 {
			headerRow = r
			mapping = m
			break
		}
	}
	if headerRow < 0 {
		return nil, nil, fmt.Errorf("%w in the first %d rows of sheet %q", ErrHeaderRowNotFound, window, g.Name)
	}
	for _, required := range []Field{FieldSheetName, FieldModels} {
		if _, ok := mapping[required]; !ok {
			return nil, nil, fmt.Errorf("%w: sheet %q has no %s column", ErrHeaderRowNotFound, g.Name, required)
		}
	}

	get := func(r int, f Field) string {
		col, ok := mapping[f]
		if !ok {
			return ""
		}
		return g.Cell(r, col)
	}

	var (
		entries  []HeaderEntry
		warnings []DetectionWarning
		blanks   int
	)
	for r := headerRow + 1; r < g.NumRows(); r++ {
		if g.IsBlankRow(r) {
			blanks++
			if blanks >= 2 {
				break
			}
			continue
		}
		blanks = 0

		sheet := get(r, FieldSheetName)
		models := SplitList(get(r, FieldModels))
		if sheet == "" || len(models) == 0 {
			warnings = append(warnings, DetectionWarning{
				Kind:    WarnSkippedHeaderRow,
				Sheet:   g.Name,
				Row:     r + 1,
				Message: "row has no sheet name or model, skipped",
			})
			continue
		}

		entry := HeaderEntry{Row: r + 1, Table: model.NewPriceTable(0, sheet)}
		entry.Table.Models = models
		entry.Table.BaseModifier = cleanExpression(get(r, FieldBaseModifier))
		entry.Table.WDExpression = cleanExpression(get(r, FieldWD))

		finishes := []struct {
			field Field
			dst   *float64
		}{
			{FieldAnodized, &entry.Table.Anodized},
			{FieldPowderCoated, &entry.Table.PowderCoated},
			{FieldNoFinish, &entry.Table.NoFinish},
			{FieldSpecialColor, &entry.Table.SpecialColor},
		}
		for _, fin := range finishes {
			raw := get(r, fin.field)
			v, ok := parseFinishMultiplier(raw)
			if !ok {
				warnings = append(warnings, DetectionWarning{
					Kind:    WarnInvalidMultiplier,
					Sheet:   g.Name,
					Row:     r + 1,
					Col:     mapping[fin.field] + 1,
					Message: fmt.Sprintf("invalid %s multiplier %q, using %.1f", fin.field, raw, model.DefaultFinishMultiplier),
				})
			}
			*fin.dst = v
		}

		if raw := get(r, FieldTableID); raw != "" {
			if id, ok := parseTableID(raw); ok {
				entry.Table.TableID = id
				entry.TableIDDeclared = true
			} else {
				warnings = append(warnings, DetectionWarning{
					Kind:    WarnInvalidTableID,
					Sheet:   g.Name,
					Row:     r + 1,
					Message: fmt.Sprintf("invalid table id %q, numbering automatically", raw),
				})
			}
		}
		entries = append(entries, entry)
	}

	entries, idWarnings := assignTableIDs(g.Name, entries)
	return entries, append(warnings, idWarnings...), nil
}

// assignTableIDs 保留显式声明的 table_id（重复的丢弃），其余按顺序从 1 开始编号
func assignTableIDs(sheet string, entries []HeaderEntry) ([]HeaderEntry, []DetectionWarning) {
	var warnings []DetectionWarning
	used := map[int]bool{}
	kept := entries[:0]
	for _, e := range entries {
		if e.TableIDDeclared {
			if used[e.Table.TableID] {
				warnings = append(warnings, DetectionWarning{
					Kind:    WarnDuplicateTableID,
					Sheet:   sheet,
					Row:     e.Row,
					TableID: e.Table.TableID,
					Message: fmt.Sprintf("table id %d already declared, row skipped", e.Table.TableID),
				})
				continue
			}
			used[e.Table.TableID] = true
		}
		kept = append(kept, e)
	}

	next := 1
	for i := range kept {
		if kept[i].TableIDDeclared {
			continue
		}
		for used[next] {
			next++
		}
		kept[i].Table.TableID = next
		used[next] = true
	}
	return kept, warnings
}

func cleanExpression(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "none") || s == "-" {
		return ""
	}
	return s
}

func parseFinishMultiplier(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "-", "n/a":
		return model.DefaultFinishMultiplier, true
	}
	v, ok := ParseNumber(s)
	if !ok || v <= 0 {
		return model.DefaultFinishMultiplier, false
	}
	return v, true
}

func parseTableID(s string) (int, bool) {
	v, ok := ParseNumber(s)
	if !ok || v <= 0 || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}
