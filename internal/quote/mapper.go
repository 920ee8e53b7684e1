package quote

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"pricebook/internal/calculator"
	"pricebook/internal/parser"
)

// DefaultHeaderSearchWindow 表头搜索的最大行数
const DefaultHeaderSearchWindow = 20

// RowKind 行分类
type RowKind string

const (
	RowItem    RowKind = "item"
	RowTitle   RowKind = "title"
	RowWarning RowKind = "warning"
)

// ItemRequest 报价行。尺寸保留原始文本，由 Runner 按单位换算。
type ItemRequest struct {
	Model       string  `json:"model"`
	WithDamper  bool    `json:"withDamper"`
	Insulated   bool    `json:"insulated,omitempty"`
	Filter      string  `json:"filter,omitempty"`
	Detail      string  `json:"detail,omitempty"`
	Width       string  `json:"width"`
	Height      string  `json:"height"`
	Unit        string  `json:"unit"`
	Quantity    int     `json:"quantity"`
	Finish      string  `json:"finish,omitempty"`
	DiscountPct float64 `json:"discountPct"`
}

// MappedRow 一行的分类结果
type MappedRow struct {
	Row     int             `json:"row"` // 1 起始
	Kind    RowKind         `json:"kind"`
	Item    *ItemRequest    `json:"item,omitempty"`
	Title   string          `json:"title,omitempty"`
	Warning *ImportRowError `json:"warning,omitempty"`
}

// FindHeader 在前 window 行中查找表头行，要求有型号列且至少再有一个已识别列
func FindHeader(rows [][]string, window int) (int, map[parser.Field]int, error) {
	if window <= 0 {
		window = DefaultHeaderSearchWindow
	}
	for i := 0; i < len(rows) && i < window; i++ {
		mapping := parser.QuoteFields.MapRow(rows[i])
		if _, ok := mapping[parser.FieldModel]; ok && len(mapping) > 1 {
			return i, mapping, nil
		}
	}
	return -1, nil, &ImportError{
		Kind: ImportHeaderNotFound,
		Err:  fmt.Errorf("no header row with a model column in the first %d rows", window),
	}
}

// MapRows 定位表头并把其后的每一行分类为报价行、分组标题或警告
func MapRows(rows [][]string, window int) ([]MappedRow, error) {
	headerIdx, columns, err := FindHeader(rows, window)
	if err != nil {
		return nil, err
	}

	out := make([]MappedRow, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		out = append(out, mapRow(i+1, rows[i], columns))
	}
	return out, nil
}

func mapRow(rowNum int, row []string, columns map[parser.Field]int) MappedRow {
	cell := func(f parser.Field) string {
		idx, ok := columns[f]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	if isBlankRow(row) {
		return MappedRow{Row: rowNum, Kind: RowTitle}
	}

	model := cell(parser.FieldModel)
	othersBlank := true
	for f := range columns {
		if f != parser.FieldModel && cell(f) != "" {
			othersBlank = false
			break
		}
	}
	if model != "" && othersBlank {
		return MappedRow{Row: rowNum, Kind: RowTitle, Title: model}
	}
	if model == "" {
		return warning(rowNum, RowMissingModel, "", "row has values but no model")
	}

	code := calculator.ParseModelCode(model)
	name := code.Model
	item := &ItemRequest{
		Model:      name,
		WithDamper: code.WithDamper,
		Insulated:  code.Insulated,
		Filter:     code.Filter,
		Detail:     cell(parser.FieldDetail),
		Width:      cell(parser.FieldWidth),
		Height:     cell(parser.FieldHeight),
		Unit:       cell(parser.FieldUnit),
		Finish:     cell(parser.FieldFinish),
		Quantity:   1,
	}
	if item.Unit == "" {
		item.Unit = string(calculator.UnitInches)
	}

	if q := cell(parser.FieldQuantity); q != "" {
		n, err := parseQuantity(q)
		if err != nil {
			return warning(rowNum, RowInvalidNumber, name, err.Error())
		}
		item.Quantity = n
	}
	if d := cell(parser.FieldDiscount); d != "" {
		v, ok := parser.ParseNumber(strings.TrimSuffix(d, "%"))
		if !ok {
			return warning(rowNum, RowInvalidNumber, name, fmt.Sprintf("discount %q is not a number", d))
		}
		item.DiscountPct = v
	}
	return MappedRow{Row: rowNum, Kind: RowItem, Item: item}
}

func parseQuantity(s string) (int, error) {
	v, ok := parser.ParseNumber(s)
	if !ok {
		return 0, fmt.Errorf("quantity %q is not a number", s)
	}
	if v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, errors.New("quantity must be a whole number")
	}
	return int(v), nil
}

func warning(rowNum int, kind RowErrorKind, model, msg string) MappedRow {
	return MappedRow{
		Row:     rowNum,
		Kind:    RowWarning,
		Warning: &ImportRowError{Row: rowNum, Kind: kind, Model: model, Message: msg},
	}
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if !parser.IsBlank(c) {
			return false
		}
	}
	return true
}
