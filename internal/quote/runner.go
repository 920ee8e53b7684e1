package quote

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"pricebook/internal/calculator"
	"pricebook/internal/observability"
)

// Pricer 报价所需的计价能力
type Pricer interface {
	Price(req calculator.Request) (*calculator.PriceBreakdown, error)
	Units() calculator.Units
}

// Entry 一行的处理结果
type Entry struct {
	Row       int                        `json:"row"`
	Kind      RowKind                    `json:"kind"`
	Title     string                     `json:"title,omitempty"`
	Item      *ItemRequest               `json:"item,omitempty"`
	Breakdown *calculator.PriceBreakdown `json:"breakdown,omitempty"`
	Error     *ImportRowError            `json:"error,omitempty"`
}

// Result 批量报价结果
type Result struct {
	Entries []Entry           `json:"entries"`
	Priced  int               `json:"priced"`
	Errors  []*ImportRowError `json:"errors"`
}

// Total 合计：每行金额先保留两位小数再相加
func (r *Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Entries {
		if e.Breakdown != nil {
			total = total.Add(Money(e.Breakdown.Final))
		}
	}
	return total
}

// Money 金额保留两位小数
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// Runner 按行顺序计价
type Runner struct {
	pricer Pricer
	window int
}

// NewRunner 创建 Runner，window <= 0 时使用默认表头搜索范围
func NewRunner(pricer Pricer, window int) *Runner {
	if window <= 0 {
		window = DefaultHeaderSearchWindow
	}
	return &Runner{pricer: pricer, window: window}
}

// Run 映射并逐行计价。单行失败记录在结果中；ctx 取消时返回已处理部分和 ctx.Err()。
func (r *Runner) Run(ctx context.Context, rows [][]string) (*Result, error) {
	mapped, err := MapRows(rows, r.window)
	if err != nil {
		return nil, err
	}

	result := &Result{Entries: make([]Entry, 0, len(mapped)), Errors: []*ImportRowError{}}
	for _, m := range mapped {
		if err := ctx.Err(); err != nil {
			log.Printf("报价导入已取消: 已处理 %d/%d 行", len(result.Entries), len(mapped))
			return result, err
		}

		entry := Entry{Row: m.Row, Kind: m.Kind, Title: m.Title, Item: m.Item, Error: m.Warning}
		if m.Kind == RowItem {
			entry.Breakdown, entry.Error = r.priceItem(m.Row, m.Item)
			if entry.Error != nil {
				entry.Kind = RowWarning
			}
		}

		switch {
		case entry.Error != nil:
			result.Errors = append(result.Errors, entry.Error)
			observability.QuoteRowsTotal.WithLabelValues("error").Inc()
		case entry.Kind == RowItem:
			result.Priced++
			observability.QuoteRowsTotal.WithLabelValues("item").Inc()
		default:
			observability.QuoteRowsTotal.WithLabelValues("title").Inc()
		}
		result.Entries = append(result.Entries, entry)
	}

	log.Printf("报价导入完成: %d 行已计价, %d 行失败", result.Priced, len(result.Errors))
	return result, nil
}

func (r *Runner) priceItem(rowNum int, item *ItemRequest) (*calculator.PriceBreakdown, *ImportRowError) {
	rowErr := func(kind RowErrorKind, format string, args ...any) *ImportRowError {
		return &ImportRowError{Row: rowNum, Kind: kind, Model: item.Model, Message: fmt.Sprintf(format, args...)}
	}

	rowUnit, ok := calculator.ParseUnit(item.Unit)
	if !ok {
		return nil, rowErr(RowPricingFailed, "unknown unit %q", item.Unit)
	}
	if item.Width == "" {
		return nil, rowErr(RowMissingDimension, "width is required")
	}
	width, err := r.toInches(item.Width, rowUnit)
	if err != nil {
		return nil, rowErr(RowInvalidNumber, "width: %v", err)
	}
	var height float64
	if item.Height != "" {
		height, err = r.toInches(item.Height, rowUnit)
		if err != nil {
			return nil, rowErr(RowInvalidNumber, "height: %v", err)
		}
	}

	b, err := r.pricer.Price(calculator.Request{
		Model:       item.Model,
		Width:       width,
		Height:      height,
		Unit:        string(calculator.UnitInches),
		Finish:      item.Finish,
		WithDamper:  item.WithDamper,
		Insulated:   item.Insulated,
		Filter:      item.Filter,
		Quantity:    item.Quantity,
		DiscountPct: item.DiscountPct,
	})
	if err == nil {
		return b, nil
	}

	var lookupErr *calculator.LookupError
	var validationErr *calculator.ValidationError
	switch {
	case errors.As(err, &lookupErr) && lookupErr.Kind == calculator.LookupProductNotFound:
		return nil, rowErr(RowProductNotFound, "model is not in the price list")
	case errors.As(err, &validationErr) && validationErr.Field == "height" && item.Height == "":
		return nil, rowErr(RowMissingDimension, "height is required")
	case errors.As(err, &validationErr) && validationErr.Field != "finish" && validationErr.Field != "unit":
		return nil, rowErr(RowInvalidNumber, "%v", err)
	default:
		return nil, rowErr(RowPricingFailed, "%v", err)
	}
}

// toInches 单元格自带单位时优先于行单位
func (r *Runner) toInches(s string, rowUnit calculator.Unit) (float64, error) {
	v, unit, hasUnit, ok := calculator.ParseDimensionValue(s)
	if !ok {
		return 0, fmt.Errorf("%q is not a dimension", s)
	}
	if !hasUnit {
		unit = rowUnit
	}
	return r.pricer.Units().ToInches(v, unit), nil
}
