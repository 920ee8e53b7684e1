package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"pricebook/internal/equation"
	"pricebook/internal/model"
	"pricebook/internal/observability"
	"pricebook/internal/store"
)

// Catalog 计价所需的只读价格库
type Catalog interface {
	ProductByModel(name string) (*model.Product, error)
	Products() ([]model.Product, error)
	LoadTable(tableID int) (*model.TableData, error)
}

// Request 计价请求
type Request struct {
	Model                  string  `json:"model"`
	Width                  float64 `json:"width"`
	Height                 float64 `json:"height"`
	Unit                   string  `json:"unit"`
	Finish                 string  `json:"finish"`
	WithDamper             bool    `json:"withDamper"`
	Quantity               int     `json:"quantity"`
	DiscountPct            float64 `json:"discountPct"`
	SpecialColorMultiplier float64 `json:"specialColorMultiplier,omitempty"`
	Insulated              bool    `json:"insulated,omitempty"`
	Filter                 string  `json:"filter,omitempty"`
}

// PriceBreakdown 计价结果，保留每一步的中间值
type PriceBreakdown struct {
	Model           string          `json:"model"`
	TableID         int             `json:"tableId"`
	TableKind       model.TableKind `json:"tableKind"`
	RequestedWidth  float64         `json:"requestedWidth"`  // 英寸
	RequestedHeight float64         `json:"requestedHeight"` // 英寸
	Width           float64         `json:"width"`           // 取价宽度
	Height          float64         `json:"height"`          // 取价高度
	RowLabel        string          `json:"rowLabel,omitempty"`
	ColumnLabel     string          `json:"columnLabel,omitempty"`
	PricePerFoot    bool            `json:"pricePerFoot,omitempty"`

	WidthExceeded  bool    `json:"widthExceeded"`
	HeightExceeded bool    `json:"heightExceeded"`
	Extrapolation  float64 `json:"extrapolation"` // 超限乘数，未超限为 1

	WithDamper bool     `json:"withDamper"`
	TB         float64  `json:"tb"`
	WD         *float64 `json:"wd,omitempty"`
	BP         float64  `json:"bp"`
	MWD        *float64 `json:"mwd,omitempty"`

	Finish           Finish  `json:"finish"`
	FinishColor      string  `json:"finishColor,omitempty"`
	FinishMultiplier float64 `json:"finishMultiplier"`

	Insulated       bool    `json:"insulated,omitempty"`
	InsulationPrice float64 `json:"insulationPrice,omitempty"`
	Filter          string  `json:"filter,omitempty"`
	FilterModel     string  `json:"filterModel,omitempty"`
	FilterPrice     float64 `json:"filterPrice,omitempty"`

	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"lineTotal"`
	DiscountPct float64 `json:"discountPct"`
	Final       float64 `json:"final"`
}

// Calculator 价格计算器
type Calculator struct {
	catalog Catalog
	units   Units
}

// NewCalculator 创建计算器，mmPerInch <= 0 时使用默认换算
func NewCalculator(catalog Catalog, mmPerInch float64) *Calculator {
	return &Calculator{
		catalog: catalog,
		units:   NewUnits(mmPerInch),
	}
}

// Units 当前单位换算
func (c *Calculator) Units() Units {
	return c.units
}

// ParseModelFlags 去掉型号后缀，返回型号与是否要求带阻尼价格
func ParseModelFlags(s string) (string, bool) {
	code := ParseModelCode(s)
	return code.Model, code.WithDamper
}

// Price 计算一个型号的报价
func (c *Calculator) Price(req Request) (*PriceBreakdown, error) {
	b, err := c.price(req)
	observability.PriceCalculationsTotal.WithLabelValues(resultStatus(err)).Inc()
	return b, err
}

func resultStatus(err error) string {
	var eqErr *equation.EquationError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrLookup):
		return "lookup_error"
	case errors.As(err, &eqErr):
		return "equation_error"
	default:
		return "error"
	}
}

func (c *Calculator) price(req Request) (*PriceBreakdown, error) {
	unit, ok := ParseUnit(req.Unit)
	if !ok {
		return nil, invalid("unit", "unknown unit %q", req.Unit)
	}
	finish, color, ok := ParseFinish(req.Finish)
	if !ok {
		return nil, invalid("finish", "unknown finish %q", req.Finish)
	}
	switch {
	case req.Quantity <= 0:
		return nil, invalid("quantity", "must be positive, got %d", req.Quantity)
	case req.DiscountPct < 0:
		return nil, invalid("discount", "must not be negative, got %v", req.DiscountPct)
	case req.DiscountPct > 100:
		return nil, invalid("discount", "must not exceed 100, got %v", req.DiscountPct)
	case req.Width <= 0:
		return nil, invalid("width", "must be positive, got %v", req.Width)
	case req.Height < 0:
		return nil, invalid("height", "must not be negative, got %v", req.Height)
	case math.IsNaN(req.Width) || math.IsNaN(req.Height) || math.IsInf(req.Width, 0) || math.IsInf(req.Height, 0):
		return nil, invalid("dimensions", "must be finite")
	}

	code := ParseModelCode(req.Model)
	name := code.Model
	product, err := c.catalog.ProductByModel(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &LookupError{Kind: LookupProductNotFound, Model: name, Message: "model is not in the price list"}
		}
		return nil, err
	}
	data, err := c.catalog.LoadTable(product.TableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load price table %d: %w", product.TableID, err)
	}

	b := &PriceBreakdown{
		Model:           product.Model,
		TableID:         product.TableID,
		TableKind:       data.Table.Kind,
		RequestedWidth:  c.units.ToInches(req.Width, unit),
		RequestedHeight: c.units.ToInches(req.Height, unit),
		WithDamper:      req.WithDamper || code.WithDamper,
		Insulated:       req.Insulated || code.Insulated,
		Filter:          strings.TrimSpace(req.Filter),
		Finish:          finish,
		FinishColor:     color,
		Quantity:        req.Quantity,
		DiscountPct:     req.DiscountPct,
		Extrapolation:   1,
	}

	var damperPrice *float64
	if data.Table.Kind == model.TableKindOther {
		damperPrice, err = lookupOther(data, b)
	} else {
		if b.RequestedHeight <= 0 {
			return nil, invalid("height", "must be positive, got %v", req.Height)
		}
		damperPrice, err = lookupStandard(data, b)
	}
	if err != nil {
		return nil, err
	}

	// 公式中的尺寸为取价尺寸；Other 表按标签取价时没有取价尺寸，退回请求尺寸
	width, height := b.Width, b.Height
	if width == 0 {
		width = b.RequestedWidth
	}
	if height == 0 {
		height = b.RequestedHeight
	}
	vars := equation.Bindings{
		"TB":     b.TB,
		"WIDTH":  width,
		"HEIGHT": height,
		"w":      width,
		"h":      height,
	}
	b.BP, err = applyModifier(data.Table.BaseModifier, vars, "TB")
	if err != nil {
		return nil, fmt.Errorf("failed to apply base modifier of table %d: %w", b.TableID, err)
	}
	effective := b.BP

	if b.WithDamper {
		wd := b.TB
		if damperPrice != nil {
			wd = *damperPrice
		}
		b.WD = model.Float64Ptr(wd)
		vars["WD"] = wd
		vars["BP"] = b.BP
		mwd, err := applyModifier(data.Table.WDExpression, vars, "WD")
		if err != nil {
			return nil, fmt.Errorf("failed to apply wd expression of table %d: %w", b.TableID, err)
		}
		b.MWD = model.Float64Ptr(mwd)
		effective = mwd
	}

	b.FinishMultiplier = finish.Multiplier(data.Table, req.SpecialColorMultiplier)
	b.UnitPrice = effective * b.FinishMultiplier

	if b.Filter == "" {
		b.Filter = code.Filter
	}
	if (b.Filter != "" || b.Insulated) && b.RequestedHeight <= 0 {
		return nil, invalid("height", "width and height are required for filter or insulation")
	}
	if b.Filter != "" {
		b.FilterModel, b.FilterPrice, err = c.filterPrice(b.Filter, b.RequestedWidth, b.RequestedHeight)
		if err != nil {
			return nil, err
		}
		b.UnitPrice += b.FilterPrice
	}
	if b.Insulated {
		b.InsulationPrice = InsulationPrice(b.RequestedWidth, b.RequestedHeight)
		b.UnitPrice += b.InsulationPrice
	}
	b.LineTotal = b.UnitPrice * float64(req.Quantity)
	b.Final = b.LineTotal * (1 - req.DiscountPct/100)
	return b, nil
}

// applyModifier 计算修正公式：空公式返回 identity，纯数字表示 identity × n
func applyModifier(expr string, vars equation.Bindings, identity string) (float64, error) {
	e, err := equation.Compile(expr)
	if err != nil {
		return 0, err
	}
	if n, ok := e.IsConstant(); ok {
		return vars[identity] * n, nil
	}
	return e.EvalIdentity(vars, identity)
}

// nearest 就近取值，距离相等时取较大值；超过最大值时返回最大值并标记超限
func nearest(values []float64, v float64) (float64, bool) {
	last := values[len(values)-1]
	if v > last {
		return last, true
	}
	best := values[0]
	for _, x := range values[1:] {
		if d, bd := math.Abs(x-v), math.Abs(best-v); d < bd || (d == bd && x > best) {
			best = x
		}
	}
	return best, false
}

func distinctSorted(values []float64) []float64 {
	sort.Float64s(values)
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func lookupStandard(data *model.TableData, b *PriceBreakdown) (*float64, error) {
	if len(data.Cells) == 0 {
		return nil, &LookupError{Kind: LookupNoPriceForDimensions, Model: b.Model, Message: "price table has no cells"}
	}
	widths := make([]float64, 0, len(data.Cells))
	heights := make([]float64, 0, len(data.Cells))
	for _, c := range data.Cells {
		widths = append(widths, c.Width)
		heights = append(heights, c.Height)
	}
	b.Width, b.WidthExceeded = nearest(distinctSorted(widths), b.RequestedWidth)
	b.Height, b.HeightExceeded = nearest(distinctSorted(heights), b.RequestedHeight)

	var cell *model.PriceCell
	for i := range data.Cells {
		if data.Cells[i].Width == b.Width && data.Cells[i].Height == b.Height {
			cell = &data.Cells[i]
			break
		}
	}
	if cell == nil {
		return nil, &LookupError{
			Kind:    LookupNoPriceForDimensions,
			Model:   b.Model,
			Message: fmt.Sprintf("no price at %vx%v", b.Width, b.Height),
		}
	}

	normal, damper, err := extrapolation(data.Multipliers, b)
	if err != nil {
		return nil, err
	}
	b.Extrapolation = normal
	b.TB = cell.NormalPrice * normal
	if cell.PriceWithDamper == nil {
		return nil, nil
	}
	wd := *cell.PriceWithDamper * damper
	return &wd, nil
}

// extrapolation 超限乘数：宽度超限取该高度的列乘数，高度超限取该宽度的行乘数，两者都超限相乘
func extrapolation(multipliers []model.Multiplier, b *PriceBreakdown) (float64, float64, error) {
	normal, damper := 1.0, 1.0
	axes := []struct {
		exceeded  bool
		axis      model.Axis
		dimension float64
	}{
		{b.WidthExceeded, model.AxisColumn, b.Height},
		{b.HeightExceeded, model.AxisRow, b.Width},
	}
	for _, a := range axes {
		if !a.exceeded {
			continue
		}
		n, ok := findMultiplier(multipliers, a.axis, a.dimension, model.AppliesToNormal)
		if !ok {
			return 0, 0, &LookupError{
				Kind:    LookupNoPriceForDimensions,
				Model:   b.Model,
				Message: fmt.Sprintf("requested %vx%v exceeds the table and no %s multiplier is defined for %v", b.RequestedWidth, b.RequestedHeight, a.axis, a.dimension),
			}
		}
		d, ok := findMultiplier(multipliers, a.axis, a.dimension, model.AppliesToDamper)
		if !ok {
			d = n
		}
		normal *= n
		damper *= d
	}
	return normal, damper, nil
}

func findMultiplier(multipliers []model.Multiplier, axis model.Axis, dimension float64, applies model.AppliesTo) (float64, bool) {
	for _, m := range multipliers {
		if m.Axis == axis && m.Dimension == dimension && m.AppliesTo == applies {
			return m.Multiplier, true
		}
	}
	return 0, false
}

// lookupOther Other 表取价：行标签等于型号优先，否则按行尺寸就近匹配宽度；取该行第一个有价格的列
func lookupOther(data *model.TableData, b *PriceBreakdown) (*float64, error) {
	var rowLabel string
	for _, p := range data.Other {
		if strings.EqualFold(strings.TrimSpace(p.RowLabel), b.Model) {
			rowLabel = p.RowLabel
			break
		}
	}
	if rowLabel == "" {
		var sizes []float64
		bySize := map[float64]string{}
		for _, p := range data.Other {
			if p.Size == nil {
				continue
			}
			if _, ok := bySize[*p.Size]; !ok {
				bySize[*p.Size] = p.RowLabel
				sizes = append(sizes, *p.Size)
			}
		}
		if len(sizes) == 0 {
			return nil, &LookupError{Kind: LookupNoPriceForDimensions, Model: b.Model, Message: "price table has no sized rows"}
		}
		size, exceeded := nearest(distinctSorted(sizes), b.RequestedWidth)
		if exceeded {
			return nil, &LookupError{
				Kind:    LookupNoPriceForDimensions,
				Model:   b.Model,
				Message: fmt.Sprintf("requested size %v exceeds the largest size %v", b.RequestedWidth, size),
			}
		}
		rowLabel = bySize[size]
		b.Width = size
	}

	for _, p := range data.Other {
		if p.RowLabel != rowLabel {
			continue
		}
		b.RowLabel = p.RowLabel
		b.ColumnLabel = p.ColumnLabel
		b.TB = p.NormalPrice
		damper := p.PriceWithDamper
		if isPerFoot(p.ColumnLabel) {
			if b.RequestedHeight <= 0 {
				return nil, invalid("height", "length is required for price per foot")
			}
			b.PricePerFoot = true
			b.Height = b.RequestedHeight
			b.TB = p.NormalPrice * b.RequestedHeight / 12
			if damper != nil {
				damper = model.Float64Ptr(*damper * b.RequestedHeight / 12)
			}
		}
		return damper, nil
	}
	return nil, &LookupError{Kind: LookupNoPriceForDimensions, Model: b.Model, Message: fmt.Sprintf("no price in row %q", rowLabel)}
}

func isPerFoot(label string) bool {
	l := strings.ToLower(label)
	return strings.Contains(l, "ft") || strings.Contains(l, "foot")
}
