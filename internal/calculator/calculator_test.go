package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"pricebook/internal/equation"
	"pricebook/internal/model"
	"pricebook/internal/store"
)

type fakeCatalog struct {
	products map[string]model.Product
	tables   map[int]*model.TableData
}

func (f *fakeCatalog) ProductByModel(name string) (*model.Product, error) {
	p, ok := f.products[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("product %q: %w", name, store.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeCatalog) Products() ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) LoadTable(tableID int) (*model.TableData, error) {
	t, ok := f.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("price table %d: %w", tableID, store.ErrNotFound)
	}
	return t, nil
}

func (f *fakeCatalog) add(data model.TableData) {
	for _, m := range data.Table.Models {
		f.products[strings.ToLower(m)] = model.Product{TableID: data.Table.TableID, Model: m, SheetName: data.Table.SheetName}
	}
	d := data
	f.tables[data.Table.TableID] = &d
}

func cell(table int, w, h, price float64, damper ...float64) model.PriceCell {
	c := model.PriceCell{TableID: table, Width: w, Height: h, NormalPrice: price}
	if len(damper) > 0 {
		c.PriceWithDamper = model.Float64Ptr(damper[0])
	}
	return c
}

func table(id int, models ...string) model.PriceTable {
	t := model.NewPriceTable(id, "Sheet")
	t.Models = models
	return t
}

func newTestCalculator() *Calculator {
	cat := &fakeCatalog{products: map[string]model.Product{}, tables: map[int]*model.TableData{}}

	grille := table(1, "AG-1")
	grille.BaseModifier = "TB*1.2"
	grille.Anodized = 1.2
	grille.PowderCoated = 1.1
	cat.add(model.TableData{
		Table: grille,
		Cells: []model.PriceCell{
			cell(1, 12, 24, 70),
			cell(1, 24, 24, 90),
			cell(1, 12, 36, 80),
			cell(1, 24, 36, 100, 130),
		},
		Multipliers: []model.Multiplier{
			{TableID: 1, Axis: model.AxisColumn, Dimension: 36, Multiplier: 1.5, AppliesTo: model.AppliesToNormal},
			{TableID: 1, Axis: model.AxisColumn, Dimension: 36, Multiplier: 1.6, AppliesTo: model.AppliesToDamper},
			{TableID: 1, Axis: model.AxisRow, Dimension: 24, Multiplier: 1.4, AppliesTo: model.AppliesToNormal},
		},
	})

	damper := table(2, "VD-1")
	damper.WDExpression = "WD+5"
	cat.add(model.TableData{
		Table: damper,
		Cells: []model.PriceCell{
			cell(2, 4, 10, 10),
			cell(2, 6, 10, 20),
			cell(2, 8, 10, 30, 35),
		},
		Multipliers: []model.Multiplier{
			{TableID: 2, Axis: model.AxisColumn, Dimension: 10, Multiplier: 2, AppliesTo: model.AppliesToNormal},
		},
	})

	round := table(3, "RD-1", "RD-SPECIAL")
	round.Kind = model.TableKindOther
	cat.add(model.TableData{
		Table: round,
		Other: []model.OtherPrice{
			{TableID: 3, RowLabel: `6"`, ColumnLabel: "Price", Size: model.Float64Ptr(6), NormalPrice: 10},
			{TableID: 3, RowLabel: `8"`, ColumnLabel: "Price", Size: model.Float64Ptr(8), NormalPrice: 12},
			{TableID: 3, RowLabel: "RD-SPECIAL", ColumnLabel: "Price", NormalPrice: 50},
		},
	})

	linear := table(4, "LN-1")
	linear.Kind = model.TableKindOther
	cat.add(model.TableData{
		Table: linear,
		Other: []model.OtherPrice{
			{TableID: 4, RowLabel: `2"`, ColumnLabel: "Price / ft", Size: model.Float64Ptr(2), NormalPrice: 24},
		},
	})

	bad := table(5, "BAD-1")
	bad.BaseModifier = "TB*FOO"
	cat.add(model.TableData{Table: bad, Cells: []model.PriceCell{cell(5, 4, 4, 10)}})

	literal := table(6, "NUM-1")
	literal.BaseModifier = "2"
	literal.WDExpression = "1.5"
	cat.add(model.TableData{Table: literal, Cells: []model.PriceCell{cell(6, 4, 4, 10, 12)}})

	sized := table(7, "VAR-1")
	sized.BaseModifier = "TB + WIDTH*h"
	cat.add(model.TableData{Table: sized, Cells: []model.PriceCell{cell(7, 4, 4, 10)}})

	filter := table(8, "NYLON-F")
	filter.BaseModifier = "TB*2"
	cat.add(model.TableData{Table: filter, Cells: []model.PriceCell{
		cell(8, 24, 12, 15),
		cell(8, 36, 24, 25),
	}})

	return NewCalculator(cat, 0)
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPrice_EndToEnd(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	b, err := calc.Price(Request{
		Model:       "AG-1",
		Width:       24,
		Height:      36,
		Finish:      "Anodized",
		Quantity:    2,
		DiscountPct: 10,
	})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.TB != 100 || !near(b.BP, 120) || b.FinishMultiplier != 1.2 {
		t.Fatalf("TB/BP/finish = %v/%v/%v", b.TB, b.BP, b.FinishMultiplier)
	}
	if !near(b.UnitPrice, 144) || !near(b.LineTotal, 288) || !near(b.Final, 259.2) {
		t.Fatalf("unit/line/final = %v/%v/%v", b.UnitPrice, b.LineTotal, b.Final)
	}
	if b.MWD != nil || b.WD != nil {
		t.Fatalf("damper values set without damper: %+v", b)
	}
	if b.Finish != FinishAnodized {
		t.Fatalf("finish = %q", b.Finish)
	}
}

func TestPrice_NearestSizeRounding(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	tests := []struct {
		name      string
		width     float64
		wantWidth float64
		wantTB    float64
		exceeded  bool
	}{
		{name: "exact", width: 6, wantWidth: 6, wantTB: 20},
		{name: "tie rounds up", width: 7, wantWidth: 8, wantTB: 30},
		{name: "tie between lowest sizes", width: 5, wantWidth: 6, wantTB: 20},
		{name: "closer to smaller", width: 6.4, wantWidth: 6, wantTB: 20},
		{name: "below minimum", width: 1, wantWidth: 4, wantTB: 10},
		{name: "above maximum extrapolates", width: 9, wantWidth: 8, wantTB: 60, exceeded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := calc.Price(Request{Model: "VD-1", Width: tt.width, Height: 10, Quantity: 1})
			if err != nil {
				t.Fatalf("Price: %v", err)
			}
			if b.Width != tt.wantWidth || b.TB != tt.wantTB || b.WidthExceeded != tt.exceeded {
				t.Fatalf("width=%v TB=%v exceeded=%v, want %v/%v/%v", b.Width, b.TB, b.WidthExceeded, tt.wantWidth, tt.wantTB, tt.exceeded)
			}
		})
	}
}

func TestPrice_Extrapolation(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	tests := []struct {
		name       string
		width      float64
		height     float64
		withDamper bool
		wantTB     float64
		wantWD     float64
	}{
		{name: "width over", width: 30, height: 36, wantTB: 150},
		{name: "width over with damper", width: 30, height: 36, withDamper: true, wantTB: 150, wantWD: 208},
		{name: "height over", width: 24, height: 40, wantTB: 140},
		{name: "height over damper falls back to normal multiplier", width: 24, height: 40, withDamper: true, wantTB: 140, wantWD: 182},
		{name: "both over", width: 30, height: 40, wantTB: 210},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := calc.Price(Request{Model: "AG-1", Width: tt.width, Height: tt.height, WithDamper: tt.withDamper, Quantity: 1})
			if err != nil {
				t.Fatalf("Price: %v", err)
			}
			if !near(b.TB, tt.wantTB) {
				t.Fatalf("TB = %v, want %v", b.TB, tt.wantTB)
			}
			if tt.withDamper && (b.WD == nil || !near(*b.WD, tt.wantWD)) {
				t.Fatalf("WD = %v, want %v", b.WD, tt.wantWD)
			}
		})
	}

	_, err := calc.Price(Request{Model: "AG-1", Width: 12, Height: 40, Quantity: 1})
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != LookupNoPriceForDimensions {
		t.Fatalf("missing multiplier: err = %v", err)
	}
}

func TestPrice_Damper(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()

	b, err := calc.Price(Request{Model: "VD-1 (WD)", Width: 8, Height: 10, Quantity: 1})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	// TB 始终为普通价，带阻尼价只进入 WD
	if !b.WithDamper || b.TB != 30 || b.BP != 30 || b.WD == nil || *b.WD != 35 || b.MWD == nil || *b.MWD != 40 || b.UnitPrice != 40 {
		t.Fatalf("damper breakdown = %+v", b)
	}

	b, err = calc.Price(Request{Model: "VD-1", Width: 6, Height: 10, WithDamper: true, Quantity: 1})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if *b.WD != 20 || *b.MWD != 25 {
		t.Fatalf("missing damper price should fall back to TB: %+v", b)
	}
}

func TestPrice_ModifierLiteralsAndVariables(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()

	b, err := calc.Price(Request{Model: "NUM-1", Width: 4, Height: 4, WithDamper: true, Quantity: 1})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.BP != 20 || *b.MWD != 18 {
		t.Fatalf("literal modifiers: BP=%v MWD=%v", b.BP, *b.MWD)
	}

	// 公式变量取就近后的取价尺寸
	for _, w := range []float64{3, 3.9} {
		b, err = calc.Price(Request{Model: "VAR-1", Width: w, Height: 4, Quantity: 1})
		if err != nil {
			t.Fatalf("Price(%v): %v", w, err)
		}
		if b.RequestedWidth != w || b.Width != 4 || !near(b.BP, 26) {
			t.Fatalf("width %v: resolved=%v BP=%v, want 4 and TB + WIDTH*h = 26", w, b.Width, b.BP)
		}
	}
}

func TestPrice_Units(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	tests := []struct {
		unit          string
		width, height float64
	}{
		{"", 24, 36},
		{"Inches", 24, 36},
		{"mm", 600, 900},
		{"millimetres", 600, 900},
		{"CM", 60, 90},
		{"m", 0.6, 0.9},
		{"feet", 2, 3},
	}

	for _, tt := range tests {
		b, err := calc.Price(Request{Model: "AG-1", Width: tt.width, Height: tt.height, Unit: tt.unit, Quantity: 1})
		if err != nil {
			t.Fatalf("%s: Price: %v", tt.unit, err)
		}
		if !near(b.RequestedWidth, 24) || !near(b.RequestedHeight, 36) || b.TB != 100 {
			t.Fatalf("%s: requested %vx%v TB=%v", tt.unit, b.RequestedWidth, b.RequestedHeight, b.TB)
		}
	}
}

func TestPrice_Finishes(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	tests := []struct {
		finish  string
		special float64
		want    float64
	}{
		{"", 0, 1},
		{"Powder Coated - RAL 9010", 0, 1.1},
		{"special color", 0, 1},
		{"Special Color", 1.3, 1.3},
	}
	for _, tt := range tests {
		b, err := calc.Price(Request{Model: "AG-1", Width: 24, Height: 36, Finish: tt.finish, SpecialColorMultiplier: tt.special, Quantity: 1})
		if err != nil {
			t.Fatalf("%q: Price: %v", tt.finish, err)
		}
		if b.FinishMultiplier != tt.want {
			t.Fatalf("%q: multiplier = %v, want %v", tt.finish, b.FinishMultiplier, tt.want)
		}
	}
}

func TestPrice_OtherTables(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()

	b, err := calc.Price(Request{Model: "RD-1", Width: 7, Quantity: 1})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.RowLabel != `8"` || b.TB != 12 {
		t.Fatalf("sized row = %+v", b)
	}

	b, err = calc.Price(Request{Model: "rd-special", Width: 6, Quantity: 1})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.RowLabel != "RD-SPECIAL" || b.TB != 50 {
		t.Fatalf("labelled row = %+v", b)
	}

	b, err = calc.Price(Request{Model: "LN-1", Width: 2, Height: 36, Quantity: 1})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !b.PricePerFoot || b.TB != 72 {
		t.Fatalf("per foot = %+v", b)
	}

	_, err = calc.Price(Request{Model: "RD-1", Width: 20, Quantity: 1})
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != LookupNoPriceForDimensions {
		t.Fatalf("oversized other row: err = %v", err)
	}
}

func TestPrice_Errors(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	valid := Request{Model: "AG-1", Width: 24, Height: 36, Quantity: 1}

	tests := []struct {
		name   string
		modify func(r *Request)
		check  func(err error) bool
	}{
		{
			name:   "unknown model",
			modify: func(r *Request) { r.Model = "UNKNOWN-X" },
			check: func(err error) bool {
				var le *LookupError
				return errors.As(err, &le) && le.Kind == LookupProductNotFound && errors.Is(err, ErrLookup)
			},
		},
		{
			name:   "negative discount",
			modify: func(r *Request) { r.DiscountPct = -5 },
			check:  func(err error) bool { return errors.Is(err, ErrValidation) },
		},
		{
			name:   "discount over 100",
			modify: func(r *Request) { r.DiscountPct = 101 },
			check:  func(err error) bool { return errors.Is(err, ErrValidation) },
		},
		{
			name:   "zero quantity",
			modify: func(r *Request) { r.Quantity = 0 },
			check:  func(err error) bool { return errors.Is(err, ErrValidation) },
		},
		{
			name:   "zero width",
			modify: func(r *Request) { r.Width = 0 },
			check:  func(err error) bool { return errors.Is(err, ErrValidation) },
		},
		{
			name:   "missing height on standard table",
			modify: func(r *Request) { r.Height = 0 },
			check:  func(err error) bool { return errors.Is(err, ErrValidation) },
		},
		{
			name:   "unknown unit",
			modify: func(r *Request) { r.Unit = "furlong" },
			check:  func(err error) bool { return errors.Is(err, ErrValidation) },
		},
		{
			name:   "unknown finish",
			modify: func(r *Request) { r.Finish = "gold leaf" },
			check:  func(err error) bool { return errors.Is(err, ErrValidation) },
		},
		{
			name:   "bad modifier",
			modify: func(r *Request) { r.Model = "BAD-1"; r.Width = 4; r.Height = 4 },
			check: func(err error) bool {
				var ee *equation.EquationError
				return errors.As(err, &ee) && ee.Kind == equation.KindUnknownVariable
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.modify(&req)
			b, err := calc.Price(req)
			if err == nil || b != nil {
				t.Fatalf("expected error, got %+v", b)
			}
			if !tt.check(err) {
				t.Fatalf("unexpected error: %T %v", err, err)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()

	opts, err := calc.Options("AG-1")
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if !opts.HasDamperOption || len(opts.Finishes) != 4 {
		t.Fatalf("options = %+v", opts)
	}
	if opts.Finishes[1].Finish != FinishAnodized || opts.Finishes[1].Multiplier != 1.2 {
		t.Fatalf("finishes = %+v", opts.Finishes)
	}
	if len(opts.Widths) != 2 || opts.Widths[0] != 12 || len(opts.Heights) != 2 {
		t.Fatalf("sizes = %v x %v", opts.Widths, opts.Heights)
	}

	opts, err = calc.Options("RD-1")
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.HasDamperOption || len(opts.RowLabels) != 3 {
		t.Fatalf("other options = %+v", opts)
	}

	if _, err := calc.Options("NOPE"); !errors.Is(err, ErrLookup) {
		t.Fatalf("unknown model: err = %v", err)
	}
}

func TestPrice_FilterAndInsulation(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()

	// 主价 120 + 过滤网 36x24 (25*2) + 保温层 24*36*0.15
	b, err := calc.Price(Request{Model: "AG-1(INS)+F.Nylon", Width: 24, Height: 36, Quantity: 2})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.Model != "AG-1" || !b.Insulated || b.Filter != "Nylon" || b.FilterModel != "NYLON-F" {
		t.Fatalf("flags = %+v", b)
	}
	if !near(b.FilterPrice, 50) || !near(b.InsulationPrice, 129.6) || !near(b.UnitPrice, 299.6) || !near(b.Final, 599.2) {
		t.Fatalf("filter/ins/unit/final = %v/%v/%v/%v", b.FilterPrice, b.InsulationPrice, b.UnitPrice, b.Final)
	}

	// 请求字段与型号后缀等价；保温层有最低价
	b, err = calc.Price(Request{Model: "AG-1", Width: 12, Height: 24, Quantity: 1, Insulated: true})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.InsulationPrice != InsulationMinimum || !near(b.UnitPrice, 84+InsulationMinimum) {
		t.Fatalf("insulation minimum: ins=%v unit=%v", b.InsulationPrice, b.UnitPrice)
	}

	_, err = calc.Price(Request{Model: "AG-1", Filter: "Carbon", Width: 24, Height: 36, Quantity: 1})
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) || lookupErr.Kind != LookupFilterNotFound {
		t.Fatalf("unknown filter err = %v", err)
	}

	_, err = calc.Price(Request{Model: "RD-1+F.Nylon", Width: 6, Quantity: 1})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "height" {
		t.Fatalf("filter without height err = %v", err)
	}
}
