package calculator

import (
	"errors"

	"pricebook/internal/model"
	"pricebook/internal/store"
)

// FinishOption 可选表面处理及其乘数
type FinishOption struct {
	Finish     Finish  `json:"finish"`
	Multiplier float64 `json:"multiplier"`
}

// ProductOptions 型号可选项
type ProductOptions struct {
	Model           string          `json:"model"`
	TableID         int             `json:"tableId"`
	TableKind       model.TableKind `json:"tableKind"`
	Finishes        []FinishOption  `json:"finishes"`
	HasDamperOption bool            `json:"hasDamperOption"`
	Widths          []float64       `json:"widths,omitempty"`
	Heights         []float64       `json:"heights,omitempty"`
	RowLabels       []string        `json:"rowLabels,omitempty"`
}

// Models 列出所有可计价型号
func (c *Calculator) Models() ([]model.Product, error) {
	return c.catalog.Products()
}

// Options 返回型号的表面处理、阻尼选项和可用尺寸
func (c *Calculator) Options(name string) (*ProductOptions, error) {
	name, _ = ParseModelFlags(name)
	product, err := c.catalog.ProductByModel(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &LookupError{Kind: LookupProductNotFound, Model: name, Message: "model is not in the price list"}
		}
		return nil, err
	}
	data, err := c.catalog.LoadTable(product.TableID)
	if err != nil {
		return nil, err
	}

	opts := &ProductOptions{
		Model:           product.Model,
		TableID:         product.TableID,
		TableKind:       data.Table.Kind,
		HasDamperOption: data.Table.WDExpression != "",
	}
	for _, f := range AllFinishes {
		opts.Finishes = append(opts.Finishes, FinishOption{Finish: f, Multiplier: f.Multiplier(data.Table, 0)})
	}

	var widths, heights []float64
	for _, cell := range data.Cells {
		widths = append(widths, cell.Width)
		heights = append(heights, cell.Height)
		if cell.PriceWithDamper != nil {
			opts.HasDamperOption = true
		}
	}
	if len(widths) > 0 {
		opts.Widths = distinctSorted(widths)
		opts.Heights = distinctSorted(heights)
	}

	seen := map[string]bool{}
	for _, p := range data.Other {
		if p.PriceWithDamper != nil {
			opts.HasDamperOption = true
		}
		if !seen[p.RowLabel] {
			seen[p.RowLabel] = true
			opts.RowLabels = append(opts.RowLabels, p.RowLabel)
		}
	}
	return opts, nil
}
