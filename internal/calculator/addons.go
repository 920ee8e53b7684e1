package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// 保温层加价：按面积计价，有最低价
const (
	InsulationRate    = 0.15 // 每平方英寸
	InsulationMinimum = 50.0
)

// ModelCode 报价单中的型号写法：型号 + "(WD)" / "(INS)" + "+F.<过滤网>"
type ModelCode struct {
	Model      string `json:"model"`
	WithDamper bool   `json:"withDamper,omitempty"`
	Insulated  bool   `json:"insulated,omitempty"`
	Filter     string `json:"filter,omitempty"`
}

// ParseModelCode 拆分型号后缀，后缀不区分大小写
func ParseModelCode(s string) ModelCode {
	name := strings.TrimSpace(s)
	var code ModelCode
	if i := strings.Index(strings.ToUpper(name), "+F."); i >= 0 {
		code.Filter = strings.TrimSpace(name[i+3:])
		name = strings.TrimSpace(name[:i])
	}
	for {
		switch {
		case hasSuffixFold(name, "(WD)"):
			code.WithDamper = true
			name = strings.TrimSpace(name[:len(name)-4])
			continue
		case hasSuffixFold(name, "(INS)"):
			code.Insulated = true
			name = strings.TrimSpace(name[:len(name)-5])
			continue
		}
		break
	}
	code.Model = name
	return code
}

// String 按标准顺序重新拼出型号写法
func (c ModelCode) String() string {
	s := c.Model
	if c.WithDamper {
		s += "(WD)"
	}
	if c.Insulated {
		s += "(INS)"
	}
	if c.Filter != "" {
		s += "+F." + c.Filter
	}
	return s
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// InsulationPrice 保温层单价
func InsulationPrice(width, height float64) float64 {
	return math.Max(width*height*InsulationRate, InsulationMinimum)
}

// filterPrice 过滤网单价：取第一个型号名包含过滤网名称的产品，按宽 >= 高的整数英寸取价，不含表面处理
func (c *Calculator) filterPrice(filter string, width, height float64) (string, float64, error) {
	products, err := c.catalog.Products()
	if err != nil {
		return "", 0, fmt.Errorf("failed to list products: %w", err)
	}
	want := strings.ToLower(filter)
	match := ""
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Model), want) {
			match = p.Model
			break
		}
	}
	if match == "" {
		return "", 0, &LookupError{Kind: LookupFilterNotFound, Model: filter, Message: "no filter product matches"}
	}

	fb, err := c.price(Request{
		Model:    match,
		Width:    math.Trunc(math.Max(width, height)),
		Height:   math.Trunc(math.Min(width, height)),
		Unit:     string(UnitInches),
		Quantity: 1,
	})
	if err != nil {
		var lookupErr *LookupError
		if errors.As(err, &lookupErr) {
			return "", 0, &LookupError{Kind: LookupFilterNotFound, Model: filter, Message: fmt.Sprintf("filter %s: %s", match, lookupErr.Message)}
		}
		return "", 0, fmt.Errorf("failed to price filter %s: %w", match, err)
	}
	return match, fb.UnitPrice, nil
}
