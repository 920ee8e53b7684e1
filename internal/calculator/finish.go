package calculator

import (
	"strings"

	"pricebook/internal/model"
)

// Finish 表面处理
type Finish string

const (
	FinishNone         Finish = "No Finish"
	FinishAnodized     Finish = "Anodized Aluminum"
	FinishPowderCoated Finish = "Powder Coated"
	FinishSpecialColor Finish = "Special Color"
)

// AllFinishes 全部表面处理，按展示顺序
var AllFinishes = []Finish{FinishNone, FinishAnodized, FinishPowderCoated, FinishSpecialColor}

// ParseFinish 按关键词识别表面处理。"Powder Coated - RAL 9010" 中 " - " 之后的部分作为颜色返回。
// 空串为 No Finish。
func ParseFinish(text string) (Finish, string, bool) {
	name, color, _ := strings.Cut(text, " - ")
	color = strings.TrimSpace(color)
	t := strings.ToLower(strings.TrimSpace(name))

	switch {
	case t == "" || t == "none" || strings.Contains(t, "no finish") ||
		strings.Contains(t, "unfinished") || strings.Contains(t, "raw") || strings.Contains(t, "mill"):
		return FinishNone, color, true
	case t == "pc" || strings.Contains(t, "powder") || strings.Contains(t, "coated"):
		return FinishPowderCoated, color, true
	case strings.Contains(t, "anodi") || strings.Contains(t, "alumin"):
		return FinishAnodized, color, true
	case t == "sc" || strings.Contains(t, "special") || strings.Contains(t, "custom") ||
		strings.Contains(t, "color") || strings.Contains(t, "colour"):
		return FinishSpecialColor, color, true
	}
	return "", "", false
}

// Multiplier 表面处理乘数；Special Color 优先使用调用方给出的乘数
func (f Finish) Multiplier(t model.PriceTable, special float64) float64 {
	switch f {
	case FinishAnodized:
		return t.Anodized
	case FinishPowderCoated:
		return t.PowderCoated
	case FinishSpecialColor:
		if special > 0 {
			return special
		}
		return t.SpecialColor
	default:
		return t.NoFinish
	}
}
