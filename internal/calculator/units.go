package calculator

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit 尺寸单位
type Unit string

const (
	UnitInches      Unit = "inches"
	UnitMillimeters Unit = "mm"
	UnitCentimeters Unit = "cm"
	UnitMeters      Unit = "m"
	UnitFeet        Unit = "ft"
)

// DefaultMillimetersPerInch 价目表按 1 英寸 = 25 毫米折算
const DefaultMillimetersPerInch = 25.0

var unitAliases = map[string]Unit{
	"":            UnitInches,
	"in":          UnitInches,
	"inch":        UnitInches,
	"inches":      UnitInches,
	`"`:           UnitInches,
	"mm":          UnitMillimeters,
	"millimeter":  UnitMillimeters,
	"millimeters": UnitMillimeters,
	"millimetre":  UnitMillimeters,
	"millimetres": UnitMillimeters,
	"cm":          UnitCentimeters,
	"centimeter":  UnitCentimeters,
	"centimeters": UnitCentimeters,
	"centimetre":  UnitCentimeters,
	"centimetres": UnitCentimeters,
	"m":           UnitMeters,
	"meter":       UnitMeters,
	"meters":      UnitMeters,
	"metre":       UnitMeters,
	"metres":      UnitMeters,
	"ft":          UnitFeet,
	"foot":        UnitFeet,
	"feet":        UnitFeet,
	"'":           UnitFeet,
}

// ParseUnit 解析单位名称（大小写不敏感），空串为英寸
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}

// Units 单位换算
type Units struct {
	MillimetersPerInch float64
}

// NewUnits 创建单位换算，mmPerInch <= 0 时使用默认值
func NewUnits(mmPerInch float64) Units {
	if mmPerInch <= 0 {
		mmPerInch = DefaultMillimetersPerInch
	}
	return Units{MillimetersPerInch: mmPerInch}
}

// ToInches 换算为英寸
func (u Units) ToInches(v float64, unit Unit) float64 {
	switch unit {
	case UnitMillimeters:
		return v / u.MillimetersPerInch
	case UnitCentimeters:
		return v * 10 / u.MillimetersPerInch
	case UnitMeters:
		return v * 1000 / u.MillimetersPerInch
	case UnitFeet:
		return v * 12
	default:
		return v
	}
}

var dimensionValuePattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?|\.[0-9]+)\s*([A-Za-z"']*)$`)

// ParseDimensionValue 解析尺寸单元格，如 "550mm"、`3"`、"2 ft"、"12"。
// hasUnit 表示单元格自带单位。
func ParseDimensionValue(s string) (v float64, unit Unit, hasUnit bool, ok bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	m := dimensionValuePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false, false
	}
	if m[2] == "" {
		return v, UnitInches, false, true
	}
	unit, ok = ParseUnit(m[2])
	if !ok {
		return 0, "", false, false
	}
	return v, unit, true, true
}
