package parser

// Field 规范字段名
type Field string

// Header 表字段
const (
	FieldTableID      Field = "table_id"
	FieldSheetName    Field = "sheet_name"
	FieldBaseModifier Field = "base_modifier"
	FieldNoFinish     Field = "no_finish"
	FieldSpecialColor Field = "special_color"
	FieldAnodized     Field = "anodized"
	FieldPowderCoated Field = "powder_coated"
	FieldWD           Field = "wd_expression"
	FieldModels       Field = "models"
)

// 报价导入表字段
const (
	FieldModel    Field = "model"
	FieldDetail   Field = "detail"
	FieldWidth    Field = "width"
	FieldHeight   Field = "height"
	FieldUnit     Field = "unit"
	FieldQuantity Field = "quantity"
	FieldFinish   Field = "finish"
	FieldDiscount Field = "discount"
)

// FieldKeywords 一个规范字段及其关键词（小写子串匹配）
type FieldKeywords struct {
	Field    Field
	Keywords []string
	Exclude  []string // 命中任一排除词则不匹配
}

// FieldSet 有序字段列表，靠前的字段优先匹配
type FieldSet []FieldKeywords

// HeaderFields Header 表的列关键词。
// powder_coated 必须排在 wd 之前（"powder" 包含 "wd"）。
var HeaderFields = FieldSet{
	{Field: FieldTableID, Keywords: []string{"table id", "table_id", "tableid", "table no", "table #"}},
	{Field: FieldSheetName, Keywords: []string{"sheet name", "sheet_name", "sheetname", "sheet"}},
	{Field: FieldBaseModifier, Keywords: []string{
		"tb modifier", "tb_modifier", "tbmodifier", "tb equation",
		"base price modifier", "base modifier", "base_modifier", "base equation",
		"bp modifier", "bp_modifier",
	}},
	{Field: FieldNoFinish, Keywords: []string{"no finish", "no_finish", "nofinish", "unfinished", "raw", "mill finish"}},
	{Field: FieldSpecialColor, Keywords: []string{"special color", "special colour", "special_color", "specialcolor"}},
	{Field: FieldAnodized, Keywords: []string{"anodized", "anodised", "aluminum", "aluminium"}},
	{Field: FieldPowderCoated, Keywords: []string{"powder coated", "powder_coated", "powdercoated", "powder", "coated"}},
	{Field: FieldWD, Keywords: []string{"with damper", "with_damper", "wd multiplier", "wd equation", "wd modifier", "damper", "wd"}},
	{Field: FieldModels, Keywords: []string{"product model", "models", "model", "product"}},
}

// QuoteFields 报价导入表的列关键词
var QuoteFields = FieldSet{
	{Field: FieldModel, Keywords: []string{"model"}},
	{Field: FieldDetail, Keywords: []string{"detail", "description"}},
	{Field: FieldWidth, Keywords: []string{"width"}},
	{Field: FieldHeight, Keywords: []string{"height"}},
	{Field: FieldDiscount, Keywords: []string{"discount"}},
	{Field: FieldUnit, Keywords: []string{"unit"}, Exclude: []string{"price", "cost"}},
	{Field: FieldQuantity, Keywords: []string{"quantity", "qty"}},
	{Field: FieldFinish, Keywords: []string{"finish"}},
}

// Match 返回单元格文本命中的第一个字段
func (fs FieldSet) Match(cell string) (Field, bool) {
	text := NormalizeColumnName(cell)
	if text == "" {
		return "", false
	}
	for _, fk := range fs {
		if ContainsAny(text, fk.Keywords) && !ContainsAny(text, fk.Exclude) {
			return fk.Field, true
		}
	}
	return "", false
}

// MapRow 将一行表头映射为 字段 -> 列索引；同一字段只取第一列
func (fs FieldSet) MapRow(row []string) map[Field]int {
	mapping := make(map[Field]int)
	for idx, cell := range row {
		field, ok := fs.Match(cell)
		if !ok {
			continue
		}
		if _, exists := mapping[field]; !exists {
			mapping[field] = idx
		}
	}
	return mapping
}
