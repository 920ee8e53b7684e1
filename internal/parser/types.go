package parser

import "pricebook/internal/model"

// Layout 数据行间距
type Layout string

const (
	LayoutUnknown   Layout = "unknown"
	LayoutAdjacent  Layout = "adjacent"  // 数据行紧邻
	LayoutSeparated Layout = "separated" // 数据行之间隔一行（带阻尼价格或空行）
)

// WarningKind 非致命检测警告类型
type WarningKind string

const (
	WarnUnparsablePrice    WarningKind = "unparsable_price"
	WarnDuplicateCell      WarningKind = "duplicate_cell"
	WarnZeroCells          WarningKind = "zero_cells"
	WarnDuplicateModel     WarningKind = "duplicate_model"
	WarnUnboundTable       WarningKind = "unbound_table"
	WarnInvalidMultiplier  WarningKind = "invalid_multiplier"
	WarnInvalidExpression  WarningKind = "invalid_expression"
	WarnSkippedHeaderRow   WarningKind = "skipped_header_row"
	WarnDuplicateTableID   WarningKind = "duplicate_table_id"
	WarnInvalidTableID     WarningKind = "invalid_table_id"
	WarnDuplicateOtherCell WarningKind = "duplicate_other_cell"
)

// DetectionWarning 检测/导入过程中的非致命警告
type DetectionWarning struct {
	Kind    WarningKind `json:"kind"`
	Sheet   string      `json:"sheet,omitempty"`
	TableID int         `json:"tableId,omitempty"`
	Row     int         `json:"row,omitempty"` // 1 起始，0 表示不适用
	Col     int         `json:"col,omitempty"` // 1 起始，0 表示不适用
	Message string      `json:"message"`
}

// RawCell 检测到的尺寸矩阵单元格
type RawCell struct {
	Width           float64
	Height          float64
	NormalPrice     float64
	PriceWithDamper *float64
	Row             int
	Col             int
}

// RawMultiplier 检测到的超限乘数
type RawMultiplier struct {
	Axis       model.Axis
	Dimension  float64
	Multiplier float64
	AppliesTo  model.AppliesTo
}

// RawOtherCell 检测到的文本标签矩阵单元格
type RawOtherCell struct {
	RowLabel        string
	ColumnLabel     string
	Size            *float64
	NormalPrice     float64
	PriceWithDamper *float64
	Row             int
	Col             int
}

// RawTable 在一个 Sheet 中检测到的价格矩阵
type RawTable struct {
	Kind        model.TableKind
	Label       string
	StartRow    int // 表头行（0 起始）
	EndRow      int // 最后一行数据或伴随行（含）
	StartCol    int // 行标签列
	EndCol      int // 最后一个表头列（含）
	Layout      Layout
	Cells       []RawCell
	Multipliers []RawMultiplier
	OtherCells  []RawOtherCell
}

// CellCount 单元格数量（两种表类型通用）
func (t *RawTable) CellCount() int {
	return len(t.Cells) + len(t.OtherCells)
}

// Overlaps 判断两个表的行范围是否重叠
func (t *RawTable) Overlaps(o *RawTable) bool {
	return t.StartRow <= o.EndRow && o.StartRow <= t.EndRow &&
		t.StartCol <= o.EndCol && o.StartCol <= t.EndCol
}
