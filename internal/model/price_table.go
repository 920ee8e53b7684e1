package model

// TableKind 价格表类型
type TableKind string

const (
	TableKindStandard TableKind = "standard" // 宽×高尺寸矩阵
	TableKindOther    TableKind = "other"    // 行/列文本标签矩阵
)

// Axis 超限乘数所在方向
type Axis string

const (
	AxisRow    Axis = "row"    // 矩阵下方的乘数行，按宽度索引，高度超限时使用
	AxisColumn Axis = "column" // 矩阵右侧的乘数列，按高度索引，宽度超限时使用
)

// AppliesTo 乘数作用的价格
type AppliesTo string

const (
	AppliesToNormal AppliesTo = "normal"
	AppliesToDamper AppliesTo = "damper"
)

// PriceTable 价格表（Header 表中的一行）
type PriceTable struct {
	TableID      int       `json:"tableId"`
	SheetName    string    `json:"sheetName"`
	Kind         TableKind `json:"kind"`
	Label        string    `json:"label,omitempty"`
	Models       []string  `json:"models"`
	BaseModifier string    `json:"baseModifier"`
	WDExpression string    `json:"wdExpression"`
	Anodized     float64   `json:"anodized"`
	PowderCoated float64   `json:"powderCoated"`
	NoFinish     float64   `json:"noFinish"`
	SpecialColor float64   `json:"specialColor"`
}

// DefaultFinishMultiplier 未声明的表面处理乘数
const DefaultFinishMultiplier = 1.0

// NewPriceTable 创建带默认乘数的价格表
func NewPriceTable(tableID int, sheetName string) PriceTable {
	return PriceTable{
		TableID:      tableID,
		SheetName:    sheetName,
		Kind:         TableKindStandard,
		Anodized:     DefaultFinishMultiplier,
		PowderCoated: DefaultFinishMultiplier,
		NoFinish:     DefaultFinishMultiplier,
		SpecialColor: DefaultFinishMultiplier,
	}
}

// PriceCell 价格单元格，(TableID, Width, Height) 唯一
type PriceCell struct {
	TableID         int      `json:"tableId"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	NormalPrice     float64  `json:"normalPrice"`
	PriceWithDamper *float64 `json:"priceWithDamper,omitempty"`
}

// Multiplier 超出矩阵范围时的乘数
type Multiplier struct {
	TableID    int       `json:"tableId"`
	Axis       Axis      `json:"axis"`
	Dimension  float64   `json:"dimension"` // AxisRow 为宽度，AxisColumn 为高度
	Multiplier float64   `json:"multiplier"`
	AppliesTo  AppliesTo `json:"appliesTo"`
}

// OtherPrice Other 类型价格表的单元格，按 (RowLabel, ColumnLabel) 索引
type OtherPrice struct {
	TableID         int      `json:"tableId"`
	RowLabel        string   `json:"rowLabel"`
	ColumnLabel     string   `json:"columnLabel"`
	Size            *float64 `json:"size,omitempty"` // 行标签可解析为尺寸时的英寸值
	NormalPrice     float64  `json:"normalPrice"`
	PriceWithDamper *float64 `json:"priceWithDamper,omitempty"`
}

// Product 型号，对外的计价标识
type Product struct {
	ProductID int64  `json:"productId"`
	TableID   int    `json:"tableId"`
	Model     string `json:"model"`
	SheetName string `json:"sheetName"`
}

// TableData 一张价格表及其全部单元格
type TableData struct {
	Table       PriceTable   `json:"table"`
	Cells       []PriceCell  `json:"cells"`
	Multipliers []Multiplier `json:"multipliers"`
	Other       []OtherPrice `json:"other,omitempty"`
}

// Catalog 一次导入生成的完整目录
type Catalog struct {
	Tables   []TableData `json:"tables"`
	Products []Product   `json:"products"`
}

// Float64Ptr 返回 v 的指针
func Float64Ptr(v float64) *float64 {
	return &v
}
