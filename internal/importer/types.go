package importer

import (
	"time"

	"pricebook/internal/parser"
)

// IngestOptions 导入选项
type IngestOptions struct {
	FilePath           string
	Filename           string // 记录到导入报告的原始文件名，为空取 FilePath 的文件名
	HeaderSheet        string // Header 表名称，为空使用协调器默认值
	HeaderSearchWindow int    // Header 表头行搜索范围，<=0 使用协调器默认值
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/sheet_start/sheet_done/error/done
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// SheetResult 单个 Sheet 的处理结果
type SheetResult struct {
	SheetName      string           `json:"sheetName"`
	SheetType      parser.SheetType `json:"sheetType"`
	Entries        int              `json:"entries"`        // Header 中引用该 Sheet 的行数
	TablesDetected int              `json:"tablesDetected"` // 检测到的矩阵数
	TablesBound    int              `json:"tablesBound"`    // 绑定到 Header 行或隐式表的矩阵数
	Cells          int              `json:"cells"`
	Warnings       int              `json:"warnings"` // 该 Sheet 产生的警告数，明细见报告
	Duration       time.Duration    `json:"duration"`
}

// IngestionReport 导入报告
type IngestionReport struct {
	RunID              string                    `json:"runId"`
	Filename           string                    `json:"filename"`
	FileHash           string                    `json:"fileHash"`
	TablesDetected     int                       `json:"tablesDetected"`
	TablesWritten      int                       `json:"tablesWritten"`
	ProductsWritten    int                       `json:"productsWritten"`
	CellsWritten       int                       `json:"cellsWritten"`
	MultipliersWritten int                       `json:"multipliersWritten"`
	OtherCellsWritten  int                       `json:"otherCellsWritten"`
	Warnings           []parser.DetectionWarning `json:"warnings"`
	Sheets             []SheetResult             `json:"sheets"`
	Duration           time.Duration             `json:"duration"`
}
