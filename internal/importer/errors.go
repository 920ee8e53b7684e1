package importer

import (
	"errors"
	"fmt"
)

// ErrorKind 导入失败类型
type ErrorKind string

const (
	ErrorHeaderMissing ErrorKind = "header_missing" // 找不到 Header 表
	ErrorHeaderInvalid ErrorKind = "header_invalid" // Header 表没有可识别的表头行
	ErrorSheetMissing  ErrorKind = "sheet_missing"  // Header 引用的 Sheet 不存在
	ErrorWorkbook      ErrorKind = "workbook"       // 工作簿无法打开或读取
	ErrorStore         ErrorKind = "store"          // 新版本价格库构建失败
)

// ErrIngestion 所有导入失败的哨兵错误
var ErrIngestion = errors.New("ingestion failed")

// IngestionError 导入失败。任何 IngestionError 都不会改动当前价格库。
type IngestionError struct {
	Kind  ErrorKind
	Sheet string
	Err   error
}

func (e *IngestionError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("ingestion failed (%s, sheet %q): %v", e.Kind, e.Sheet, e.Err)
	}
	return fmt.Sprintf("ingestion failed (%s): %v", e.Kind, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

func (e *IngestionError) Is(target error) bool {
	return target == ErrIngestion
}
