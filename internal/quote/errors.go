package quote

import (
	"errors"
	"fmt"
)

// ErrImport 报价导入整体失败
var ErrImport = errors.New("quote import failed")

// ImportErrorKind 导入失败类型
type ImportErrorKind string

const (
	ImportHeaderNotFound ImportErrorKind = "header_not_found"
	ImportWorkbook       ImportErrorKind = "workbook"
)

// ImportError 整个导入无法继续
type ImportError struct {
	Kind ImportErrorKind
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func (e *ImportError) Is(target error) bool {
	return target == ErrImport
}

// RowErrorKind 单行失败类型
type RowErrorKind string

const (
	RowProductNotFound  RowErrorKind = "product_not_found"
	RowMissingModel     RowErrorKind = "missing_model"
	RowMissingDimension RowErrorKind = "missing_dimension"
	RowInvalidNumber    RowErrorKind = "invalid_number"
	RowPricingFailed    RowErrorKind = "pricing_failed"
)

// ImportRowError 单行错误，不影响其余行
type ImportRowError struct {
	Row     int          `json:"row"` // 1 起始
	Kind    RowErrorKind `json:"kind"`
	Model   string       `json:"model,omitempty"`
	Message string       `json:"message"`
}

func (e *ImportRowError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Kind, e.Message)
	}
	return fmt.Sprintf("row %d: %s: %s: %s", e.Row, e.Kind, e.Model, e.Message)
}
