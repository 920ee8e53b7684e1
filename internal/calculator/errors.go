package calculator

import (
	"errors"
	"fmt"
)

var (
	// ErrLookup 型号或价格不存在
	ErrLookup = errors.New("price lookup failed")
	// ErrValidation 请求参数不合法
	ErrValidation = errors.New("invalid price request")
)

// LookupKind 查找失败类型
type LookupKind string

const (
	LookupProductNotFound      LookupKind = "product_not_found"
	LookupNoPriceForDimensions LookupKind = "no_price_for_dimensions"
	LookupFilterNotFound       LookupKind = "filter_not_found"
)

// LookupError 型号不存在或在解析后的尺寸上没有价格
type LookupError struct {
	Kind    LookupKind
	Model   string
	Message string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Model, e.Message)
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}

// ValidationError 请求字段不合法，不会进入计价
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
