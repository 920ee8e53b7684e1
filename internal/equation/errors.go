package equation

import (
	"errors"
	"fmt"
)

// ErrEquation 所有表达式错误的哨兵，用于 errors.Is 判断
var ErrEquation = errors.New("equation error")

// ErrorKind 表达式错误类型
type ErrorKind string

const (
	KindSyntax          ErrorKind = "syntax"
	KindUnknownVariable ErrorKind = "unknown_variable"
	KindUnboundVariable ErrorKind = "unbound_variable"
	KindDivisionByZero  ErrorKind = "division_by_zero"
	KindTooComplex      ErrorKind = "too_complex"
)

// EquationError 表达式解析或求值失败
type EquationError struct {
	Expr string
	Pos  int // 出错位置（字节偏移），-1 表示无具体位置
	Kind ErrorKind
	Msg  string
}

func (e *EquationError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("equation %q: %s (%s at position %d)", e.Expr, e.Msg, e.Kind, e.Pos)
	}
	return fmt.Sprintf("equation %q: %s (%s)", e.Expr, e.Msg, e.Kind)
}

// Is 使 errors.Is(err, ErrEquation) 对所有表达式错误成立
func (e *EquationError) Is(target error) bool {
	return target == ErrEquation
}

func newError(expr string, pos int, kind ErrorKind, format string, args ...any) *EquationError {
	return &EquationError{
		Expr: expr,
		Pos:  pos,
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	}
}
