// Package equation 实现价格表中修正公式的受限四则运算引擎。
//
// 公式文本来自表格单元格，属于不可信输入：语法只包含数字、+ - * /、括号
// 以及固定白名单内的变量，不支持函数调用。
package equation

import (
	"strings"
)

const (
	// MaxExpressionLength 公式最大长度（字节）
	MaxExpressionLength = 1024
	// MaxDepth 括号与一元运算符的最大嵌套层数
	MaxDepth = 64

	// IdentityVariable 空公式默认返回的变量（表格原价）
	IdentityVariable = "TB"
)

// Bindings 变量绑定
type Bindings map[string]float64

// allowedVariables 变量白名单（区分大小写）
var allowedVariables = []string{"TB", "WD", "BP", "MWD", "WIDTH", "HEIGHT", "w", "h"}

// AllowedVariables 返回变量白名单副本
func AllowedVariables() []string {
	out := make([]string, len(allowedVariables))
	copy(out, allowedVariables)
	return out
}

// IsAllowedVariable 判断变量名是否在白名单内
func IsAllowedVariable(name string) bool {
	for _, v := range allowedVariables {
		if v == name {
			return true
		}
	}
	return false
}

// Expression 已解析的公式；root 为 nil 表示空公式（恒等）
type Expression struct {
	src  string
	root Node
}

// Compile 解析公式文本
func Compile(expr string) (*Expression, error) {
	if len(expr) > MaxExpressionLength {
		return nil, newError(expr[:32]+"...", -1, KindTooComplex,
			"expression is %d bytes, limit is %d", len(expr), MaxExpressionLength)
	}
	if strings.TrimSpace(expr) == "" {
		return &Expression{src: expr}, nil
	}
	root, err := parse(expr)
	if err != nil {
		return nil, err
	}
	return &Expression{src: expr, root: root}, nil
}

// MustCompile 解析失败时 panic，仅用于常量公式
func MustCompile(expr string) *Expression {
	e, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// String 返回原始公式文本
func (e *Expression) String() string {
	return e.src
}

// IsIdentity 空公式
func (e *Expression) IsIdentity() bool {
	return e.root == nil
}

// IsConstant 公式是否只是一个数字常量，例如 "1.2"
func (e *Expression) IsConstant() (float64, bool) {
	lit, ok := e.root.(*Literal)
	if !ok {
		return 0, false
	}
	return lit.Value, true
}

// Variables 返回公式引用的变量（去重，按首次出现顺序）
func (e *Expression) Variables() []string {
	var names []string
	seen := map[string]bool{}
	var walk func(n Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Variable:
			if !seen[v.Name] {
				seen[v.Name] = true
				names = append(names, v.Name)
			}
		case *Binary:
			walk(v.Left)
			walk(v.Right)
		}
	}
	if e.root != nil {
		walk(e.root)
	}
	return names
}

// Eval 求值；空公式返回 TB
func (e *Expression) Eval(vars Bindings) (float64, error) {
	return e.EvalIdentity(vars, IdentityVariable)
}

// EvalIdentity 求值；空公式返回 identity 变量的值
func (e *Expression) EvalIdentity(vars Bindings, identity string) (float64, error) {
	if e.root == nil {
		v, ok := vars[identity]
		if !ok {
			return 0, newError(e.src, -1, KindUnboundVariable, "variable %s is not bound", identity)
		}
		return v, nil
	}
	return e.root.eval(vars, e.src)
}

// Evaluate 解析并求值公式
func Evaluate(expr string, vars Bindings) (float64, error) {
	return EvaluateIdentity(expr, vars, IdentityVariable)
}

// EvaluateIdentity 解析并求值公式，空公式返回 identity 变量的值
func EvaluateIdentity(expr string, vars Bindings, identity string) (float64, error) {
	e, err := Compile(expr)
	if err != nil {
		return 0, err
	}
	return e.EvalIdentity(vars, identity)
}
