package equation

// Node 表达式树节点，仅有 Literal / Variable / Binary 三种
type Node interface {
	eval(vars Bindings, src string) (float64, error)
}

// Literal 数字常量
type Literal struct {
	Value float64
}

// Variable 变量引用，名称已在解析阶段通过白名单校验
type Variable struct {
	Name string
	Pos  int
}

// Binary 二元运算
type Binary struct {
	Op    byte
	Left  Node
	Right Node
	Pos   int
}

func (n *Literal) eval(Bindings, string) (float64, error) {
	return n.Value, nil
}

func (n *Variable) eval(vars Bindings, src string) (float64, error) {
	v, ok := vars[n.Name]
	if !ok {
		return 0, newError(src, n.Pos, KindUnboundVariable, "variable %s is not bound", n.Name)
	}
	return v, nil
}

func (n *Binary) eval(vars Bindings, src string) (float64, error) {
	left, err := n.Left.eval(vars, src)
	if err != nil {
		return 0, err
	}
	right, err := n.Right.eval(vars, src)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, newError(src, n.Pos, KindDivisionByZero, "division by zero")
		}
		return left / right, nil
	}
	return 0, newError(src, n.Pos, KindSyntax, "unknown operator %q", n.Op)
}
