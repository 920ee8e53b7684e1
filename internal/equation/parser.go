package equation

// parser 递归下降解析器
//
//	expr    := term (('+' | '-') term)*
//	term    := unary (('*' | '/') unary)*
//	unary   := ('+' | '-') unary | primary
//	primary := number | variable | '(' expr ')'
type parser struct {
	src    string
	tokens []token
	pos    int
	depth  int
}

func parse(src string) (Node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, newError(src, tok.pos, KindSyntax, "unexpected %q", tok.text)
	}
	return node, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > MaxDepth {
		return newError(p.src, pos, KindTooComplex, "expression nests deeper than %d levels", MaxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOperator || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.text[0], Left: left, Right: right, Pos: tok.pos}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOperator || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.text[0], Left: left, Right: right, Pos: tok.pos}
	}
}

func (p *parser) parseUnary() (Node, error) {
	tok := p.peek()
	if tok.kind == tokOperator && (tok.text == "+" || tok.text == "-") {
		p.next()
		if err := p.enter(tok.pos); err != nil {
			return nil, err
		}
		defer p.leave()

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if tok.text == "+" {
			return operand, nil
		}
		// 一元负号表示为 0 - x，保持节点类型封闭
		return &Binary{Op: '-', Left: &Literal{Value: 0}, Right: operand, Pos: tok.pos}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &Literal{Value: tok.num}, nil
	case tokIdent:
		if !IsAllowedVariable(tok.text) {
			return nil, newError(p.src, tok.pos, KindUnknownVariable, "unknown variable %q", tok.text)
		}
		if next := p.peek(); next.kind == tokLParen {
			return nil, newError(p.src, next.pos, KindSyntax, "function calls are not supported")
		}
		return &Variable{Name: tok.text, Pos: tok.pos}, nil
	case tokLParen:
		if err := p.enter(tok.pos); err != nil {
			return nil, err
		}
		defer p.leave()

		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokRParen {
			return nil, newError(p.src, closing.pos, KindSyntax, "missing closing parenthesis")
		}
		return inner, nil
	case tokEOF:
		return nil, newError(p.src, tok.pos, KindSyntax, "unexpected end of expression")
	default:
		return nil, newError(p.src, tok.pos, KindSyntax, "unexpected %q", tok.text)
	}
}
