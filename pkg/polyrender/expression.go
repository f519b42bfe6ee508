package polyrender

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender/binding"
)

// ExpressionNode represents a node in the binding expression AST
type ExpressionNode interface {
	String() string
	Evaluate(s *scope) (interface{}, error)
}

// LiteralNode represents a literal value (string, number, boolean, null)
type LiteralNode struct {
	Value interface{}
}

func (n *LiteralNode) String() string {
	if str, ok := n.Value.(string); ok {
		return fmt.Sprintf("Literal(%q)", str)
	}
	return fmt.Sprintf("Literal(%v)", n.Value)
}

func (n *LiteralNode) Evaluate(s *scope) (interface{}, error) {
	return n.Value, nil
}

// PathNode references a context value by dotted path, e.g. user.address.city.
// A path that does not resolve yields its declared default.
type PathNode struct {
	Parts []string
}

func (n *PathNode) String() string {
	return fmt.Sprintf("Path(%s)", n.Name())
}

// Name returns the dotted form of the path.
func (n *PathNode) Name() string {
	return strings.Join(n.Parts, ".")
}

func (n *PathNode) Evaluate(s *scope) (interface{}, error) {
	return s.lookup(n.Parts), nil
}

// CallNode invokes a context callable, e.g. format(price) or user.greet().
type CallNode struct {
	Callee ExpressionNode
	Args   []ExpressionNode
}

func (n *CallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("Call(%s, [%s])", n.Callee.String(), strings.Join(args, ", "))
}

func (n *CallNode) Evaluate(s *scope) (interface{}, error) {
	fn, err := n.Callee.Evaluate(s)
	if err != nil {
		return nil, err
	}

	args := make([]interface{}, len(n.Args))
	for i, arg := range n.Args {
		val, err := arg.Evaluate(s)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate argument %d: %w", i, err)
		}
		args[i] = val
	}

	result, err := callValue(fn, args)
	if err != nil {
		if errors.Is(err, ErrNotCallable) {
			return nil, fmt.Errorf("%s: %w", calleeName(n.Callee), err)
		}
		return nil, err
	}
	return result, nil
}

func calleeName(n ExpressionNode) string {
	switch c := n.(type) {
	case *PathNode:
		return c.Name()
	case *AccessNode:
		return calleeName(c.Object) + "." + c.Field
	default:
		return c.String()
	}
}

// AccessNode reads a field from the result of a call or parenthesized expression.
type AccessNode struct {
	Object ExpressionNode
	Field  string
}

func (n *AccessNode) String() string {
	return fmt.Sprintf("Access(%s.%s)", n.Object.String(), n.Field)
}

func (n *AccessNode) Evaluate(s *scope) (interface{}, error) {
	obj, err := n.Object.Evaluate(s)
	if err != nil {
		return nil, err
	}
	val, _ := fieldOf(obj, n.Field)
	return val, nil
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Operator string
	Operand  ExpressionNode
}

func (n *UnaryOpNode) String() string {
	return fmt.Sprintf("UnaryOp(%s %s)", n.Operator, n.Operand.String())
}

func (n *UnaryOpNode) Evaluate(s *scope) (interface{}, error) {
	operandVal, err := n.Operand.Evaluate(s)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case "!":
		return !isTruthy(operandVal), nil
	case "-":
		return evaluateUnaryMinus(operandVal)
	default:
		return nil, fmt.Errorf("unknown unary operator: %s", n.Operator)
	}
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Left     ExpressionNode
	Operator string
	Right    ExpressionNode
}

func (n *BinaryOpNode) String() string {
	return fmt.Sprintf("BinaryOp(%s %s %s)", n.Left.String(), n.Operator, n.Right.String())
}

func (n *BinaryOpNode) Evaluate(s *scope) (interface{}, error) {
	leftVal, err := n.Left.Evaluate(s)
	if err != nil {
		return nil, err
	}

	// && and || short-circuit and yield one of their operands
	switch n.Operator {
	case "&&", "&":
		if !isTruthy(leftVal) {
			return leftVal, nil
		}
		return n.Right.Evaluate(s)
	case "||", "|":
		if isTruthy(leftVal) {
			return leftVal, nil
		}
		return n.Right.Evaluate(s)
	}

	rightVal, err := n.Right.Evaluate(s)
	if err != nil {
		return nil, err
	}

	return EvaluateBinaryOperation(leftVal, n.Operator, rightVal)
}

// BindingNode is one {{...}} or [[...]] slot. Source is the expression text between
// the delimiters; evaluation failures are reported against it.
type BindingNode struct {
	Source string
	Expr   ExpressionNode
}

func (n *BindingNode) String() string {
	return fmt.Sprintf("Binding(%s)", n.Expr.String())
}

func (n *BindingNode) Evaluate(s *scope) (interface{}, error) {
	val, err := n.Expr.Evaluate(s)
	if err != nil {
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) || errors.Is(err, ErrMaxDepthExceeded) {
			return nil, err
		}
		return nil, NewEvaluationError(n.Source, err)
	}
	return val, nil
}

// ConcatNode is the compiled form of a bindable string: literal runs and bindings in
// source order. A concat of exactly one part yields that part's raw value, so
// "{{items}}" evaluates to the slice itself while "a {{b}}" evaluates to a string.
type ConcatNode struct {
	Parts []ExpressionNode
}

func (n *ConcatNode) String() string {
	parts := make([]string, len(n.Parts))
	for i, part := range n.Parts {
		parts[i] = part.String()
	}
	return fmt.Sprintf("Concat(%s)", strings.Join(parts, ", "))
}

func (n *ConcatNode) Evaluate(s *scope) (interface{}, error) {
	switch len(n.Parts) {
	case 0:
		return "", nil
	case 1:
		return n.Parts[0].Evaluate(s)
	}

	var sb strings.Builder
	for _, part := range n.Parts {
		val, err := part.Evaluate(s)
		if err != nil {
			return nil, err
		}
		sb.WriteString(FormatValue(val))
	}
	return sb.String(), nil
}

// evaluateString evaluates e and formats the result for text or attribute output.
func evaluateString(e ExpressionNode, s *scope) (string, error) {
	val, err := e.Evaluate(s)
	if err != nil {
		return "", err
	}
	return FormatValue(val), nil
}

// ParseBindable splits text into literals and bindings and parses every binding.
// In strict mode a binding that does not parse is an error; otherwise it is kept as
// literal text.
func ParseBindable(text string, strict bool) (*ConcatNode, error) {
	concat := &ConcatNode{}
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			concat.Parts = append(concat.Parts, &LiteralNode{Value: literal.String()})
			literal.Reset()
		}
	}

	for _, seg := range binding.Extract(text) {
		if seg.Kind == binding.Literal {
			literal.WriteString(seg.Value)
			continue
		}

		expr, err := ParseExpression(seg.Value)
		if err != nil {
			if strict {
				return nil, NewParseError("invalid binding expression", seg.Raw, err)
			}
			Debug("Keeping unparsable binding %s as text: %v", seg.Raw, err)
			literal.WriteString(seg.Raw)
			continue
		}

		flush()
		concat.Parts = append(concat.Parts, &BindingNode{Source: seg.Value, Expr: expr})
	}
	flush()

	return concat, nil
}

// ExpressionToken represents a token in an expression
type ExpressionToken struct {
	Type  ExpressionTokenType
	Value string
	Pos   int
}

type ExpressionTokenType int

const (
	ExprTokenIdentifier ExpressionTokenType = iota
	ExprTokenNumber
	ExprTokenString
	ExprTokenOperator
	ExprTokenLeftParen
	ExprTokenRightParen
	ExprTokenComma
	ExprTokenDot
	ExprTokenEOF
)

var (
	identifierRegex  = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*`)
	numberRegex      = regexp.MustCompile(`^([0-9]+(\.[0-9]+)?|\.[0-9]+)`)
	stringRegex      = regexp.MustCompile(`^"([^"\\]|\\.)*"`)
	singleQuoteRegex = regexp.MustCompile(`^'([^'\\]|\\.)*'`)
	operatorRegex    = regexp.MustCompile(`^(===|!==|==|!=|<=|>=|&&|\|\||\+|\-|\*|\/|\%|\&|\||\!|<|>)`)
)

// TokenizeExpression tokenizes a binding expression
func TokenizeExpression(expr string) ([]ExpressionToken, error) {
	var tokens []ExpressionToken
	pos := 0

	for pos < len(expr) {
		switch expr[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
			continue
		}

		remaining := expr[pos:]

		if match := identifierRegex.FindString(remaining); match != "" {
			tokens = append(tokens, ExpressionToken{Type: ExprTokenIdentifier, Value: match, Pos: pos})
			pos += len(match)
			continue
		}

		if match := numberRegex.FindString(remaining); match != "" {
			value := match
			if value[0] == '.' {
				value = "0" + value
			}
			tokens = append(tokens, ExpressionToken{Type: ExprTokenNumber, Value: value, Pos: pos})
			pos += len(match)
			continue
		}

		if match := stringRegex.FindString(remaining); match != "" {
			value := match[1 : len(match)-1]
			value = strings.ReplaceAll(value, `\"`, `"`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{Type: ExprTokenString, Value: value, Pos: pos})
			pos += len(match)
			continue
		}

		if match := singleQuoteRegex.FindString(remaining); match != "" {
			value := match[1 : len(match)-1]
			value = strings.ReplaceAll(value, `\'`, `'`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			tokens = append(tokens, ExpressionToken{Type: ExprTokenString, Value: value, Pos: pos})
			pos += len(match)
			continue
		}

		if match := operatorRegex.FindString(remaining); match != "" {
			tokens = append(tokens, ExpressionToken{Type: ExprTokenOperator, Value: match, Pos: pos})
			pos += len(match)
			continue
		}

		switch expr[pos] {
		case '(':
			tokens = append(tokens, ExpressionToken{Type: ExprTokenLeftParen, Value: "(", Pos: pos})
		case ')':
			tokens = append(tokens, ExpressionToken{Type: ExprTokenRightParen, Value: ")", Pos: pos})
		case ',':
			tokens = append(tokens, ExpressionToken{Type: ExprTokenComma, Value: ",", Pos: pos})
		case '.':
			tokens = append(tokens, ExpressionToken{Type: ExprTokenDot, Value: ".", Pos: pos})
		default:
			return nil, fmt.Errorf("unexpected character '%c' at position %d", expr[pos], pos)
		}
		pos++
	}

	tokens = append(tokens, ExpressionToken{Type: ExprTokenEOF, Pos: pos})
	return tokens, nil
}

// ParseExpression parses a binding expression into an AST. The whole input must be
// consumed, so "name name2" is rejected.
func ParseExpression(expr string) (ExpressionNode, error) {
	tokens, err := TokenizeExpression(expr)
	if err != nil {
		return nil, err
	}

	parser := &ExpressionParser{tokens: tokens}

	node, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}

	if token := parser.current(); token.Type != ExprTokenEOF {
		return nil, fmt.Errorf("unexpected trailing token %q at position %d", token.Value, token.Pos)
	}

	return node, nil
}

// ExpressionParser parses expressions into AST nodes
type ExpressionParser struct {
	tokens []ExpressionToken
	pos    int
}

func (p *ExpressionParser) current() ExpressionToken {
	if p.pos >= len(p.tokens) {
		return ExpressionToken{Type: ExprTokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *ExpressionParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// atOperator reports whether the current token is one of ops.
func (p *ExpressionParser) atOperator(ops ...string) bool {
	token := p.current()
	if token.Type != ExprTokenOperator {
		return false
	}
	for _, op := range ops {
		if token.Value == op {
			return true
		}
	}
	return false
}

// binaryLevel parses a left-associative chain of ops over operands produced by next.
func (p *ExpressionParser) binaryLevel(next func() (ExpressionNode, error), ops ...string) (ExpressionNode, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for p.atOperator(ops...) {
		op := p.current().Value
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

func (p *ExpressionParser) parseExpression() (ExpressionNode, error) {
	return p.parseLogicalOr()
}

// parseLogicalOr parses logical OR expressions (lowest precedence)
func (p *ExpressionParser) parseLogicalOr() (ExpressionNode, error) {
	return p.binaryLevel(p.parseLogicalAnd, "||", "|")
}

func (p *ExpressionParser) parseLogicalAnd() (ExpressionNode, error) {
	return p.binaryLevel(p.parseEquality, "&&", "&")
}

func (p *ExpressionParser) parseEquality() (ExpressionNode, error) {
	return p.binaryLevel(p.parseComparison, "===", "!==", "==", "!=")
}

func (p *ExpressionParser) parseComparison() (ExpressionNode, error) {
	return p.binaryLevel(p.parseTerm, "<", ">", "<=", ">=")
}

func (p *ExpressionParser) parseTerm() (ExpressionNode, error) {
	return p.binaryLevel(p.parseFactor, "+", "-")
}

func (p *ExpressionParser) parseFactor() (ExpressionNode, error) {
	return p.binaryLevel(p.parseUnary, "*", "/", "%")
}

// parseUnary parses unary expressions (!, -)
func (p *ExpressionParser) parseUnary() (ExpressionNode, error) {
	if p.atOperator("!", "-") {
		op := p.current().Value
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: op, Operand: operand}, nil
	}

	return p.parsePostfix()
}

// parsePostfix parses calls and field access following a primary expression.
func (p *ExpressionParser) parsePostfix() (ExpressionNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().Type {
		case ExprTokenLeftParen:
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			left = &CallNode{Callee: left, Args: args}
		case ExprTokenDot:
			p.advance()
			if p.current().Type != ExprTokenIdentifier {
				return nil, fmt.Errorf("expected identifier after '.'")
			}
			field := p.current().Value
			p.advance()
			if path, ok := left.(*PathNode); ok {
				path.Parts = append(path.Parts, field)
				continue
			}
			left = &AccessNode{Object: left, Field: field}
		default:
			return left, nil
		}
	}
}

// parsePrimary parses literals, paths and parenthesized expressions
func (p *ExpressionParser) parsePrimary() (ExpressionNode, error) {
	token := p.current()

	switch token.Type {
	case ExprTokenNumber:
		p.advance()
		if intVal, err := strconv.Atoi(token.Value); err == nil {
			return &LiteralNode{Value: intVal}, nil
		}
		if floatVal, err := strconv.ParseFloat(token.Value, 64); err == nil {
			return &LiteralNode{Value: floatVal}, nil
		}
		return nil, fmt.Errorf("invalid number: %s", token.Value)

	case ExprTokenString:
		p.advance()
		return &LiteralNode{Value: token.Value}, nil

	case ExprTokenIdentifier:
		p.advance()
		switch token.Value {
		case "true":
			return &LiteralNode{Value: true}, nil
		case "false":
			return &LiteralNode{Value: false}, nil
		case "null", "undefined":
			return &LiteralNode{Value: nil}, nil
		}
		return &PathNode{Parts: []string{token.Value}}, nil

	case ExprTokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Type != ExprTokenRightParen {
			return nil, fmt.Errorf("expected ')' after expression")
		}
		p.advance()
		return &groupNode{expr}, nil

	case ExprTokenEOF:
		return nil, fmt.Errorf("unexpected end of expression")

	default:
		return nil, fmt.Errorf("unexpected token: %s", token.Value)
	}
}

// groupNode keeps a parenthesized path from absorbing a following ".field".
type groupNode struct {
	ExpressionNode
}

func (p *ExpressionParser) parseArguments() ([]ExpressionNode, error) {
	p.advance() // consume '('

	var args []ExpressionNode
	if p.current().Type == ExprTokenRightParen {
		p.advance()
		return args, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch p.current().Type {
		case ExprTokenComma:
			p.advance()
			continue
		case ExprTokenRightParen:
			p.advance()
			return args, nil
		}

		return nil, fmt.Errorf("expected ',' or ')' in function arguments")
	}
}

// EvaluateBinaryOperation evaluates a binary operation between two values
func EvaluateBinaryOperation(left interface{}, operator string, right interface{}) (interface{}, error) {
	switch operator {
	case "+":
		return evaluateAddition(left, right)
	case "-":
		return evaluateArithmetic(left, right, func(a, b float64) float64 { return a - b })
	case "*":
		return evaluateArithmetic(left, right, func(a, b float64) float64 { return a * b })
	case "/":
		return evaluateDivision(left, right)
	case "%":
		return evaluateModulo(left, right)
	case "==", "===":
		return evaluateEquals(left, right), nil
	case "!=", "!==":
		return !evaluateEquals(left, right), nil
	case "<", ">", "<=", ">=":
		return evaluateComparison(left, operator, right)
	case "&&", "&":
		if !isTruthy(left) {
			return left, nil
		}
		return right, nil
	case "||", "|":
		if isTruthy(left) {
			return left, nil
		}
		return right, nil
	default:
		return nil, fmt.Errorf("unknown binary operator: %s", operator)
	}
}

func evaluateAddition(left, right interface{}) (interface{}, error) {
	// string concatenation when either side is a string
	if leftStr, ok := left.(string); ok {
		return leftStr + FormatValue(right), nil
	}
	if rightStr, ok := right.(string); ok {
		return FormatValue(left) + rightStr, nil
	}
	return evaluateArithmetic(left, right, func(a, b float64) float64 { return a + b })
}

// evaluateArithmetic coerces both operands with toNumber, so a defaulted "" counts as 0
// and a non-numeric operand yields NaN.
func evaluateArithmetic(left, right interface{}, op func(a, b float64) float64) (interface{}, error) {
	result := op(toNumber(left), toNumber(right))
	if isInteger(left) && isInteger(right) {
		return int(result), nil
	}
	return result, nil
}

func evaluateDivision(left, right interface{}) (interface{}, error) {
	result := toNumber(left) / toNumber(right)
	if isInteger(left) && isInteger(right) && !math.IsInf(result, 0) && !math.IsNaN(result) && result == math.Trunc(result) {
		return int(result), nil
	}
	return result, nil
}

func evaluateModulo(left, right interface{}) (interface{}, error) {
	if leftInt, ok := left.(int); ok {
		if rightInt, ok := right.(int); ok && rightInt != 0 {
			return leftInt % rightInt, nil
		}
	}
	return math.Mod(toNumber(left), toNumber(right)), nil
}

func evaluateEquals(left, right interface{}) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}

	if leftNum, leftOk := toFloat64(left); leftOk {
		if rightNum, rightOk := toFloat64(right); rightOk {
			return leftNum == rightNum
		}
		return false
	}

	if !isComparable(left) || !isComparable(right) {
		return false
	}
	return left == right
}

// evaluateComparison compares two strings lexically and anything else numerically.
// A comparison involving NaN is false.
func evaluateComparison(left interface{}, operator string, right interface{}) (interface{}, error) {
	if leftStr, ok := left.(string); ok {
		if rightStr, ok := right.(string); ok {
			return compareResult(strings.Compare(leftStr, rightStr), operator), nil
		}
	}

	leftNum, rightNum := toNumber(left), toNumber(right)
	if math.IsNaN(leftNum) || math.IsNaN(rightNum) {
		return false, nil
	}

	cmp := 0
	if leftNum < rightNum {
		cmp = -1
	} else if leftNum > rightNum {
		cmp = 1
	}
	return compareResult(cmp, operator), nil
}

func compareResult(cmp int, operator string) bool {
	switch operator {
	case "<":
		return cmp < 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	default:
		return cmp >= 0
	}
}

func evaluateUnaryMinus(operand interface{}) (interface{}, error) {
	if isInteger(operand) {
		return -int(toNumber(operand)), nil
	}
	return -toNumber(operand), nil
}
