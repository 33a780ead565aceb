package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr/ast"
)

// SQLBuilder converts parsed expressions to portable SQL with "?"
// placeholders.
type SQLBuilder struct {
	fields Schema
}

// NewSQLBuilder creates a new SQL builder.
func NewSQLBuilder(fields Schema) *SQLBuilder {
	return &SQLBuilder{fields: fields}
}

// BuildResult contains the generated SQL and parameters.
type BuildResult struct {
	SQL  string
	Args []any
}

// Build generates a WHERE fragment from a parsed query.
func (b *SQLBuilder) Build(pq *ParsedQuery) (*BuildResult, error) {
	v := &sqlVisitor{
		fields: b.fields,
		args:   make([]any, 0),
	}

	node := pq.Node()
	sql, err := v.visit(&node)
	if err != nil {
		return nil, err
	}

	return &BuildResult{SQL: sql, Args: v.args}, nil
}

// Compile parses expression against fields and returns it as a predicate.
func Compile(fields Schema, expression string) (*Predicate, error) {
	pq, err := NewQueryDSL(fields).Parse(expression)
	if err != nil {
		return nil, err
	}
	res, err := NewSQLBuilder(fields).Build(pq)
	if err != nil {
		return nil, err
	}
	return Raw(res.SQL, res.Args...), nil
}

type sqlVisitor struct {
	fields Schema
	args   []any
}

func (v *sqlVisitor) visit(node *ast.Node) (string, error) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		return v.visitBinary(n)
	case *ast.UnaryNode:
		return v.visitUnary(n)
	case *ast.IdentifierNode:
		return v.visitIdentifier(n)
	case *ast.StringNode:
		v.args = append(v.args, strings.ToLower(n.Value))
		return "?", nil
	case *ast.IntegerNode:
		v.args = append(v.args, n.Value)
		return "?", nil
	case *ast.FloatNode:
		v.args = append(v.args, n.Value)
		return "?", nil
	case *ast.BoolNode:
		v.args = append(v.args, n.Value)
		return "?", nil
	case *ast.ArrayNode:
		return v.visitArray(n)
	case *ast.ConstantNode:
		return v.visitConstant(n)
	case *ast.CallNode:
		callee, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return "", fmt.Errorf("unsupported callee type")
		}
		return v.visitFunc(callee.Value, n.Arguments)
	case *ast.BuiltinNode:
		return v.visitFunc(n.Name, n.Arguments)
	default:
		return "", fmt.Errorf("unsupported node type: %T", n)
	}
}

func (v *sqlVisitor) visitBinary(n *ast.BinaryNode) (string, error) {
	if v.isStringMethodCall(n) {
		return v.handleStringMethod(n)
	}
	if _, ok := n.Right.(*ast.NilNode); ok {
		return v.handleNil(n)
	}
	if field, ok := v.timeField(n.Left); ok {
		return v.handleTime(field, n)
	}

	left, err := v.visit(&n.Left)
	if err != nil {
		return "", err
	}
	right, err := v.visit(&n.Right)
	if err != nil {
		return "", err
	}

	if v.isStringField(n.Left) && (n.Operator == "==" || n.Operator == "!=" || n.Operator == "in") {
		left = fmt.Sprintf("lower(%s)", left)
	}

	if n.Operator == "in" {
		return fmt.Sprintf("%s IN %s", left, right), nil
	}

	op, err := v.mapOperator(n.Operator)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

func (v *sqlVisitor) visitUnary(n *ast.UnaryNode) (string, error) {
	operand, err := v.visit(&n.Node)
	if err != nil {
		return "", err
	}

	switch n.Operator {
	case "not", "!":
		return fmt.Sprintf("NOT (%s)", operand), nil
	case "-":
		return fmt.Sprintf("-%s", operand), nil
	default:
		return "", fmt.Errorf("unsupported unary operator: %s", n.Operator)
	}
}

func (v *sqlVisitor) visitIdentifier(n *ast.IdentifierNode) (string, error) {
	if field, ok := v.fields[n.Value]; ok {
		return field.Column, nil
	}
	return "", fmt.Errorf("unknown field: %s", n.Value)
}

func (v *sqlVisitor) visitArray(n *ast.ArrayNode) (string, error) {
	parts := make([]string, len(n.Nodes))
	for i := range n.Nodes {
		sql, err := v.visit(&n.Nodes[i])
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", ")), nil
}

func (v *sqlVisitor) visitConstant(n *ast.ConstantNode) (string, error) {
	// expr folds literal arrays into constants, and "in" arrays into sets.
	switch val := n.Value.(type) {
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			if s, ok := item.(string); ok {
				item = strings.ToLower(s)
			}
			v.args = append(v.args, item)
			parts[i] = "?"
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", ")), nil
	case map[string]struct{}:
		parts := make([]string, 0, len(val))
		for key := range val {
			v.args = append(v.args, strings.ToLower(key))
			parts = append(parts, "?")
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", ")), nil
	case string:
		v.args = append(v.args, strings.ToLower(val))
		return "?", nil
	case int, int64, float64, bool:
		v.args = append(v.args, val)
		return "?", nil
	default:
		return "", fmt.Errorf("unsupported constant type: %T", val)
	}
}

func (v *sqlVisitor) visitFunc(name string, args []ast.Node) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s() requires exactly 1 argument", name)
	}
	arg, err := v.visit(&args[0])
	if err != nil {
		return "", err
	}

	switch name {
	case "lower":
		return fmt.Sprintf("lower(%s)", arg), nil
	case "upper":
		return fmt.Sprintf("upper(%s)", arg), nil
	case "len":
		return fmt.Sprintf("length(%s)", arg), nil
	default:
		return "", fmt.Errorf("unsupported function: %s", name)
	}
}

func (v *sqlVisitor) isStringMethodCall(n *ast.BinaryNode) bool {
	switch n.Operator {
	case "contains", "startsWith", "endsWith":
		return true
	}
	return false
}

// handleStringMethod renders contains/startsWith/endsWith as a
// case-insensitive LIKE.
func (v *sqlVisitor) handleStringMethod(n *ast.BinaryNode) (string, error) {
	left, err := v.visit(&n.Left)
	if err != nil {
		return "", err
	}
	str, ok := n.Right.(*ast.StringNode)
	if !ok {
		return "", fmt.Errorf("%s requires a string literal", n.Operator)
	}

	pattern := escapeLike(strings.ToLower(str.Value))
	switch n.Operator {
	case "contains":
		pattern = "%" + pattern + "%"
	case "startsWith":
		pattern = pattern + "%"
	case "endsWith":
		pattern = "%" + pattern
	}
	v.args = append(v.args, pattern)
	return fmt.Sprintf("lower(%s) LIKE ? ESCAPE '\\'", left), nil
}

func (v *sqlVisitor) handleNil(n *ast.BinaryNode) (string, error) {
	left, err := v.visit(&n.Left)
	if err != nil {
		return "", err
	}
	switch n.Operator {
	case "==":
		return fmt.Sprintf("(%s IS NULL)", left), nil
	case "!=":
		return fmt.Sprintf("(%s IS NOT NULL)", left), nil
	default:
		return "", fmt.Errorf("operator %q cannot compare with nil", n.Operator)
	}
}

// handleTime compares a time column with a date literal.
func (v *sqlVisitor) handleTime(field FieldDef, n *ast.BinaryNode) (string, error) {
	str, ok := n.Right.(*ast.StringNode)
	if !ok {
		return "", fmt.Errorf("field %q must be compared with a date string", field.Name)
	}
	t, err := ParseBound(str.Value)
	if err != nil {
		return "", err
	}
	op, err := v.mapOperator(n.Operator)
	if err != nil {
		return "", err
	}
	v.args = append(v.args, t)
	return fmt.Sprintf("(%s %s ?)", field.Column, op), nil
}

func (v *sqlVisitor) isStringField(node ast.Node) bool {
	if ident, ok := node.(*ast.IdentifierNode); ok {
		if field, ok := v.fields[ident.Value]; ok {
			return field.Type == FieldTypeString
		}
	}
	return false
}

func (v *sqlVisitor) timeField(node ast.Node) (FieldDef, bool) {
	if ident, ok := node.(*ast.IdentifierNode); ok {
		if field, ok := v.fields[ident.Value]; ok && field.Type == FieldTypeTime {
			return field, true
		}
	}
	return FieldDef{}, false
}

func (v *sqlVisitor) mapOperator(op string) (string, error) {
	switch op {
	case "==":
		return "=", nil
	case "!=":
		return "!=", nil
	case "and", "&&":
		return "AND", nil
	case "or", "||":
		return "OR", nil
	case ">=", "<=", ">", "<":
		return op, nil
	case "-", "+", "*", "/":
		return op, nil
	default:
		return "", fmt.Errorf("unknown operator: %s", op)
	}
}

// ParseBound parses a range bound given as RFC3339 or YYYY-MM-DD.
func ParseBound(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", s)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
