package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
)

// ParsedQuery holds a validated and parsed expression.
type ParsedQuery struct {
	program *vm.Program
	node    ast.Node
	raw     string
}

// Node returns the AST root node.
func (pq *ParsedQuery) Node() ast.Node {
	return pq.node
}

// Raw returns the original expression string.
func (pq *ParsedQuery) Raw() string {
	return pq.raw
}

// QueryDSL handles expression parsing and validation for one schema.
type QueryDSL struct {
	fields Schema
}

// NewQueryDSL creates a new DSL parser with the given field definitions.
func NewQueryDSL(fields Schema) *QueryDSL {
	return &QueryDSL{fields: fields}
}

// Parse compiles and validates an expression string.
func (d *QueryDSL) Parse(expression string) (*ParsedQuery, error) {
	if expression == "" {
		return nil, fmt.Errorf("empty expression")
	}

	program, err := expr.Compile(
		expression,
		expr.Env(d.buildEnv()),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	node := program.Node()
	if err := d.validateAST(&node); err != nil {
		return nil, err
	}

	return &ParsedQuery{
		program: program,
		node:    node,
		raw:     expression,
	}, nil
}

// buildEnv creates typed placeholders for compilation. Time fields are
// strings so they compare against date literals; the SQL builder turns
// those literals into time values.
func (d *QueryDSL) buildEnv() map[string]any {
	env := make(map[string]any, len(d.fields))
	for name, field := range d.fields {
		switch field.Type {
		case FieldTypeString, FieldTypeTime:
			env[name] = ""
		case FieldTypeInt:
			env[name] = 0
		case FieldTypeFloat:
			env[name] = 0.0
		case FieldTypeBool:
			env[name] = false
		}
	}
	return env
}

func (d *QueryDSL) validateAST(node *ast.Node) error {
	v := &validationVisitor{fields: d.fields}
	ast.Walk(node, v)
	return v.err
}

type validationVisitor struct {
	fields Schema
	err    error
}

func (v *validationVisitor) Visit(node *ast.Node) {
	if v.err != nil {
		return
	}

	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if _, ok := v.fields[n.Value]; !ok && !allowedFunctions[n.Value] {
			v.err = fmt.Errorf("unknown field: %s", n.Value)
		}

	case *ast.BinaryNode:
		if ident, ok := n.Left.(*ast.IdentifierNode); ok {
			if field, ok := v.fields[ident.Value]; ok && !isLogical(n.Operator) {
				if !field.IsOperatorAllowed(n.Operator) {
					v.err = fmt.Errorf("operator %q not allowed for field %q", n.Operator, ident.Value)
				}
			}
		}

	case *ast.MemberNode:
		v.err = fmt.Errorf("member access is not supported")

	case *ast.CallNode:
		if ident, ok := n.Callee.(*ast.IdentifierNode); ok && !allowedFunctions[ident.Value] {
			v.err = fmt.Errorf("function %q is not allowed", ident.Value)
		}

	case *ast.BuiltinNode:
		if !allowedFunctions[n.Name] {
			v.err = fmt.Errorf("function %q is not allowed", n.Name)
		}
	}
}

// allowedFunctions lists the calls the SQL builder can translate.
var allowedFunctions = map[string]bool{
	"lower": true,
	"upper": true,
	"len":   true,
}

func isLogical(op string) bool {
	switch op {
	case "and", "&&", "or", "||":
		return true
	}
	return false
}
