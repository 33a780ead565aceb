package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Logic determines how multiple predicates are combined.
type Logic int

const (
	AND Logic = iota
	OR
)

// Operator represents a SQL comparison operator.
type Operator string

const (
	Equal          Operator = "="
	NotEqual       Operator = "!="
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
)

var validOperators = map[Operator]bool{
	Equal: true, NotEqual: true, GreaterOrEqual: true, LessOrEqual: true,
}

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Predicate is a single filter condition or a composite of conditions.
// Values are always passed as parameters.
type Predicate struct {
	sql  string
	args []any
}

// Simple compares a column to a value. Returns nil for an invalid
// column or operator.
func Simple(column string, op Operator, value any) *Predicate {
	if !columnPattern.MatchString(column) || !validOperators[op] {
		return nil
	}
	return &Predicate{
		sql:  fmt.Sprintf("(%s %s ?)", column, op),
		args: []any{value},
	}
}

// NotEqualAny excludes rows whose column matches any value, ignoring case.
// Returns nil when values is empty.
func NotEqualAny(column string, values []string) *Predicate {
	p := In(column, values)
	if p == nil {
		return nil
	}
	p.sql = "NOT " + p.sql
	return p
}

// In matches a column case-insensitively against a set of values.
// Blank values are skipped; returns nil when nothing is left.
func In(column string, values []string) *Predicate {
	if !columnPattern.MatchString(column) {
		return nil
	}
	var args []any
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			args = append(args, v)
		}
	}
	if len(args) == 0 {
		return nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	return &Predicate{
		sql:  fmt.Sprintf("(lower(%s) IN (%s))", column, marks),
		args: args,
	}
}

// Search matches text as a case-insensitive substring of any column.
func Search(text string, columns ...string) *Predicate {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"

	parts := make([]*Predicate, 0, len(columns))
	for _, c := range columns {
		if !columnPattern.MatchString(c) {
			continue
		}
		parts = append(parts, &Predicate{
			sql:  fmt.Sprintf("(lower(%s) LIKE ? ESCAPE '\\')", c),
			args: []any{pattern},
		})
	}
	return Combine(parts, OR)
}

// DateRange keeps rows whose first non-null column falls in
// [from, to]. A nil bound is open.
func DateRange(from, to *time.Time, columns ...string) *Predicate {
	if from == nil && to == nil {
		return nil
	}
	for _, c := range columns {
		if !columnPattern.MatchString(c) {
			return nil
		}
	}
	if len(columns) == 0 {
		return nil
	}

	expr := columns[0]
	if len(columns) > 1 {
		expr = "COALESCE(" + strings.Join(columns, ", ") + ")"
	}

	switch {
	case from != nil && to != nil:
		return &Predicate{
			sql:  fmt.Sprintf("(%s BETWEEN ? AND ?)", expr),
			args: []any{from.UTC(), to.UTC()},
		}
	case from != nil:
		return &Predicate{sql: fmt.Sprintf("(%s >= ?)", expr), args: []any{from.UTC()}}
	default:
		return &Predicate{sql: fmt.Sprintf("(%s <= ?)", expr), args: []any{to.UTC()}}
	}
}

// Raw wraps SQL produced by the expression builder.
func Raw(sql string, args ...any) *Predicate {
	if sql == "" {
		return nil
	}
	return &Predicate{sql: "(" + sql + ")", args: args}
}

// Combine joins predicates with logic. Nil predicates are skipped;
// returns nil when none are left.
func Combine(preds []*Predicate, logic Logic) *Predicate {
	filtered := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil && p.sql != "" {
			filtered = append(filtered, p)
		}
	}

	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	}

	sep := " AND "
	if logic == OR {
		sep = " OR "
	}
	parts := make([]string, len(filtered))
	var args []any
	for i, p := range filtered {
		parts[i] = p.sql
		args = append(args, p.args...)
	}
	return &Predicate{sql: "(" + strings.Join(parts, sep) + ")", args: args}
}

// WhereClause returns the SQL fragment and its parameters.
func (p *Predicate) WhereClause() (string, []any) {
	if p == nil {
		return "", nil
	}
	return p.sql, p.args
}
