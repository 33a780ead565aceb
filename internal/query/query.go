package query

import (
	"fmt"
	"strings"
)

// Query builds a SELECT over one table from predicates, ordering and
// pagination.
type Query struct {
	table      string
	columns    []string
	predicates []*Predicate
	orderBy    []string
	pageSize   int
	page       int
}

// New creates a query over table selecting columns. Pass pageSize 0
// for no pagination.
func New(table string, columns []string, pageSize int) *Query {
	return &Query{
		table:    table,
		columns:  columns,
		pageSize: pageSize,
		page:     1,
	}
}

// Where appends predicates. Nil predicates are ignored.
func (q *Query) Where(preds ...*Predicate) *Query {
	for _, p := range preds {
		if p != nil {
			q.predicates = append(q.predicates, p)
		}
	}
	return q
}

// OrderBy appends a sort key. Only selected columns are accepted.
func (q *Query) OrderBy(column string, desc bool) error {
	if !q.hasColumn(column) {
		return fmt.Errorf("invalid order by field: %s", column)
	}
	if desc {
		column += " DESC"
	}
	q.orderBy = append(q.orderBy, column)
	return nil
}

// SetPage sets the current page number (1-based).
func (q *Query) SetPage(page int) *Query {
	if page >= 1 {
		q.page = page
	}
	return q
}

// Build generates the SELECT statement and its parameters.
func (q *Query) Build() (string, []any) {
	sql := "SELECT " + strings.Join(q.columns, ", ") + " FROM " + q.table
	where, args := q.where()
	sql += where

	if len(q.orderBy) > 0 {
		sql += " ORDER BY " + strings.Join(q.orderBy, ", ")
	}
	if q.pageSize > 0 {
		offset := q.pageSize * (q.page - 1)
		sql += fmt.Sprintf(" LIMIT %d OFFSET %d", q.pageSize, offset)
	}
	return sql, args
}

// BuildCount generates a COUNT query using the same predicates.
func (q *Query) BuildCount() (string, []any) {
	where, args := q.where()
	return "SELECT COUNT(*) FROM " + q.table + where, args
}

func (q *Query) where() (string, []any) {
	combined := Combine(q.predicates, AND)
	sql, args := combined.WhereClause()
	if sql == "" {
		return "", nil
	}
	return " WHERE " + sql, args
}

func (q *Query) hasColumn(name string) bool {
	for _, c := range q.columns {
		if c == name {
			return true
		}
	}
	return false
}
