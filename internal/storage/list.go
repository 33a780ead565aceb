package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/secdash/internal/query"
)

// listSpec describes how ListFilter maps onto one table.
type listSpec struct {
	table   string
	columns []string
	fields  query.Schema
	// dateColumns are coalesced for the start/end range.
	dateColumns   []string
	searchColumns []string
	severity      string
	status        string
	title         string
	sensorType    string
	orderBy       string
	orderDesc     bool
}

// predicates converts a filter into SQL predicates.
func (l listSpec) predicates(f ListFilter) ([]*query.Predicate, error) {
	preds := []*query.Predicate{
		query.DateRange(f.Start, f.End, l.dateColumns...),
		query.Search(f.Search, l.searchColumns...),
	}
	if l.severity != "" {
		preds = append(preds, query.In(l.severity, f.Severities))
	}
	if l.status != "" {
		preds = append(preds, query.In(l.status, f.Statuses))
	}
	if l.title != "" {
		preds = append(preds, query.In(l.title, f.Titles))
	}
	if l.sensorType != "" {
		preds = append(preds, query.In(l.sensorType, f.SensorTypes))
	}
	if f.Expression != "" {
		p, err := query.Compile(l.fields, f.Expression)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// list runs the count and page queries for f. The caller scans and
// closes the returned rows.
func (db *DB) list(ctx context.Context, l listSpec, f ListFilter, base ...*query.Predicate) (*sql.Rows, int64, error) {
	preds, err := l.predicates(f)
	if err != nil {
		return nil, 0, err
	}

	q := query.New(l.table, l.columns, f.PageSize)
	q.Where(base...).Where(preds...).SetPage(f.Page)
	if l.orderBy != "" {
		if err := q.OrderBy(l.orderBy, l.orderDesc); err != nil {
			return nil, 0, err
		}
		if l.orderBy != "id" {
			_ = q.OrderBy("id", false)
		}
	}

	countSQL, countArgs := q.BuildCount()
	var total int64
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", l.table, err)
	}

	selectSQL, args := q.Build()
	rows, err := db.QueryContext(ctx, selectSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", l.table, err)
	}
	return rows, total, nil
}
