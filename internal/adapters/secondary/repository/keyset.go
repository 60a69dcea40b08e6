package repository

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// sortColumn is one term of a strategy's ORDER BY, mapped for both stores.
type sortColumn struct {
	sql   string
	bson  string
	value func(domain.SortKey) any
}

var (
	colViews     = sortColumn{sql: "views", bson: "views", value: func(k domain.SortKey) any { return k.Views }}
	colCreatedAt = sortColumn{sql: "created_at", bson: "created_at", value: func(k domain.SortKey) any { return k.CreatedAt.UTC() }}
	colID        = sortColumn{sql: "id", bson: "_id", value: func(k domain.SortKey) any { return k.ID }}
)

// keysetColumns lists the sort terms of each strategy, all descending.
// The id always comes last so that the order is total.
var keysetColumns = map[domain.Strategy][]sortColumn{
	domain.StrategyRecent:  {colCreatedAt, colID},
	domain.StrategyPopular: {colViews, colCreatedAt, colID},
}

func columnsFor(strategy domain.Strategy) ([]sortColumn, error) {
	cols, ok := keysetColumns[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}
	return cols, nil
}

// --- SQL ---

// sqlQuery accumulates positional arguments while a statement is built.
type sqlQuery struct {
	sb   strings.Builder
	args []any
}

func newSQLQuery(base string, args ...any) *sqlQuery {
	q := &sqlQuery{args: args}
	q.sb.WriteString(base)
	return q
}

func (q *sqlQuery) bind(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// seek appends the "strictly after pos" predicate:
// (c1 < v1) OR (c1 = v1 AND c2 < v2) OR ... with each value bound once.
func (q *sqlQuery) seek(cols []sortColumn, pos domain.Position) {
	key := pos.SortKey()
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = q.bind(c.value(key))
	}

	terms := make([]string, len(cols))
	for i := range cols {
		parts := make([]string, 0, i+1)
		for j := 0; j < i; j++ {
			parts = append(parts, cols[j].sql+" = "+placeholders[j])
		}
		parts = append(parts, cols[i].sql+" < "+placeholders[i])
		terms[i] = "(" + strings.Join(parts, " AND ") + ")"
	}
	q.sb.WriteString(" AND (")
	q.sb.WriteString(strings.Join(terms, " OR "))
	q.sb.WriteString(")")
}

func (q *sqlQuery) orderAndLimit(cols []sortColumn, limit int) {
	terms := make([]string, len(cols))
	for i, c := range cols {
		terms[i] = c.sql + " DESC"
	}
	q.sb.WriteString(" ORDER BY ")
	q.sb.WriteString(strings.Join(terms, ", "))
	q.sb.WriteString(" LIMIT ")
	q.sb.WriteString(q.bind(limit))
}

// buildKeysetSQL completes base, a SELECT whose WHERE clause already filters
// visibility, with the seek predicate, the ORDER BY and the LIMIT.
func buildKeysetSQL(base string, baseArgs []any, strategy domain.Strategy, pos domain.Position, limit int) (string, []any, error) {
	cols, err := columnsFor(strategy)
	if err != nil {
		return "", nil, err
	}
	if pos != nil && pos.Strategy() != strategy {
		return "", nil, fmt.Errorf("%w: position of %s used with %s", domain.ErrInvalidCursor, pos.Strategy(), strategy)
	}

	q := newSQLQuery(base, baseArgs...)
	if pos != nil {
		q.seek(cols, pos)
	}
	q.orderAndLimit(cols, limit)
	return q.sb.String(), q.args, nil
}

// --- MongoDB ---

// buildKeysetFilter is the document-store form of buildKeysetSQL: a filter
// with the same seek predicate and the matching sort document.
func buildKeysetFilter(scope bson.D, strategy domain.Strategy, pos domain.Position) (bson.D, bson.D, error) {
	cols, err := columnsFor(strategy)
	if err != nil {
		return nil, nil, err
	}
	if pos != nil && pos.Strategy() != strategy {
		return nil, nil, fmt.Errorf("%w: position of %s used with %s", domain.ErrInvalidCursor, pos.Strategy(), strategy)
	}

	filter := append(bson.D{{Key: "deleted_at", Value: nil}}, scope...)
	if pos != nil {
		key := pos.SortKey()
		or := make(bson.A, len(cols))
		for i := range cols {
			term := bson.D{}
			for j := 0; j < i; j++ {
				term = append(term, bson.E{Key: cols[j].bson, Value: cols[j].value(key)})
			}
			term = append(term, bson.E{Key: cols[i].bson, Value: bson.D{{Key: "$lt", Value: cols[i].value(key)}}})
			or[i] = term
		}
		filter = append(filter, bson.E{Key: "$or", Value: or})
	}

	sort := make(bson.D, len(cols))
	for i, c := range cols {
		sort[i] = bson.E{Key: c.bson, Value: -1}
	}
	return filter, sort, nil
}
