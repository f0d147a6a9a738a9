package metadata

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

// ErrNoStatement is returned when a terminal is invoked on a builder that
// never received a statement (Select/Insert/Update/Delete).
var ErrNoStatement = errors.New("metadata: query builder has no statement")

// ConstraintOp is the comparison token of a constraint. IS is null-safe and
// is what the tree walk uses for (name, directory_id) lookups; EQ is plain
// equality.
type ConstraintOp string

const (
	OpIs ConstraintOp = "IS"
	OpEq ConstraintOp = "="
)

// Constraint is one (field, op, value) filter. Constraints sharing the same
// op are grouped into a single row-value clause, so
//
//	Where(Constraint{"name", OpIs, n}, Constraint{"directory_id", OpIs, d})
//
// renders as (name, directory_id) IS (?, ?).
type Constraint struct {
	Field string
	Op    ConstraintOp
	Value any
}

type statementKind int

const (
	stmtNone statementKind = iota
	stmtSelect
	stmtInsert
	stmtUpdate
	stmtDelete
)

// QueryBuilder composes exactly one statement plus zero or more constraints
// against a single schema. Terminals open a fresh connection, run the
// statement, and close the connection before returning.
type QueryBuilder struct {
	store       *Store
	schema      Schema
	kind        statementKind
	selectCols  []string
	values      map[string]any
	constraints []Constraint
}

// Select makes the builder a SELECT. With no arguments all declared columns
// are fetched in schema order; otherwise only the named columns that belong
// to the schema are kept.
func (q *QueryBuilder) Select(cols ...string) *QueryBuilder {
	q.kind = stmtSelect
	if len(cols) == 0 {
		q.selectCols = q.schema.ColumnNames()
		return q
	}
	q.selectCols = nil
	for _, c := range cols {
		if q.schema.hasColumn(c) {
			q.selectCols = append(q.selectCols, c)
		}
	}
	return q
}

// Insert makes the builder an INSERT of the given column values.
func (q *QueryBuilder) Insert(values map[string]any) *QueryBuilder {
	q.kind = stmtInsert
	q.values = values
	return q
}

// Update makes the builder an UPDATE setting the given column values.
func (q *QueryBuilder) Update(values map[string]any) *QueryBuilder {
	q.kind = stmtUpdate
	q.values = values
	return q
}

// Delete makes the builder a DELETE.
func (q *QueryBuilder) Delete() *QueryBuilder {
	q.kind = stmtDelete
	return q
}

// Where appends constraints. Calls accumulate.
func (q *QueryBuilder) Where(cs ...Constraint) *QueryBuilder {
	q.constraints = append(q.constraints, cs...)
	return q
}

// whereExprs groups the accumulated constraints by op (first-appearance
// order) and renders each group as one row-value clause. Squirrel ANDs the
// returned expressions together.
func (q *QueryBuilder) whereExprs() []squirrel.Sqlizer {
	var order []ConstraintOp
	groups := make(map[ConstraintOp][]Constraint)
	for _, c := range q.constraints {
		if _, ok := groups[c.Op]; !ok {
			order = append(order, c.Op)
		}
		groups[c.Op] = append(groups[c.Op], c)
	}

	exprs := make([]squirrel.Sqlizer, 0, len(order))
	for _, op := range order {
		group := groups[op]
		if len(group) == 1 {
			exprs = append(exprs, squirrel.Expr(
				fmt.Sprintf("%s %s ?", group[0].Field, op), group[0].Value))
			continue
		}
		fields := make([]string, len(group))
		marks := make([]string, len(group))
		args := make([]any, len(group))
		for i, c := range group {
			fields[i] = c.Field
			marks[i] = "?"
			args[i] = c.Value
		}
		exprs = append(exprs, squirrel.Expr(
			fmt.Sprintf("(%s) %s (%s)", strings.Join(fields, ", "), op, strings.Join(marks, ", ")),
			args...))
	}
	return exprs
}

// build renders the statement and its arguments.
func (q *QueryBuilder) build() (string, []any, error) {
	switch q.kind {
	case stmtSelect:
		b := squirrel.Select(q.selectCols...).From(q.schema.Table)
		for _, e := range q.whereExprs() {
			b = b.Where(e)
		}
		return b.ToSql()
	case stmtInsert:
		return squirrel.Insert(q.schema.Table).SetMap(q.values).ToSql()
	case stmtUpdate:
		b := squirrel.Update(q.schema.Table).SetMap(q.values)
		for _, e := range q.whereExprs() {
			b = b.Where(e)
		}
		return b.ToSql()
	case stmtDelete:
		b := squirrel.Delete(q.schema.Table)
		for _, e := range q.whereExprs() {
			b = b.Where(e)
		}
		return b.ToSql()
	default:
		return "", nil, ErrNoStatement
	}
}

// Exec runs an insert, update, or delete. For inserts the new row id is
// returned; otherwise the id is zero.
func (q *QueryBuilder) Exec() (lastID int64, err error) {
	query, args, err := q.build()
	if err != nil {
		return 0, err
	}
	if q.kind == stmtSelect {
		return 0, fmt.Errorf("metadata: Exec on a select statement")
	}

	db, err := q.store.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec %s: %w", q.schema.Table, err)
	}
	if q.kind == stmtInsert {
		lastID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id on %s: %w", q.schema.Table, err)
		}
	}
	return lastID, nil
}

// RowScan turns the current row of a cursor into a value.
type RowScan[T any] func(*sql.Rows) (*T, error)

// FetchOne runs a select and scans the first row, or returns nil when the
// result set is empty.
func FetchOne[T any](q *QueryBuilder, scan RowScan[T]) (*T, error) {
	query, args, err := q.build()
	if err != nil {
		return nil, err
	}
	if q.kind != stmtSelect {
		return nil, fmt.Errorf("metadata: FetchOne on a non-select statement")
	}

	db, err := q.store.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.schema.Table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query %s: %w", q.schema.Table, err)
		}
		return nil, nil
	}
	return scan(rows)
}

// FetchAll runs a select and scans every row.
func FetchAll[T any](q *QueryBuilder, scan RowScan[T]) ([]*T, error) {
	query, args, err := q.build()
	if err != nil {
		return nil, err
	}
	if q.kind != stmtSelect {
		return nil, fmt.Errorf("metadata: FetchAll on a non-select statement")
	}

	db, err := q.store.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.schema.Table, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.schema.Table, err)
	}
	return out, nil
}
