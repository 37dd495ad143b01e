package builder

import (
	"fmt"
	"strconv"
	"strings"
)

// SQLBuilder helps construct SQL queries dynamically.
// Conditions are written with "?" markers; Build rewrites them to the
// positional $n form Postgres expects, numbered in the order they appear.
type SQLBuilder struct {
	kind       statementKind
	table      string
	columns    []string
	rows       [][]interface{}
	sets       []assignment
	joins      []clause
	conditions []condition
	groupBy    []string
	having     []clause
	orderBy    []string
	limit      int
	offset     int
	conflict   *conflictClause
	returning  []string
}

type statementKind int

const (
	kindNone statementKind = iota
	kindSelect
	kindInsert
	kindUpdate
	kindDelete
)

type clause struct {
	sql  string
	args []interface{}
}

type assignment struct {
	col string
	val interface{}
}

// condition is one WHERE term. A group holds its own parenthesized terms.
type condition struct {
	clause
	or    bool
	group *SQLBuilder
}

type conflictClause struct {
	target []string
}

// NewSQLBuilder creates a new instance of SQLBuilder.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// Select specifies the columns to retrieve.
func (b *SQLBuilder) Select(cols ...string) *SQLBuilder {
	b.kind = kindSelect
	b.columns = cols
	return b
}

// Insert specifies the table and columns for insertion.
func (b *SQLBuilder) Insert(table string, cols ...string) *SQLBuilder {
	b.kind = kindInsert
	b.table = table
	b.columns = cols
	return b
}

// Update specifies the table to update.
func (b *SQLBuilder) Update(table string) *SQLBuilder {
	b.kind = kindUpdate
	b.table = table
	return b
}

// Delete specifies the table to delete from.
func (b *SQLBuilder) Delete(table string) *SQLBuilder {
	b.kind = kindDelete
	b.table = table
	return b
}

// From specifies the table to select from.
func (b *SQLBuilder) From(table string) *SQLBuilder {
	b.table = table
	return b
}

// Set adds a column assignment for update.
func (b *SQLBuilder) Set(col string, val interface{}) *SQLBuilder {
	b.sets = append(b.sets, assignment{col: col, val: val})
	return b
}

// Values adds one row for insertion. Call it repeatedly for a multi-row insert.
func (b *SQLBuilder) Values(vals ...interface{}) *SQLBuilder {
	b.rows = append(b.rows, vals)
	return b
}

// OnConflictDoNothing skips rows that violate a unique constraint on target.
func (b *SQLBuilder) OnConflictDoNothing(target ...string) *SQLBuilder {
	b.conflict = &conflictClause{target: target}
	return b
}

// Returning adds a RETURNING clause.
func (b *SQLBuilder) Returning(cols ...string) *SQLBuilder {
	b.returning = cols
	return b
}

// Where adds a condition joined to the previous one with AND.
func (b *SQLBuilder) Where(cond string, args ...interface{}) *SQLBuilder {
	b.conditions = append(b.conditions, condition{clause: clause{sql: cond, args: args}})
	return b
}

// Or adds a condition joined to the previous one with OR.
func (b *SQLBuilder) Or(cond string, args ...interface{}) *SQLBuilder {
	b.conditions = append(b.conditions, condition{clause: clause{sql: cond, args: args}, or: true})
	return b
}

// WhereGroup adds a parenthesized group joined with AND.
// The provided function receives a new SQLBuilder for building the grouped conditions.
func (b *SQLBuilder) WhereGroup(fn func(*SQLBuilder) *SQLBuilder) *SQLBuilder {
	b.conditions = append(b.conditions, condition{group: fn(NewSQLBuilder())})
	return b
}

// Join adds a JOIN clause. The ON expression may carry "?" markers.
func (b *SQLBuilder) Join(joinType, table, on string, args ...interface{}) *SQLBuilder {
	b.joins = append(b.joins, clause{
		sql:  fmt.Sprintf("%s JOIN %s ON %s", joinType, table, on),
		args: args,
	})
	return b
}

// GroupBy adds a GROUP BY clause.
func (b *SQLBuilder) GroupBy(cols ...string) *SQLBuilder {
	b.groupBy = append(b.groupBy, cols...)
	return b
}

// Having adds a HAVING condition, joined with AND.
func (b *SQLBuilder) Having(cond string, args ...interface{}) *SQLBuilder {
	b.having = append(b.having, clause{sql: cond, args: args})
	return b
}

// OrderBy adds an ORDER BY clause.
func (b *SQLBuilder) OrderBy(order ...string) *SQLBuilder {
	b.orderBy = append(b.orderBy, order...)
	return b
}

// Limit adds a LIMIT clause.
func (b *SQLBuilder) Limit(limit int) *SQLBuilder {
	b.limit = limit
	return b
}

// Offset adds an OFFSET clause.
func (b *SQLBuilder) Offset(offset int) *SQLBuilder {
	b.offset = offset
	return b
}

// BuildSafe constructs the final SQL string and arguments with safety validation.
// Returns an error if the number of placeholders doesn't match the number of arguments.
func (b *SQLBuilder) BuildSafe() (string, []interface{}, error) {
	if b.kind == kindNone {
		return "", nil, fmt.Errorf("no statement type set")
	}
	if b.table == "" {
		return "", nil, fmt.Errorf("no table set")
	}
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(b.columns))
		}
	}

	raw, args := b.render()
	if n := strings.Count(raw, "?"); n != len(args) {
		return "", nil, fmt.Errorf("placeholder count (%d) does not match argument count (%d)", n, len(args))
	}
	return rebind(raw), args, nil
}

// Build constructs the final SQL string and arguments.
func (b *SQLBuilder) Build() (string, []interface{}) {
	raw, args := b.render()
	return rebind(raw), args
}

// render writes the statement with "?" markers, collecting args in the
// same order the markers appear.
func (b *SQLBuilder) render() (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	switch b.kind {
	case kindSelect:
		sb.WriteString("SELECT ")
		sb.WriteString(strings.Join(b.columns, ", "))
		sb.WriteString(" FROM ")
		sb.WriteString(b.table)
		for _, j := range b.joins {
			sb.WriteString(" ")
			sb.WriteString(j.sql)
			args = append(args, j.args...)
		}
	case kindInsert:
		sb.WriteString("INSERT INTO ")
		sb.WriteString(b.table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(b.columns, ", "))
		sb.WriteString(") VALUES ")
		for i, row := range b.rows {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(")
			sb.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(row)), ", "))
			sb.WriteString(")")
			args = append(args, row...)
		}
		if b.conflict != nil {
			sb.WriteString(" ON CONFLICT")
			if len(b.conflict.target) > 0 {
				sb.WriteString(" (")
				sb.WriteString(strings.Join(b.conflict.target, ", "))
				sb.WriteString(")")
			}
			sb.WriteString(" DO NOTHING")
		}
		b.writeReturning(&sb)
		return sb.String(), args
	case kindUpdate:
		sb.WriteString("UPDATE ")
		sb.WriteString(b.table)
		sb.WriteString(" SET ")
		for i, s := range b.sets {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(s.col)
			sb.WriteString(" = ?")
			args = append(args, s.val)
		}
	case kindDelete:
		sb.WriteString("DELETE FROM ")
		sb.WriteString(b.table)
	}

	if len(b.conditions) > 0 {
		sb.WriteString(" WHERE ")
		args = append(args, writeConditions(&sb, b.conditions)...)
	}

	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}

	if len(b.having) > 0 {
		sb.WriteString(" HAVING ")
		for i, h := range b.having {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(h.sql)
			args = append(args, h.args...)
		}
	}

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", b.limit))
	}

	if b.offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", b.offset))
	}

	if b.kind == kindUpdate || b.kind == kindDelete {
		b.writeReturning(&sb)
	}

	return sb.String(), args
}

func (b *SQLBuilder) writeReturning(sb *strings.Builder) {
	if len(b.returning) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(b.returning, ", "))
	}
}

func writeConditions(sb *strings.Builder, conds []condition) []interface{} {
	var args []interface{}
	for i, c := range conds {
		if i > 0 {
			if c.or {
				sb.WriteString(" OR ")
			} else {
				sb.WriteString(" AND ")
			}
		}
		if c.group != nil {
			if len(c.group.conditions) == 0 {
				sb.WriteString("TRUE")
				continue
			}
			sb.WriteString("(")
			args = append(args, writeConditions(sb, c.group.conditions)...)
			sb.WriteString(")")
			continue
		}
		sb.WriteString(c.sql)
		args = append(args, c.args...)
	}
	return args
}

// rebind rewrites each "?" to $1, $2, ... in textual order.
func rebind(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}
