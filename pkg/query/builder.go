package query

import (
	"fmt"
	"strings"
	"time"
)

// Order is one ORDER BY term.
type Order struct {
	Field      string
	Descending bool
}

type condition struct {
	column string
	op     string
	arg    any
}

// Builder accumulates conditions for a SELECT over a Projection. Conditions
// with a zero value are skipped, so optional filters can be passed through
// unconditionally.
type Builder struct {
	projection *Projection
	conditions []condition
	order      []Order
	limit      int
}

// NewBuilder creates a Builder ordered by order.
func NewBuilder(p *Projection, order ...Order) *Builder {
	return &Builder{projection: p, order: order}
}

// WhereEquals adds field = value. Empty strings are skipped.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if value == nil {
		return b
	}
	if s, ok := value.(string); ok && s == "" {
		return b
	}
	b.conditions = append(b.conditions, condition{column: b.projection.Column(field), op: "=", arg: value})
	return b
}

// WhereSince adds field >= t. The zero time is skipped.
func (b *Builder) WhereSince(field string, t time.Time) *Builder {
	if t.IsZero() {
		return b
	}
	b.conditions = append(b.conditions, condition{column: b.projection.Column(field), op: ">=", arg: t})
	return b
}

// Limit caps the number of rows. Zero or less means no limit.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Build returns the statement and its arguments, numbered $1..$n in
// condition order.
func (b *Builder) Build() (string, []any) {
	var (
		sb   strings.Builder
		args = make([]any, 0, len(b.conditions))
	)

	fmt.Fprintf(&sb, "SELECT %s FROM %s", b.projection.Columns(), b.projection.From())

	for i, c := range b.conditions {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		args = append(args, c.arg)
		fmt.Fprintf(&sb, "%s %s $%d", c.column, c.op, len(args))
	}

	for i, o := range b.order {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, "%s %s", b.projection.Column(o.Field), dir)
	}

	if b.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}

	return sb.String(), args
}
