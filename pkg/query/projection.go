// Package query builds parameterized PostgreSQL SELECT statements over a
// projected table.
package query

import (
	"strings"
)

// Projection maps logical field names onto the qualified columns of one
// table.
type Projection struct {
	table   string
	alias   string
	columns map[string]string
	list    []string
}

// NewProjection creates a Projection of table under alias.
func NewProjection(table, alias string) *Projection {
	return &Projection{
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project adds column under the logical name field. Columns are selected in
// the order they are projected.
func (p *Projection) Project(column, field string) *Projection {
	qualified := p.alias + "." + column
	p.columns[field] = qualified
	p.list = append(p.list, qualified)
	return p
}

// Column returns the qualified column of field, or field itself when it is
// not projected.
func (p *Projection) Column(field string) string {
	if col, ok := p.columns[field]; ok {
		return col
	}
	return field
}

// Columns returns the projected columns as a select list.
func (p *Projection) Columns() string {
	return strings.Join(p.list, ", ")
}

// From returns the aliased table reference.
func (p *Projection) From() string {
	return p.table + " " + p.alias
}
