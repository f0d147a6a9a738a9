package metadata

import (
	"fmt"
	"strings"
)

// ColumnType is the storage class of a schema column. SQLite's type system is
// deliberately small; these three cover every field the metadata model needs.
type ColumnType string

const (
	ColText    ColumnType = "text"
	ColInteger ColumnType = "integer"
	ColReal    ColumnType = "real"
)

// Column describes one field of a table. PrimaryKey implies an integer
// autoincrement rowid alias; Nullable adds an explicit NULL constraint.
type Column struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	PrimaryKey bool
}

// Schema is a static table declaration: a table name and an ordered column
// list. Schemas are declared as package-level values (see models.go), never
// derived by reflection, so the column order used for scanning is fixed at
// compile time.
type Schema struct {
	Table   string
	Columns []Column
}

// ColumnNames returns the declared column names in order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// DDL renders the CREATE TABLE statement for the schema.
func (s Schema) DDL() string {
	defs := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts := []string{c.Name, string(c.Type)}
		if c.PrimaryKey {
			parts = append(parts, "primary key autoincrement")
		}
		if c.Nullable {
			parts = append(parts, "null")
		}
		defs[i] = strings.Join(parts, " ")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", s.Table, strings.Join(defs, ", "))
}

// hasColumn reports whether name is a declared column of the schema.
func (s Schema) hasColumn(name string) bool {
	for _, c := range s.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
