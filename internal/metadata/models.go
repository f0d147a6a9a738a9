package metadata

import (
	"database/sql"
	"fmt"
)

// Row models that mirror the three tables. These are plain data transfer
// structs, not ORM objects: scanning is positional against the declared
// column order of the matching Schema.

// Directories is the namespace-container table. The root directory is
// implicit: rows with a NULL directory_id sit at the top level.
var Directories = Schema{
	Table: "directories",
	Columns: []Column{
		{Name: "id", Type: ColInteger, PrimaryKey: true},
		{Name: "name", Type: ColText},
		{Name: "directory_id", Type: ColInteger, Nullable: true},
	},
}

// Files maps a name within a directory scope to the current Filenode.
var Files = Schema{
	Table: "files",
	Columns: []Column{
		{Name: "id", Type: ColInteger, PrimaryKey: true},
		{Name: "name", Type: ColText},
		{Name: "directory_id", Type: ColInteger, Nullable: true},
		{Name: "filenode_id", Type: ColInteger},
	},
}

// Filenodes records immutable content versions: a content hash, times, size,
// and a link to the previous version.
var Filenodes = Schema{
	Table: "filenodes",
	Columns: []Column{
		{Name: "id", Type: ColInteger, PrimaryKey: true},
		{Name: "hash", Type: ColText},
		{Name: "ctime", Type: ColReal},
		{Name: "atime", Type: ColReal},
		{Name: "mtime", Type: ColReal},
		{Name: "size", Type: ColInteger},
		{Name: "previous_filenode_id", Type: ColInteger, Nullable: true},
	},
}

// Directory is a row of the directories table.
type Directory struct {
	ID       int64
	Name     string
	ParentID sql.NullInt64 // directory_id; invalid at top level
}

// File is a row of the files table.
type File struct {
	ID          int64
	Name        string
	DirectoryID sql.NullInt64 // invalid for files in the root
	FilenodeID  int64
}

// Filenode is a row of the filenodes table. Times are unix seconds.
type Filenode struct {
	ID         int64
	Hash       string
	Ctime      float64
	Atime      float64
	Mtime      float64
	Size       int64
	PreviousID sql.NullInt64 // previous_filenode_id; invalid for the oldest version
}

// ScanDirectory scans the current row in Directories column order.
func ScanDirectory(rows *sql.Rows) (*Directory, error) {
	var d Directory
	if err := rows.Scan(&d.ID, &d.Name, &d.ParentID); err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	return &d, nil
}

// ScanFile scans the current row in Files column order.
func ScanFile(rows *sql.Rows) (*File, error) {
	var f File
	if err := rows.Scan(&f.ID, &f.Name, &f.DirectoryID, &f.FilenodeID); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return &f, nil
}

// ScanFilenode scans the current row in Filenodes column order.
func ScanFilenode(rows *sql.Rows) (*Filenode, error) {
	var n Filenode
	if err := rows.Scan(&n.ID, &n.Hash, &n.Ctime, &n.Atime, &n.Mtime, &n.Size, &n.PreviousID); err != nil {
		return nil, fmt.Errorf("scan filenode: %w", err)
	}
	return &n, nil
}

// Files returns the files whose directory_id is this directory's id.
func (d *Directory) Files(s *Store) ([]*File, error) {
	return OneToMany(s, Files, "directory_id", d.ID, ScanFile)
}

// Directories returns the immediate subdirectories of this directory.
func (d *Directory) Directories(s *Store) ([]*Directory, error) {
	return OneToMany(s, Directories, "directory_id", d.ID, ScanDirectory)
}

// Filenode returns the file's current content version.
func (f *File) Filenode(s *Store) (*Filenode, error) {
	return OneToOne(s, Filenodes, "id", f.FilenodeID, ScanFilenode)
}

// Previous returns the next-older version in the chain, or nil at the end.
func (n *Filenode) Previous(s *Store) (*Filenode, error) {
	if !n.PreviousID.Valid {
		return nil, nil
	}
	return OneToOne(s, Filenodes, "id", n.PreviousID.Int64, ScanFilenode)
}

// NullID wraps an optional row id the way the tables store it: nil maps to
// NULL, anything else to the id value.
func NullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
