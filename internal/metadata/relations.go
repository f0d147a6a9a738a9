package metadata

// OneToMany returns all rows of schema whose otherKey column matches value.
func OneToMany[T any](s *Store, schema Schema, otherKey string, value any, scan RowScan[T]) ([]*T, error) {
	return FetchAll(s.Query(schema).Select().Where(Constraint{otherKey, OpIs, value}), scan)
}

// OneToOne returns the first row of schema whose otherKey column matches
// value, or nil when there is none.
func OneToOne[T any](s *Store, schema Schema, otherKey string, value any, scan RowScan[T]) (*T, error) {
	return FetchOne(s.Query(schema).Select().Where(Constraint{otherKey, OpIs, value}), scan)
}
